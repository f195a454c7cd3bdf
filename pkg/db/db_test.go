package db

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"liyu1981.xyz/energy-monitor-service/pkg/common"
	_ "liyu1981.xyz/energy-monitor-service/pkg/testing"

	"gorm.io/gorm"
)

func tableExists(db *gorm.DB, tableName string) bool {
	var count int64
	err := db.Raw(
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name=?`, tableName,
	).Scan(&count).Error
	return err == nil && count > 0
}

func TestWithMemorySqlite(t *testing.T) {
	common.SetTestLoggerNop()

	dialector := UseMemorySqliteDialector()

	instance := GetInstance(dialector)
	if instance == nil {
		t.Fatal("Expected non-nil DB instance")
	}

	var tables = []string{"devices", "energy_readings", "monthly_predictions", "settings", "notifications"}
	for _, table := range tables {
		if !tableExists(instance.Conn, table) {
			t.Errorf("Expected table %q to exist after migration", table)
		}
	}
}

func TestSingletonConcurrency(t *testing.T) {
	common.SetTestLoggerNop()

	const goroutineCount = 20

	var wg sync.WaitGroup
	instances := make(chan *DB, goroutineCount)

	for range goroutineCount {
		wg.Add(1)
		go func() {
			defer wg.Done()
			instance := GetInstance(UseMemorySqliteDialector())
			instances <- instance
		}()
	}

	wg.Wait()
	close(instances)

	var first *DB
	for inst := range instances {
		if first == nil {
			first = inst
			continue
		}
		if inst != first {
			t.Error("Expected all instances to be the same (singleton), but found different ones")
		}
	}
}

func TestNamedMemoryDatabasesAreIsolated(t *testing.T) {
	common.SetTestLoggerNop()

	first, err := New(UseNamedMemorySqliteDialector("isolation_a"))
	require.NoError(t, err)
	second, err := New(UseNamedMemorySqliteDialector("isolation_b"))
	require.NoError(t, err)

	require.NoError(t, first.Conn.Exec(
		"INSERT INTO devices (device_id, name, category, online) VALUES (?, ?, ?, ?)",
		"bf0123", "plug", "cz", true,
	).Error)

	var count int64
	require.NoError(t, second.Conn.Table("devices").Count(&count).Error)
	assert.Equal(t, int64(0), count)

	require.NoError(t, first.Conn.Table("devices").Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestDialectorFor(t *testing.T) {
	common.SetTestLoggerNop()

	dialector, err := DialectorFor("memory", "")
	require.NoError(t, err)
	assert.Equal(t, "sqlite", dialector.Name())

	dialector, err = DialectorFor("postgres", "host=localhost user=postgres dbname=energy")
	require.NoError(t, err)
	assert.Equal(t, "postgres", dialector.Name())

	dialector, err = DialectorFor("mysql", "root:pw@tcp(127.0.0.1:3306)/energy?parseTime=true")
	require.NoError(t, err)
	assert.Equal(t, "mysql", dialector.Name())

	_, err = DialectorFor("postgres", "")
	assert.ErrorIs(t, err, common.ErrConfig)

	_, err = DialectorFor("cassandra", "")
	assert.ErrorIs(t, err, common.ErrConfig)
}
