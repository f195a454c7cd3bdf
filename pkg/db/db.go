package db

import (
	"fmt"
	"log"
	"os"
	"sync"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	constant "liyu1981.xyz/energy-monitor-service/pkg/common"
	"liyu1981.xyz/energy-monitor-service/pkg/models"
)

type DB struct {
	Conn *gorm.DB
}

var (
	instance *DB
	once     sync.Once
)

// GetInstance opens the process-wide connection once; later calls ignore the
// dialector and return the same DB.
func GetInstance(dialector gorm.Dialector) *DB {
	once.Do(func() {
		var err error
		instance, err = New(dialector)
		if err != nil {
			log.Fatal("Failed to open database:", err)
		}
	})
	return instance
}

// New opens and migrates a connection that is not shared with GetInstance.
func New(dialector gorm.Dialector) (*DB, error) {
	var logger = constant.GetLoggerWith(
		constant.LoggerNameStore,
		zap.String(constant.LoggerFieldStoreBackend, dialector.Name()),
	)

	conn, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	logger.Info("Connected to database with dialector:", zap.String("dialector", dialector.Name()))

	if dialector.Name() == "sqlite" {
		if err := conn.Exec("PRAGMA journal_mode = WAL").Error; err != nil {
			return nil, fmt.Errorf("set sqlite journal mode: %w", err)
		}
	}

	err = conn.AutoMigrate(
		&models.Device{},
		&models.EnergyReading{},
		&models.MonthlyPrediction{},
		&models.Settings{},
		&models.Notification{},
	)
	if err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	logger.Info("Database migration completed")

	return &DB{Conn: conn}, nil
}

func (d *DB) Close() error {
	sqlDB, err := d.Conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func UseSqliteDialector() gorm.Dialector {
	var dbPath string
	var found bool
	if dbPath, found = os.LookupEnv(constant.EnvKeyIOTDbPath); !found {
		dbPath = "metrics.db"
	}
	return sqlite.Open(dbPath)
}

func UseMemorySqliteDialector() gorm.Dialector {
	return sqlite.Open("file::memory:?cache=shared")
}

// UseNamedMemorySqliteDialector gives each name its own in-memory database, so
// tests that scan whole tables do not see each other's rows.
func UseNamedMemorySqliteDialector(name string) gorm.Dialector {
	return sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
}

func UsePostgresDialector(dsn string) gorm.Dialector {
	return postgres.Open(dsn)
}

func UseMysqlDialector(dsn string) gorm.Dialector {
	return mysql.Open(dsn)
}

// DialectorFor maps IOT_DB_TYPE onto a GORM dialector. "mongodb" is not a GORM
// backend and is handled by ConnectMongo.
func DialectorFor(dbType, dsn string) (gorm.Dialector, error) {
	switch dbType {
	case "file":
		return UseSqliteDialector(), nil
	case "memory":
		return UseMemorySqliteDialector(), nil
	case "postgres":
		if dsn == "" {
			return nil, constant.NewConfigError(constant.EnvKeyIOTDbDSN + " is required for postgres")
		}
		return UsePostgresDialector(dsn), nil
	case "mysql":
		if dsn == "" {
			return nil, constant.NewConfigError(constant.EnvKeyIOTDbDSN + " is required for mysql")
		}
		return UseMysqlDialector(dsn), nil
	default:
		return nil, constant.NewConfigError("unknown " + constant.EnvKeyIOTDBType + ": " + dbType)
	}
}
