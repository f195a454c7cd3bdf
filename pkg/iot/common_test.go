package iot

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"liyu1981.xyz/energy-monitor-service/pkg/db"
	"liyu1981.xyz/energy-monitor-service/pkg/iot/mocks"
	"liyu1981.xyz/energy-monitor-service/pkg/store"
	"liyu1981.xyz/energy-monitor-service/pkg/tuya"
	"liyu1981.xyz/energy-monitor-service/pkg/tuya/tuyatest"
)

type testIOT struct {
	ctrl   *gomock.Controller
	iot    *IOT
	store  *store.GormStore
	vendor *tuyatest.Server

	notification *mocks.MockINotification
}

// GetMockIOTWithMemorySqliteDialector builds an IOT over a private in-memory
// sqlite store and a fake vendor API. The notification service
// is replaced by a mock when asked.
func GetMockIOTWithMemorySqliteDialector(t *testing.T, useMockINotification bool) *testIOT {
	t.Helper()

	ctrl := gomock.NewController(t)

	name := "iot_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	conn, err := db.New(db.UseNamedMemorySqliteDialector(name))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	gormStore := store.NewGormStore(conn, store.Limits{})
	vendor := tuyatest.NewServer("iot-id", "iot-secret", "account-iot")
	t.Cleanup(vendor.Close)

	iotInstance := New(gormStore, vendor.NewClient(tuya.ClientOpts{}))

	ti := &testIOT{
		ctrl:         ctrl,
		iot:          iotInstance,
		store:        gormStore,
		vendor:       vendor,
		notification: mocks.NewMockINotification(ctrl),
	}

	opts := ServiceOpts{}
	if useMockINotification {
		opts.Notification = ti.notification
	}
	iotInstance.WithServices(opts)

	return ti
}

func ParseLogs(r io.Reader) []any {
	scanner := bufio.NewScanner(r)
	var logs []any

	for scanner.Scan() {
		line := scanner.Text()
		var j any
		if err := json.Unmarshal([]byte(line), &j); err == nil {
			logs = append(logs, j)
		}
	}
	return logs
}

// findLog returns the first entry with the logger name, category and message.
func findLog(logs []any, category, msg string) map[string]any {
	for _, l := range logs {
		lobj, ok := l.(map[string]any)
		if !ok {
			continue
		}
		if lobj["logger"] == "iot_core" && lobj["category"] == category && lobj["msg"] == msg {
			return lobj
		}
	}
	return nil
}
