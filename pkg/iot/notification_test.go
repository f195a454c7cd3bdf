package iot

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"liyu1981.xyz/energy-monitor-service/pkg/common"
	"liyu1981.xyz/energy-monitor-service/pkg/models"
	"liyu1981.xyz/energy-monitor-service/pkg/store"
	_ "liyu1981.xyz/energy-monitor-service/pkg/testing"
)

func TestCreateNotifications(t *testing.T) {
	common.SetTestLoggerNop()

	ti := GetMockIOTWithMemorySqliteDialector(t, false)
	defer ti.ctrl.Finish()
	ctx := context.Background()

	created, err := ti.iot.Notification.Create(ctx, []models.Notification{
		{Type: models.NotificationTypeEnergySaving, Title: "Tip", Message: "Unplug idle chargers", Read: true},
		{Type: models.NotificationTypeDeviceOffline, Title: "Offline", DeviceID: common.Ptr("plug-1")},
	})
	require.NoError(t, err)
	require.Len(t, created, 2)
	assert.False(t, created[0].Read, "new notifications are always unread")

	recent, err := ti.iot.Notification.ListRecent(ctx)
	require.NoError(t, err)
	assert.Len(t, recent, 2)

	_, err = ti.iot.Notification.Create(ctx, nil)
	assert.ErrorIs(t, err, common.ErrInvalid)

	_, err = ti.iot.Notification.Create(ctx, []models.Notification{
		{Type: models.NotificationTypeDeviceOffline, Title: "ok"},
		{Type: "surge", Title: "bad"},
	})
	assert.ErrorIs(t, err, common.ErrInvalid)

	_, err = ti.iot.Notification.Create(ctx, []models.Notification{{Type: models.NotificationTypeGoalExceeded}})
	assert.ErrorIs(t, err, common.ErrInvalid)

	recent, err = ti.iot.Notification.ListRecent(ctx)
	require.NoError(t, err)
	assert.Len(t, recent, 2, "rejected batches store nothing")
}

func TestMarkReadAndDelete(t *testing.T) {
	common.SetTestLoggerNop()

	ti := GetMockIOTWithMemorySqliteDialector(t, false)
	defer ti.ctrl.Finish()
	ctx := context.Background()

	created, err := ti.iot.Notification.Create(ctx, []models.Notification{
		{Type: models.NotificationTypeGoalExceeded, Title: "Goal"},
		{Type: models.NotificationTypeEnergySaving, Title: "Tip"},
	})
	require.NoError(t, err)

	require.NoError(t, ti.iot.Notification.MarkRead(ctx, created[0].ID))
	recent, err := ti.iot.Notification.ListRecent(ctx)
	require.NoError(t, err)
	require.Len(t, recent, 1, "read notifications drop out of the recent list")
	assert.Equal(t, created[1].ID, recent[0].ID)

	require.NoError(t, ti.iot.Notification.Delete(ctx, created[1].ID))
	recent, err = ti.iot.Notification.ListRecent(ctx)
	require.NoError(t, err)
	assert.Empty(t, recent)

	assert.ErrorIs(t, ti.iot.Notification.MarkRead(ctx, "missing"), store.ErrNotFound)
	assert.ErrorIs(t, ti.iot.Notification.Delete(ctx, "missing"), store.ErrNotFound)
}

func TestCheckReading_RespectsSettings(t *testing.T) {
	common.SetTestLoggerNop()

	ti := GetMockIOTWithMemorySqliteDialector(t, false)
	defer ti.ctrl.Finish()
	ctx := context.Background()

	created, err := ti.iot.Notification.CheckReading(ctx, &models.EnergyReading{DeviceID: "plug-1", Power: 500})
	require.NoError(t, err)
	assert.Empty(t, created, "the threshold itself is not above the threshold")

	toggles := models.DefaultSettings().Notifications
	toggles.HighConsumption = false
	_, err = ti.iot.Settings.Update(ctx, store.SettingsUpdate{Notifications: &toggles})
	require.NoError(t, err)

	created, err = ti.iot.Notification.CheckReading(ctx, &models.EnergyReading{DeviceID: "plug-1", Power: 5000})
	require.NoError(t, err)
	assert.Empty(t, created, "disabled rules raise nothing")
}

func TestCheck(t *testing.T) {
	var buf = &bytes.Buffer{}
	common.SetTestCaptureLogger(buf, zapcore.InfoLevel)

	ti := GetMockIOTWithMemorySqliteDialector(t, false)
	defer ti.ctrl.Finish()
	ti.iot.Now = func() time.Time { return fixedNow }
	ctx := context.Background()

	_, err := ti.iot.Settings.Update(ctx, store.SettingsUpdate{
		MonthlyGoal:              common.Ptr(100.0),
		HighConsumptionThreshold: common.Ptr(1000.0),
	})
	require.NoError(t, err)

	_, _, err = ti.store.UpsertDevice(ctx, "plug-hot", store.DeviceFields{Name: common.Ptr("Oven"), Online: common.Ptr(true)})
	require.NoError(t, err)
	_, _, err = ti.store.UpsertDevice(ctx, "plug-off", store.DeviceFields{Name: common.Ptr("Garage"), Online: common.Ptr(false)})
	require.NoError(t, err)
	_, _, err = ti.store.UpsertDevice(ctx, "plug-ok", store.DeviceFields{Name: common.Ptr("Router"), Online: common.Ptr(true)})
	require.NoError(t, err)

	require.NoError(t, ti.store.InsertReading(ctx, &models.EnergyReading{DeviceID: "plug-hot", Timestamp: fixedNow, Power: 2400}))
	require.NoError(t, ti.store.InsertReading(ctx, &models.EnergyReading{DeviceID: "plug-ok", Timestamp: fixedNow, Power: 8}))

	for id, kwh := range map[string]float64{"plug-hot": 80, "plug-ok": 30} {
		_, _, err := ti.iot.Prediction.Save(ctx, &models.MonthlyPrediction{
			DeviceID: id, Year: 2025, Month: 7, PredictedConsumption: kwh,
		})
		require.NoError(t, err)
	}
	// last month does not count toward the goal
	_, _, err = ti.iot.Prediction.Save(ctx, &models.MonthlyPrediction{
		DeviceID: "plug-ok", Year: 2025, Month: 6, PredictedConsumption: 500,
	})
	require.NoError(t, err)

	created, err := ti.iot.Notification.Check(ctx)
	require.NoError(t, err)
	require.Len(t, created, 3)

	byType := map[models.NotificationType]models.Notification{}
	for _, n := range created {
		byType[n.Type] = n
	}

	hot := byType[models.NotificationTypeHighConsumption]
	require.NotNil(t, hot.DeviceID)
	assert.Equal(t, "plug-hot", *hot.DeviceID)
	assert.Equal(t, "Oven is drawing 2400.0W, above the 1000W limit", hot.Message)

	off := byType[models.NotificationTypeDeviceOffline]
	require.NotNil(t, off.DeviceID)
	assert.Equal(t, "plug-off", *off.DeviceID)

	goal := byType[models.NotificationTypeGoalExceeded]
	assert.Nil(t, goal.DeviceID)
	require.NotNil(t, goal.Value)
	assert.InDelta(t, 110.0, *goal.Value, 1e-9)

	// unread notifications are not raised twice
	again, err := ti.iot.Notification.Check(ctx)
	require.NoError(t, err)
	assert.Empty(t, again)

	stored, err := ti.store.ListNotifications(ctx, store.NotificationFilter{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, stored, 3)

	finished := findLog(ParseLogs(buf), "notification", "Notification check finished")
	require.NotNil(t, finished)
	assert.EqualValues(t, 3, finished["created"])
}
