package iot

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"liyu1981.xyz/energy-monitor-service/pkg/common"
	"liyu1981.xyz/energy-monitor-service/pkg/models"
	"liyu1981.xyz/energy-monitor-service/pkg/store"
	_ "liyu1981.xyz/energy-monitor-service/pkg/testing"
	"liyu1981.xyz/energy-monitor-service/pkg/tuya"
)

func plug(power, voltage, current, energy float64) []tuya.StatusItem {
	return []tuya.StatusItem{
		{Code: "cur_power", Value: power},
		{Code: "cur_voltage", Value: voltage},
		{Code: "cur_current", Value: current},
		{Code: "add_ele", Value: energy},
	}
}

func TestLiveDevices(t *testing.T) {
	common.SetTestLoggerNop()

	ti := GetMockIOTWithMemorySqliteDialector(t, false)
	defer ti.ctrl.Finish()
	ctx := context.Background()

	ti.vendor.AddDevice(tuya.DeviceInfo{ID: "plug-a", Name: "Smart Plug", Category: "cz", Online: true},
		plug(1234, 2210, 560, 4321))
	ti.vendor.AddDevice(tuya.DeviceInfo{ID: "plug-b", Name: "Smart Plug", Category: "cz", Online: true},
		plug(0, 0, 0, 0))
	ti.vendor.FailDevice("plug-b", "device is offline")

	_, _, err := ti.store.UpsertDevice(ctx, "plug-a", store.DeviceFields{Name: common.Ptr("Washer")})
	require.NoError(t, err)

	live, err := ti.iot.Device.Live(ctx)
	require.NoError(t, err)
	require.Len(t, live, 2)

	assert.Equal(t, "plug-a", live[0].DeviceID)
	assert.Equal(t, "Washer", live[0].Name, "the saved name wins over the vendor name")
	assert.True(t, live[0].Online)
	assert.InDelta(t, 123.4, live[0].Power, 1e-9)
	assert.InDelta(t, 221.0, live[0].Voltage, 1e-9)
	assert.InDelta(t, 560.0, live[0].Current, 1e-9)
	assert.InDelta(t, 4.321, live[0].TotalEnergy, 1e-9)

	assert.Equal(t, "plug-b", live[1].DeviceID)
	assert.Equal(t, "Smart Plug", live[1].Name)
	assert.False(t, live[1].Online, "a failed status fetch shows the device offline")
	assert.Zero(t, live[1].Power)
}

func TestLiveDevices_VendorFailure(t *testing.T) {
	common.SetTestLoggerNop()

	ti := GetMockIOTWithMemorySqliteDialector(t, false)
	defer ti.ctrl.Finish()

	ti.vendor.FailList("permission deny")

	_, err := ti.iot.Device.Live(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrVendor)
	assert.Zero(t, ti.vendor.StatusCalls())
}

func TestDiscoverDevices(t *testing.T) {
	common.SetTestLoggerNop()

	ti := GetMockIOTWithMemorySqliteDialector(t, false)
	defer ti.ctrl.Finish()
	ctx := context.Background()

	ti.vendor.AddDevice(tuya.DeviceInfo{ID: "plug-a", Name: "Known", Category: "cz", Online: true}, nil)
	ti.vendor.AddDevice(tuya.DeviceInfo{ID: "plug-b", Name: "Kettle", Category: "cz", Online: true}, nil)
	ti.vendor.AddDevice(tuya.DeviceInfo{ID: "plug-c"}, nil)

	_, _, err := ti.store.UpsertDevice(ctx, "plug-a", store.DeviceFields{Name: common.Ptr("Fridge")})
	require.NoError(t, err)

	result, err := ti.iot.Device.Discover(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, result.TotalFound)
	assert.Equal(t, 2, result.NewDevices)
	require.Len(t, result.Discovered, 2)

	assert.Equal(t, "plug-b", result.Discovered[0].DeviceID)
	assert.Equal(t, "Kettle", result.Discovered[0].Name)
	assert.True(t, result.Discovered[0].Online)

	assert.Equal(t, "plug-c", result.Discovered[1].DeviceID)
	assert.Equal(t, "Device plug-c", result.Discovered[1].Name)
	assert.Equal(t, DefaultDeviceCategory, result.Discovered[1].Category)

	known, err := ti.store.GetDevice(ctx, "plug-a")
	require.NoError(t, err)
	assert.Equal(t, "Fridge", known.Name, "registered devices are left alone")

	again, err := ti.iot.Device.Discover(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, again.TotalFound)
	assert.Zero(t, again.NewDevices)
	assert.NotNil(t, again.Discovered)
}

func TestRenameDevice(t *testing.T) {
	common.SetTestLoggerNop()

	ti := GetMockIOTWithMemorySqliteDialector(t, false)
	defer ti.ctrl.Finish()
	ctx := context.Background()

	device, updated, err := ti.iot.Device.Rename(ctx, "plug-new", " Lamp ")
	require.NoError(t, err)
	assert.False(t, updated)
	assert.Equal(t, "Lamp", device.Name)
	assert.Equal(t, DefaultDeviceCategory, device.Category)
	assert.False(t, device.Online)

	_, _, err = ti.store.UpsertDevice(ctx, "plug-new", store.DeviceFields{
		Category: common.Ptr("cz"),
		Online:   common.Ptr(true),
	})
	require.NoError(t, err)

	device, updated, err = ti.iot.Device.Rename(ctx, "plug-new", "Desk Lamp")
	require.NoError(t, err)
	assert.True(t, updated)
	assert.Equal(t, "Desk Lamp", device.Name)
	assert.Equal(t, "cz", device.Category, "renaming keeps the other fields")
	assert.True(t, device.Online)

	_, _, err = ti.iot.Device.Rename(ctx, "plug-new", "   ")
	assert.ErrorIs(t, err, common.ErrInvalid)
}

func TestDeleteDeviceCascades(t *testing.T) {
	common.SetTestLoggerNop()

	ti := GetMockIOTWithMemorySqliteDialector(t, false)
	defer ti.ctrl.Finish()
	ctx := context.Background()

	_, _, err := ti.store.UpsertDevice(ctx, "plug-1", store.DeviceFields{Name: common.Ptr("Fridge")})
	require.NoError(t, err)
	for range 3 {
		require.NoError(t, ti.store.InsertReading(ctx, &models.EnergyReading{DeviceID: "plug-1", Power: 10}))
	}
	require.NoError(t, ti.store.InsertReading(ctx, &models.EnergyReading{DeviceID: "plug-2", Power: 10}))
	_, err = ti.store.UpsertPrediction(ctx, &models.MonthlyPrediction{DeviceID: "plug-1", Year: 2025, Month: 7})
	require.NoError(t, err)

	result, err := ti.iot.Device.Delete(ctx, "plug-1")
	require.NoError(t, err)
	assert.Equal(t, &models.DeleteResult{DeviceID: "plug-1", Readings: 3, Predictions: 1}, result)

	_, err = ti.store.GetDevice(ctx, "plug-1")
	assert.ErrorIs(t, err, store.ErrNotFound)

	others, err := ti.store.QueryReadings(ctx, store.ReadingFilter{})
	require.NoError(t, err)
	assert.Len(t, others, 1, "other devices keep their readings")

	again, err := ti.iot.Device.Delete(ctx, "plug-1")
	require.NoError(t, err)
	assert.Zero(t, again.Readings)
}
