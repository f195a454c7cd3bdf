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
)

func TestGetSettingsCreatesDefaults(t *testing.T) {
	common.SetTestLoggerNop()

	ti := GetMockIOTWithMemorySqliteDialector(t, false)
	defer ti.ctrl.Finish()

	settings, err := ti.iot.Settings.Get(context.Background())
	require.NoError(t, err)

	defaults := models.DefaultSettings()
	assert.Equal(t, models.SettingsID, settings.ID)
	assert.Equal(t, defaults.KwhPrice, settings.KwhPrice)
	assert.Equal(t, defaults.Timezone, settings.Timezone)
	assert.Equal(t, defaults.Notifications, settings.Notifications)
	assert.Equal(t, defaults.PeakHours, settings.PeakHours)
}

func TestUpdateSettings(t *testing.T) {
	common.SetTestLoggerNop()

	ti := GetMockIOTWithMemorySqliteDialector(t, false)
	defer ti.ctrl.Finish()
	ctx := context.Background()

	updated, err := ti.iot.Settings.Update(ctx, store.SettingsUpdate{
		KwhPrice:   common.Ptr(0.92),
		Timezone:   common.Ptr("Europe/Berlin"),
		TariffType: common.Ptr(models.TariffTypeWhite),
		PeakHours:  &models.PeakHours{Start: "17:30", End: "20:30", Price: 1.2},
	})
	require.NoError(t, err)
	assert.Equal(t, 0.92, updated.KwhPrice)
	assert.Equal(t, "Europe/Berlin", updated.Timezone)
	assert.Equal(t, models.TariffTypeWhite, updated.TariffType)

	again, err := ti.iot.Settings.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0.92, again.KwhPrice)
	assert.Equal(t, "17:30", again.PeakHours.Start)
	assert.Equal(t, models.DefaultSettings().Currency, again.Currency, "untouched fields keep their value")
}

func TestUpdateSettings_Validation(t *testing.T) {
	common.SetTestLoggerNop()

	ti := GetMockIOTWithMemorySqliteDialector(t, false)
	defer ti.ctrl.Finish()

	tests := map[string]store.SettingsUpdate{
		"negative price":     {KwhPrice: common.Ptr(-1.0)},
		"negative goal":      {MonthlyGoal: common.Ptr(-5.0)},
		"negative threshold": {HighConsumptionThreshold: common.Ptr(-0.5)},
		"unknown timezone":   {Timezone: common.Ptr("Mars/Olympus_Mons")},
		"unknown tariff":     {TariffType: common.Ptr(models.TariffType("night"))},
		"bad peak start":     {PeakHours: &models.PeakHours{Start: "25:00", End: "20:00"}},
		"negative peak":      {PeakHours: &models.PeakHours{Start: "18:00", End: "20:00", Price: -1}},
	}

	for name, update := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ti.iot.Settings.Update(context.Background(), update)
			assert.ErrorIs(t, err, common.ErrInvalid)
		})
	}

	settings, err := ti.iot.Settings.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.DefaultSettings().KwhPrice, settings.KwhPrice, "rejected updates change nothing")
}
