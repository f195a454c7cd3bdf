package iot

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"liyu1981.xyz/energy-monitor-service/pkg/common"
	"liyu1981.xyz/energy-monitor-service/pkg/models"
	"liyu1981.xyz/energy-monitor-service/pkg/store"
	_ "liyu1981.xyz/energy-monitor-service/pkg/testing"
)

func TestProjectMonthlyConsumption(t *testing.T) {
	assert.InDelta(t, 36.0, ProjectMonthlyConsumption(100), 1e-9)
	assert.InDelta(t, 0.0, ProjectMonthlyConsumption(0), 1e-9)
	assert.InDelta(t, 540.0, ProjectMonthlyConsumption(1500), 1e-9)
}

func TestSavePrediction(t *testing.T) {
	common.SetTestLoggerNop()

	ti := GetMockIOTWithMemorySqliteDialector(t, false)
	defer ti.ctrl.Finish()
	ctx := context.Background()

	saved, updated, err := ti.iot.Prediction.Save(ctx, &models.MonthlyPrediction{
		DeviceID:             "plug-1",
		Year:                 2025,
		Month:                7,
		PredictedConsumption: 120,
		KwhPrice:             0.5,
	})
	require.NoError(t, err)
	assert.False(t, updated)
	assert.InDelta(t, 60.0, saved.PredictedCost, 1e-9)
	assert.Nil(t, saved.ActualCost)

	saved, updated, err = ti.iot.Prediction.Save(ctx, &models.MonthlyPrediction{
		DeviceID:             "plug-1",
		Year:                 2025,
		Month:                7,
		PredictedConsumption: 100,
		KwhPrice:             0.5,
		ActualConsumption:    common.Ptr(90.0),
	})
	require.NoError(t, err)
	assert.True(t, updated)
	assert.InDelta(t, 50.0, saved.PredictedCost, 1e-9)
	require.NotNil(t, saved.ActualCost)
	assert.InDelta(t, 45.0, *saved.ActualCost, 1e-9)

	stored, err := ti.store.ListPredictions(ctx, store.PredictionFilter{DeviceID: "plug-1"})
	require.NoError(t, err)
	require.Len(t, stored, 1, "one prediction per device and month")
	assert.InDelta(t, 100.0, stored[0].PredictedConsumption, 1e-9)
}

func TestSavePrediction_Validation(t *testing.T) {
	common.SetTestLoggerNop()

	ti := GetMockIOTWithMemorySqliteDialector(t, false)
	defer ti.ctrl.Finish()

	valid := func() *models.MonthlyPrediction {
		return &models.MonthlyPrediction{DeviceID: "plug-1", Year: 2025, Month: 7, PredictedConsumption: 1, KwhPrice: 1}
	}

	tests := map[string]func(p *models.MonthlyPrediction){
		"missing device":       func(p *models.MonthlyPrediction) { p.DeviceID = " " },
		"year too small":       func(p *models.MonthlyPrediction) { p.Year = 1999 },
		"month zero":           func(p *models.MonthlyPrediction) { p.Month = 0 },
		"month thirteen":       func(p *models.MonthlyPrediction) { p.Month = 13 },
		"negative consumption": func(p *models.MonthlyPrediction) { p.PredictedConsumption = -1 },
		"negative price":       func(p *models.MonthlyPrediction) { p.KwhPrice = -0.1 },
	}

	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			p := valid()
			mutate(p)
			_, _, err := ti.iot.Prediction.Save(context.Background(), p)
			assert.ErrorIs(t, err, common.ErrInvalid)
		})
	}
}

func TestListPredictionsDefaultsToCurrentMonth(t *testing.T) {
	common.SetTestLoggerNop()

	ti := GetMockIOTWithMemorySqliteDialector(t, false)
	defer ti.ctrl.Finish()
	ti.iot.Now = func() time.Time { return fixedNow }
	ctx := context.Background()

	for _, month := range []int{6, 7} {
		_, _, err := ti.iot.Prediction.Save(ctx, &models.MonthlyPrediction{
			DeviceID: "plug-1", Year: 2025, Month: month, PredictedConsumption: float64(month),
		})
		require.NoError(t, err)
	}

	current, err := ti.iot.Prediction.List(ctx, store.PredictionFilter{})
	require.NoError(t, err)
	require.Len(t, current, 1)
	assert.Equal(t, 7, current[0].Month)

	june, err := ti.iot.Prediction.List(ctx, store.PredictionFilter{Month: 6})
	require.NoError(t, err)
	require.Len(t, june, 1)
	assert.Equal(t, 2025, june[0].Year)
}

func TestProjectPredictions(t *testing.T) {
	common.SetTestLoggerNop()

	ti := GetMockIOTWithMemorySqliteDialector(t, false)
	defer ti.ctrl.Finish()
	ti.iot.Now = func() time.Time { return fixedNow }
	ctx := context.Background()

	_, err := ti.iot.Settings.Update(ctx, store.SettingsUpdate{KwhPrice: common.Ptr(0.8)})
	require.NoError(t, err)

	for _, id := range []string{"plug-1", "plug-2"} {
		_, _, err := ti.store.UpsertDevice(ctx, id, store.DeviceFields{Name: common.Ptr(id)})
		require.NoError(t, err)
	}
	require.NoError(t, ti.store.InsertReading(ctx, &models.EnergyReading{
		DeviceID: "plug-1", Timestamp: fixedNow.Add(-time.Hour), Power: 50,
	}))
	require.NoError(t, ti.store.InsertReading(ctx, &models.EnergyReading{
		DeviceID: "plug-1", Timestamp: fixedNow, Power: 100,
	}))

	projected, err := ti.iot.Prediction.Project(ctx)
	require.NoError(t, err)
	require.Len(t, projected, 1, "devices without readings are skipped")

	p := projected[0]
	assert.Equal(t, "plug-1", p.DeviceID)
	assert.Equal(t, 2025, p.Year)
	assert.Equal(t, 7, p.Month)
	assert.InDelta(t, 36.0, p.PredictedConsumption, 1e-9, "projected from the latest reading")
	assert.InDelta(t, 28.8, p.PredictedCost, 1e-9)
	assert.InDelta(t, 0.8, p.KwhPrice, 1e-9)
}
