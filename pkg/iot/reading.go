package iot

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"
	"liyu1981.xyz/energy-monitor-service/pkg/common"
	"liyu1981.xyz/energy-monitor-service/pkg/models"
	"liyu1981.xyz/energy-monitor-service/pkg/store"
)

// DefaultPeriod applies when a query names no window.
const DefaultPeriod = models.Period24h

var periodWindows = map[models.Period]time.Duration{
	models.Period1h:  time.Hour,
	models.Period24h: 24 * time.Hour,
	models.Period7d:  7 * 24 * time.Hour,
	models.Period30d: 30 * 24 * time.Hour,
}

// ParsePeriod maps "" to DefaultPeriod and rejects unknown windows.
func ParsePeriod(s string) (models.Period, error) {
	p := models.Period(strings.TrimSpace(s))
	if p == "" {
		return DefaultPeriod, nil
	}
	if _, ok := periodWindows[p]; ok || p == models.PeriodAll {
		return p, nil
	}
	return "", common.NewInvalidError("parse period", fmt.Sprintf("unknown period %q", s))
}

// PeriodStart returns the start of the window ending at now, or the zero
// time for models.PeriodAll.
func PeriodStart(p models.Period, now time.Time) time.Time {
	window, ok := periodWindows[p]
	if !ok {
		return time.Time{}
	}
	return now.Add(-window)
}

func finiteOrZero(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func (i *IOT) addReading(ctx context.Context, input *models.EnergyReading) (*models.EnergyReading, error) {
	logger := common.GetLoggerWith(
		common.LoggerNameIOTCore,
		zap.String(common.LoggerFieldIOTCategory, common.LoggerCategoryIOTReading),
	)

	deviceID := strings.TrimSpace(input.DeviceID)
	if deviceID == "" {
		return nil, common.NewInvalidError("add reading", "deviceId is required")
	}

	reading := models.EnergyReading{
		DeviceID:  deviceID,
		Timestamp: input.Timestamp,
		Power:     finiteOrZero(input.Power),
		Voltage:   finiteOrZero(input.Voltage),
		Current:   finiteOrZero(input.Current),
		Energy:    finiteOrZero(input.Energy),
	}
	if reading.Timestamp.IsZero() {
		reading.Timestamp = i.now()
	}

	logger.Info("Received reading for device", zap.Reflect("reading", reading))

	if err := i.Store.InsertReading(ctx, &reading); err != nil {
		return nil, err
	}

	logger.Info("Saved reading for device", zap.String("reading_id", reading.ID))

	if i.Notification == nil {
		return &reading, fmt.Errorf("notification service not available")
	}

	if _, err := i.Notification.CheckReading(ctx, &reading); err != nil {
		logger.Warn("High consumption check failed", zap.Error(err))
	}
	return &reading, nil
}

func (i *IOT) queryReadings(ctx context.Context, deviceID string, period models.Period) ([]models.EnergyReading, error) {
	return i.Store.QueryReadings(ctx, store.ReadingFilter{
		DeviceID: deviceID,
		Since:    PeriodStart(period, i.now()),
	})
}

type IReadingImpl struct {
	iot *IOT
}

func (ir *IReadingImpl) Add(ctx context.Context, input *models.EnergyReading) (*models.EnergyReading, error) {
	return ir.iot.addReading(ctx, input)
}

func (ir *IReadingImpl) Query(ctx context.Context, deviceID string, period models.Period) ([]models.EnergyReading, error) {
	return ir.iot.queryReadings(ctx, deviceID, period)
}

func (i *IOT) GetIReading() IReading {
	return &IReadingImpl{iot: i}
}
