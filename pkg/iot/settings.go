package iot

import (
	"context"
	"time"
	_ "time/tzdata"

	"go.uber.org/zap"
	"liyu1981.xyz/energy-monitor-service/pkg/common"
	"liyu1981.xyz/energy-monitor-service/pkg/models"
	"liyu1981.xyz/energy-monitor-service/pkg/store"
)

func validTariff(t models.TariffType) bool {
	switch t {
	case models.TariffTypeConventional, models.TariffTypeWhite, models.TariffTypeGreen:
		return true
	}
	return false
}

func validClock(s string) bool {
	_, err := time.Parse("15:04", s)
	return err == nil
}

func validateSettingsUpdate(u store.SettingsUpdate) error {
	const op = "update settings"
	if u.KwhPrice != nil && *u.KwhPrice < 0 {
		return common.NewInvalidError(op, "kwhPrice must not be negative")
	}
	if u.MonthlyGoal != nil && *u.MonthlyGoal < 0 {
		return common.NewInvalidError(op, "monthlyGoal must not be negative")
	}
	if u.HighConsumptionThreshold != nil && *u.HighConsumptionThreshold < 0 {
		return common.NewInvalidError(op, "highConsumptionThreshold must not be negative")
	}
	if u.Timezone != nil {
		if _, err := time.LoadLocation(*u.Timezone); err != nil {
			return common.NewInvalidError(op, "unknown timezone "+*u.Timezone)
		}
	}
	if u.TariffType != nil && !validTariff(*u.TariffType) {
		return common.NewInvalidError(op, "unknown tariffType "+string(*u.TariffType))
	}
	if u.PeakHours != nil {
		if !validClock(u.PeakHours.Start) || !validClock(u.PeakHours.End) {
			return common.NewInvalidError(op, "peakHours must be HH:MM")
		}
		if u.PeakHours.Price < 0 {
			return common.NewInvalidError(op, "peakHours price must not be negative")
		}
	}
	return nil
}

func (i *IOT) getSettings(ctx context.Context) (*models.Settings, error) {
	return i.Store.GetOrCreateSettings(ctx, models.DefaultSettings())
}

func (i *IOT) updateSettings(ctx context.Context, update store.SettingsUpdate) (*models.Settings, error) {
	logger := common.GetLoggerWith(
		common.LoggerNameIOTCore,
		zap.String(common.LoggerFieldIOTCategory, common.LoggerCategoryIOTSettings),
	)

	if err := validateSettingsUpdate(update); err != nil {
		return nil, err
	}

	settings, err := i.Store.UpdateSettings(ctx, update)
	if err != nil {
		return nil, err
	}

	logger.Info("Settings updated", zap.Reflect("settings", settings))
	return settings, nil
}

type ISettingsImpl struct {
	iot *IOT
}

func (is *ISettingsImpl) Get(ctx context.Context) (*models.Settings, error) {
	return is.iot.getSettings(ctx)
}

func (is *ISettingsImpl) Update(ctx context.Context, update store.SettingsUpdate) (*models.Settings, error) {
	return is.iot.updateSettings(ctx, update)
}

func (i *IOT) GetISettings() ISettings {
	return &ISettingsImpl{iot: i}
}
