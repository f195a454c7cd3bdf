package iot

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"liyu1981.xyz/energy-monitor-service/pkg/common"
	"liyu1981.xyz/energy-monitor-service/pkg/models"
	"liyu1981.xyz/energy-monitor-service/pkg/store"
)

// The projection assumes a device keeps drawing its latest power for this
// many hours a day over a 30 day month.
const (
	ProjectionHoursPerDay  = 12
	ProjectionDaysPerMonth = 30
)

// ProjectMonthlyConsumption returns the kWh a device drawing powerW would use
// in a month.
func ProjectMonthlyConsumption(powerW float64) float64 {
	return powerW * ProjectionHoursPerDay * ProjectionDaysPerMonth / 1000
}

func predictionLogger() *zap.Logger {
	return common.GetLoggerWith(
		common.LoggerNameIOTCore,
		zap.String(common.LoggerFieldIOTCategory, common.LoggerCategoryIOTPrediction),
	)
}

func validatePrediction(p *models.MonthlyPrediction) error {
	const op = "save prediction"
	switch {
	case strings.TrimSpace(p.DeviceID) == "":
		return common.NewInvalidError(op, "deviceId is required")
	case p.Year < 2000 || p.Year > 9999:
		return common.NewInvalidError(op, "year is out of range")
	case p.Month < 1 || p.Month > 12:
		return common.NewInvalidError(op, "month must be between 1 and 12")
	case p.PredictedConsumption < 0:
		return common.NewInvalidError(op, "predictedConsumption must not be negative")
	case p.KwhPrice < 0:
		return common.NewInvalidError(op, "kwhPrice must not be negative")
	}
	return nil
}

// savePrediction prices the prediction and upserts it on (device, year,
// month). The bool reports whether an existing prediction was replaced.
func (i *IOT) savePrediction(ctx context.Context, input *models.MonthlyPrediction) (*models.MonthlyPrediction, bool, error) {
	if err := validatePrediction(input); err != nil {
		return nil, false, err
	}

	prediction := models.MonthlyPrediction{
		DeviceID:             strings.TrimSpace(input.DeviceID),
		Year:                 input.Year,
		Month:                input.Month,
		PredictedConsumption: input.PredictedConsumption,
		PredictedCost:        input.PredictedConsumption * input.KwhPrice,
		KwhPrice:             input.KwhPrice,
		ActualConsumption:    input.ActualConsumption,
	}
	if input.ActualConsumption != nil {
		prediction.ActualCost = common.Ptr(*input.ActualConsumption * input.KwhPrice)
	}

	updated, err := i.Store.UpsertPrediction(ctx, &prediction)
	if err != nil {
		return nil, false, err
	}

	predictionLogger().Info("Saved monthly prediction",
		zap.String(common.LoggerFieldDeviceID, prediction.DeviceID),
		zap.Int("year", prediction.Year),
		zap.Int("month", prediction.Month),
		zap.Bool("updated", updated),
	)
	return &prediction, updated, nil
}

// listPredictions defaults the year and month to the current ones.
func (i *IOT) listPredictions(ctx context.Context, filter store.PredictionFilter) ([]models.MonthlyPrediction, error) {
	now := i.now()
	if filter.Year == 0 {
		filter.Year = now.Year()
	}
	if filter.Month == 0 {
		filter.Month = int(now.Month())
	}
	return i.Store.ListPredictions(ctx, filter)
}

// projectPredictions saves a current-month prediction for every device with
// at least one reading, priced at the configured kWh price.
func (i *IOT) projectPredictions(ctx context.Context) ([]models.MonthlyPrediction, error) {
	logger := predictionLogger()

	settings, err := i.getSettings(ctx)
	if err != nil {
		return nil, err
	}
	devices, err := i.Store.ListDevices(ctx)
	if err != nil {
		return nil, err
	}

	now := i.now()
	projected := []models.MonthlyPrediction{}
	for _, device := range devices {
		latest, err := i.Store.QueryReadings(ctx, store.ReadingFilter{DeviceID: device.DeviceID, Limit: 1})
		if err != nil {
			return nil, err
		}
		if len(latest) == 0 {
			logger.Debug("No readings to project from", zap.String(common.LoggerFieldDeviceID, device.DeviceID))
			continue
		}

		prediction, _, err := i.savePrediction(ctx, &models.MonthlyPrediction{
			DeviceID:             device.DeviceID,
			Year:                 now.Year(),
			Month:                int(now.Month()),
			PredictedConsumption: ProjectMonthlyConsumption(latest[0].Power),
			KwhPrice:             settings.KwhPrice,
		})
		if err != nil {
			return nil, err
		}
		projected = append(projected, *prediction)
	}
	return projected, nil
}

type IPredictionImpl struct {
	iot *IOT
}

func (ip *IPredictionImpl) Save(ctx context.Context, input *models.MonthlyPrediction) (*models.MonthlyPrediction, bool, error) {
	return ip.iot.savePrediction(ctx, input)
}

func (ip *IPredictionImpl) List(ctx context.Context, filter store.PredictionFilter) ([]models.MonthlyPrediction, error) {
	return ip.iot.listPredictions(ctx, filter)
}

func (ip *IPredictionImpl) Project(ctx context.Context) ([]models.MonthlyPrediction, error) {
	return ip.iot.projectPredictions(ctx)
}

func (i *IOT) GetIPrediction() IPrediction {
	return &IPredictionImpl{iot: i}
}
