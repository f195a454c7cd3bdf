package iot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"liyu1981.xyz/energy-monitor-service/pkg/common"
	"liyu1981.xyz/energy-monitor-service/pkg/models"
	"liyu1981.xyz/energy-monitor-service/pkg/store"
)

// RecentNotificationsWindow bounds ListRecent.
const RecentNotificationsWindow = 7 * 24 * time.Hour

func notificationLogger() *zap.Logger {
	return common.GetLoggerWith(
		common.LoggerNameIOTCore,
		zap.String(common.LoggerFieldIOTCategory, common.LoggerCategoryIOTNotification),
	)
}

func validNotificationType(t models.NotificationType) bool {
	switch t {
	case models.NotificationTypeHighConsumption,
		models.NotificationTypeGoalExceeded,
		models.NotificationTypeDeviceOffline,
		models.NotificationTypeEnergySaving:
		return true
	}
	return false
}

// createNotifications stores the batch as unread. The whole batch is rejected
// when one entry is invalid.
func (i *IOT) createNotifications(ctx context.Context, notifications []models.Notification) ([]models.Notification, error) {
	if len(notifications) == 0 {
		return nil, common.NewInvalidError("create notifications", "notifications must not be empty")
	}

	batch := make([]models.Notification, len(notifications))
	for idx, n := range notifications {
		if !validNotificationType(n.Type) {
			return nil, common.NewInvalidError("create notifications",
				fmt.Sprintf("notification %d has unknown type %q", idx, n.Type))
		}
		if strings.TrimSpace(n.Title) == "" {
			return nil, common.NewInvalidError("create notifications",
				fmt.Sprintf("notification %d has no title", idx))
		}
		n.ID = ""
		n.Read = false
		n.ReadAt = nil
		batch[idx] = n
	}

	if err := i.Store.InsertNotifications(ctx, batch); err != nil {
		return nil, err
	}
	return batch, nil
}

func (i *IOT) listRecentNotifications(ctx context.Context) ([]models.Notification, error) {
	return i.Store.ListNotifications(ctx, store.NotificationFilter{
		UnreadOnly: true,
		Since:      i.now().Add(-RecentNotificationsWindow),
	})
}

// hasUnread reports whether an unread notification of type t exists for the
// device, or of type t at all when deviceID is empty.
func (i *IOT) hasUnread(ctx context.Context, t models.NotificationType, deviceID string) (bool, error) {
	existing, err := i.Store.ListNotifications(ctx, store.NotificationFilter{
		UnreadOnly: true,
		Type:       t,
		DeviceID:   deviceID,
		Limit:      1,
	})
	if err != nil {
		return false, err
	}
	return len(existing) > 0, nil
}

func highConsumption(device models.Device, power, threshold float64, now time.Time) models.Notification {
	return models.Notification{
		Type:      models.NotificationTypeHighConsumption,
		Title:     "High consumption detected",
		Message:   fmt.Sprintf("%s is drawing %.1fW, above the %.0fW limit", displayName(device), power, threshold),
		DeviceID:  common.Ptr(device.DeviceID),
		Value:     common.Ptr(power),
		Timestamp: now,
	}
}

func deviceOffline(device models.Device, now time.Time) models.Notification {
	return models.Notification{
		Type:      models.NotificationTypeDeviceOffline,
		Title:     "Device offline",
		Message:   fmt.Sprintf("%s has been offline since %s", displayName(device), device.UpdatedAt.Format(time.RFC3339)),
		DeviceID:  common.Ptr(device.DeviceID),
		Timestamp: now,
	}
}

func goalExceeded(consumption, goal float64, now time.Time) models.Notification {
	return models.Notification{
		Type:      models.NotificationTypeGoalExceeded,
		Title:     "Monthly goal exceeded",
		Message:   fmt.Sprintf("Projected consumption for the month (%.1f kWh) is above the %.0f kWh goal", consumption, goal),
		Value:     common.Ptr(consumption),
		Timestamp: now,
	}
}

func displayName(d models.Device) string {
	if d.Name != "" {
		return d.Name
	}
	return d.DeviceID
}

// checkReading raises a high-consumption notification for a single reading,
// unless one is already unread for the device.
func (i *IOT) checkReading(ctx context.Context, reading *models.EnergyReading) ([]models.Notification, error) {
	settings, err := i.getSettings(ctx)
	if err != nil {
		return nil, err
	}
	if !settings.Notifications.HighConsumption || reading.Power <= settings.HighConsumptionThreshold {
		return nil, nil
	}

	dup, err := i.hasUnread(ctx, models.NotificationTypeHighConsumption, reading.DeviceID)
	if err != nil || dup {
		return nil, err
	}

	device := models.Device{DeviceID: reading.DeviceID}
	if stored, err := i.Store.GetDevice(ctx, reading.DeviceID); err == nil {
		device = *stored
	}

	created := []models.Notification{highConsumption(device, reading.Power, settings.HighConsumptionThreshold, i.now())}
	if err := i.Store.InsertNotifications(ctx, created); err != nil {
		return nil, err
	}

	notificationLogger().Info("Notification raised", zap.Reflect("notification", created[0]))
	return created, nil
}

// check runs every rule enabled in settings against the registry, the
// latest readings and the current month's predictions.
func (i *IOT) check(ctx context.Context) ([]models.Notification, error) {
	logger := notificationLogger()

	settings, err := i.getSettings(ctx)
	if err != nil {
		return nil, err
	}
	devices, err := i.Store.ListDevices(ctx)
	if err != nil {
		return nil, err
	}

	now := i.now()
	created := []models.Notification{}
	raise := func(n models.Notification, deviceID string) error {
		dup, err := i.hasUnread(ctx, n.Type, deviceID)
		if err != nil || dup {
			return err
		}
		created = append(created, n)
		return nil
	}

	for _, device := range devices {
		if settings.Notifications.HighConsumption {
			latest, err := i.Store.QueryReadings(ctx, store.ReadingFilter{DeviceID: device.DeviceID, Limit: 1})
			if err != nil {
				return nil, err
			}
			if len(latest) > 0 && latest[0].Power > settings.HighConsumptionThreshold {
				n := highConsumption(device, latest[0].Power, settings.HighConsumptionThreshold, now)
				if err := raise(n, device.DeviceID); err != nil {
					return nil, err
				}
			}
		}

		if settings.Notifications.DeviceOffline && !device.Online {
			if err := raise(deviceOffline(device, now), device.DeviceID); err != nil {
				return nil, err
			}
		}
	}

	if settings.Notifications.GoalExceeded && settings.MonthlyGoal > 0 {
		predictions, err := i.Store.ListPredictions(ctx, store.PredictionFilter{
			Year:  now.Year(),
			Month: int(now.Month()),
		})
		if err != nil {
			return nil, err
		}
		total := common.Reducer(predictions, func(acc float64, p models.MonthlyPrediction) float64 {
			return acc + p.PredictedConsumption
		}, 0.0)
		if total > settings.MonthlyGoal {
			if err := raise(goalExceeded(total, settings.MonthlyGoal, now), ""); err != nil {
				return nil, err
			}
		}
	}

	if len(created) > 0 {
		if err := i.Store.InsertNotifications(ctx, created); err != nil {
			return nil, err
		}
	}

	logger.Info("Notification check finished", zap.Int("created", len(created)))
	return created, nil
}

type INotificationImpl struct {
	iot *IOT
}

func (in *INotificationImpl) Create(ctx context.Context, notifications []models.Notification) ([]models.Notification, error) {
	return in.iot.createNotifications(ctx, notifications)
}

func (in *INotificationImpl) ListRecent(ctx context.Context) ([]models.Notification, error) {
	return in.iot.listRecentNotifications(ctx)
}

func (in *INotificationImpl) MarkRead(ctx context.Context, id string) error {
	return in.iot.Store.MarkNotificationRead(ctx, id)
}

func (in *INotificationImpl) Delete(ctx context.Context, id string) error {
	return in.iot.Store.DeleteNotification(ctx, id)
}

func (in *INotificationImpl) CheckReading(ctx context.Context, reading *models.EnergyReading) ([]models.Notification, error) {
	return in.iot.checkReading(ctx, reading)
}

func (in *INotificationImpl) Check(ctx context.Context) ([]models.Notification, error) {
	return in.iot.check(ctx)
}

func (i *IOT) GetINotification() INotification {
	return &INotificationImpl{iot: i}
}
