package store

import (
	"context"
	"errors"
	"time"

	"liyu1981.xyz/energy-monitor-service/pkg/models"
)

// ErrNotFound is wrapped in a store error, so callers can match either.
var ErrNotFound = errors.New("not found")

type Limits struct {
	Readings      int
	Notifications int
}

func DefaultLimits() Limits {
	return Limits{Readings: 1000, Notifications: 20}
}

func (l Limits) withDefaults() Limits {
	d := DefaultLimits()
	if l.Readings <= 0 {
		l.Readings = d.Readings
	}
	if l.Notifications <= 0 {
		l.Notifications = d.Notifications
	}
	return l
}

// capLimit returns max when requested is unset or above it.
func capLimit(requested, max int) int {
	if requested <= 0 || requested > max {
		return max
	}
	return requested
}

// DeviceFields lists the device attributes to set; nil fields are left as
// stored.
type DeviceFields struct {
	Name     *string
	Category *string
	Online   *bool
}

func (f DeviceFields) apply(d *models.Device) {
	if f.Name != nil {
		d.Name = *f.Name
	}
	if f.Category != nil {
		d.Category = *f.Category
	}
	if f.Online != nil {
		d.Online = *f.Online
	}
}

type ReadingFilter struct {
	DeviceID string
	Since    time.Time
	Limit    int
}

type PredictionFilter struct {
	DeviceID string
	Year     int
	Month    int
}

type NotificationFilter struct {
	UnreadOnly bool
	Since      time.Time
	DeviceID   string
	Type       models.NotificationType
	Limit      int
}

type SettingsUpdate struct {
	KwhPrice                 *float64
	Currency                 *string
	Timezone                 *string
	MonthlyGoal              *float64
	HighConsumptionThreshold *float64
	Notifications            *models.NotificationToggles
	TariffType               *models.TariffType
	PeakHours                *models.PeakHours
}

func (u SettingsUpdate) Apply(s *models.Settings) {
	if u.KwhPrice != nil {
		s.KwhPrice = *u.KwhPrice
	}
	if u.Currency != nil {
		s.Currency = *u.Currency
	}
	if u.Timezone != nil {
		s.Timezone = *u.Timezone
	}
	if u.MonthlyGoal != nil {
		s.MonthlyGoal = *u.MonthlyGoal
	}
	if u.HighConsumptionThreshold != nil {
		s.HighConsumptionThreshold = *u.HighConsumptionThreshold
	}
	if u.Notifications != nil {
		s.Notifications = *u.Notifications
	}
	if u.TariffType != nil {
		s.TariffType = *u.TariffType
	}
	if u.PeakHours != nil {
		s.PeakHours = *u.PeakHours
	}
}

type Stats struct {
	Devices     int64      `json:"devices"`
	Readings    int64      `json:"readings"`
	LastReading *time.Time `json:"lastReading,omitempty"`
}

// Store persists the device registry, readings, monthly predictions, the
// settings singleton and notifications. Every error it returns matches
// common.ErrStore.
type Store interface {
	ListDevices(ctx context.Context) ([]models.Device, error)
	GetDevice(ctx context.Context, deviceID string) (*models.Device, error)
	UpsertDevice(ctx context.Context, deviceID string, fields DeviceFields) (*models.Device, bool, error)
	// SetDeviceOnline updates the flag of an existing device; an unknown id
	// is a no-op, never an insert.
	SetDeviceOnline(ctx context.Context, deviceID string, online bool) error
	DeleteDevice(ctx context.Context, deviceID string) error

	InsertReading(ctx context.Context, reading *models.EnergyReading) error
	QueryReadings(ctx context.Context, filter ReadingFilter) ([]models.EnergyReading, error)
	DeleteReadings(ctx context.Context, deviceID string) (int64, error)

	UpsertPrediction(ctx context.Context, prediction *models.MonthlyPrediction) (bool, error)
	ListPredictions(ctx context.Context, filter PredictionFilter) ([]models.MonthlyPrediction, error)
	DeletePredictions(ctx context.Context, deviceID string) (int64, error)

	GetOrCreateSettings(ctx context.Context, defaults models.Settings) (*models.Settings, error)
	UpdateSettings(ctx context.Context, update SettingsUpdate) (*models.Settings, error)

	InsertNotifications(ctx context.Context, notifications []models.Notification) error
	ListNotifications(ctx context.Context, filter NotificationFilter) ([]models.Notification, error)
	MarkNotificationRead(ctx context.Context, id string) error
	DeleteNotification(ctx context.Context, id string) error

	Stats(ctx context.Context) (Stats, error)
	Close() error
}
