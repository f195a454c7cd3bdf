package iot

import (
	"context"
	"time"

	"liyu1981.xyz/energy-monitor-service/pkg/collector"
	"liyu1981.xyz/energy-monitor-service/pkg/models"
	"liyu1981.xyz/energy-monitor-service/pkg/store"
	"liyu1981.xyz/energy-monitor-service/pkg/tuya"
)

type ICollector interface {
	Collect(ctx context.Context) collector.Summary
	Stats() collector.Stats
}

type IDevice interface {
	List(ctx context.Context) ([]models.Device, error)
	Live(ctx context.Context) ([]models.LiveDevice, error)
	Discover(ctx context.Context) (*models.DiscoveryResult, error)
	Rename(ctx context.Context, deviceID, name string) (*models.Device, bool, error)
	Delete(ctx context.Context, deviceID string) (*models.DeleteResult, error)
}

type IReading interface {
	Add(ctx context.Context, input *models.EnergyReading) (*models.EnergyReading, error)
	Query(ctx context.Context, deviceID string, period models.Period) ([]models.EnergyReading, error)
}

type IPrediction interface {
	Save(ctx context.Context, input *models.MonthlyPrediction) (*models.MonthlyPrediction, bool, error)
	List(ctx context.Context, filter store.PredictionFilter) ([]models.MonthlyPrediction, error)
	Project(ctx context.Context) ([]models.MonthlyPrediction, error)
}

type ISettings interface {
	Get(ctx context.Context) (*models.Settings, error)
	Update(ctx context.Context, update store.SettingsUpdate) (*models.Settings, error)
}

type INotification interface {
	Create(ctx context.Context, notifications []models.Notification) ([]models.Notification, error)
	ListRecent(ctx context.Context) ([]models.Notification, error)
	MarkRead(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	CheckReading(ctx context.Context, reading *models.EnergyReading) ([]models.Notification, error)
	Check(ctx context.Context) ([]models.Notification, error)
}

type IOT struct {
	Store  store.Store
	Vendor tuya.DeviceClient
	Scales tuya.Scales
	Now    func() time.Time

	Collector    ICollector
	Device       IDevice
	Reading      IReading
	Prediction   IPrediction
	Settings     ISettings
	Notification INotification
}

type ServiceOpts struct {
	Collector    ICollector
	Device       IDevice
	Reading      IReading
	Prediction   IPrediction
	Settings     ISettings
	Notification INotification
}

// New wires the default implementation of every domain service over s and
// vendor. Use WithServices to swap individual services.
func New(s store.Store, vendor tuya.DeviceClient) *IOT {
	i := &IOT{Store: s, Vendor: vendor, Scales: tuya.DefaultScales(), Now: time.Now}
	return i.WithServices(ServiceOpts{
		Device:       i.GetIDevice(),
		Reading:      i.GetIReading(),
		Prediction:   i.GetIPrediction(),
		Settings:     i.GetISettings(),
		Notification: i.GetINotification(),
	})
}

func (i *IOT) WithServices(opts ServiceOpts) *IOT {
	if opts.Collector != nil {
		i.Collector = opts.Collector
	}
	if opts.Device != nil {
		i.Device = opts.Device
	}
	if opts.Reading != nil {
		i.Reading = opts.Reading
	}
	if opts.Prediction != nil {
		i.Prediction = opts.Prediction
	}
	if opts.Settings != nil {
		i.Settings = opts.Settings
	}
	if opts.Notification != nil {
		i.Notification = opts.Notification
	}
	return i
}

func (i *IOT) now() time.Time {
	if i.Now == nil {
		return time.Now()
	}
	return i.Now()
}
