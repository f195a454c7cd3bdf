package collector

import (
	"context"

	"go.uber.org/zap"
	"liyu1981.xyz/energy-monitor-service/pkg/common"
	"liyu1981.xyz/energy-monitor-service/pkg/models"
	"liyu1981.xyz/energy-monitor-service/pkg/store"
	"liyu1981.xyz/energy-monitor-service/pkg/tuya"
)

// DeviceSource enumerates the devices a cycle fans out to. An error fails
// the whole cycle.
type DeviceSource interface {
	Devices(ctx context.Context) ([]models.Device, error)
}

// RegistrySource collects from the stored device registry.
type RegistrySource struct {
	Store store.Store
}

func (s RegistrySource) Devices(ctx context.Context) ([]models.Device, error) {
	return s.Store.ListDevices(ctx)
}

// VendorSource collects from the vendor account's device list. Devices not
// yet in the registry are registered with the vendor's name and category.
type VendorSource struct {
	Client tuya.DeviceClient
	Store  store.Store
}

func (s VendorSource) Devices(ctx context.Context) ([]models.Device, error) {
	infos, err := s.Client.ListDevices(ctx)
	if err != nil {
		return nil, err
	}

	known := map[string]models.Device{}
	if registered, err := s.Store.ListDevices(ctx); err == nil {
		for _, d := range registered {
			known[d.DeviceID] = d
		}
	} else {
		collectorLogger().Warn("Registry unavailable, using vendor names", zap.Error(err))
	}

	devices := make([]models.Device, 0, len(infos))
	for _, info := range infos {
		if d, ok := known[info.ID]; ok {
			devices = append(devices, d)
			continue
		}

		name := info.Name
		if name == "" {
			name = "Device " + info.ID
		}
		device := models.Device{DeviceID: info.ID, Name: name, Category: info.Category, Online: info.Online}
		if _, _, err := s.Store.UpsertDevice(ctx, info.ID, store.DeviceFields{
			Name:     &device.Name,
			Category: &device.Category,
			Online:   &device.Online,
		}); err != nil {
			collectorLogger().Warn("Failed to register vendor device",
				zap.String(common.LoggerFieldDeviceID, info.ID), zap.Error(err))
		}
		devices = append(devices, device)
	}
	return devices, nil
}

func collectorLogger() *zap.Logger {
	return common.GetLoggerWith(common.LoggerNameCollector)
}
