package iot

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"liyu1981.xyz/energy-monitor-service/pkg/common"
	"liyu1981.xyz/energy-monitor-service/pkg/models"
	"liyu1981.xyz/energy-monitor-service/pkg/store"
	"liyu1981.xyz/energy-monitor-service/pkg/tuya"
)

const (
	DefaultDeviceCategory = "unknown"

	// concurrent status fetches when building the live device view
	liveFetchLimit = 4
)

func deviceLogger() *zap.Logger {
	return common.GetLoggerWith(
		common.LoggerNameIOTCore,
		zap.String(common.LoggerFieldIOTCategory, common.LoggerCategoryIOTDevice),
	)
}

func (i *IOT) listDevices(ctx context.Context) ([]models.Device, error) {
	return i.Store.ListDevices(ctx)
}

func (i *IOT) liveDevices(ctx context.Context) ([]models.LiveDevice, error) {
	logger := deviceLogger()

	infos, err := i.Vendor.ListDevices(ctx)
	if err != nil {
		return nil, err
	}

	saved := map[string]string{}
	if devices, err := i.Store.ListDevices(ctx); err == nil {
		for _, d := range devices {
			saved[d.DeviceID] = d.Name
		}
	} else {
		logger.Warn("Registry unavailable, using vendor names", zap.Error(err))
	}

	live := make([]models.LiveDevice, len(infos))
	var g errgroup.Group
	g.SetLimit(liveFetchLimit)
	for idx, info := range infos {
		g.Go(func() error {
			d := models.LiveDevice{
				DeviceID:   info.ID,
				Name:       info.Name,
				Category:   info.Category,
				Online:     info.Online,
				LastUpdate: i.now(),
			}
			if name := saved[info.ID]; name != "" {
				d.Name = name
			}

			items, err := i.Vendor.GetDeviceStatus(ctx, info.ID)
			if err != nil {
				logger.Warn("Live status unavailable",
					zap.String(common.LoggerFieldDeviceID, info.ID), zap.Error(err))
				d.Online = false
				live[idx] = d
				return nil
			}

			r := i.Scales.Normalize(items)
			d.Power, d.Voltage, d.Current, d.TotalEnergy = r.Power, r.Voltage, r.Current, r.Energy
			live[idx] = d
			return nil
		})
	}
	_ = g.Wait()
	return live, nil
}

func (i *IOT) discoverDevices(ctx context.Context) (*models.DiscoveryResult, error) {
	logger := deviceLogger()

	infos, err := i.Vendor.ListDevices(ctx)
	if err != nil {
		return nil, err
	}
	registered, err := i.Store.ListDevices(ctx)
	if err != nil {
		return nil, err
	}

	known := common.Reducer(registered,
		func(m map[string]bool, d models.Device) map[string]bool {
			m[d.DeviceID] = true
			return m
		},
		map[string]bool{},
	)
	fresh := common.Filter(infos, func(info tuya.DeviceInfo) bool { return !known[info.ID] })

	result := &models.DiscoveryResult{Discovered: []models.Device{}, TotalFound: len(infos)}
	for _, info := range fresh {
		name := info.Name
		if name == "" {
			name = "Device " + info.ID
		}
		category := info.Category
		if category == "" {
			category = DefaultDeviceCategory
		}
		online := info.Online

		device, _, err := i.Store.UpsertDevice(ctx, info.ID, store.DeviceFields{
			Name:     &name,
			Category: &category,
			Online:   &online,
		})
		if err != nil {
			logger.Error("Failed to save discovered device",
				zap.String(common.LoggerFieldDeviceID, info.ID), zap.Error(err))
			continue
		}
		result.Discovered = append(result.Discovered, *device)
	}
	result.NewDevices = len(result.Discovered)

	logger.Info("Device discovery finished",
		zap.Int("total_found", result.TotalFound),
		zap.Int("new_devices", result.NewDevices),
	)
	return result, nil
}

// renameDevice saves a display name, creating the device when it is not
// registered yet. The bool reports whether an existing device was updated.
func (i *IOT) renameDevice(ctx context.Context, deviceID, name string) (*models.Device, bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, false, common.NewInvalidError("rename device", "name is required")
	}

	fields := store.DeviceFields{Name: &name}
	_, err := i.Store.GetDevice(ctx, deviceID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		fields.Category = common.Ptr(DefaultDeviceCategory)
		fields.Online = common.Ptr(false)
	case err != nil:
		return nil, false, err
	}

	device, created, err := i.Store.UpsertDevice(ctx, deviceID, fields)
	if err != nil {
		return nil, false, err
	}

	deviceLogger().Info("Device renamed",
		zap.String(common.LoggerFieldDeviceID, deviceID), zap.String("name", name))
	return device, !created, nil
}

// deleteDevice removes the device with its readings and predictions. Deleting
// an unknown device is not an error.
func (i *IOT) deleteDevice(ctx context.Context, deviceID string) (*models.DeleteResult, error) {
	if err := i.Store.DeleteDevice(ctx, deviceID); err != nil {
		return nil, err
	}
	readings, err := i.Store.DeleteReadings(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	predictions, err := i.Store.DeletePredictions(ctx, deviceID)
	if err != nil {
		return nil, err
	}

	deviceLogger().Info("Device deleted",
		zap.String(common.LoggerFieldDeviceID, deviceID),
		zap.Int64("readings", readings),
		zap.Int64("predictions", predictions),
	)
	return &models.DeleteResult{DeviceID: deviceID, Readings: readings, Predictions: predictions}, nil
}

type IDeviceImpl struct {
	iot *IOT
}

func (id *IDeviceImpl) List(ctx context.Context) ([]models.Device, error) {
	return id.iot.listDevices(ctx)
}

func (id *IDeviceImpl) Live(ctx context.Context) ([]models.LiveDevice, error) {
	return id.iot.liveDevices(ctx)
}

func (id *IDeviceImpl) Discover(ctx context.Context) (*models.DiscoveryResult, error) {
	return id.iot.discoverDevices(ctx)
}

func (id *IDeviceImpl) Rename(ctx context.Context, deviceID, name string) (*models.Device, bool, error) {
	return id.iot.renameDevice(ctx, deviceID, name)
}

func (id *IDeviceImpl) Delete(ctx context.Context, deviceID string) (*models.DeleteResult, error) {
	return id.iot.deleteDevice(ctx, deviceID)
}

func (i *IOT) GetIDevice() IDevice {
	return &IDeviceImpl{iot: i}
}
