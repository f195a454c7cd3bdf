package collector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
	"liyu1981.xyz/energy-monitor-service/pkg/common"
	"liyu1981.xyz/energy-monitor-service/pkg/models"
	"liyu1981.xyz/energy-monitor-service/pkg/store"
	"liyu1981.xyz/energy-monitor-service/pkg/tuya"
)

const (
	DefaultConcurrency   = 4
	DefaultDeviceTimeout = 10 * time.Second
)

type DeviceError struct {
	DeviceID string `json:"deviceId"`
	Device   string `json:"device"`
	Error    string `json:"error"`
}

// Summary is the report of one cycle. Duration is in milliseconds.
type Summary struct {
	Success   bool          `json:"success"`
	Status    Status        `json:"status"`
	Collected int           `json:"collected"`
	Total     int           `json:"total"`
	Duration  int64         `json:"duration"`
	Errors    []DeviceError `json:"errors,omitempty"`
	Error     string        `json:"error,omitempty"`
	Message   string        `json:"message,omitempty"`
	CycleID   string        `json:"cycleId"`
	StartedAt time.Time     `json:"startedAt"`
	// Shared is set when the caller joined a cycle started by another trigger.
	Shared bool `json:"shared,omitempty"`
}

type Options struct {
	Concurrency   int
	DeviceTimeout time.Duration
	Scales        tuya.Scales
	Source        DeviceSource
	Sinks         []Sink
	Metrics       *Metrics
	Now           func() time.Time
}

type Collector struct {
	store   store.Store
	client  tuya.DeviceClient
	state   *State
	source  DeviceSource
	scales  tuya.Scales
	sinks   []Sink
	metrics *Metrics
	now     func() time.Time

	concurrency   int
	deviceTimeout time.Duration

	cycles singleflight.Group
}

func New(s store.Store, client tuya.DeviceClient, state *State, opts Options) *Collector {
	c := &Collector{
		store:         s,
		client:        client,
		state:         state,
		source:        opts.Source,
		scales:        opts.Scales,
		sinks:         opts.Sinks,
		metrics:       opts.Metrics,
		now:           opts.Now,
		concurrency:   opts.Concurrency,
		deviceTimeout: opts.DeviceTimeout,
	}
	if c.state == nil {
		c.state = NewState()
	}
	if c.source == nil {
		c.source = RegistrySource{Store: s}
	}
	if c.scales == nil {
		c.scales = tuya.DefaultScales()
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.concurrency <= 0 {
		c.concurrency = DefaultConcurrency
	}
	if c.deviceTimeout <= 0 {
		c.deviceTimeout = DefaultDeviceTimeout
	}
	return c
}

func (c *Collector) State() *State {
	return c.state
}

func (c *Collector) Stats() Stats {
	return c.state.Stats()
}

// Collect runs one cycle. A call that arrives while a cycle is in flight
// waits for it and gets the same summary, so overlapping triggers never run
// two cycles. The cycle does not inherit ctx cancellation.
func (c *Collector) Collect(ctx context.Context) Summary {
	cycleCtx := context.WithoutCancel(ctx)
	v, _, shared := c.cycles.Do("cycle", func() (any, error) {
		return c.runCycle(cycleCtx), nil
	})
	summary := v.(Summary)
	summary.Shared = shared
	return summary
}

func (c *Collector) runCycle(ctx context.Context) Summary {
	startedAt := c.now()
	cycleID := uuid.NewString()
	logger := common.GetLoggerWith(
		common.LoggerNameCollector,
		zap.String(common.LoggerFieldCycleID, cycleID),
	)

	c.state.begin(startedAt)
	summary := Summary{CycleID: cycleID, StartedAt: startedAt}
	elapsed := func() int64 { return c.now().Sub(startedAt).Milliseconds() }

	logger.Info("Collection cycle started")

	devices, err := c.source.Devices(ctx)
	if err != nil {
		summary.Status = StatusError
		summary.Error = err.Error()
		summary.Duration = elapsed()
		c.state.finish(StatusError)
		c.metrics.observeCycle(summary)
		logger.Error("Collection cycle failed", zap.Error(err), zap.Int64("duration_ms", summary.Duration))
		return summary
	}

	if len(devices) == 0 {
		summary.Success = true
		summary.Status = StatusNoDevices
		summary.Message = "no devices registered"
		summary.Duration = elapsed()
		c.state.finish(StatusNoDevices)
		c.metrics.observeCycle(summary)
		logger.Warn("No devices to collect")
		return summary
	}

	results := make([]error, len(devices))
	var g errgroup.Group
	g.SetLimit(c.concurrency)
	for i := range devices {
		device := devices[i]
		g.Go(func() error {
			results[i] = c.collectDevice(ctx, logger, device)
			return nil
		})
	}
	_ = g.Wait()

	for i, err := range results {
		if err == nil {
			summary.Collected++
			continue
		}
		summary.Errors = append(summary.Errors, DeviceError{
			DeviceID: devices[i].DeviceID,
			Device:   displayName(devices[i]),
			Error:    err.Error(),
		})
	}

	summary.Success = true
	summary.Status = StatusSuccess
	summary.Total = len(devices)
	summary.Duration = elapsed()
	summary.Message = fmt.Sprintf("collected %d/%d devices in %dms", summary.Collected, summary.Total, summary.Duration)
	c.state.finish(StatusSuccess)
	c.metrics.observeCycle(summary)

	logger.Info("Collection cycle finished",
		zap.Int("collected", summary.Collected),
		zap.Int("total", summary.Total),
		zap.Int("errors", len(summary.Errors)),
		zap.Int64("duration_ms", summary.Duration),
	)
	return summary
}

func (c *Collector) collectDevice(ctx context.Context, logger *zap.Logger, device models.Device) error {
	logger = logger.With(zap.String(common.LoggerFieldDeviceID, device.DeviceID))

	fetchCtx, cancel := context.WithTimeout(ctx, c.deviceTimeout)
	items, err := c.client.GetDeviceStatus(fetchCtx, device.DeviceID)
	cancel()
	if err != nil {
		logger.Warn("Device status fetch failed", zap.Error(err))
		c.setOnline(ctx, logger, device.DeviceID, false)
		return err
	}

	normalized := c.scales.Normalize(items)
	reading := &models.EnergyReading{
		DeviceID:  device.DeviceID,
		Timestamp: c.now(),
		Power:     normalized.Power,
		Voltage:   normalized.Voltage,
		Current:   normalized.Current,
		Energy:    normalized.Energy,
	}
	if err := c.store.InsertReading(ctx, reading); err != nil {
		logger.Error("Failed to persist reading", zap.Error(err))
		return err
	}

	logger.Debug("Reading collected", zap.Float64("power_W", reading.Power))
	c.setOnline(ctx, logger, device.DeviceID, true)
	c.publish(ctx, logger, reading)
	return nil
}

// setOnline is best effort; a stale flag is fixed by the next cycle.
func (c *Collector) setOnline(ctx context.Context, logger *zap.Logger, deviceID string, online bool) {
	if err := c.store.SetDeviceOnline(ctx, deviceID, online); err != nil {
		logger.Warn("Failed to update device online flag", zap.Bool("online", online), zap.Error(err))
	}
}

func (c *Collector) publish(ctx context.Context, logger *zap.Logger, reading *models.EnergyReading) {
	if len(c.sinks) == 0 {
		return
	}
	var wg sync.WaitGroup
	for _, sink := range c.sinks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sinkCtx, cancel := context.WithTimeout(ctx, c.deviceTimeout)
			defer cancel()
			if err := sink.Publish(sinkCtx, reading); err != nil {
				c.metrics.sinkFailed(sink.Name())
				logger.Warn("Sink publish failed", zap.String("sink", sink.Name()), zap.Error(err))
			}
		}()
	}
	wg.Wait()
}

func displayName(d models.Device) string {
	if d.Name != "" {
		return d.Name
	}
	return d.DeviceID
}
