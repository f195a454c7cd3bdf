package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"liyu1981.xyz/energy-monitor-service/pkg/common"
)

// cronLogger routes robfig/cron logs to zap.
type cronLogger struct {
	l *zap.SugaredLogger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debugw(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Errorw(msg, append(keysAndValues, "error", err)...)
}

// Scheduler fires collection cycles and notification checks on cron
// expressions. Standard five-field specs and descriptors such as
// "@every 5m" are accepted.
type Scheduler struct {
	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
}

func NewScheduler(loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	logger := cronLogger{l: common.GetLoggerWith(common.LoggerNameScheduler).Sugar()}

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		ctx:    ctx,
		cancel: cancel,
	}
}

func (s *Scheduler) ScheduleCollect(spec string, c *Collector) (cron.EntryID, error) {
	logger := common.GetLoggerWith(
		common.LoggerNameScheduler,
		zap.String(common.LoggerFieldIOTCategory, common.LoggerCategorySchedulerCollect),
	)

	id, err := s.cron.AddFunc(spec, func() {
		logger.Info("Scheduled collection triggered")
		summary := c.Collect(s.ctx)
		if summary.Shared {
			logger.Info("Joined a cycle already in flight", zap.String(common.LoggerFieldCycleID, summary.CycleID))
		}
	})
	if err != nil {
		return 0, common.NewConfigError(fmt.Sprintf("invalid %s %q: %v", common.EnvKeyCronSchedule, spec, err))
	}
	return id, nil
}

// ScheduleNotificationCheck registers check on spec. An empty spec disables
// the check and returns a zero id.
func (s *Scheduler) ScheduleNotificationCheck(spec string, check func(ctx context.Context) error) (cron.EntryID, error) {
	if spec == "" {
		return 0, nil
	}
	logger := common.GetLoggerWith(
		common.LoggerNameScheduler,
		zap.String(common.LoggerFieldIOTCategory, common.LoggerCategorySchedulerNotify),
	)

	id, err := s.cron.AddFunc(spec, func() {
		if err := check(s.ctx); err != nil {
			logger.Error("Notification check failed", zap.Error(err))
		}
	})
	if err != nil {
		return 0, common.NewConfigError(fmt.Sprintf("invalid %s %q: %v", common.EnvKeyNotificationSchedule, spec, err))
	}
	return id, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop prevents new runs and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	defer s.cancel()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Next reports the next activation time of an entry, zero if unknown.
func (s *Scheduler) Next(id cron.EntryID) time.Time {
	return s.cron.Entry(id).Next
}

// run invokes an entry through the scheduler's job chain without waiting for
// its activation time.
func (s *Scheduler) run(id cron.EntryID) {
	if entry := s.cron.Entry(id); entry.Valid() {
		entry.WrappedJob.Run()
	}
}
