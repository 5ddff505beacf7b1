// Package monitor runs the periodic metrics loop: it samples system
// status, backfills engagement for posted artifacts and recomputes the
// current business-day rollup.
package monitor

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/teranos/cadence/am"
	"github.com/teranos/cadence/analytics"
	"github.com/teranos/cadence/content"
	"github.com/teranos/cadence/errors"
	"github.com/teranos/cadence/internal/daytime"
	"github.com/teranos/cadence/logger"
	"github.com/teranos/cadence/platform"
	"github.com/teranos/cadence/status"
	"github.com/teranos/cadence/telemetry"
)

// Step names, used in logs and the step error metric.
const (
	StepSample   = "sample"
	StepBackfill = "backfill"
	StepRollup   = "rollup"
)

// Options tune the loop.
type Options struct {
	Location      *time.Location
	Interval      time.Duration // between ticks (default: 5m)
	Backoff       time.Duration // after a tick with errors (default: 60s)
	StatusTimeout time.Duration // bound on one status call (default: 10s)
	Revenue       analytics.RevenueModel
}

// DefaultOptions returns the defaults used by `cadence serve`.
func DefaultOptions() Options {
	return Options{
		Location:      time.Local,
		Interval:      5 * time.Minute,
		Backoff:       60 * time.Second,
		StatusTimeout: 10 * time.Second,
		Revenue:       analytics.RevenueModel{ConversionRate: 0.02, AverageOrderValue: 40.0},
	}
}

// OptionsFromAM builds monitor options from the am configuration.
func OptionsFromAM(cfg *am.Config) (Options, error) {
	loc, err := cfg.Schedule.Location()
	if err != nil {
		return Options{}, errors.Wrap(errors.Mark(err, errors.ErrInvalidConfig), "schedule.timezone")
	}
	return Options{
		Location:      loc,
		Interval:      cfg.Monitor.Interval(),
		Backoff:       cfg.Monitor.Backoff(),
		StatusTimeout: cfg.Monitor.StatusTimeout(),
		Revenue: analytics.RevenueModel{
			ConversionRate:    cfg.Monitor.ConversionRate,
			AverageOrderValue: cfg.Monitor.AverageOrderValue,
		},
	}, nil
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Location == nil {
		o.Location = d.Location
	}
	if o.Interval <= 0 {
		o.Interval = d.Interval
	}
	if o.Backoff <= 0 {
		o.Backoff = d.Backoff
	}
	if o.StatusTimeout <= 0 {
		o.StatusTimeout = d.StatusTimeout
	}
	return o
}

// Monitor owns the metrics loop.
type Monitor struct {
	status     status.Adapter
	artifacts  *content.Store
	metrics    *analytics.Store
	engagement platform.EngagementSource
	opts       Options
	now        func() time.Time
	enabled    atomic.Bool

	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	pulseLog *zap.SugaredLogger

	mu        sync.Mutex
	lastTick  time.Time
	lastError error
	ticks     int64
}

// New creates an enabled monitor.
func New(st status.Adapter, artifacts *content.Store, metrics *analytics.Store, engagement platform.EngagementSource, opts Options, log *zap.SugaredLogger) *Monitor {
	if log == nil {
		log = logger.Logger
	}
	ctx, cancel := context.WithCancel(context.Background())
	m := &Monitor{
		status:     st,
		artifacts:  artifacts,
		metrics:    metrics,
		engagement: engagement,
		opts:       opts.withDefaults(),
		now:        time.Now,
		ctx:        ctx,
		cancel:     cancel,
		pulseLog:   logger.AddPulseSymbol(log).With(logger.FieldComponent, "monitor"),
	}
	m.enabled.Store(true)
	return m
}

// WithClock replaces the time source.
func (m *Monitor) WithClock(now func() time.Time) *Monitor {
	m.now = now
	return m
}

// SetEnabled pauses or resumes the loop. A running tick completes.
func (m *Monitor) SetEnabled(enabled bool) {
	m.enabled.Store(enabled)
	m.pulseLog.Infow("Monitor enabled flag changed", "enabled", enabled)
}

// Enabled reports whether the loop runs ticks.
func (m *Monitor) Enabled() bool {
	return m.enabled.Load()
}

// Start begins the loop. The first tick runs immediately.
func (m *Monitor) Start() {
	m.wg.Add(1)
	go m.run()
	m.pulseLog.Infow("Monitor started",
		logger.FieldInterval, m.opts.Interval,
		"backoff", m.opts.Backoff)
}

// Stop ends the loop and waits for a running tick to finish.
func (m *Monitor) Stop() {
	m.cancel()
	m.wg.Wait()
	m.pulseLog.Infow("Monitor stopped")
}

func (m *Monitor) run() {
	defer m.wg.Done()

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-timer.C:
		}
		if m.ctx.Err() != nil {
			return
		}

		wait := m.opts.Interval
		if m.enabled.Load() {
			// Stop is observed between ticks; a started tick runs to completion
			if err := m.Tick(context.WithoutCancel(m.ctx)); err != nil {
				wait = m.opts.Backoff
			}
		}
		timer.Reset(wait)
	}
}

// Tick runs one iteration synchronously. Each step is isolated: a failing
// step is logged and the others still run. The returned error combines
// every step failure.
func (m *Monitor) Tick(ctx context.Context) error {
	now := m.now()

	var errs error
	for _, step := range []struct {
		name string
		fn   func(context.Context, time.Time) error
	}{
		{StepSample, m.sample},
		{StepBackfill, m.backfill},
		{StepRollup, m.rollup},
	} {
		if err := step.fn(ctx, now); err != nil {
			telemetry.MonitorStepErrorsTotal.WithLabelValues(step.name).Inc()
			m.pulseLog.Errorw("Monitor step failed",
				logger.FieldStep, step.name,
				logger.FieldError, err)
			errs = errors.CombineErrors(errs, errors.Wrapf(err, "monitor %s", step.name))
		}
	}

	outcome := "ok"
	if errs != nil {
		outcome = "error"
	}
	telemetry.MonitorTicksTotal.WithLabelValues(outcome).Inc()

	m.mu.Lock()
	m.lastTick = now
	m.lastError = errs
	m.ticks++
	m.mu.Unlock()
	return errs
}

// sample records one status observation with the adapter's latency.
func (m *Monitor) sample(ctx context.Context, now time.Time) error {
	callCtx, cancel := context.WithTimeout(ctx, m.opts.StatusTimeout)
	defer cancel()

	start := time.Now()
	report, err := m.status.CurrentStatus(callCtx)
	latency := time.Since(start)
	if err != nil {
		return err
	}

	telemetry.QueueDepth.Set(float64(report.QueueDepth))
	return m.metrics.AppendSample(ctx, &analytics.SystemSample{
		SampledAt:     now,
		QueueDepth:    report.QueueDepth,
		PostsToday:    report.PostsToday,
		Status:        report.Status,
		LatencyMS:     float64(latency.Microseconds()) / 1000,
		MemoryPercent: report.MemoryPercent,
	})
}

// backfill records engagement once for every posted artifact that has none.
// A failing artifact does not stop the others.
func (m *Monitor) backfill(ctx context.Context, now time.Time) error {
	posted, err := m.artifacts.ListPosted(ctx)
	if err != nil {
		return err
	}

	var errs error
	recorded := 0
	for _, a := range posted {
		has, err := m.metrics.HasPerformance(ctx, a.ID)
		if err != nil {
			return err
		}
		if has {
			continue
		}

		e, err := m.engagement.Fetch(ctx, a)
		if err != nil {
			errs = errors.CombineErrors(errs, errors.Wrapf(err, "engagement for %s", a.ID))
			continue
		}

		inserted, err := m.metrics.InsertPerformance(ctx, &analytics.PerformanceRecord{
			ArtifactID:     a.ID,
			ProductName:    a.ProductName,
			TemplateType:   a.TemplateType,
			PostedAt:       *a.PostedAt,
			RecordedAt:     now,
			Views:          e.Views,
			Likes:          e.Likes,
			Shares:         e.Shares,
			Comments:       e.Comments,
			EngagementRate: analytics.EngagementRate(e.Likes, e.Shares, e.Comments, e.Views),
		})
		if err != nil {
			return err
		}
		if inserted {
			recorded++
			telemetry.PerformanceRecordsTotal.Inc()
		}
	}

	if recorded > 0 {
		m.pulseLog.Infow("Recorded engagement", logger.FieldCount, recorded)
	}
	return errs
}

// rollup recomputes today's business-day rollup.
func (m *Monitor) rollup(ctx context.Context, now time.Time) error {
	from, to := daytime.DayBounds(now, m.opts.Location)
	_, err := m.metrics.RecomputeRollup(ctx, daytime.DateKey(now, m.opts.Location), from, to, m.opts.Revenue)
	return err
}

// Stats returns loop statistics.
func (m *Monitor) Stats() map[string]interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := map[string]interface{}{
		"enabled":  m.enabled.Load(),
		"interval": m.opts.Interval,
		"ticks":    m.ticks,
	}
	if !m.lastTick.IsZero() {
		stats["last_tick_at"] = m.lastTick
	}
	if m.lastError != nil {
		stats["last_error"] = m.lastError.Error()
	}
	return stats
}
