package schedule

import (
	"context"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/teranos/cadence/content"
	"github.com/teranos/cadence/errors"
	"github.com/teranos/cadence/internal/daytime"
	"github.com/teranos/cadence/logger"
	"github.com/teranos/cadence/platform"
	"github.com/teranos/cadence/telemetry"
)

// Scheduler fires publication attempts at fixed times of day.
//
// Each trigger fires at most once per calendar day and never catches up on
// missed days. The trigger set is replaced atomically by UpdateSchedule:
// every replacement bumps a generation counter under the scheduler lock,
// and a claim taken under an older generation is dropped before it
// publishes.
type Scheduler struct {
	artifacts *content.Store
	publisher platform.Publisher
	fires     *FireStore // optional
	opts      Options
	now       func() time.Time

	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	logger   *zap.SugaredLogger
	pulseLog *zap.SugaredLogger

	mu              sync.Mutex
	config          Config
	triggers        []daytime.TimeOfDay
	handled         map[daytime.TimeOfDay]string // trigger → date key of the last day it was handled
	generation      uint64
	lastTickAt      time.Time
	ticksSinceStart int64

	// fireMu serializes publish flows so trigger fires and post-now never
	// race on the same artifact inside one process.
	fireMu sync.Mutex
}

// claim is a due trigger slot taken under the scheduler lock.
type claim struct {
	generation uint64
	trigger    daytime.TimeOfDay
	due        time.Time
	misfire    bool
}

// FireResult is the outcome of one automated fire or post-now.
type FireResult struct {
	Source     string
	Trigger    string
	ArtifactID string
	Outcome    string
	Receipt    *platform.Receipt
	Err        error
}

// New creates a scheduler. The initial config must be valid.
func New(artifacts *content.Store, publisher platform.Publisher, fires *FireStore, cfg Config, opts Options, log *zap.SugaredLogger) (*Scheduler, error) {
	return NewWithContext(context.Background(), artifacts, publisher, fires, cfg, opts, log)
}

// NewWithContext creates a scheduler with a parent context
func NewWithContext(ctx context.Context, artifacts *content.Store, publisher platform.Publisher, fires *FireStore, cfg Config, opts Options, log *zap.SugaredLogger) (*Scheduler, error) {
	if log == nil {
		log = logger.Logger
	}
	schedCtx, cancel := context.WithCancel(ctx)

	s := &Scheduler{
		artifacts: artifacts,
		publisher: publisher,
		fires:     fires,
		opts:      opts.withDefaults(),
		now:       time.Now,
		ctx:       schedCtx,
		cancel:    cancel,
		logger:    log,
		pulseLog:  logger.AddPulseSymbol(log),
	}
	if err := s.UpdateSchedule(cfg); err != nil {
		cancel()
		return nil, err
	}
	return s, nil
}

// WithClock replaces the time source. Call before Start; the trigger set
// is re-installed against the new clock.
func (s *Scheduler) WithClock(now func() time.Time) *Scheduler {
	s.mu.Lock()
	s.now = now
	s.installLocked(s.triggers)
	s.mu.Unlock()
	return s
}

// Start begins the scheduler loop
func (s *Scheduler) Start() {
	s.wg.Add(1)
	go s.run()

	s.mu.Lock()
	times, enabled := s.config.Times, s.config.Enabled
	s.mu.Unlock()
	s.pulseLog.Infow("Scheduler started",
		"triggers", times,
		"enabled", enabled,
		logger.FieldInterval, s.opts.TickInterval)
}

// Stop ends the loop and waits for it. A fire in progress completes first.
func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
	s.pulseLog.Infow("Scheduler stopped")
}

// run is the main scheduler loop
func (s *Scheduler) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.opts.TickInterval)
	defer ticker.Stop()

	s.CheckDue(s.ctx)

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.CheckDue(s.ctx)
		}
	}
}

// CheckDue fires every trigger that is due now, one at a time. A failing
// fire is logged and the rest still run.
func (s *Scheduler) CheckDue(ctx context.Context) []FireResult {
	now := s.clock()

	s.mu.Lock()
	s.lastTickAt = now
	s.ticksSinceStart++
	claims := s.claimDueLocked(now)
	s.mu.Unlock()

	var results []FireResult
	for _, c := range claims {
		select {
		case <-ctx.Done():
			return results
		default:
		}

		var r FireResult
		if c.misfire {
			r = s.skipMisfire(ctx, c, now)
		} else {
			r = s.automatedPost(ctx, c)
		}
		results = append(results, r)
	}
	return results
}

// claimDueLocked marks every due, unhandled slot of today as handled and
// returns them. Caller holds s.mu.
func (s *Scheduler) claimDueLocked(now time.Time) []claim {
	if !s.config.Enabled {
		return nil
	}

	today := daytime.DateKey(now, s.opts.Location)
	var claims []claim
	for _, t := range s.triggers {
		if s.handled[t] == today {
			continue
		}
		due := t.On(now, s.opts.Location)
		if now.Before(due) {
			continue
		}
		s.handled[t] = today
		claims = append(claims, claim{
			generation: s.generation,
			trigger:    t,
			due:        due,
			misfire:    now.Sub(due) > s.opts.MisfireGrace,
		})
	}
	return claims
}

// current reports whether c still belongs to the installed trigger set.
func (s *Scheduler) current(c claim) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return c.generation == s.generation && s.config.Enabled
}

func (s *Scheduler) skipMisfire(ctx context.Context, c claim, now time.Time) FireResult {
	s.pulseLog.Warnw("Skipping missed trigger",
		logger.FieldTrigger, c.trigger.String(),
		"due", c.due.Format(time.RFC3339),
		"late_by", now.Sub(c.due).Round(time.Second),
		"grace", s.opts.MisfireGrace)

	r := FireResult{Source: SourceTrigger, Trigger: c.trigger.String(), Outcome: OutcomeMisfire}
	s.record(ctx, r, now, 0)
	return r
}

// automatedPost publishes the oldest Ready artifact for one claimed slot.
func (s *Scheduler) automatedPost(ctx context.Context, c claim) FireResult {
	s.fireMu.Lock()
	defer s.fireMu.Unlock()

	start := s.clock()
	r := FireResult{Source: SourceTrigger, Trigger: c.trigger.String()}

	if !s.current(c) {
		s.pulseLog.Infow("Dropping claim from replaced schedule",
			logger.FieldTrigger, r.Trigger,
			logger.FieldGeneration, c.generation)
		r.Outcome = OutcomeStale
		return r
	}

	if capped, postsToday, err := s.dailyCapReached(ctx, start); err != nil {
		r.Outcome, r.Err = OutcomeError, err
		s.pulseLog.Errorw("Scheduled fire failed", logger.FieldTrigger, r.Trigger, logger.FieldError, err)
		s.record(ctx, r, start, 0)
		return r
	} else if capped {
		s.pulseLog.Infow("Daily post cap reached, skipping trigger",
			logger.FieldTrigger, r.Trigger,
			logger.FieldPostsToday, postsToday,
			"max_posts_per_day", s.opts.MaxPostsPerDay)
		r.Outcome = OutcomeDailyCap
		s.record(ctx, r, start, 0)
		return r
	}

	ready, err := s.artifacts.ListReady(ctx)
	if err != nil {
		r.Outcome, r.Err = OutcomeError, err
		s.pulseLog.Errorw("Scheduled fire failed", logger.FieldTrigger, r.Trigger, logger.FieldError, err)
		s.record(ctx, r, start, 0)
		return r
	}
	if len(ready) == 0 {
		s.pulseLog.Infow("No content ready to post", logger.FieldTrigger, r.Trigger)
		r.Outcome = OutcomeEmptyQueue
		s.record(ctx, r, start, 0)
		return r
	}

	r = s.publish(ctx, ready[0], r)
	return r
}

// PostNow publishes one artifact immediately, bypassing selection and the
// daily cap. Returns ErrNotFound or ErrInvalidTransition when the artifact
// cannot be posted, and the adapter error when publishing fails.
func (s *Scheduler) PostNow(ctx context.Context, id string) (FireResult, error) {
	s.fireMu.Lock()
	defer s.fireMu.Unlock()

	r := FireResult{Source: SourcePostNow, ArtifactID: id}

	a, err := s.artifacts.Get(ctx, id)
	if err != nil {
		return r, err
	}
	if a.State != content.StateReady {
		return r, errors.NewInvalidTransitionError("artifact %s is %s, not %s", id, a.State, content.StateReady)
	}

	r = s.publish(ctx, a, r)
	return r, r.Err
}

// publish runs the adapter call and the resulting state transition.
// Caller holds fireMu.
func (s *Scheduler) publish(ctx context.Context, a *content.Artifact, r FireResult) FireResult {
	start := s.clock()
	r.ArtifactID = a.ID

	// In-flight publishes finish within their own timeout even when the
	// loop is stopping
	callCtx := context.WithoutCancel(ctx)

	receipt, err := platform.CallWithTimeout(callCtx, s.publisher, platform.PostFor(a), s.opts.PublishTimeout)
	elapsed := s.clock().Sub(start)

	if err != nil {
		telemetry.PublishDuration.WithLabelValues("error").Observe(elapsed.Seconds())
		r.Err = err

		if errors.Is(err, platform.ErrCircuitOpen) {
			// The platform was never reached; the attempt is not counted
			r.Outcome = OutcomeFailed
			s.pulseLog.Warnw("Publisher circuit open, artifact stays ready",
				logger.FieldArtifactID, a.ID,
				logger.FieldSource, r.Source,
				logger.FieldError, err)
			s.record(ctx, r, start, elapsed)
			return r
		}

		state, ferr := s.artifacts.RecordFailure(callCtx, a.ID, err.Error(), s.opts.MaxAttempts)
		switch {
		case ferr != nil:
			r.Outcome = OutcomeError
			s.pulseLog.Errorw("Failed to record publish failure",
				logger.FieldArtifactID, a.ID,
				logger.FieldError, ferr)
		case state == content.StateFailed:
			r.Outcome = OutcomeParked
			s.pulseLog.Warnw("Publish failed, artifact parked after max attempts",
				logger.FieldArtifactID, a.ID,
				logger.FieldSource, r.Source,
				"max_attempts", s.opts.MaxAttempts,
				logger.FieldError, err)
		default:
			r.Outcome = OutcomeFailed
			s.pulseLog.Warnw("Publish failed, artifact stays ready",
				logger.FieldArtifactID, a.ID,
				logger.FieldSource, r.Source,
				logger.FieldDurationMS, elapsed.Milliseconds(),
				logger.FieldError, err)
		}
		s.record(ctx, r, start, elapsed)
		return r
	}

	telemetry.PublishDuration.WithLabelValues("ok").Observe(elapsed.Seconds())
	r.Receipt = &receipt

	if err := s.artifacts.MarkPosted(callCtx, a.ID, s.clock()); err != nil {
		r.Err = err
		if errors.IsInvalidTransition(err) {
			// Another process posted it between our read and our mark
			r.Outcome = OutcomeConflict
			s.pulseLog.Warnw("Artifact published twice, first mark kept",
				logger.FieldArtifactID, a.ID,
				"receipt", receipt.ID)
		} else {
			r.Outcome = OutcomeError
			s.pulseLog.Errorw("Published but failed to mark posted",
				logger.FieldArtifactID, a.ID,
				"receipt", receipt.ID,
				logger.FieldError, err)
		}
		s.record(ctx, r, start, elapsed)
		return r
	}

	r.Outcome = OutcomePosted
	s.pulseLog.Infow("Posted",
		logger.FieldArtifactID, a.ID,
		logger.FieldSource, r.Source,
		logger.FieldTrigger, r.Trigger,
		"receipt", receipt.ID,
		logger.FieldDurationMS, elapsed.Milliseconds())
	s.record(ctx, r, start, elapsed)
	return r
}

func (s *Scheduler) dailyCapReached(ctx context.Context, now time.Time) (bool, int, error) {
	if s.opts.MaxPostsPerDay <= 0 {
		return false, 0, nil
	}
	from, to := daytime.DayBounds(now, s.opts.Location)
	n, err := s.artifacts.CountPostedBetween(ctx, from, to)
	if err != nil {
		return false, 0, err
	}
	return n >= s.opts.MaxPostsPerDay, n, nil
}

// record counts the fire and appends it to the fire log. Fire log errors
// are logged, never returned.
func (s *Scheduler) record(ctx context.Context, r FireResult, at time.Time, elapsed time.Duration) {
	telemetry.FiresTotal.WithLabelValues(r.Source, r.Outcome).Inc()
	if s.fires == nil {
		return
	}

	f := &Fire{
		Source:      r.Source,
		TriggerTime: r.Trigger,
		ArtifactID:  r.ArtifactID,
		Outcome:     r.Outcome,
		DurationMs:  elapsed.Milliseconds(),
		FiredAt:     at,
	}
	if r.Err != nil {
		f.ErrorMessage = r.Err.Error()
	}
	if err := s.fires.Record(context.WithoutCancel(ctx), f); err != nil {
		s.pulseLog.Warnw("Failed to record fire", logger.FieldError, err)
	}
}

// UpdateSchedule validates cfg and replaces the trigger set. On error the
// installed schedule is untouched. Slots of the new set that are already
// past today are treated as handled, so a replacement never fires a slot
// retroactively. A config equal to the installed one after normalization is
// a no-op and keeps today's pending slots.
func (s *Scheduler) UpdateSchedule(cfg Config) error {
	triggers, err := daytime.ParseSet(cfg.Times)
	if err != nil {
		return err
	}

	next := Config{Times: daytime.Strings(triggers), Enabled: cfg.Enabled}

	s.mu.Lock()
	if next.Enabled == s.config.Enabled && slices.Equal(next.Times, s.config.Times) {
		s.mu.Unlock()
		s.pulseLog.Debugw("Schedule unchanged, keeping installed triggers",
			"triggers", next.Times,
			"enabled", next.Enabled)
		return nil
	}
	s.config = next
	s.installLocked(triggers)
	generation := s.generation
	s.mu.Unlock()

	telemetry.ScheduleGeneration.Set(float64(generation))
	s.pulseLog.Infow("Schedule installed",
		"triggers", daytime.Strings(triggers),
		"enabled", cfg.Enabled,
		logger.FieldGeneration, generation)
	return nil
}

// installLocked replaces the trigger set. Caller holds s.mu.
func (s *Scheduler) installLocked(triggers []daytime.TimeOfDay) {
	now := s.now()
	today := daytime.DateKey(now, s.opts.Location)

	s.triggers = triggers
	s.handled = make(map[daytime.TimeOfDay]string, len(triggers))
	for _, t := range triggers {
		if !now.Before(t.On(now, s.opts.Location)) {
			s.handled[t] = today
		}
	}
	s.generation++
}

// SetEnabled turns firing on or off without touching the trigger set.
// Slots that pass while disabled are not fired later.
func (s *Scheduler) SetEnabled(enabled bool) {
	s.mu.Lock()
	if enabled && !s.config.Enabled {
		s.installLocked(s.triggers)
	}
	s.config.Enabled = enabled
	s.mu.Unlock()

	s.pulseLog.Infow("Scheduler enabled flag changed", "enabled", enabled)
}

// Config returns the installed schedule.
func (s *Scheduler) Config() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Config{Times: append([]string(nil), s.config.Times...), Enabled: s.config.Enabled}
}

// Generation returns the trigger set generation.
func (s *Scheduler) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// NextFires lists the next occurrence of each trigger, soonest first.
func (s *Scheduler) NextFires(now time.Time) []NextFire {
	s.mu.Lock()
	triggers := s.triggers
	s.mu.Unlock()
	return nextFires(triggers, now, s.opts.Location)
}

// GetStats returns scheduler statistics
func (s *Scheduler) GetStats() map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	return map[string]interface{}{
		"last_tick_at":      s.lastTickAt,
		"ticks_since_start": s.ticksSinceStart,
		"interval":          s.opts.TickInterval,
		"generation":        s.generation,
		"enabled":           s.config.Enabled,
	}
}

func (s *Scheduler) clock() time.Time {
	s.mu.Lock()
	now := s.now
	s.mu.Unlock()
	return now()
}
