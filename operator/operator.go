// Package operator is the surface a frontend or the CLI drives: schedule
// read and replace, post-now, requeue, and the read-only analytics views.
//
// Mutating calls return a Result and never return an error or panic past
// this package. Read calls return errors as usual.
package operator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/teranos/cadence/am"
	"github.com/teranos/cadence/analytics"
	"github.com/teranos/cadence/content"
	"github.com/teranos/cadence/errors"
	"github.com/teranos/cadence/insight"
	"github.com/teranos/cadence/internal/daytime"
	"github.com/teranos/cadence/logger"
	"github.com/teranos/cadence/pulse/budget"
	"github.com/teranos/cadence/pulse/schedule"
	"github.com/teranos/cadence/status"
)

// RecentPostsLimit bounds the recent posts in Analytics.
const RecentPostsLimit = 5

// Result is the outcome of a mutating call.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func ok(format string, args ...interface{}) Result {
	return Result{Success: true, Message: fmt.Sprintf(format, args...)}
}

func fail(format string, args ...interface{}) Result {
	return Result{Success: false, Message: fmt.Sprintf(format, args...)}
}

// ScheduleView is the installed schedule with its next fires.
type ScheduleView struct {
	Times      []string            `json:"times"`
	Enabled    bool                `json:"enabled"`
	Generation uint64              `json:"generation"`
	NextFires  []schedule.NextFire `json:"next_fires"`
}

// PostingAnalytics summarizes what has been posted.
type PostingAnalytics struct {
	TotalPosts           int                 `json:"total_posts"`
	PostsToday           int                 `json:"posts_today"`
	TemplateDistribution map[string]int      `json:"template_distribution"`
	ProductDistribution  map[string]int      `json:"product_distribution"`
	RecentPosts          []*content.Artifact `json:"recent_posts"`
}

// AutomationStatus is the engine's live state.
type AutomationStatus struct {
	ContentQueue        int                 `json:"content_queue"`
	PostsPublishedToday int                 `json:"posts_published_today"`
	SystemStatus        string              `json:"system_status"`
	FailedArtifacts     int                 `json:"failed_artifacts"`
	SchedulerEnabled    bool                `json:"scheduler_enabled"`
	NextFires           []schedule.NextFire `json:"next_scheduled_posts"`
}

// Options wire optional behavior into a Service.
type Options struct {
	// ConfigPath receives schedule changes; empty keeps them in memory only.
	ConfigPath string
	// PostNowPerMinute limits post-now requests; 0 is unlimited.
	PostNowPerMinute int
	Location         *time.Location
}

// Service implements the operator surface over the engine's components.
type Service struct {
	scheduler *schedule.Scheduler
	artifacts *content.Store
	metrics   *analytics.Store
	status    status.Adapter
	fires     *schedule.FireStore // optional

	configPath string
	perMinute  int
	limiter    *budget.Limiter
	loc        *time.Location
	now        func() time.Time
	logger     *zap.SugaredLogger
}

// NewService creates the operator surface. fires may be nil.
func NewService(sched *schedule.Scheduler, artifacts *content.Store, metrics *analytics.Store, st status.Adapter, fires *schedule.FireStore, opts Options, log *zap.SugaredLogger) *Service {
	if log == nil {
		log = logger.Logger
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	return &Service{
		scheduler:  sched,
		artifacts:  artifacts,
		metrics:    metrics,
		status:     st,
		fires:      fires,
		configPath: opts.ConfigPath,
		perMinute:  opts.PostNowPerMinute,
		limiter:    budget.NewLimiter(opts.PostNowPerMinute),
		loc:        opts.Location,
		now:        time.Now,
		logger:     log.With(logger.FieldComponent, "operator"),
	}
}

// WithClock replaces the time source, including the post-now limiter's.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	s.limiter = budget.NewLimiterWithClock(s.perMinute, now)
	return s
}

// Schedule returns the installed schedule.
func (s *Service) Schedule(ctx context.Context) ScheduleView {
	cfg := s.scheduler.Config()
	return ScheduleView{
		Times:      cfg.Times,
		Enabled:    cfg.Enabled,
		Generation: s.scheduler.Generation(),
		NextFires:  s.scheduler.NextFires(s.now()),
	}
}

// UpdateSchedule replaces the trigger times. On any invalid entry nothing
// changes. A successful change is also written to the operator config
// file when one is configured.
func (s *Service) UpdateSchedule(ctx context.Context, times []string) (result Result) {
	defer s.recoverInto(&result, "update schedule")

	cfg := s.scheduler.Config()
	cfg.Times = times
	if err := s.scheduler.UpdateSchedule(cfg); err != nil {
		return fail("Schedule not changed: %s", rootMessage(err))
	}

	installed := s.scheduler.Config().Times
	if s.configPath != "" {
		if err := am.UpdateScheduleTimes(s.configPath, installed); err != nil {
			s.logger.Warnw("Schedule installed but not saved", logger.FieldPath, s.configPath, logger.FieldError, err)
			return ok("Schedule updated to %s (not saved: %s)", strings.Join(installed, ", "), err)
		}
	}
	return ok("Schedule updated to %s", strings.Join(installed, ", "))
}

// SetScheduleEnabled turns automated posting on or off.
func (s *Service) SetScheduleEnabled(ctx context.Context, enabled bool) (result Result) {
	defer s.recoverInto(&result, "set schedule enabled")

	s.scheduler.SetEnabled(enabled)
	word := "disabled"
	if enabled {
		word = "enabled"
	}

	if s.configPath != "" {
		if err := am.UpdateScheduleEnabled(s.configPath, enabled); err != nil {
			s.logger.Warnw("Scheduler flag changed but not saved", logger.FieldPath, s.configPath, logger.FieldError, err)
			return ok("Automated posting %s (not saved: %s)", word, err)
		}
	}
	return ok("Automated posting %s", word)
}

// PostNow publishes one artifact immediately.
func (s *Service) PostNow(ctx context.Context, id string) (result Result) {
	defer s.recoverInto(&result, "post now")

	if id == "" {
		return fail("Artifact ID is required")
	}
	if err := s.limiter.Allow(); err != nil {
		return fail("Post-now refused: %s, %s", err, errors.FlattenHints(err))
	}

	r, err := s.scheduler.PostNow(ctx, id)
	switch {
	case err == nil:
		msg := fmt.Sprintf("Posted %s", id)
		if r.Receipt != nil && r.Receipt.URL != "" {
			msg += " at " + r.Receipt.URL
		}
		return ok("%s", msg)
	case errors.IsNotFound(err):
		return fail("Artifact %s not found", id)
	case errors.IsInvalidTransition(err):
		return fail("Artifact %s cannot be posted: %s", id, rootMessage(err))
	case errors.IsAdapterError(err):
		if r.Outcome == schedule.OutcomeParked {
			return fail("Publish failed, artifact %s moved to failed: %s", id, err)
		}
		return fail("Publish failed, artifact %s stays ready: %s", id, err)
	default:
		s.logger.Errorw("Post-now failed", logger.FieldArtifactID, id, logger.FieldError, err)
		return fail("Post-now failed: %s", err)
	}
}

// Requeue moves a failed artifact back to ready.
func (s *Service) Requeue(ctx context.Context, id string) (result Result) {
	defer s.recoverInto(&result, "requeue")

	err := s.artifacts.Requeue(ctx, id)
	switch {
	case err == nil:
		return ok("Artifact %s is ready again", id)
	case errors.IsNotFound(err):
		return fail("Artifact %s not found", id)
	case errors.IsInvalidTransition(err):
		return fail("Artifact %s cannot be requeued: %s", id, rootMessage(err))
	default:
		return fail("Requeue failed: %s", err)
	}
}

// Dashboard returns the analytics dashboard.
func (s *Service) Dashboard(ctx context.Context) (*analytics.Dashboard, error) {
	return s.metrics.Dashboard(ctx)
}

// Insights generates recommendations from the current dashboard.
func (s *Service) Insights(ctx context.Context) ([]insight.Insight, error) {
	d, err := s.metrics.Dashboard(ctx)
	if err != nil {
		return nil, err
	}
	return insight.Generate(insight.SnapshotFrom(d)), nil
}

// Analytics summarizes posted content.
func (s *Service) Analytics(ctx context.Context) (*PostingAnalytics, error) {
	counts, err := s.artifacts.CountByState(ctx)
	if err != nil {
		return nil, err
	}
	from, to := daytime.DayBounds(s.now(), s.loc)
	today, err := s.artifacts.CountPostedBetween(ctx, from, to)
	if err != nil {
		return nil, err
	}
	dist, err := s.artifacts.Distribution(ctx)
	if err != nil {
		return nil, err
	}
	recent, err := s.artifacts.RecentPosted(ctx, RecentPostsLimit)
	if err != nil {
		return nil, err
	}

	return &PostingAnalytics{
		TotalPosts:           counts[content.StatePosted],
		PostsToday:           today,
		TemplateDistribution: dist.ByTemplate,
		ProductDistribution:  dist.ByProduct,
		RecentPosts:          recent,
	}, nil
}

// AutomationStatus reports the live state of the engine.
func (s *Service) AutomationStatus(ctx context.Context) (*AutomationStatus, error) {
	report, err := s.status.CurrentStatus(ctx)
	if err != nil {
		return nil, err
	}
	counts, err := s.artifacts.CountByState(ctx)
	if err != nil {
		return nil, err
	}

	cfg := s.scheduler.Config()
	return &AutomationStatus{
		ContentQueue:        report.QueueDepth,
		PostsPublishedToday: report.PostsToday,
		SystemStatus:        report.Status,
		FailedArtifacts:     counts[content.StateFailed],
		SchedulerEnabled:    cfg.Enabled,
		NextFires:           s.scheduler.NextFires(s.now()),
	}, nil
}

// FireHistory returns recent scheduler fires, newest first.
func (s *Service) FireHistory(ctx context.Context, limit int) ([]*schedule.Fire, error) {
	if s.fires == nil {
		return nil, nil
	}
	fires, _, err := s.fires.List(ctx, limit, 0, "")
	return fires, err
}

// recoverInto turns a panic in a mutating call into a failed Result.
func (s *Service) recoverInto(result *Result, op string) {
	if r := recover(); r != nil {
		s.logger.Errorw("Operator call panicked", "op", op, "panic", r)
		*result = fail("%s failed: internal error", op)
	}
}

// rootMessage strips wrapping prefixes added for logs.
func rootMessage(err error) string {
	msg := err.Error()
	if i := strings.LastIndex(msg, ": "); i >= 0 && errors.IsAny(err, errors.ErrInvalidConfig, errors.ErrInvalidTransition) {
		return msg[:i]
	}
	return msg
}
