// Package status reports the engine's current operating state.
package status

import (
	"context"
	"time"

	"github.com/teranos/cadence/content"
	"github.com/teranos/cadence/internal/daytime"
)

// Status values reported by adapters.
const (
	StatusRunning  = "running"
	StatusDegraded = "degraded"
)

// DegradedMemoryPercent is the host memory use at which Local reports
// StatusDegraded.
const DegradedMemoryPercent = 80.0

// Report is one status observation.
type Report struct {
	QueueDepth    int     `json:"content_queue"`
	PostsToday    int     `json:"posts_published_today"`
	Status        string  `json:"system_status"`
	MemoryPercent float64 `json:"memory_percent"`
}

// Adapter answers the current status.
type Adapter interface {
	CurrentStatus(ctx context.Context) (Report, error)
}

// Local reads status from the artifact store and the host.
type Local struct {
	artifacts *content.Store
	loc       *time.Location
	now       func() time.Time
	host      func() (HostStats, error)
}

// NewLocal creates a status adapter over the artifact store. Posts today
// are counted against the calendar day in loc.
func NewLocal(artifacts *content.Store, loc *time.Location) *Local {
	if loc == nil {
		loc = time.Local
	}
	return &Local{artifacts: artifacts, loc: loc, now: time.Now, host: ReadHost}
}

// WithClock replaces the time source used to find today.
func (l *Local) WithClock(now func() time.Time) *Local {
	l.now = now
	return l
}

// CurrentStatus counts Ready artifacts and today's posts. Host memory that
// cannot be read is reported as zero rather than failing the report.
func (l *Local) CurrentStatus(ctx context.Context) (Report, error) {
	counts, err := l.artifacts.CountByState(ctx)
	if err != nil {
		return Report{}, err
	}

	from, to := daytime.DayBounds(l.now(), l.loc)
	postsToday, err := l.artifacts.CountPostedBetween(ctx, from, to)
	if err != nil {
		return Report{}, err
	}

	report := Report{
		QueueDepth: counts[content.StateReady],
		PostsToday: postsToday,
		Status:     StatusRunning,
	}
	if stats, err := l.host(); err == nil {
		report.MemoryPercent = stats.MemoryPercent
		if stats.MemoryPercent >= DegradedMemoryPercent {
			report.Status = StatusDegraded
		}
	}
	return report, nil
}
