package schedule

import (
	"sort"
	"time"

	"github.com/teranos/cadence/am"
	"github.com/teranos/cadence/internal/daytime"
)

// Config is the replaceable part of the scheduler: the daily trigger times
// and whether they fire at all.
type Config struct {
	Times   []string `json:"times"`
	Enabled bool     `json:"enabled"`
}

// Options are fixed for the lifetime of a Scheduler.
type Options struct {
	Location       *time.Location
	TickInterval   time.Duration // how often due triggers are checked (default: 15s)
	MisfireGrace   time.Duration // slots older than this when first seen are skipped (default: 2m)
	PublishTimeout time.Duration // bound on one adapter call (default: 10s)
	MaxPostsPerDay int           // 0 = no cap
	MaxAttempts    int           // failed publishes before an artifact is parked; 0 = unbounded
}

// DefaultOptions returns the defaults used by `cadence serve`.
func DefaultOptions() Options {
	return Options{
		Location:       time.Local,
		TickInterval:   15 * time.Second,
		MisfireGrace:   2 * time.Minute,
		PublishTimeout: 10 * time.Second,
		MaxPostsPerDay: 3,
		MaxAttempts:    5,
	}
}

// FromAM builds the scheduler config and options from the am configuration.
func FromAM(cfg am.ScheduleConfig) (Config, Options, error) {
	loc, err := cfg.Location()
	if err != nil {
		return Config{}, Options{}, err
	}
	opts := Options{
		Location:       loc,
		TickInterval:   cfg.TickInterval(),
		MisfireGrace:   cfg.MisfireGrace(),
		PublishTimeout: cfg.PublishTimeout(),
		MaxPostsPerDay: cfg.MaxPostsPerDay,
		MaxAttempts:    cfg.MaxAttempts,
	}
	return Config{Times: cfg.Times, Enabled: cfg.Enabled}, opts, nil
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Location == nil {
		o.Location = d.Location
	}
	if o.TickInterval <= 0 {
		o.TickInterval = d.TickInterval
	}
	if o.MisfireGrace <= 0 {
		o.MisfireGrace = d.MisfireGrace
	}
	if o.PublishTimeout <= 0 {
		o.PublishTimeout = d.PublishTimeout
	}
	return o
}

// NextFire is the next occurrence of one trigger.
type NextFire struct {
	Trigger string    `json:"trigger"`
	At      time.Time `json:"at"`
	In      string    `json:"in"` // "in 2h 5m"
}

// nextFires lists the next occurrence of each trigger after now, soonest
// first.
func nextFires(times []daytime.TimeOfDay, now time.Time, loc *time.Location) []NextFire {
	out := make([]NextFire, 0, len(times))
	for _, t := range times {
		at := t.Next(now, loc)
		out = append(out, NextFire{Trigger: t.String(), At: at, In: daytime.Relative(at.Sub(now))})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].At.Before(out[j].At) })
	return out
}
