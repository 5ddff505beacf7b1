package schedule

import "time"

// Fire records one attempt by the scheduler to publish.
//
// Every trigger slot and every post-now request produces a Fire, including
// the ones that publish nothing (empty queue, daily cap, misfire). This is
// the history behind `cadence schedule show --history`.
type Fire struct {
	ID           string    `json:"id"`
	Source       string    `json:"source"`                 // "trigger" or "post_now"
	TriggerTime  string    `json:"trigger_time,omitempty"` // HH:MM of the slot (trigger fires only)
	ArtifactID   string    `json:"artifact_id,omitempty"`  // artifact attempted, if any
	Outcome      string    `json:"outcome"`
	ErrorMessage string    `json:"error_message,omitempty"`
	DurationMs   int64     `json:"duration_ms"`
	FiredAt      time.Time `json:"fired_at"`
}

// Fire sources
const (
	SourceTrigger = "trigger"
	SourcePostNow = "post_now"
)

// Fire outcomes
const (
	OutcomePosted     = "posted"      // published and marked Posted
	OutcomeFailed     = "failed"      // publish failed, artifact stays Ready
	OutcomeParked     = "parked"      // publish failed, attempts exhausted, artifact moved to Failed
	OutcomeEmptyQueue = "empty_queue" // no Ready artifact
	OutcomeDailyCap   = "daily_cap"   // max_posts_per_day reached
	OutcomeMisfire    = "misfire"     // slot observed too late, skipped
	OutcomeStale      = "stale"       // claim from a replaced trigger set, dropped
	OutcomeConflict   = "conflict"    // published, but another caller marked it first
	OutcomeError      = "error"       // store failure
)
