package analytics

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/teranos/cadence/db"
	"github.com/teranos/cadence/errors"
)

// Store is the time-series store behind the Monitor loop and the dashboard.
type Store struct {
	db  *sql.DB
	mu  sync.RWMutex
	now func() time.Time
}

// NewStore creates a metrics store over a migrated database
func NewStore(database *sql.DB) *Store {
	return &Store{db: database, now: time.Now}
}

// WithClock replaces the time source used for recorded_at and updated_at.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// AppendSample records one system sample.
func (s *Store) AppendSample(ctx context.Context, sample *SystemSample) error {
	if sample.SampledAt.IsZero() {
		sample.SampledAt = s.now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO system_samples (sampled_at, queue_depth, posts_today, status, latency_ms, memory_percent)
		VALUES (?, ?, ?, ?, ?, ?)`,
		db.FormatTime(sample.SampledAt), sample.QueueDepth, sample.PostsToday,
		sample.Status, sample.LatencyMS, sample.MemoryPercent,
	)
	if err != nil {
		return db.MapError(err, "failed to append system sample")
	}
	if id, err := res.LastInsertId(); err == nil {
		sample.ID = id
	}
	return nil
}

// RecentSamples returns up to limit samples, newest first.
func (s *Store) RecentSamples(ctx context.Context, limit int) ([]SystemSample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.recentSamples(ctx, limit)
}

func (s *Store) recentSamples(ctx context.Context, limit int) ([]SystemSample, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sampled_at, queue_depth, posts_today, status, latency_ms, memory_percent
		FROM system_samples
		ORDER BY sampled_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, db.MapError(err, "failed to query system samples")
	}
	defer rows.Close()

	var out []SystemSample
	for rows.Next() {
		var sample SystemSample
		var sampledAt string
		if err := rows.Scan(&sample.ID, &sampledAt, &sample.QueueDepth, &sample.PostsToday,
			&sample.Status, &sample.LatencyMS, &sample.MemoryPercent); err != nil {
			return nil, db.MapError(err, "failed to scan system sample")
		}
		if sample.SampledAt, err = db.ParseTime(sampledAt); err != nil {
			return nil, err
		}
		out = append(out, sample)
	}
	if err := rows.Err(); err != nil {
		return nil, db.MapError(err, "failed to iterate system samples")
	}
	return out, nil
}

// HasPerformance reports whether artifactID already has a record.
func (s *Store) HasPerformance(ctx context.Context, artifactID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM performance_records WHERE artifact_id = ?`, artifactID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, db.MapError(err, "failed to check performance record")
	}
	return true, nil
}

// InsertPerformance stores a record unless one exists for the artifact.
// Returns false when the artifact was already recorded; records are never
// updated.
func (s *Store) InsertPerformance(ctx context.Context, r *PerformanceRecord) (bool, error) {
	if r.ArtifactID == "" {
		return false, errors.New("performance record without artifact id")
	}
	if r.RecordedAt.IsZero() {
		r.RecordedAt = s.now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO performance_records (
			artifact_id, product_name, template_type, posted_at, recorded_at,
			views, likes, shares, comments, engagement_rate
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(artifact_id) DO NOTHING`,
		r.ArtifactID, r.ProductName, r.TemplateType,
		db.FormatTime(r.PostedAt), db.FormatTime(r.RecordedAt),
		r.Views, r.Likes, r.Shares, r.Comments, r.EngagementRate,
	)
	if err != nil {
		return false, db.MapError(err, "failed to insert performance record")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, db.MapError(err, "failed to read affected rows")
	}
	return n == 1, nil
}

// Performance returns every record, oldest post first.
func (s *Store) Performance(ctx context.Context) ([]PerformanceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queryPerformance(ctx, `ORDER BY posted_at ASC, artifact_id ASC`)
}

func (s *Store) queryPerformance(ctx context.Context, clause string, args ...interface{}) ([]PerformanceRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT artifact_id, product_name, template_type, posted_at, recorded_at,
		       views, likes, shares, comments, engagement_rate
		FROM performance_records `+clause, args...)
	if err != nil {
		return nil, db.MapError(err, "failed to query performance records")
	}
	defer rows.Close()

	var out []PerformanceRecord
	for rows.Next() {
		var r PerformanceRecord
		var postedAt, recordedAt string
		if err := rows.Scan(&r.ArtifactID, &r.ProductName, &r.TemplateType, &postedAt, &recordedAt,
			&r.Views, &r.Likes, &r.Shares, &r.Comments, &r.EngagementRate); err != nil {
			return nil, db.MapError(err, "failed to scan performance record")
		}
		if r.PostedAt, err = db.ParseTime(postedAt); err != nil {
			return nil, err
		}
		if r.RecordedAt, err = db.ParseTime(recordedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, db.MapError(err, "failed to iterate performance records")
	}
	return out, nil
}

// RecomputeRollup rebuilds the rollup for date from the performance records
// posted in [from, to) and upserts it. Running it twice yields the same row.
func (s *Store) RecomputeRollup(ctx context.Context, date string, from, to time.Time, model RevenueModel) (*BusinessDayRollup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, db.MapError(err, "failed to begin rollup transaction")
	}
	defer tx.Rollback()

	rollup := &BusinessDayRollup{Date: date, UpdatedAt: s.now()}
	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(views), 0), COALESCE(SUM(likes + shares + comments), 0)
		FROM performance_records
		WHERE posted_at >= ? AND posted_at < ?`,
		db.FormatTime(from), db.FormatTime(to),
	).Scan(&rollup.Posts, &rollup.TotalViews, &rollup.TotalEngagement)
	if err != nil {
		return nil, db.MapError(err, "failed to aggregate performance")
	}

	if rollup.TotalViews > 0 {
		rollup.ConversionRate = model.ConversionRate
		rollup.TotalRevenue = model.Revenue(rollup.TotalViews)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO business_day_rollups (date, posts, total_views, total_engagement, total_revenue, conversion_rate, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(date) DO UPDATE SET
			posts = excluded.posts,
			total_views = excluded.total_views,
			total_engagement = excluded.total_engagement,
			total_revenue = excluded.total_revenue,
			conversion_rate = excluded.conversion_rate,
			updated_at = excluded.updated_at`,
		rollup.Date, rollup.Posts, rollup.TotalViews, rollup.TotalEngagement,
		rollup.TotalRevenue, rollup.ConversionRate, db.FormatTime(rollup.UpdatedAt),
	)
	if err != nil {
		return nil, db.MapError(err, "failed to upsert business rollup")
	}

	if err := tx.Commit(); err != nil {
		return nil, db.MapError(err, "failed to commit business rollup")
	}
	return rollup, nil
}

// Rollups returns up to limit daily rollups, most recent date first.
func (s *Store) Rollups(ctx context.Context, limit int) ([]BusinessDayRollup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rollups(ctx, limit)
}

func (s *Store) rollups(ctx context.Context, limit int) ([]BusinessDayRollup, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT date, posts, total_views, total_engagement, total_revenue, conversion_rate, updated_at
		FROM business_day_rollups
		ORDER BY date DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, db.MapError(err, "failed to query business rollups")
	}
	defer rows.Close()

	var out []BusinessDayRollup
	for rows.Next() {
		var r BusinessDayRollup
		var updatedAt string
		if err := rows.Scan(&r.Date, &r.Posts, &r.TotalViews, &r.TotalEngagement,
			&r.TotalRevenue, &r.ConversionRate, &updatedAt); err != nil {
			return nil, db.MapError(err, "failed to scan business rollup")
		}
		if r.UpdatedAt, err = db.ParseTime(updatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, db.MapError(err, "failed to iterate business rollups")
	}
	return out, nil
}
