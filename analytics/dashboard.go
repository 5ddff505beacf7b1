package analytics

import (
	"context"
	"database/sql"
	"math"
	"time"

	"github.com/teranos/cadence/db"
)

// Dashboard window sizes.
const (
	TopContentLimit    = 5
	BusinessTrendDays  = 7
	SystemTrendSamples = 24
)

// StatusUnknown is reported before the first sample exists.
const StatusUnknown = "unknown"

// Dashboard is the aggregate view served to operators.
type Dashboard struct {
	SystemOverview      SystemOverview        `json:"system_overview"`
	ContentSummary      ContentSummary        `json:"content_summary"`
	TopContent          []PerformanceRecord   `json:"top_content"`
	TemplatePerformance []TemplatePerformance `json:"template_performance"`
	BusinessTrends      []BusinessDayRollup   `json:"business_trends"`
	SystemTrends        []SystemSample        `json:"system_trends"`
}

// SystemOverview is the latest system sample, or status "unknown" before
// the first Monitor tick.
type SystemOverview struct {
	ContentQueue int        `json:"content_queue"`
	PostsToday   int        `json:"posts_today"`
	Status       string     `json:"system_status"`
	LatencyMS    float64    `json:"api_response_time_ms"`
	SampledAt    *time.Time `json:"sampled_at,omitempty"`
}

// ContentSummary totals every performance record.
type ContentSummary struct {
	TotalPosts    int     `json:"total_posts"`
	TotalViews    int64   `json:"total_views"`
	TotalLikes    int64   `json:"total_likes"`
	TotalShares   int64   `json:"total_shares"`
	TotalComments int64   `json:"total_comments"`
	AvgEngagement float64 `json:"avg_engagement"`
}

// TemplatePerformance averages records of one template.
type TemplatePerformance struct {
	TemplateType  string  `json:"template_type"`
	Posts         int     `json:"posts"`
	AvgViews      int64   `json:"avg_views"`
	AvgEngagement float64 `json:"avg_engagement"`
}

// Dashboard assembles the dashboard in one read-locked pass.
func (s *Store) Dashboard(ctx context.Context) (*Dashboard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d := &Dashboard{SystemOverview: SystemOverview{Status: StatusUnknown}}

	trends, err := s.recentSamples(ctx, SystemTrendSamples)
	if err != nil {
		return nil, err
	}
	d.SystemTrends = trends
	if len(trends) > 0 {
		latest := trends[0]
		d.SystemOverview = SystemOverview{
			ContentQueue: latest.QueueDepth,
			PostsToday:   latest.PostsToday,
			Status:       latest.Status,
			LatencyMS:    latest.LatencyMS,
			SampledAt:    &latest.SampledAt,
		}
	}

	var avg sql.NullFloat64
	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(views), 0), COALESCE(SUM(likes), 0),
		       COALESCE(SUM(shares), 0), COALESCE(SUM(comments), 0),
		       AVG(engagement_rate)
		FROM performance_records`,
	).Scan(&d.ContentSummary.TotalPosts, &d.ContentSummary.TotalViews, &d.ContentSummary.TotalLikes,
		&d.ContentSummary.TotalShares, &d.ContentSummary.TotalComments, &avg)
	if err != nil {
		return nil, db.MapError(err, "failed to summarize performance")
	}
	d.ContentSummary.AvgEngagement = round2(avg.Float64)

	if d.TopContent, err = s.queryPerformance(ctx,
		`ORDER BY views DESC, artifact_id ASC LIMIT ?`, TopContentLimit); err != nil {
		return nil, err
	}

	if d.TemplatePerformance, err = s.templatePerformance(ctx); err != nil {
		return nil, err
	}

	if d.BusinessTrends, err = s.rollups(ctx, BusinessTrendDays); err != nil {
		return nil, err
	}

	return d, nil
}

// templatePerformance groups records by template, highest average
// engagement first.
func (s *Store) templatePerformance(ctx context.Context) ([]TemplatePerformance, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT template_type, COUNT(*), AVG(views), AVG(engagement_rate)
		FROM performance_records
		GROUP BY template_type
		ORDER BY AVG(engagement_rate) DESC, template_type ASC`)
	if err != nil {
		return nil, db.MapError(err, "failed to query template performance")
	}
	defer rows.Close()

	var out []TemplatePerformance
	for rows.Next() {
		var tp TemplatePerformance
		var avgViews, avgEngagement float64
		if err := rows.Scan(&tp.TemplateType, &tp.Posts, &avgViews, &avgEngagement); err != nil {
			return nil, db.MapError(err, "failed to scan template performance")
		}
		tp.AvgViews = int64(avgViews)
		tp.AvgEngagement = round2(avgEngagement)
		out = append(out, tp)
	}
	if err := rows.Err(); err != nil {
		return nil, db.MapError(err, "failed to iterate template performance")
	}
	return out, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
