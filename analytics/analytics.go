// Package analytics stores system samples, per-artifact performance and
// daily business rollups, and answers the dashboard queries built on them.
package analytics

import "time"

// SystemSample is one Monitor observation of the engine.
type SystemSample struct {
	ID            int64     `json:"id"`
	SampledAt     time.Time `json:"sampled_at"`
	QueueDepth    int       `json:"queue_depth"`
	PostsToday    int       `json:"posts_today"`
	Status        string    `json:"status"`
	LatencyMS     float64   `json:"latency_ms"`
	MemoryPercent float64   `json:"memory_percent"`
}

// PerformanceRecord is the first-observed engagement of a posted artifact.
type PerformanceRecord struct {
	ArtifactID     string    `json:"artifact_id"`
	ProductName    string    `json:"product_name"`
	TemplateType   string    `json:"template_type"`
	PostedAt       time.Time `json:"posted_at"`
	RecordedAt     time.Time `json:"recorded_at"`
	Views          int64     `json:"views"`
	Likes          int64     `json:"likes"`
	Shares         int64     `json:"shares"`
	Comments       int64     `json:"comments"`
	EngagementRate float64   `json:"engagement_rate"` // percent
}

// BusinessDayRollup aggregates one calendar day of performance.
type BusinessDayRollup struct {
	Date            string    `json:"date"` // YYYY-MM-DD
	Posts           int       `json:"posts"`
	TotalViews      int64     `json:"total_views"`
	TotalEngagement int64     `json:"total_engagement"`
	TotalRevenue    float64   `json:"total_revenue"`
	ConversionRate  float64   `json:"conversion_rate"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// RevenueModel turns views into estimated shop revenue.
type RevenueModel struct {
	ConversionRate    float64
	AverageOrderValue float64
}

// Revenue estimates revenue for a number of views.
func (m RevenueModel) Revenue(views int64) float64 {
	return float64(views) * m.ConversionRate * m.AverageOrderValue
}

// EngagementRate returns (likes+shares+comments)/views as a percentage.
// Zero views yield zero.
func EngagementRate(likes, shares, comments, views int64) float64 {
	if views <= 0 {
		return 0
	}
	return float64(likes+shares+comments) / float64(views) * 100
}
