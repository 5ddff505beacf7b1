// Package insight turns a metrics snapshot into operator recommendations.
package insight

import (
	"fmt"
	"strconv"

	"github.com/teranos/cadence/analytics"
)

// Priority ranks an insight for display.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityPositive Priority = "positive"
)

// Insight types
const (
	TypeTemplateOptimization  = "template_optimization"
	TypePostingFrequency      = "posting_frequency"
	TypeContentQueue          = "content_queue"
	TypeEngagementSuccess     = "engagement_success"
	TypeEngagementImprovement = "engagement_improvement"
)

// Rule thresholds.
const (
	MinPostsPerDay     = 2
	MinQueueSize       = 5
	HighEngagementRate = 5.0 // percent
	LowEngagementRate  = 2.0 // percent
)

// Insight is one recommendation.
type Insight struct {
	Type     string   `json:"type"`
	Title    string   `json:"title"`
	Message  string   `json:"message"`
	Priority Priority `json:"priority"`
}

// Snapshot is the slice of metrics the rules read.
type Snapshot struct {
	Templates     []analytics.TemplatePerformance
	PostsToday    int
	QueueSize     int
	AvgEngagement float64 // percent
}

// SnapshotFrom reads a snapshot off the dashboard. Posts today and queue
// size come from the latest system sample.
func SnapshotFrom(d *analytics.Dashboard) Snapshot {
	if d == nil {
		return Snapshot{}
	}
	return Snapshot{
		Templates:     d.TemplatePerformance,
		PostsToday:    d.SystemOverview.PostsToday,
		QueueSize:     d.SystemOverview.ContentQueue,
		AvgEngagement: d.ContentSummary.AvgEngagement,
	}
}

// Generate applies the rules in a fixed order. The result is in rule order
// and is never sorted by priority.
func Generate(s Snapshot) []Insight {
	insights := []Insight{}

	if best, ok := bestTemplate(s.Templates); ok {
		insights = append(insights, Insight{
			Type:  TypeTemplateOptimization,
			Title: "Best Performing Template",
			Message: fmt.Sprintf("'%s' templates have the highest engagement rate at %s%%. Consider creating more content with this template.",
				best.TemplateType, percent(best.AvgEngagement)),
			Priority: PriorityHigh,
		})
	}

	if s.PostsToday < MinPostsPerDay {
		insights = append(insights, Insight{
			Type:     TypePostingFrequency,
			Title:    "Low Posting Frequency",
			Message:  fmt.Sprintf("Only %d posts today. Consider increasing posting frequency to 3-4 posts per day for better reach.", s.PostsToday),
			Priority: PriorityMedium,
		})
	}

	if s.QueueSize < MinQueueSize {
		insights = append(insights, Insight{
			Type:     TypeContentQueue,
			Title:    "Low Content Queue",
			Message:  fmt.Sprintf("Content queue has only %d items. Generate more content to maintain consistent posting.", s.QueueSize),
			Priority: PriorityMedium,
		})
	}

	switch {
	case s.AvgEngagement > HighEngagementRate:
		insights = append(insights, Insight{
			Type:     TypeEngagementSuccess,
			Title:    "High Engagement Rate",
			Message:  fmt.Sprintf("Excellent engagement rate of %s%%! Your content strategy is working well.", percent(s.AvgEngagement)),
			Priority: PriorityPositive,
		})
	case s.AvgEngagement < LowEngagementRate:
		insights = append(insights, Insight{
			Type:     TypeEngagementImprovement,
			Title:    "Low Engagement Rate",
			Message:  fmt.Sprintf("Engagement rate is %s%%. Try more interactive content formats and trending hashtags.", percent(s.AvgEngagement)),
			Priority: PriorityHigh,
		})
	}

	return insights
}

// bestTemplate returns the first template with the highest average
// engagement.
func bestTemplate(templates []analytics.TemplatePerformance) (analytics.TemplatePerformance, bool) {
	if len(templates) == 0 {
		return analytics.TemplatePerformance{}, false
	}
	best := templates[0]
	for _, t := range templates[1:] {
		if t.AvgEngagement > best.AvgEngagement {
			best = t
		}
	}
	return best, true
}

func percent(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
