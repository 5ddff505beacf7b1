package commands

import (
	"context"
	"sort"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/cadence/insight"
	"github.com/teranos/cadence/status"
	"github.com/teranos/cadence/sym"
)

// DashboardCmd prints the analytics dashboard
var DashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: sym.AX + " Show the analytics dashboard",
	RunE:  runDashboard,
}

// InsightsCmd prints recommendations derived from the dashboard
var InsightsCmd = &cobra.Command{
	Use:   "insights",
	Short: sym.AX + " Show recommendations from current metrics",
	RunE:  runInsights,
}

// AnalyticsCmd summarizes posted content
var AnalyticsCmd = &cobra.Command{
	Use:   "analytics",
	Short: sym.AX + " Summarize posted content",
	RunE:  runAnalytics,
}

// StatusCmd reports the live automation state
var StatusCmd = &cobra.Command{
	Use:   "status",
	Short: sym.Pulse + " Show automation status",
	RunE:  runStatus,
}

func runDashboard(cmd *cobra.Command, args []string) error {
	return withEngine(func(ctx context.Context, e *engine) error {
		d, err := e.operator.Dashboard(ctx)
		if err != nil {
			return err
		}
		if wantJSON(cmd) {
			return printJSON(d)
		}

		o := d.SystemOverview
		pterm.DefaultSection.Println("System")
		sampled := "never"
		if o.SampledAt != nil {
			sampled = o.SampledAt.In(e.loc).Format("2006-01-02 15:04:05")
		}
		if err := printTable([]string{"Status", "Queue", "Posts today", "Latency ms", "Sampled"}, [][]string{
			{o.Status, strconv.Itoa(o.ContentQueue), strconv.Itoa(o.PostsToday), formatFloat(o.LatencyMS), sampled},
		}); err != nil {
			return err
		}

		c := d.ContentSummary
		pterm.DefaultSection.Println("Content")
		if err := printTable([]string{"Posts", "Views", "Likes", "Shares", "Comments", "Avg engagement %"}, [][]string{{
			strconv.Itoa(c.TotalPosts), strconv.FormatInt(c.TotalViews, 10), strconv.FormatInt(c.TotalLikes, 10),
			strconv.FormatInt(c.TotalShares, 10), strconv.FormatInt(c.TotalComments, 10), formatFloat(c.AvgEngagement),
		}}); err != nil {
			return err
		}

		if len(d.TopContent) > 0 {
			pterm.DefaultSection.Println("Top content")
			rows := make([][]string, 0, len(d.TopContent))
			for _, r := range d.TopContent {
				rows = append(rows, []string{r.ArtifactID, r.ProductName, r.TemplateType,
					strconv.FormatInt(r.Views, 10), formatFloat(r.EngagementRate)})
			}
			if err := printTable([]string{"Artifact", "Product", "Template", "Views", "Engagement %"}, rows); err != nil {
				return err
			}
		}

		if len(d.TemplatePerformance) > 0 {
			pterm.DefaultSection.Println("Templates")
			rows := make([][]string, 0, len(d.TemplatePerformance))
			for _, t := range d.TemplatePerformance {
				rows = append(rows, []string{t.TemplateType, strconv.Itoa(t.Posts),
					strconv.FormatInt(t.AvgViews, 10), formatFloat(t.AvgEngagement)})
			}
			if err := printTable([]string{"Template", "Posts", "Avg views", "Avg engagement %"}, rows); err != nil {
				return err
			}
		}

		if len(d.BusinessTrends) > 0 {
			pterm.DefaultSection.Println("Business")
			rows := make([][]string, 0, len(d.BusinessTrends))
			for _, b := range d.BusinessTrends {
				rows = append(rows, []string{b.Date, strconv.Itoa(b.Posts), strconv.FormatInt(b.TotalViews, 10),
					strconv.FormatInt(b.TotalEngagement, 10), formatFloat(b.TotalRevenue), formatFloat(b.ConversionRate)})
			}
			return printTable([]string{"Date", "Posts", "Views", "Engagement", "Revenue", "Conversion %"}, rows)
		}
		return nil
	})
}

func runInsights(cmd *cobra.Command, args []string) error {
	return withEngine(func(ctx context.Context, e *engine) error {
		insights, err := e.operator.Insights(ctx)
		if err != nil {
			return err
		}
		if wantJSON(cmd) {
			return printJSON(insights)
		}
		if len(insights) == 0 {
			pterm.Info.Println("No insights yet")
			return nil
		}

		for _, in := range insights {
			printer := pterm.Info
			switch in.Priority {
			case insight.PriorityHigh:
				printer = pterm.Warning
			case insight.PriorityPositive:
				printer = pterm.Success
			}
			printer.Printf("%s: %s\n", in.Title, in.Message)
		}
		return nil
	})
}

func runAnalytics(cmd *cobra.Command, args []string) error {
	return withEngine(func(ctx context.Context, e *engine) error {
		a, err := e.operator.Analytics(ctx)
		if err != nil {
			return err
		}
		if wantJSON(cmd) {
			return printJSON(a)
		}

		pterm.Info.Printf("%s total, %d today\n", plural(a.TotalPosts, "post"), a.PostsToday)
		if err := printTable([]string{"Template", "Posts"}, countRows(a.TemplateDistribution)); err != nil {
			return err
		}
		if err := printTable([]string{"Product", "Posts"}, countRows(a.ProductDistribution)); err != nil {
			return err
		}

		rows := make([][]string, 0, len(a.RecentPosts))
		for _, p := range a.RecentPosts {
			posted := ""
			if p.PostedAt != nil {
				posted = p.PostedAt.In(e.loc).Format("2006-01-02 15:04")
			}
			rows = append(rows, []string{p.ID, p.ProductName, p.TemplateType, posted})
		}
		pterm.DefaultSection.Println("Recent posts")
		return printTable([]string{"Artifact", "Product", "Template", "Posted"}, rows)
	})
}

func runStatus(cmd *cobra.Command, args []string) error {
	return withEngine(func(ctx context.Context, e *engine) error {
		st, err := e.operator.AutomationStatus(ctx)
		if err != nil {
			return err
		}
		host, hostErr := status.ReadHost()

		if wantJSON(cmd) {
			out := map[string]interface{}{"automation": st}
			if hostErr == nil {
				out["host"] = host
			}
			return printJSON(out)
		}

		if st.SystemStatus == status.StatusRunning {
			pterm.Success.Printf("%s %s\n", sym.Pulse, st.SystemStatus)
		} else {
			pterm.Warning.Printf("%s %s\n", sym.Pulse, st.SystemStatus)
		}
		rows := [][]string{
			{"Content queue", strconv.Itoa(st.ContentQueue)},
			{"Posted today", strconv.Itoa(st.PostsPublishedToday)},
			{"Failed artifacts", strconv.Itoa(st.FailedArtifacts)},
			{"Scheduler enabled", strconv.FormatBool(st.SchedulerEnabled)},
		}
		for _, next := range st.NextFires {
			rows = append(rows, []string{"Next " + next.Trigger, next.In})
		}
		if hostErr == nil {
			rows = append(rows, []string{"Host memory", formatFloat(host.MemoryPercent) + "%"})
		}
		return printTable([]string{"Field", "Value"}, rows)
	})
}

// countRows sorts a distribution by count, then by name.
func countRows(counts map[string]int) [][]string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})

	rows := make([][]string, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, []string{k, strconv.Itoa(counts[k])})
	}
	return rows
}
