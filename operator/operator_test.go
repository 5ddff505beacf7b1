package operator

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/teranos/cadence/analytics"
	"github.com/teranos/cadence/content"
	"github.com/teranos/cadence/errors"
	"github.com/teranos/cadence/insight"
	cadencetest "github.com/teranos/cadence/internal/testing"
	"github.com/teranos/cadence/platform"
	"github.com/teranos/cadence/pulse/schedule"
	"github.com/teranos/cadence/status"
)

var now = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

type togglePublisher struct {
	fail bool
}

func (p *togglePublisher) Publish(ctx context.Context, post platform.Post) (platform.Receipt, error) {
	if p.fail {
		return platform.Receipt{}, errors.New("platform rejected post")
	}
	return platform.Receipt{ID: "rcpt", URL: "https://example.test/p/" + post.ArtifactID}, nil
}

type fixture struct {
	svc        *Service
	artifacts  *content.Store
	metrics    *analytics.Store
	publisher  *togglePublisher
	configPath string
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	database := cadencetest.CreateTestDB(t)
	clock := cadencetest.NewClock(now)

	f := &fixture{
		artifacts: content.NewStore(database).WithClock(clock.Now),
		metrics:   analytics.NewStore(database).WithClock(clock.Now),
		publisher: &togglePublisher{},
	}

	sched, err := schedule.New(f.artifacts, f.publisher, schedule.NewFireStore(database),
		schedule.Config{Times: []string{"09:00", "18:00"}, Enabled: true},
		schedule.Options{Location: time.UTC, MaxAttempts: 1}, zap.NewNop().Sugar())
	require.NoError(t, err)
	sched.WithClock(clock.Now)

	local := status.NewLocal(f.artifacts, time.UTC).WithClock(clock.Now)
	opts.Location = time.UTC
	f.configPath = opts.ConfigPath
	f.svc = NewService(sched, f.artifacts, f.metrics, local, schedule.NewFireStore(database), opts, zap.NewNop().Sugar()).WithClock(clock.Now)
	return f
}

func (f *fixture) create(t *testing.T, product, template string) string {
	t.Helper()
	id, err := f.artifacts.Create(context.Background(), &content.Artifact{
		ProductID:    "p-" + product,
		ProductName:  product,
		TemplateType: template,
		GeneratedAt:  now.Add(-time.Hour),
	})
	require.NoError(t, err)
	return id
}

func TestSchedule(t *testing.T) {
	f := newFixture(t, Options{})

	view := f.svc.Schedule(context.Background())
	assert.Equal(t, []string{"09:00", "18:00"}, view.Times)
	assert.True(t, view.Enabled)
	require.Len(t, view.NextFires, 2)
	assert.Equal(t, "18:00", view.NextFires[0].Trigger)
	assert.Equal(t, "in 8h", view.NextFires[0].In)
}

func TestUpdateSchedule_PersistsToOperatorConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "am_from_operator.toml")
	f := newFixture(t, Options{ConfigPath: path})

	res := f.svc.UpdateSchedule(context.Background(), []string{"20:15", "7:05", "20:15"})
	require.True(t, res.Success, res.Message)
	assert.Equal(t, "Schedule updated to 07:05, 20:15", res.Message)
	assert.Equal(t, []string{"07:05", "20:15"}, f.svc.Schedule(context.Background()).Times)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "07:05")
	assert.Contains(t, string(data), "20:15")
}

func TestUpdateSchedule_InvalidLeavesScheduleUntouched(t *testing.T) {
	f := newFixture(t, Options{})

	for _, times := range [][]string{nil, {"25:00"}, {"08:00", "noon"}} {
		res := f.svc.UpdateSchedule(context.Background(), times)
		assert.False(t, res.Success, "times %v", times)
		assert.Contains(t, res.Message, "Schedule not changed")
	}
	assert.Equal(t, []string{"09:00", "18:00"}, f.svc.Schedule(context.Background()).Times)
}

func TestSetScheduleEnabled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "am_from_operator.toml")
	f := newFixture(t, Options{ConfigPath: path})

	res := f.svc.SetScheduleEnabled(context.Background(), false)
	require.True(t, res.Success)
	assert.Equal(t, "Automated posting disabled", res.Message)
	assert.False(t, f.svc.Schedule(context.Background()).Enabled)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "enabled = false")
}

func TestPostNow(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	id := f.create(t, "Serum", "grwm")

	res := f.svc.PostNow(ctx, id)
	require.True(t, res.Success, res.Message)
	assert.Equal(t, "Posted "+id+" at https://example.test/p/"+id, res.Message)

	res = f.svc.PostNow(ctx, id)
	assert.False(t, res.Success)
	assert.Equal(t, "Artifact "+id+" cannot be posted: artifact "+id+" is posted, not ready", res.Message)

	res = f.svc.PostNow(ctx, "art_missing")
	assert.False(t, res.Success)
	assert.Equal(t, "Artifact art_missing not found", res.Message)

	res = f.svc.PostNow(ctx, "")
	assert.False(t, res.Success)
}

func TestPostNow_FailureParksThenRequeue(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	id := f.create(t, "Serum", "grwm")
	f.publisher.fail = true

	res := f.svc.PostNow(ctx, id)
	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "moved to failed")

	res = f.svc.Requeue(ctx, id)
	require.True(t, res.Success, res.Message)

	a, err := f.artifacts.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, content.StateReady, a.State)
	assert.Zero(t, a.Attempts)

	res = f.svc.Requeue(ctx, id)
	assert.False(t, res.Success, "ready artifacts cannot be requeued")
	res = f.svc.Requeue(ctx, "art_missing")
	assert.Equal(t, "Artifact art_missing not found", res.Message)
}

func TestPostNow_RateLimited(t *testing.T) {
	f := newFixture(t, Options{PostNowPerMinute: 1})
	ctx := context.Background()
	first := f.create(t, "Serum", "grwm")
	second := f.create(t, "Balm", "grwm")

	require.True(t, f.svc.PostNow(ctx, first).Success)

	res := f.svc.PostNow(ctx, second)
	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "rate limit exceeded")

	a, err := f.artifacts.Get(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, content.StateReady, a.State)
}

func TestAnalytics(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	ids := []string{
		f.create(t, "Serum", "grwm"),
		f.create(t, "Serum", "tutorial"),
		f.create(t, "Balm", "grwm"),
	}
	f.create(t, "Mask", "review")

	require.NoError(t, f.artifacts.MarkPosted(ctx, ids[0], now.Add(-26*time.Hour)))
	require.NoError(t, f.artifacts.MarkPosted(ctx, ids[1], now.Add(-time.Hour)))
	require.NoError(t, f.artifacts.MarkPosted(ctx, ids[2], now.Add(-30*time.Minute)))

	a, err := f.svc.Analytics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, a.TotalPosts)
	assert.Equal(t, 2, a.PostsToday)
	assert.Equal(t, map[string]int{"grwm": 2, "tutorial": 1}, a.TemplateDistribution)
	assert.Equal(t, map[string]int{"Serum": 2, "Balm": 1}, a.ProductDistribution)
	require.Len(t, a.RecentPosts, 3)
	assert.Equal(t, ids[2], a.RecentPosts[0].ID)
}

func TestAutomationStatus(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	f.create(t, "Serum", "grwm")
	posted := f.create(t, "Balm", "grwm")
	require.NoError(t, f.artifacts.MarkPosted(ctx, posted, now.Add(-time.Minute)))

	st, err := f.svc.AutomationStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, st.ContentQueue)
	assert.Equal(t, 1, st.PostsPublishedToday)
	assert.Contains(t, []string{status.StatusRunning, status.StatusDegraded}, st.SystemStatus)
	assert.True(t, st.SchedulerEnabled)
	assert.Len(t, st.NextFires, 2)
}

func TestDashboardAndInsights(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	require.NoError(t, f.metrics.AppendSample(ctx, &analytics.SystemSample{
		SampledAt: now, QueueDepth: 12, PostsToday: 3, Status: status.StatusRunning,
	}))
	_, err := f.metrics.InsertPerformance(ctx, &analytics.PerformanceRecord{
		ArtifactID: "art_a", ProductName: "Serum", TemplateType: "tutorial",
		PostedAt: now.Add(-time.Hour), Views: 1000, Likes: 60, Shares: 10, Comments: 20,
		EngagementRate: analytics.EngagementRate(60, 10, 20, 1000),
	})
	require.NoError(t, err)

	d, err := f.svc.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, 12, d.SystemOverview.ContentQueue)

	insights, err := f.svc.Insights(ctx)
	require.NoError(t, err)
	require.Len(t, insights, 2)
	assert.Equal(t, insight.TypeTemplateOptimization, insights[0].Type)
	assert.Equal(t, insight.TypeEngagementSuccess, insights[1].Type)
}

func TestFireHistory(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	id := f.create(t, "Serum", "grwm")
	require.True(t, f.svc.PostNow(ctx, id).Success)

	fires, err := f.svc.FireHistory(ctx, 10)
	require.NoError(t, err)
	require.Len(t, fires, 1)
	assert.Equal(t, schedule.SourcePostNow, fires[0].Source)
	assert.Equal(t, schedule.OutcomePosted, fires[0].Outcome)
}
