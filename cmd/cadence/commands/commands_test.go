package commands

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/teranos/cadence/am"
	"github.com/teranos/cadence/content"
	cadencetest "github.com/teranos/cadence/internal/testing"
	"github.com/teranos/cadence/pulse/schedule"
)

func testConfig(t *testing.T) *am.Config {
	t.Helper()
	v := viper.New()
	am.SetDefaults(v)
	cfg, err := am.LoadWithViper(v)
	require.NoError(t, err)
	cfg.Schedule.Timezone = "UTC"
	cfg.Publisher.SuccessRate = 1.0
	return cfg
}

func TestNewEngine_WiresComponents(t *testing.T) {
	t.Setenv("CADENCE_OPERATOR_CONFIG", filepath.Join(t.TempDir(), "am_from_operator.toml"))
	database := cadencetest.CreateTestDB(t)

	e, err := newEngine(testConfig(t), database, zap.NewNop().Sugar())
	require.NoError(t, err)
	assert.Equal(t, time.UTC, e.loc)
	assert.Equal(t, am.DefaultTriggerTimes, e.scheduler.Config().Times)
	assert.True(t, e.monitor.Enabled())

	ctx := context.Background()
	id, err := e.artifacts.Create(ctx, &content.Artifact{
		ProductID: "p1", ProductName: "Glow Serum", TemplateType: "tutorial",
	})
	require.NoError(t, err)

	res := e.operator.PostNow(ctx, id)
	require.True(t, res.Success, res.Message)

	fires, err := e.operator.FireHistory(ctx, 5)
	require.NoError(t, err)
	require.Len(t, fires, 1)
	assert.Equal(t, schedule.SourcePostNow, fires[0].Source)

	require.NoError(t, e.monitor.Tick(ctx))
	d, err := e.operator.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, d.ContentSummary.TotalPosts)
}

func TestNewEngine_MonitorDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Monitor.Enabled = false

	e, err := newEngine(cfg, cadencetest.CreateTestDB(t), zap.NewNop().Sugar())
	require.NoError(t, err)
	assert.False(t, e.monitor.Enabled())
}

func TestNewEngine_RejectsBadConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Schedule.Timezone = "Mars/Olympus_Mons"
	_, err := newEngine(cfg, cadencetest.CreateTestDB(t), zap.NewNop().Sugar())
	assert.Error(t, err)

	cfg = testConfig(t)
	cfg.Publisher.Kind = "carrier-pigeon"
	_, err = newEngine(cfg, cadencetest.CreateTestDB(t), zap.NewNop().Sugar())
	assert.Error(t, err)
}

func TestCountRows(t *testing.T) {
	rows := countRows(map[string]int{"grwm": 2, "tutorial": 5, "review": 2})
	assert.Equal(t, [][]string{{"tutorial", "5"}, {"grwm", "2"}, {"review", "2"}}, rows)
}

func TestPlural(t *testing.T) {
	assert.Equal(t, "1 artifact", plural(1, "artifact"))
	assert.Equal(t, "0 artifacts", plural(0, "artifact"))
	assert.Equal(t, "3 posts", plural(3, "post"))
}
