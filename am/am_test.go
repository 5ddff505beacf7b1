package am

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/fsnotify/fsnotify"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/cadence/errors"
)

func defaultConfig(t *testing.T) *Config {
	t.Helper()
	v := viper.New()
	SetDefaults(v)
	cfg, err := LoadWithViper(v)
	require.NoError(t, err)
	return cfg
}

func TestLoad_Defaults(t *testing.T) {
	cfg := defaultConfig(t)

	assert.Equal(t, "cadence.db", cfg.Database.Path)
	assert.Equal(t, []string{"08:00", "12:00", "18:00"}, cfg.Schedule.Times)
	assert.True(t, cfg.Schedule.Enabled)
	assert.Equal(t, 3, cfg.Schedule.MaxPostsPerDay)
	assert.Equal(t, 5, cfg.Schedule.MaxAttempts)
	assert.Equal(t, 10*time.Second, cfg.Schedule.PublishTimeout())
	assert.Equal(t, 5*time.Minute, cfg.Monitor.Interval())
	assert.Equal(t, time.Minute, cfg.Monitor.Backoff())
	assert.Equal(t, "simulated", cfg.Publisher.Kind)
	assert.InDelta(t, 0.9, cfg.Publisher.SuccessRate, 1e-9)

	require.NoError(t, cfg.Validate())
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "am.toml")
	content := `
[schedule]
times = ["09:15", "21:00"]
timezone = "Europe/Amsterdam"
max_posts_per_day = 0

[monitor]
interval_seconds = 60
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"09:15", "21:00"}, cfg.Schedule.Times)
	assert.Equal(t, 0, cfg.Schedule.MaxPostsPerDay)
	assert.Equal(t, time.Minute, cfg.Monitor.Interval())
	assert.Equal(t, 60*time.Second, cfg.Monitor.Backoff(), "unset keys keep defaults")

	loc, err := cfg.Schedule.Location()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Amsterdam", loc.String())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty schedule", func(c *Config) { c.Schedule.Times = nil }},
		{"bad trigger time", func(c *Config) { c.Schedule.Times = []string{"08:00", "24:30"} }},
		{"unknown timezone", func(c *Config) { c.Schedule.Timezone = "Mars/Olympus" }},
		{"negative daily cap", func(c *Config) { c.Schedule.MaxPostsPerDay = -1 }},
		{"negative attempts", func(c *Config) { c.Schedule.MaxAttempts = -1 }},
		{"conversion above one", func(c *Config) { c.Monitor.ConversionRate = 1.5 }},
		{"unknown publisher", func(c *Config) { c.Publisher.Kind = "tiktok" }},
		{"bluesky without credentials", func(c *Config) { c.Publisher.Kind = "bluesky" }},
		{"breaker threshold above window", func(c *Config) { c.Publisher.Breaker.FailureThreshold = 9 }},
		{"negative post-now limit", func(c *Config) { c.Operator.PostNowPerMinute = -2 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig(t)
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.IsInvalidConfig(err), "got %v", err)
		})
	}
}

func TestValidate_ZeroMeansDisabled(t *testing.T) {
	cfg := defaultConfig(t)
	cfg.Schedule.MaxPostsPerDay = 0
	cfg.Schedule.MaxAttempts = 0
	cfg.Operator.PostNowPerMinute = 0

	assert.NoError(t, cfg.Validate())
}

func TestUpdateScheduleTimes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "am_from_operator.toml")

	require.NoError(t, UpdateScheduleTimes(path, []string{"18:00", "7:30", "18:00"}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var parsed struct {
		Schedule struct {
			Times []string `toml:"times"`
		} `toml:"schedule"`
	}
	require.NoError(t, toml.Unmarshal(data, &parsed))
	assert.Equal(t, []string{"07:30", "18:00"}, parsed.Schedule.Times)

	// Second write rotates a backup and keeps other keys
	require.NoError(t, UpdateScheduleEnabled(path, false))
	_, err = os.Stat(path + ".back1")
	assert.NoError(t, err)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"07:30", "18:00"}, cfg.Schedule.Times)
	assert.False(t, cfg.Schedule.Enabled)
}

func TestUpdateScheduleTimes_RejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "am_from_operator.toml")

	err := UpdateScheduleTimes(path, nil)
	assert.True(t, errors.IsInvalidConfig(err))

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "nothing written for invalid input")
}

func TestIsBackupFile(t *testing.T) {
	assert.True(t, isBackupFile("/home/x/.cadence/am_from_operator.toml.back1"))
	assert.True(t, isBackupFile("am.toml.back3"))
	assert.False(t, isBackupFile("am.toml"))
}

func TestConfigWatcher_ReloadInvokesCallbacks(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "am_from_operator.toml")
	require.NoError(t, os.WriteFile(path, []byte("[schedule]\ntimes = [\"08:00\"]\n"), 0644))

	cw, err := NewConfigWatcher(path)
	require.NoError(t, err)
	defer cw.Stop()

	cw.loader = func() (*Config, error) { return LoadFromFile(path) }

	var calls atomic.Int32
	var failing atomic.Int32
	cw.OnReload(func(*Config) error {
		failing.Add(1)
		return errors.New("first callback fails")
	})
	cw.OnReload(func(cfg *Config) error {
		assert.Equal(t, []string{"08:00"}, cfg.Schedule.Times)
		calls.Add(1)
		return nil
	})

	require.NoError(t, cw.reload())
	assert.Equal(t, int32(1), failing.Load())
	assert.Equal(t, int32(1), calls.Load(), "a failing callback does not stop the others")
}

func TestConfigWatcher_Relevant(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "am_from_operator.toml")
	require.NoError(t, os.WriteFile(path, nil, 0644))

	cw, err := NewConfigWatcher(path)
	require.NoError(t, err)
	defer cw.Stop()

	assert.True(t, cw.relevant(fsnotify.Event{Name: path, Op: fsnotify.Write}))
	assert.False(t, cw.relevant(fsnotify.Event{Name: path + ".back1", Op: fsnotify.Create}))
	assert.False(t, cw.relevant(fsnotify.Event{Name: filepath.Join(dir, "other.toml"), Op: fsnotify.Write}))
	assert.False(t, cw.relevant(fsnotify.Event{Name: path, Op: fsnotify.Chmod}))

	cw.MarkOwnWrite()
	assert.True(t, cw.checkOwnWrite())
	assert.False(t, cw.checkOwnWrite(), "flag clears after one check")
}

func TestSettings_MasksSecrets(t *testing.T) {
	Reset()
	t.Cleanup(Reset)
	t.Setenv("CADENCE_OPERATOR_CONFIG", filepath.Join(t.TempDir(), "none.toml"))
	t.Setenv("CADENCE_BLUESKY_APP_PASSWORD", "hunter2")

	var found bool
	for _, s := range Settings() {
		if s.Key == "bluesky.app_password" {
			found = true
			assert.Equal(t, "********", s.Value)
			assert.Equal(t, SourceEnvironment, s.Source)
		}
	}
	assert.True(t, found)
}
