package am

import (
	"fmt"

	"github.com/spf13/viper"
)

// DefaultTriggerTimes are the daily publish slots used when none are configured.
var DefaultTriggerTimes = []string{"08:00", "12:00", "18:00"}

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database.path", "cadence.db")

	// Scheduler
	v.SetDefault("schedule.times", DefaultTriggerTimes)
	v.SetDefault("schedule.enabled", true)
	v.SetDefault("schedule.timezone", "")
	v.SetDefault("schedule.max_posts_per_day", 3)
	v.SetDefault("schedule.max_attempts", 5)
	v.SetDefault("schedule.tick_interval_seconds", 15)
	v.SetDefault("schedule.misfire_grace_seconds", 120)
	v.SetDefault("schedule.publish_timeout_seconds", 10)

	// Monitor loop
	v.SetDefault("monitor.enabled", true)
	v.SetDefault("monitor.interval_seconds", 300)
	v.SetDefault("monitor.backoff_seconds", 60)
	v.SetDefault("monitor.status_timeout_seconds", 10)
	v.SetDefault("monitor.conversion_rate", 0.02)
	v.SetDefault("monitor.average_order_value", 40.0)

	// Publisher
	v.SetDefault("publisher.kind", "simulated")
	v.SetDefault("publisher.success_rate", 0.9)
	v.SetDefault("publisher.requests_per_minute", 10)
	v.SetDefault("publisher.breaker.failure_threshold", 3)
	v.SetDefault("publisher.breaker.window", 5)
	v.SetDefault("publisher.breaker.delay_seconds", 300)
	v.SetDefault("publisher.breaker.success_threshold", 1)

	v.SetDefault("bluesky.host", "https://bsky.social")
	v.SetDefault("bluesky.allow_private_host", false)

	v.SetDefault("operator.post_now_per_minute", 6)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.address", "127.0.0.1:9477")
}

// BindSensitiveEnvVars explicitly binds credentials to environment variables
func BindSensitiveEnvVars(v *viper.Viper) {
	v.BindEnv("database.path", "CADENCE_DATABASE_PATH")
	v.BindEnv("bluesky.handle", "CADENCE_BLUESKY_HANDLE")
	v.BindEnv("bluesky.app_password", "CADENCE_BLUESKY_APP_PASSWORD")
}

// GetDatabasePath returns the configured database path
func (c *Config) GetDatabasePath() string {
	if c.Database.Path == "" {
		return "cadence.db"
	}
	return c.Database.Path
}

// String returns a short summary of the config (credentials omitted)
func (c *Config) String() string {
	return fmt.Sprintf("Config{Database: %s, Schedule: %v enabled=%t, Publisher: %s, Monitor: %ds}",
		c.Database.Path, c.Schedule.Times, c.Schedule.Enabled, c.Publisher.Kind, c.Monitor.IntervalSeconds)
}
