package am

import "time"

// Config represents the cadence configuration
type Config struct {
	Database  DatabaseConfig  `mapstructure:"database"`
	Schedule  ScheduleConfig  `mapstructure:"schedule"`
	Monitor   MonitorConfig   `mapstructure:"monitor"`
	Publisher PublisherConfig `mapstructure:"publisher"`
	Bluesky   BlueskyConfig   `mapstructure:"bluesky"`
	Operator  OperatorConfig  `mapstructure:"operator"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

// DatabaseConfig configures the SQLite database
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// ScheduleConfig configures the daily publish triggers
type ScheduleConfig struct {
	Times                 []string `mapstructure:"times"`                   // HH:MM, 24h (default: 08:00, 12:00, 18:00)
	Enabled               bool     `mapstructure:"enabled"`                 // Fire triggers at all (default: true)
	Timezone              string   `mapstructure:"timezone"`                // IANA name; empty = local time
	MaxPostsPerDay        int      `mapstructure:"max_posts_per_day"`       // 0 = no daily cap (default: 3)
	MaxAttempts           int      `mapstructure:"max_attempts"`            // Failed publishes before an artifact is parked; 0 = retry forever (default: 5)
	TickIntervalSeconds   int      `mapstructure:"tick_interval_seconds"`   // How often triggers are checked (default: 15)
	MisfireGraceSeconds   int      `mapstructure:"misfire_grace_seconds"`   // Late slots older than this are skipped (default: 120)
	PublishTimeoutSeconds int      `mapstructure:"publish_timeout_seconds"` // Bound on one adapter call (default: 10)
}

// MonitorConfig configures the metrics loop
type MonitorConfig struct {
	Enabled              bool    `mapstructure:"enabled"`                // default: true
	IntervalSeconds      int     `mapstructure:"interval_seconds"`       // default: 300
	BackoffSeconds       int     `mapstructure:"backoff_seconds"`        // after a tick with errors (default: 60)
	StatusTimeoutSeconds int     `mapstructure:"status_timeout_seconds"` // default: 10
	ConversionRate       float64 `mapstructure:"conversion_rate"`        // views → orders (default: 0.02)
	AverageOrderValue    float64 `mapstructure:"average_order_value"`    // revenue per order (default: 40.0)
}

// PublisherConfig selects and tunes the publishing adapter
type PublisherConfig struct {
	Kind              string        `mapstructure:"kind"`                // simulated | bluesky (default: simulated)
	SuccessRate       float64       `mapstructure:"success_rate"`        // simulated only (default: 0.9)
	RequestsPerMinute int           `mapstructure:"requests_per_minute"` // client-side limit for real platforms (default: 10)
	Breaker           BreakerConfig `mapstructure:"breaker"`
}

// BreakerConfig configures the circuit breaker around real publishers
type BreakerConfig struct {
	FailureThreshold uint `mapstructure:"failure_threshold"` // failures within Window that open the circuit (default: 3)
	Window           uint `mapstructure:"window"`            // executions considered (default: 5)
	DelaySeconds     int  `mapstructure:"delay_seconds"`     // open → half-open (default: 300)
	SuccessThreshold uint `mapstructure:"success_threshold"` // half-open → closed (default: 1)
}

// BlueskyConfig holds AT Protocol credentials for the bluesky publisher
type BlueskyConfig struct {
	Host        string `mapstructure:"host"`         // PDS URL (default: https://bsky.social)
	Handle      string `mapstructure:"handle"`       // e.g. "shop.bsky.social"
	AppPassword string `mapstructure:"app_password"` // app password, never the account password
	// Self-hosted PDS on a private network; loopback and private addresses are refused otherwise
	AllowPrivateHost bool `mapstructure:"allow_private_host"`
}

// OperatorConfig configures the operator surface
type OperatorConfig struct {
	PostNowPerMinute int `mapstructure:"post_now_per_minute"` // 0 = unlimited (default: 6)
}

// MetricsConfig configures the Prometheus endpoint of `cadence serve`
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"` // default: true
	Address string `mapstructure:"address"` // default: 127.0.0.1:9477
}

// File system constants
const (
	DefaultDirPermissions  = 0755
	DefaultFilePermissions = 0644
)

// Location resolves the configured timezone; empty means time.Local.
func (s ScheduleConfig) Location() (*time.Location, error) {
	if s.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(s.Timezone)
}

// TickInterval returns the trigger check period.
func (s ScheduleConfig) TickInterval() time.Duration {
	return seconds(s.TickIntervalSeconds, 15)
}

// MisfireGrace returns how late a slot may be observed and still fire.
func (s ScheduleConfig) MisfireGrace() time.Duration {
	return seconds(s.MisfireGraceSeconds, 120)
}

// PublishTimeout returns the bound on a single publish call.
func (s ScheduleConfig) PublishTimeout() time.Duration {
	return seconds(s.PublishTimeoutSeconds, 10)
}

// Interval returns the monitor period.
func (m MonitorConfig) Interval() time.Duration {
	return seconds(m.IntervalSeconds, 300)
}

// Backoff returns the shortened wait after a failing tick.
func (m MonitorConfig) Backoff() time.Duration {
	return seconds(m.BackoffSeconds, 60)
}

// StatusTimeout returns the bound on one status adapter call.
func (m MonitorConfig) StatusTimeout() time.Duration {
	return seconds(m.StatusTimeoutSeconds, 10)
}

func seconds(n, fallback int) time.Duration {
	if n <= 0 {
		n = fallback
	}
	return time.Duration(n) * time.Second
}
