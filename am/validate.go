package am

import (
	"github.com/teranos/cadence/errors"
	"github.com/teranos/cadence/internal/daytime"
)

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if _, err := daytime.ParseSet(c.Schedule.Times); err != nil {
		return errors.Wrap(err, "schedule.times")
	}
	if _, err := c.Schedule.Location(); err != nil {
		return errors.Wrapf(errors.Mark(err, errors.ErrInvalidConfig), "schedule.timezone %q", c.Schedule.Timezone)
	}

	// Zero means "no cap" / "retry forever" / "use default"; negative is invalid
	if c.Schedule.MaxPostsPerDay < 0 {
		return errors.NewInvalidConfigError("schedule.max_posts_per_day must be >= 0, got %d", c.Schedule.MaxPostsPerDay)
	}
	if c.Schedule.MaxAttempts < 0 {
		return errors.NewInvalidConfigError("schedule.max_attempts must be >= 0, got %d", c.Schedule.MaxAttempts)
	}
	if c.Schedule.TickIntervalSeconds < 0 {
		return errors.NewInvalidConfigError("schedule.tick_interval_seconds must be >= 0, got %d", c.Schedule.TickIntervalSeconds)
	}
	if c.Schedule.PublishTimeoutSeconds < 0 {
		return errors.NewInvalidConfigError("schedule.publish_timeout_seconds must be >= 0, got %d", c.Schedule.PublishTimeoutSeconds)
	}

	if c.Monitor.IntervalSeconds < 0 {
		return errors.NewInvalidConfigError("monitor.interval_seconds must be >= 0, got %d", c.Monitor.IntervalSeconds)
	}
	if c.Monitor.BackoffSeconds < 0 {
		return errors.NewInvalidConfigError("monitor.backoff_seconds must be >= 0, got %d", c.Monitor.BackoffSeconds)
	}
	if c.Monitor.ConversionRate < 0 || c.Monitor.ConversionRate > 1 {
		return errors.NewInvalidConfigError("monitor.conversion_rate must be within [0, 1], got %f", c.Monitor.ConversionRate)
	}
	if c.Monitor.AverageOrderValue < 0 {
		return errors.NewInvalidConfigError("monitor.average_order_value must be >= 0, got %f", c.Monitor.AverageOrderValue)
	}

	switch c.Publisher.Kind {
	case "", "simulated":
		if c.Publisher.SuccessRate < 0 || c.Publisher.SuccessRate > 1 {
			return errors.NewInvalidConfigError("publisher.success_rate must be within [0, 1], got %f", c.Publisher.SuccessRate)
		}
	case "bluesky":
		if c.Bluesky.Handle == "" || c.Bluesky.AppPassword == "" {
			return errors.WithHint(
				errors.NewInvalidConfigError("bluesky publisher requires bluesky.handle and bluesky.app_password"),
				"set CADENCE_BLUESKY_HANDLE and CADENCE_BLUESKY_APP_PASSWORD")
		}
	default:
		return errors.NewInvalidConfigError("publisher.kind %q is not one of simulated, bluesky", c.Publisher.Kind)
	}
	if c.Publisher.Breaker.Window > 0 && c.Publisher.Breaker.FailureThreshold > c.Publisher.Breaker.Window {
		return errors.NewInvalidConfigError("publisher.breaker.failure_threshold (%d) exceeds window (%d)",
			c.Publisher.Breaker.FailureThreshold, c.Publisher.Breaker.Window)
	}

	if c.Operator.PostNowPerMinute < 0 {
		return errors.NewInvalidConfigError("operator.post_now_per_minute must be >= 0, got %d", c.Operator.PostNowPerMinute)
	}

	return nil
}
