package platform

import (
	"time"

	"go.uber.org/zap"

	"github.com/teranos/cadence/am"
	"github.com/teranos/cadence/errors"
	"github.com/teranos/cadence/internal/httpclient"
)

// NewPublisher builds the configured publisher. Values are used as given;
// am applies the defaults. Real platforms are wrapped
// in Guarded; the simulated one is returned bare.
func NewPublisher(cfg *am.Config, logger *zap.SugaredLogger) (Publisher, error) {
	switch cfg.Publisher.Kind {
	case "", "simulated":
		return NewSimulated(cfg.Publisher.SuccessRate, nil), nil

	case "bluesky":
		policy := httpclient.Options{AllowPrivateHosts: cfg.Bluesky.AllowPrivateHost}
		if _, err := httpclient.ParseEndpoint(cfg.Bluesky.Host, policy); err != nil {
			return nil, errors.Wrap(errors.Mark(err, errors.ErrInvalidConfig), "bluesky.host")
		}
		bsky := NewBluesky(BlueskyOptions{
			Host:              cfg.Bluesky.Host,
			Handle:            cfg.Bluesky.Handle,
			AppPassword:       cfg.Bluesky.AppPassword,
			RequestsPerMinute: cfg.Publisher.RequestsPerMinute,
			HTTPClient:        httpclient.New(cfg.Schedule.PublishTimeout(), policy),
		})
		breaker := BreakerConfig{
			FailureThreshold: cfg.Publisher.Breaker.FailureThreshold,
			Window:           cfg.Publisher.Breaker.Window,
			Delay:            time.Duration(cfg.Publisher.Breaker.DelaySeconds) * time.Second,
			SuccessThreshold: cfg.Publisher.Breaker.SuccessThreshold,
		}
		return NewGuarded(bsky, "bluesky", cfg.Schedule.PublishTimeout(), breaker, logger), nil

	default:
		return nil, errors.NewInvalidConfigError("unknown publisher kind %q", cfg.Publisher.Kind)
	}
}
