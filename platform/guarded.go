package platform

import (
	"context"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"go.uber.org/zap"

	"github.com/teranos/cadence/errors"
	"github.com/teranos/cadence/telemetry"
)

// ErrCircuitOpen marks a publish rejected by an open breaker without
// reaching the platform. It is also an adapter failure.
var ErrCircuitOpen = errors.New("publisher circuit open")

// BreakerConfig configures the circuit breaker of a Guarded publisher.
type BreakerConfig struct {
	// FailureThreshold failures within the last Window executions open the
	// circuit. Default: 3 of 5
	FailureThreshold uint
	Window           uint

	// Delay is how long the circuit stays open before a trial call.
	// Default: 5 minutes
	Delay time.Duration

	// SuccessThreshold trial successes close the circuit again. Default: 1
	SuccessThreshold uint
}

func (c BreakerConfig) withDefaults() BreakerConfig {
	if c.Window == 0 {
		c.Window = 5
	}
	if c.FailureThreshold == 0 {
		c.FailureThreshold = 3
	}
	if c.FailureThreshold > c.Window {
		c.FailureThreshold = c.Window
	}
	if c.Delay == 0 {
		c.Delay = 5 * time.Minute
	}
	if c.SuccessThreshold == 0 {
		c.SuccessThreshold = 1
	}
	return c
}

// Guarded bounds every call to the wrapped publisher with a timeout and
// stops calling it while its circuit breaker is open.
type Guarded struct {
	next    Publisher
	name    string
	timeout time.Duration
	breaker circuitbreaker.CircuitBreaker[any]
}

// NewGuarded wraps next. OnStateChanged transitions are logged when logger
// is non-nil.
func NewGuarded(next Publisher, name string, timeout time.Duration, cfg BreakerConfig, logger *zap.SugaredLogger) *Guarded {
	cfg = cfg.withDefaults()

	builder := circuitbreaker.NewBuilder[any]().
		WithFailureThresholdRatio(cfg.FailureThreshold, cfg.Window).
		WithDelay(cfg.Delay).
		WithSuccessThreshold(cfg.SuccessThreshold)

	builder = builder.OnStateChanged(func(event circuitbreaker.StateChangedEvent) {
		telemetry.PublisherBreakerState.WithLabelValues(name).Set(stateValue(event.NewState))
		if logger != nil {
			logger.Warnw("Publisher circuit breaker state change",
				"adapter", name,
				"from_state", stateName(event.OldState),
				"to_state", stateName(event.NewState),
			)
		}
	})

	return &Guarded{
		next:    next,
		name:    name,
		timeout: timeout,
		breaker: builder.Build(),
	}
}

// Publish calls the wrapped publisher through the breaker. An open circuit
// fails fast with ErrAdapterFailure marked ErrCircuitOpen.
func (g *Guarded) Publish(ctx context.Context, post Post) (Receipt, error) {
	result, err := failsafe.With(g.breaker).Get(func() (any, error) {
		return CallWithTimeout(ctx, g.next, post, g.timeout)
	})
	if err != nil {
		if errors.Is(err, circuitbreaker.ErrOpen) {
			return Receipt{}, errors.Mark(errors.NewAdapterFailure(errors.Wrapf(err, "%s circuit open", g.name)), ErrCircuitOpen)
		}
		return Receipt{}, err
	}
	return result.(Receipt), nil
}

// Open reports whether the breaker is currently rejecting calls.
func (g *Guarded) Open() bool {
	return g.breaker.IsOpen()
}

func stateValue(state circuitbreaker.State) float64 {
	switch state {
	case circuitbreaker.HalfOpenState:
		return 1
	case circuitbreaker.OpenState:
		return 2
	default:
		return 0
	}
}

func stateName(state circuitbreaker.State) string {
	switch state {
	case circuitbreaker.HalfOpenState:
		return "half-open"
	case circuitbreaker.OpenState:
		return "open"
	default:
		return "closed"
	}
}
