package platform

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/teranos/cadence/content"
	"github.com/teranos/cadence/errors"
)

// DefaultSuccessRate is the simulated platform's acceptance probability.
const DefaultSuccessRate = 0.9

// Simulated publishes nowhere and accepts a post with probability
// SuccessRate. Safe for concurrent use.
type Simulated struct {
	mu          sync.Mutex
	rng         *rand.Rand
	successRate float64
	now         func() time.Time
}

// NewSimulated creates a simulated publisher. A nil rng is seeded from the
// clock.
func NewSimulated(successRate float64, rng *rand.Rand) *Simulated {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Simulated{rng: rng, successRate: successRate, now: time.Now}
}

// Publish flips a weighted coin.
func (s *Simulated) Publish(ctx context.Context, post Post) (Receipt, error) {
	if err := ctx.Err(); err != nil {
		return Receipt{}, errors.NewAdapterFailure(errors.Wrap(err, "publish cancelled"))
	}

	s.mu.Lock()
	roll := s.rng.Float64()
	s.mu.Unlock()

	if roll >= s.successRate {
		return Receipt{}, errors.NewAdapterFailure(errors.Newf("simulated platform rejected post for %s", post.ArtifactID))
	}
	return Receipt{ID: uuid.NewString(), PostedAt: s.now()}, nil
}

// SimulatedEngagement draws plausible counters: 1,000 to 50,000 views,
// likes 2-8%, shares 0.5-2% and comments 1-3% of views.
type SimulatedEngagement struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSimulatedEngagement creates a simulated engagement source. A nil rng
// is seeded from the clock.
func NewSimulatedEngagement(rng *rand.Rand) *SimulatedEngagement {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &SimulatedEngagement{rng: rng}
}

// Fetch returns fresh random counters for a.
func (s *SimulatedEngagement) Fetch(ctx context.Context, a *content.Artifact) (Engagement, error) {
	if err := ctx.Err(); err != nil {
		return Engagement{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	views := int64(1000 + s.rng.Intn(49001))
	return Engagement{
		Views:    views,
		Likes:    fraction(views, s.uniform(0.02, 0.08)),
		Shares:   fraction(views, s.uniform(0.005, 0.02)),
		Comments: fraction(views, s.uniform(0.01, 0.03)),
	}, nil
}

func (s *SimulatedEngagement) uniform(lo, hi float64) float64 {
	return lo + s.rng.Float64()*(hi-lo)
}

func fraction(n int64, f float64) int64 {
	return int64(float64(n) * f)
}
