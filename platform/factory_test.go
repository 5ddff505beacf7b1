package platform

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/teranos/cadence/am"
	"github.com/teranos/cadence/errors"
)

func TestNewPublisher(t *testing.T) {
	log := zap.NewNop().Sugar()

	p, err := NewPublisher(&am.Config{}, log)
	require.NoError(t, err)
	assert.IsType(t, &Simulated{}, p)

	cfg := &am.Config{}
	cfg.Publisher.Kind = "bluesky"
	cfg.Bluesky.Host = "https://bsky.social"
	p, err = NewPublisher(cfg, log)
	require.NoError(t, err)
	assert.IsType(t, &Guarded{}, p)

	cfg.Bluesky.Host = "http://10.0.0.5:2583"
	_, err = NewPublisher(cfg, log)
	assert.True(t, errors.IsInvalidConfig(err), "got %v", err)

	cfg.Bluesky.AllowPrivateHost = true
	_, err = NewPublisher(cfg, log)
	assert.NoError(t, err)

	cfg.Publisher.Kind = "fax"
	_, err = NewPublisher(cfg, log)
	assert.True(t, errors.IsInvalidConfig(err), "got %v", err)
}

func TestNewPublisher_SuccessRateTakenAsConfigured(t *testing.T) {
	log := zap.NewNop().Sugar()
	ctx := context.Background()
	post := Post{ArtifactID: "art_01", Text: "hi"}

	cfg := &am.Config{}
	cfg.Publisher.SuccessRate = 0
	p, err := NewPublisher(cfg, log)
	require.NoError(t, err)
	for i := 0; i < 50; i++ {
		_, err := p.Publish(ctx, post)
		require.Error(t, err, "success_rate 0 must reject every post")
		assert.True(t, errors.IsAdapterError(err))
	}

	cfg.Publisher.SuccessRate = 1
	p, err = NewPublisher(cfg, log)
	require.NoError(t, err)
	for i := 0; i < 50; i++ {
		_, err := p.Publish(ctx, post)
		require.NoError(t, err)
	}
}
