package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/teranos/cadence/sym"
)

func TestInitialize(t *testing.T) {
	tests := []struct {
		name       string
		jsonOutput bool
	}{
		{name: "JSON output mode", jsonOutput: true},
		{name: "Console output mode", jsonOutput: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			Logger = nil
			JSONOutput = false

			require.NoError(t, Initialize(tt.jsonOutput))
			require.NotNil(t, Logger)
			assert.Equal(t, tt.jsonOutput, JSONOutput)

			Logger = zap.NewNop().Sugar()
		})
	}
}

func TestVerbosityToLevel(t *testing.T) {
	assert.Equal(t, zapcore.WarnLevel, VerbosityToLevel(0))
	assert.Equal(t, zapcore.InfoLevel, VerbosityToLevel(1))
	assert.Equal(t, zapcore.DebugLevel, VerbosityToLevel(2))
	assert.Equal(t, zapcore.DebugLevel, VerbosityToLevel(7))
	assert.Equal(t, "Info (-v)", LevelName(1))
}

func TestAddPulseSymbol(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	log := AddPulseSymbol(zap.New(core).Sugar())

	log.Infow("Scheduler started", "triggers", 3)

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, sym.Pulse, entries[0].ContextMap()[FieldSymbol])
	assert.Equal(t, int64(3), entries[0].ContextMap()["triggers"])
}

func TestFromContext(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	base := zap.New(core).Sugar()

	ctx := WithFireID(context.Background(), "fire_1")
	ctx = WithComponent(ctx, "pulse.schedule")
	FromContext(ctx, base).Infow("fire")

	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "fire_1", fields[FieldFireID])
	assert.Equal(t, "pulse.schedule", fields[FieldComponent])

	assert.Same(t, base, FromContext(context.Background(), base))
}
