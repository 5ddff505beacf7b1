package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/cadence/errors"
	cadencetest "github.com/teranos/cadence/internal/testing"
)

func TestFireStore_RecordAndGet(t *testing.T) {
	store := NewFireStore(cadencetest.CreateTestDB(t))
	ctx := context.Background()

	f := &Fire{
		Source:       SourceTrigger,
		TriggerTime:  "09:00",
		ArtifactID:   "art_01",
		Outcome:      OutcomeFailed,
		ErrorMessage: "platform rejected post",
		DurationMs:   120,
		FiredAt:      at(9, 0, 3),
	}
	require.NoError(t, store.Record(ctx, f))
	assert.Contains(t, f.ID, "fire_")

	got, err := store.Get(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, f.TriggerTime, got.TriggerTime)
	assert.Equal(t, f.ErrorMessage, got.ErrorMessage)
	assert.Equal(t, int64(120), got.DurationMs)
	assert.True(t, got.FiredAt.Equal(f.FiredAt))

	_, err = store.Get(ctx, "fire_missing")
	assert.True(t, errors.IsNotFound(err))
}

func TestFireStore_OptionalColumns(t *testing.T) {
	store := NewFireStore(cadencetest.CreateTestDB(t))
	ctx := context.Background()

	f := &Fire{Source: SourcePostNow, ArtifactID: "art_02", Outcome: OutcomePosted, FiredAt: at(10, 0, 0)}
	require.NoError(t, store.Record(ctx, f))

	got, err := store.Get(ctx, f.ID)
	require.NoError(t, err)
	assert.Empty(t, got.TriggerTime)
	assert.Empty(t, got.ErrorMessage)
}

func TestFireStore_ListPaginatesAndFilters(t *testing.T) {
	store := NewFireStore(cadencetest.CreateTestDB(t))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		source := SourceTrigger
		if i%2 == 1 {
			source = SourcePostNow
		}
		require.NoError(t, store.Record(ctx, &Fire{
			Source:  source,
			Outcome: OutcomePosted,
			FiredAt: at(9, i, 0),
		}))
	}

	fires, total, err := store.List(ctx, 2, 0, "")
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, fires, 2)
	assert.True(t, fires[0].FiredAt.Equal(at(9, 4, 0)))
	assert.True(t, fires[1].FiredAt.Equal(at(9, 3, 0)))

	fires, _, err = store.List(ctx, 2, 4, "")
	require.NoError(t, err)
	require.Len(t, fires, 1)
	assert.True(t, fires[0].FiredAt.Equal(at(9, 0, 0)))

	fires, total, err = store.List(ctx, 10, 0, SourcePostNow)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	for _, f := range fires {
		assert.Equal(t, SourcePostNow, f.Source)
	}
}

func TestFireStore_Cleanup(t *testing.T) {
	store := NewFireStore(cadencetest.CreateTestDB(t))
	ctx := context.Background()
	now := at(12, 0, 0)

	require.NoError(t, store.Record(ctx, &Fire{Source: SourceTrigger, Outcome: OutcomePosted, FiredAt: now.AddDate(0, 0, -40)}))
	require.NoError(t, store.Record(ctx, &Fire{Source: SourceTrigger, Outcome: OutcomePosted, FiredAt: now.Add(-time.Hour)}))

	deleted, err := store.Cleanup(ctx, now, 30)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	_, total, err := store.List(ctx, 10, 0, "")
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}
