package content

import (
	"context"
	"database/sql"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/cadence/errors"
	cadencetest "github.com/teranos/cadence/internal/testing"
)

var base = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	clock := cadencetest.NewClock(base)
	return NewStore(cadencetest.CreateTestDB(t)).WithClock(clock.Now)
}

func newArtifact(product string, generatedAt time.Time) *Artifact {
	return &Artifact{
		ProductID:    "p-" + product,
		ProductName:  product,
		TemplateType: "grwm",
		Hook:         "You need this",
		Script:       "Step one, step two.",
		CTA:          "Tap the link",
		Hashtags:     []string{"#skincare", "#fyp"},
		GeneratedAt:  generatedAt,
	}
}

func TestCreate_AssignsIDAndState(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	a := newArtifact("Serum", time.Time{})
	a.State = StatePosted // ignored: new artifacts are always Ready

	id, err := store.Create(ctx, a)
	require.NoError(t, err)
	assert.True(t, IsValidID(id), "got %q", id)

	got, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StateReady, got.State)
	assert.Nil(t, got.PostedAt)
	assert.True(t, got.GeneratedAt.Equal(base), "zero GeneratedAt stamped from the store clock")
	assert.Equal(t, []string{"#skincare", "#fyp"}, got.Hashtags)
	assert.Empty(t, got.Assets)
}

func TestCreate_DuplicateID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	a := newArtifact("Serum", base)
	a.ID = "art_fixed"
	_, err := store.Create(ctx, a)
	require.NoError(t, err)

	b := newArtifact("Balm", base)
	b.ID = "art_fixed"
	_, err = store.Create(ctx, b)
	assert.True(t, errors.IsDuplicateID(err), "got %v", err)
}

func TestCreate_RejectsIncompleteArtifact(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Create(context.Background(), &Artifact{ProductName: "Serum"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "product_id")
}

func TestListReady_OrderedOldestFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// Inserted out of order; two share a timestamp and break ties by ID
	mustCreate(t, store, withID(newArtifact("C", base.Add(2*time.Hour)), "art_c"))
	mustCreate(t, store, withID(newArtifact("B2", base.Add(time.Hour)), "art_b2"))
	mustCreate(t, store, withID(newArtifact("A", base), "art_a"))
	mustCreate(t, store, withID(newArtifact("B1", base.Add(time.Hour)), "art_b1"))

	ready, err := store.ListReady(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"art_a", "art_b1", "art_b2", "art_c"}, ids(ready))

	for i := 1; i < len(ready); i++ {
		assert.False(t, ready[i].GeneratedAt.Before(ready[i-1].GeneratedAt))
	}
}

func TestMarkPosted_Twice(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id := mustCreate(t, store, newArtifact("Serum", base))

	require.NoError(t, store.MarkPosted(ctx, id, base.Add(time.Minute)))

	err := store.MarkPosted(ctx, id, base.Add(2*time.Minute))
	assert.True(t, errors.IsInvalidTransition(err), "got %v", err)

	got, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StatePosted, got.State)
	require.NotNil(t, got.PostedAt)
	assert.True(t, got.PostedAt.Equal(base.Add(time.Minute)), "first mark wins")

	ready, err := store.ListReady(ctx)
	require.NoError(t, err)
	assert.Empty(t, ready)
}

func TestMarkPosted_NotFound(t *testing.T) {
	store := newTestStore(t)

	err := store.MarkPosted(context.Background(), "art_missing", base)
	assert.True(t, errors.IsNotFound(err), "got %v", err)
}

func TestMarkPosted_ConcurrentCallersOneWins(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	id := mustCreate(t, store, newArtifact("Serum", base))

	var wins, conflicts atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := store.MarkPosted(ctx, id, base)
			switch {
			case err == nil:
				wins.Add(1)
			case errors.IsInvalidTransition(err):
				conflicts.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
	assert.Equal(t, int32(7), conflicts.Load())
}

func TestRecordFailure_BoundedAttempts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	id := mustCreate(t, store, newArtifact("Serum", base))

	state, err := store.RecordFailure(ctx, id, "platform rejected post", 2)
	require.NoError(t, err)
	assert.Equal(t, StateReady, state)

	state, err = store.RecordFailure(ctx, id, "adapter timeout", 2)
	require.NoError(t, err)
	assert.Equal(t, StateFailed, state)

	got, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Attempts)
	assert.Equal(t, "adapter timeout", got.LastError)

	ready, err := store.ListReady(ctx)
	require.NoError(t, err)
	assert.Empty(t, ready, "failed artifacts leave the queue")

	_, err = store.RecordFailure(ctx, id, "again", 2)
	assert.True(t, errors.IsInvalidTransition(err))
}

func TestRecordFailure_Unbounded(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	id := mustCreate(t, store, newArtifact("Serum", base))

	for i := 0; i < 10; i++ {
		state, err := store.RecordFailure(ctx, id, "nope", 0)
		require.NoError(t, err)
		assert.Equal(t, StateReady, state)
	}
}

func TestRequeue(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	id := mustCreate(t, store, newArtifact("Serum", base))

	err := store.Requeue(ctx, id)
	assert.True(t, errors.IsInvalidTransition(err), "ready artifacts cannot be requeued")

	_, err = store.RecordFailure(ctx, id, "nope", 1)
	require.NoError(t, err)
	require.NoError(t, store.Requeue(ctx, id))

	got, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StateReady, got.State)
	assert.Equal(t, 0, got.Attempts)
	assert.Empty(t, got.LastError)

	assert.True(t, errors.IsNotFound(store.Requeue(ctx, "art_missing")))
}

func TestPostedQueries(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	a := mustCreate(t, store, newArtifact("Serum", base))
	b := mustCreate(t, store, withTemplate(newArtifact("Serum", base.Add(time.Second)), "unboxing"))
	c := mustCreate(t, store, newArtifact("Balm", base.Add(2*time.Second)))
	mustCreate(t, store, newArtifact("Mask", base.Add(3*time.Second)))

	require.NoError(t, store.MarkPosted(ctx, a, base.Add(-24*time.Hour)))
	require.NoError(t, store.MarkPosted(ctx, b, base.Add(time.Hour)))
	require.NoError(t, store.MarkPosted(ctx, c, base.Add(2*time.Hour)))

	n, err := store.CountPostedBetween(ctx, base, base.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	counts, err := store.CountByState(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[State]int{StateReady: 1, StatePosted: 3, StateFailed: 0}, counts)

	dist, err := store.Distribution(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"grwm": 2, "unboxing": 1}, dist.ByTemplate)
	assert.Equal(t, map[string]int{"Serum": 2, "Balm": 1}, dist.ByProduct)

	recent, err := store.RecentPosted(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{c, b}, ids(recent))

	posted, err := store.ListPosted(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{a, b, c}, ids(posted))
}

func TestStoreUnavailable(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	mock.ExpectQuery("FROM artifacts").WillReturnError(sql.ErrConnDone)
	mock.ExpectExec("UPDATE artifacts").WillReturnError(errors.New("database is locked"))

	store := NewStore(mockDB)
	ctx := context.Background()

	_, err = store.ListReady(ctx)
	assert.True(t, errors.IsStoreUnavailable(err), "got %v", err)

	err = store.MarkPosted(ctx, "art_x", base)
	assert.True(t, errors.IsStoreUnavailable(err), "got %v", err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewID_Monotonic(t *testing.T) {
	prev, err := NewID(base)
	require.NoError(t, err)
	for i := 0; i < 1000; i++ {
		next, err := NewID(base)
		require.NoError(t, err)
		require.Greater(t, next, prev, "same-millisecond IDs must increase")
		prev = next
	}
	assert.False(t, IsValidID("jan_01h"))
	assert.False(t, IsValidID("art_not-a-ulid"))
}

func TestCreate_GeneratedAtOutOfRange(t *testing.T) {
	store := NewStore(cadencetest.CreateTestDB(t))
	ctx := context.Background()

	for _, at := range []time.Time{
		time.Date(1969, 12, 31, 23, 59, 0, 0, time.UTC),
		time.Date(10900, 1, 1, 0, 0, 0, 0, time.UTC),
	} {
		var id string
		var err error
		require.NotPanics(t, func() {
			id, err = store.Create(ctx, &Artifact{
				ProductID:    "p1",
				ProductName:  "Serum",
				TemplateType: "tutorial",
				GeneratedAt:  at,
			})
		})
		require.Error(t, err, "generated_at %s", at)
		assert.True(t, errors.IsInvalidConfig(err), "got %v", err)
		assert.Empty(t, id)
	}

	ready, err := store.ListReady(ctx)
	require.NoError(t, err)
	assert.Empty(t, ready)
}

func mustCreate(t *testing.T, store *Store, a *Artifact) string {
	t.Helper()
	id, err := store.Create(context.Background(), a)
	require.NoError(t, err)
	return id
}

func withID(a *Artifact, id string) *Artifact {
	a.ID = id
	return a
}

func withTemplate(a *Artifact, template string) *Artifact {
	a.TemplateType = template
	return a
}

func ids(list []*Artifact) []string {
	out := make([]string, len(list))
	for i, a := range list {
		out[i] = a.ID
	}
	return out
}
