package content

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"
	"time"

	"github.com/teranos/cadence/db"
	"github.com/teranos/cadence/errors"
)

// Store persists artifacts. Writes take the write lock and reads the read
// lock, so MarkPosted is atomic with respect to ListReady within a
// process; the conditional UPDATE keeps it atomic across processes.
type Store struct {
	db  *sql.DB
	mu  sync.RWMutex
	now func() time.Time
}

// NewStore creates an artifact store over a migrated database
func NewStore(database *sql.DB) *Store {
	return &Store{db: database, now: time.Now}
}

// WithClock replaces the time source used for generated and updated stamps.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// Distribution counts posted artifacts by template and by product.
type Distribution struct {
	ByTemplate map[string]int `json:"by_template"`
	ByProduct  map[string]int `json:"by_product"`
}

const artifactColumns = `id, product_id, product_name, template_type, hook, script, cta,
	hashtags, assets, state, attempts, last_error, generated_at, posted_at`

// Create inserts a new Ready artifact and returns its ID. An empty ID is
// generated; a zero GeneratedAt is stamped with the current time.
func (s *Store) Create(ctx context.Context, a *Artifact) (string, error) {
	if a == nil {
		return "", errors.New("nil artifact")
	}
	if err := a.Validate(); err != nil {
		return "", err
	}

	now := s.now()
	if a.GeneratedAt.IsZero() {
		a.GeneratedAt = now
	}
	if a.ID == "" {
		id, err := NewID(a.GeneratedAt)
		if err != nil {
			return "", err
		}
		a.ID = id
	}
	a.State = StateReady
	a.PostedAt = nil
	a.Attempts = 0
	a.LastError = ""

	hashtags, err := encodeList(a.Hashtags)
	if err != nil {
		return "", errors.Wrap(err, "failed to encode hashtags")
	}
	assets, err := encodeList(a.Assets)
	if err != nil {
		return "", errors.Wrap(err, "failed to encode assets")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO artifacts (
			id, product_id, product_name, template_type, hook, script, cta,
			hashtags, assets, state, attempts, generated_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		a.ID, a.ProductID, a.ProductName, a.TemplateType, a.Hook, a.Script, a.CTA,
		hashtags, assets, string(StateReady),
		db.FormatTime(a.GeneratedAt), db.FormatTime(now),
	)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return "", errors.Wrapf(errors.ErrDuplicateID, "artifact %s", a.ID)
		}
		return "", db.MapError(err, "failed to create artifact")
	}

	return a.ID, nil
}

// Get returns one artifact by ID
func (s *Store) Get(ctx context.Context, id string) (*Artifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `SELECT `+artifactColumns+` FROM artifacts WHERE id = ?`, id)
	a, err := scanArtifact(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError("artifact %s", id)
	}
	if err != nil {
		return nil, db.MapError(err, "failed to get artifact")
	}
	return a, nil
}

// ListReady returns every Ready artifact, oldest first. Ties on
// generated_at break by ID.
func (s *Store) ListReady(ctx context.Context) ([]*Artifact, error) {
	return s.list(ctx, `WHERE state = ? ORDER BY generated_at ASC, id ASC`, string(StateReady))
}

// List returns artifacts in state (all states when empty), oldest first.
func (s *Store) List(ctx context.Context, state State) ([]*Artifact, error) {
	if state == "" {
		return s.list(ctx, `ORDER BY generated_at ASC, id ASC`)
	}
	return s.list(ctx, `WHERE state = ? ORDER BY generated_at ASC, id ASC`, string(state))
}

// ListPosted returns posted artifacts in publication order.
func (s *Store) ListPosted(ctx context.Context) ([]*Artifact, error) {
	return s.list(ctx, `WHERE state = ? ORDER BY posted_at ASC, id ASC`, string(StatePosted))
}

// RecentPosted returns the most recently posted artifacts, newest first.
func (s *Store) RecentPosted(ctx context.Context, limit int) ([]*Artifact, error) {
	if limit <= 0 {
		limit = 5
	}
	return s.list(ctx, `WHERE state = ? ORDER BY posted_at DESC, id DESC LIMIT ?`, string(StatePosted), limit)
}

func (s *Store) list(ctx context.Context, clause string, args ...interface{}) ([]*Artifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT `+artifactColumns+` FROM artifacts `+clause, args...)
	if err != nil {
		return nil, db.MapError(err, "failed to list artifacts")
	}
	defer rows.Close()

	var out []*Artifact
	for rows.Next() {
		a, err := scanArtifact(rows)
		if err != nil {
			return nil, db.MapError(err, "failed to scan artifact")
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, db.MapError(err, "failed to iterate artifacts")
	}
	return out, nil
}

// MarkPosted moves a Ready artifact to Posted. It fails with ErrNotFound
// when the artifact does not exist and ErrInvalidTransition when it is not
// Ready, so of two concurrent callers exactly one succeeds.
func (s *Store) MarkPosted(ctx context.Context, id string, postedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE artifacts
		SET state = ?, posted_at = ?, updated_at = ?
		WHERE id = ? AND state = ?`,
		string(StatePosted), db.FormatTime(postedAt), db.FormatTime(s.now()),
		id, string(StateReady),
	)
	if err != nil {
		return db.MapError(err, "failed to mark artifact posted")
	}
	return s.checkTransition(ctx, res, id, StateReady)
}

// RecordFailure counts a failed publish attempt. When maxAttempts > 0 and
// the artifact has reached it, the artifact moves to Failed; otherwise it
// stays Ready. Returns the resulting state.
func (s *Store) RecordFailure(ctx context.Context, id, reason string, maxAttempts int) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE artifacts
		SET attempts = attempts + 1,
		    last_error = ?,
		    updated_at = ?,
		    state = CASE WHEN ? > 0 AND attempts + 1 >= ? THEN ? ELSE state END
		WHERE id = ? AND state = ?`,
		reason, db.FormatTime(s.now()),
		maxAttempts, maxAttempts, string(StateFailed),
		id, string(StateReady),
	)
	if err != nil {
		return "", db.MapError(err, "failed to record publish failure")
	}
	if err := s.checkTransition(ctx, res, id, StateReady); err != nil {
		return "", err
	}

	var state string
	if err := s.db.QueryRowContext(ctx, `SELECT state FROM artifacts WHERE id = ?`, id).Scan(&state); err != nil {
		return "", db.MapError(err, "failed to read artifact state")
	}
	return State(state), nil
}

// Requeue moves a Failed artifact back to Ready with its attempts reset.
func (s *Store) Requeue(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE artifacts
		SET state = ?, attempts = 0, last_error = NULL, updated_at = ?
		WHERE id = ? AND state = ?`,
		string(StateReady), db.FormatTime(s.now()),
		id, string(StateFailed),
	)
	if err != nil {
		return db.MapError(err, "failed to requeue artifact")
	}
	return s.checkTransition(ctx, res, id, StateFailed)
}

// checkTransition turns a zero-row conditional UPDATE into ErrNotFound or
// ErrInvalidTransition. Caller holds the write lock.
func (s *Store) checkTransition(ctx context.Context, res sql.Result, id string, from State) error {
	n, err := res.RowsAffected()
	if err != nil {
		return db.MapError(err, "failed to read affected rows")
	}
	if n == 1 {
		return nil
	}

	var current string
	err = s.db.QueryRowContext(ctx, `SELECT state FROM artifacts WHERE id = ?`, id).Scan(&current)
	if err == sql.ErrNoRows {
		return errors.NewNotFoundError("artifact %s", id)
	}
	if err != nil {
		return db.MapError(err, "failed to read artifact state")
	}
	return errors.NewInvalidTransitionError("artifact %s is %s, not %s", id, current, from)
}

// CountPostedBetween counts artifacts posted in [from, to).
func (s *Store) CountPostedBetween(ctx context.Context, from, to time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM artifacts
		WHERE state = ? AND posted_at >= ? AND posted_at < ?`,
		string(StatePosted), db.FormatTime(from), db.FormatTime(to),
	).Scan(&n)
	if err != nil {
		return 0, db.MapError(err, "failed to count posted artifacts")
	}
	return n, nil
}

// CountByState returns the number of artifacts in each state. States with
// no artifacts are present with zero.
func (s *Store) CountByState(ctx context.Context) (map[State]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := map[State]int{StateReady: 0, StatePosted: 0, StateFailed: 0}

	rows, err := s.db.QueryContext(ctx, `SELECT state, COUNT(*) FROM artifacts GROUP BY state`)
	if err != nil {
		return nil, db.MapError(err, "failed to count artifacts")
	}
	defer rows.Close()

	for rows.Next() {
		var state string
		var n int
		if err := rows.Scan(&state, &n); err != nil {
			return nil, db.MapError(err, "failed to scan artifact count")
		}
		counts[State(state)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, db.MapError(err, "failed to iterate artifact counts")
	}
	return counts, nil
}

// Distribution returns posted counts grouped by template and by product.
func (s *Store) Distribution(ctx context.Context) (*Distribution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d := &Distribution{ByTemplate: map[string]int{}, ByProduct: map[string]int{}}

	groups := []struct {
		column string
		into   map[string]int
	}{
		{"template_type", d.ByTemplate},
		{"product_name", d.ByProduct},
	}
	for _, g := range groups {
		rows, err := s.db.QueryContext(ctx,
			`SELECT `+g.column+`, COUNT(*) FROM artifacts WHERE state = ? GROUP BY `+g.column,
			string(StatePosted))
		if err != nil {
			return nil, db.MapError(err, "failed to group posted artifacts")
		}
		for rows.Next() {
			var key string
			var n int
			if err := rows.Scan(&key, &n); err != nil {
				rows.Close()
				return nil, db.MapError(err, "failed to scan distribution")
			}
			g.into[key] = n
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, db.MapError(err, "failed to iterate distribution")
		}
	}
	return d, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanArtifact(row rowScanner) (*Artifact, error) {
	var a Artifact
	var hashtags, assets, state, generatedAt string
	var lastError, postedAt sql.NullString

	if err := row.Scan(
		&a.ID, &a.ProductID, &a.ProductName, &a.TemplateType,
		&a.Hook, &a.Script, &a.CTA,
		&hashtags, &assets, &state, &a.Attempts, &lastError,
		&generatedAt, &postedAt,
	); err != nil {
		return nil, err
	}

	a.State = State(state)
	a.LastError = lastError.String

	var err error
	if a.Hashtags, err = decodeList(hashtags); err != nil {
		return nil, errors.Wrapf(err, "artifact %s hashtags", a.ID)
	}
	if a.Assets, err = decodeList(assets); err != nil {
		return nil, errors.Wrapf(err, "artifact %s assets", a.ID)
	}
	if a.GeneratedAt, err = db.ParseTime(generatedAt); err != nil {
		return nil, errors.Wrapf(err, "artifact %s generated_at", a.ID)
	}
	if a.PostedAt, err = db.ParseNullTime(postedAt); err != nil {
		return nil, errors.Wrapf(err, "artifact %s posted_at", a.ID)
	}
	return &a, nil
}

func encodeList(values []string) (string, error) {
	if values == nil {
		values = []string{}
	}
	b, err := json.Marshal(values)
	return string(b), err
}

func decodeList(raw string) ([]string, error) {
	var out []string
	if raw == "" {
		return out, nil
	}
	err := json.Unmarshal([]byte(raw), &out)
	return out, err
}
