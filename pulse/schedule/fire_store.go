package schedule

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/teranos/cadence/db"
	"github.com/teranos/cadence/errors"
)

// FireStore handles persistence of the fire history
type FireStore struct {
	db *sql.DB
}

// NewFireStore creates a new fire store
func NewFireStore(database *sql.DB) *FireStore {
	return &FireStore{db: database}
}

// Record stores a fire, assigning an ID when empty.
func (s *FireStore) Record(ctx context.Context, f *Fire) error {
	if f.ID == "" {
		f.ID = "fire_" + uuid.NewString()
	}

	var triggerTime, artifactID, errorMessage interface{}
	if f.TriggerTime != "" {
		triggerTime = f.TriggerTime
	}
	if f.ArtifactID != "" {
		artifactID = f.ArtifactID
	}
	if f.ErrorMessage != "" {
		errorMessage = f.ErrorMessage
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO schedule_fires (
			id, source, trigger_time, artifact_id, outcome,
			error_message, duration_ms, fired_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		f.ID, f.Source, triggerTime, artifactID, f.Outcome,
		errorMessage, f.DurationMs, db.FormatTime(f.FiredAt),
	)
	if err != nil {
		return db.MapError(err, "failed to record fire")
	}
	return nil
}

// Get retrieves a fire by ID
func (s *FireStore) Get(ctx context.Context, id string) (*Fire, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+fireColumns+` FROM schedule_fires WHERE id = ?`, id)
	f, err := scanFire(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError("fire %s", id)
	}
	if err != nil {
		return nil, db.MapError(err, "failed to get fire")
	}
	return f, nil
}

// List returns fires newest first with pagination, optionally filtered by
// source, and the total matching count.
func (s *FireStore) List(ctx context.Context, limit, offset int, source string) ([]*Fire, int, error) {
	where := ""
	var args []interface{}
	if source != "" {
		where = " WHERE source = ?"
		args = append(args, source)
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schedule_fires`+where, args...).Scan(&total); err != nil {
		return nil, 0, db.MapError(err, "failed to count fires")
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+fireColumns+` FROM schedule_fires`+where+` ORDER BY fired_at DESC, id DESC LIMIT ? OFFSET ?`,
		append(args, limit, offset)...)
	if err != nil {
		return nil, 0, db.MapError(err, "failed to list fires")
	}
	defer rows.Close()

	var fires []*Fire
	for rows.Next() {
		f, err := scanFire(rows)
		if err != nil {
			return nil, 0, db.MapError(err, "failed to scan fire")
		}
		fires = append(fires, f)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, db.MapError(err, "error iterating fires")
	}
	return fires, total, nil
}

// Cleanup deletes fires older than retentionDays before now and returns
// how many were removed.
func (s *FireStore) Cleanup(ctx context.Context, now time.Time, retentionDays int) (int, error) {
	cutoff := now.AddDate(0, 0, -retentionDays)

	result, err := s.db.ExecContext(ctx, `DELETE FROM schedule_fires WHERE fired_at < ?`, db.FormatTime(cutoff))
	if err != nil {
		return 0, db.MapError(err, "failed to cleanup old fires")
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "failed to get rows affected")
	}
	return int(deleted), nil
}

const fireColumns = `id, source, trigger_time, artifact_id, outcome, error_message, duration_ms, fired_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanFire(row rowScanner) (*Fire, error) {
	var f Fire
	var triggerTime, artifactID, errorMessage sql.NullString
	var firedAt string

	if err := row.Scan(&f.ID, &f.Source, &triggerTime, &artifactID, &f.Outcome,
		&errorMessage, &f.DurationMs, &firedAt); err != nil {
		return nil, err
	}

	f.TriggerTime = triggerTime.String
	f.ArtifactID = artifactID.String
	f.ErrorMessage = errorMessage.String

	var err error
	if f.FiredAt, err = db.ParseTime(firedAt); err != nil {
		return nil, err
	}
	return &f, nil
}
