package db

import (
	"database/sql"
	"time"

	"github.com/teranos/cadence/errors"
)

// TimeLayout is the stored timestamp format: UTC, fixed width, so string
// comparison and ORDER BY follow chronological order.
const TimeLayout = "2006-01-02T15:04:05.000000000Z"

// FormatTime renders t for storage.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime reads a stored timestamp.
func ParseTime(s string) (time.Time, error) {
	t, err := time.Parse(TimeLayout, s)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "invalid stored timestamp %q", s)
	}
	return t, nil
}

// NullTime renders an optional timestamp for a nullable column.
func NullTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return FormatTime(*t)
}

// ParseNullTime reads a nullable timestamp column.
func ParseNullTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := ParseTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
