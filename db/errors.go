package db

import (
	"database/sql"
	"strings"

	"github.com/teranos/cadence/errors"
)

// ErrDatabaseClosed is returned when operations are attempted on a closed
// database, typically during shutdown while a loop is still finishing a tick.
var ErrDatabaseClosed = errors.New("database is closed")

// IsDatabaseClosed checks if an error indicates the database connection is
// closed, either our sentinel or the raw driver message.
func IsDatabaseClosed(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, ErrDatabaseClosed) || errors.Is(err, sql.ErrConnDone) {
		return true
	}

	// The sql package returns unexported error values for a closed pool
	errMsg := err.Error()
	return strings.Contains(errMsg, "database is closed") ||
		strings.Contains(errMsg, "sql: database is closed")
}

// IsUniqueViolation reports whether err came from a UNIQUE or PRIMARY KEY
// constraint.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "PRIMARY KEY constraint failed")
}

// MapError wraps a driver error with context. Connection-level failures
// (closed pool, locked or unreachable database) are marked
// ErrStoreUnavailable so callers can tell an outage from a contract error.
func MapError(err error, context string) error {
	if err == nil {
		return nil
	}
	if IsDatabaseClosed(err) || isBusy(err) {
		return errors.WrapStoreUnavailable(err, context)
	}
	return errors.Wrap(err, context)
}

func isBusy(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "unable to open database")
}
