package commands

import (
	"database/sql"

	"github.com/teranos/cadence/am"
	"github.com/teranos/cadence/db"
	"github.com/teranos/cadence/errors"
	"github.com/teranos/cadence/logger"
)

// loadConfig loads and validates the am configuration.
func loadConfig() (*am.Config, error) {
	cfg, err := am.Load()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openDatabase opens and migrates a database using the specified path.
// If dbPath is empty, it loads from am config.
func openDatabase(dbPath string) (*sql.DB, error) {
	if dbPath == "" {
		path, err := am.GetDatabasePath()
		if err != nil {
			return nil, errors.Wrap(err, "failed to get database path")
		}
		dbPath = path
	}

	database, err := db.OpenWithMigrations(dbPath, logger.Logger)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open database at %s", dbPath)
	}
	return database, nil
}
