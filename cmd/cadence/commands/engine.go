package commands

import (
	"database/sql"
	"time"

	"go.uber.org/zap"

	"github.com/teranos/cadence/am"
	"github.com/teranos/cadence/analytics"
	"github.com/teranos/cadence/content"
	"github.com/teranos/cadence/errors"
	"github.com/teranos/cadence/operator"
	"github.com/teranos/cadence/platform"
	"github.com/teranos/cadence/pulse/monitor"
	"github.com/teranos/cadence/pulse/schedule"
	"github.com/teranos/cadence/status"
)

// engine holds the wired components for one command invocation.
type engine struct {
	cfg       *am.Config
	db        *sql.DB
	loc       *time.Location
	artifacts *content.Store
	metrics   *analytics.Store
	fires     *schedule.FireStore
	status    *status.Local
	scheduler *schedule.Scheduler
	monitor   *monitor.Monitor
	operator  *operator.Service
}

// openEngine loads config, opens the database and wires every component.
// Nothing is started.
func openEngine(log *zap.SugaredLogger) (*engine, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	database, err := openDatabase(cfg.GetDatabasePath())
	if err != nil {
		return nil, err
	}

	e, err := newEngine(cfg, database, log)
	if err != nil {
		database.Close()
		return nil, err
	}
	return e, nil
}

func newEngine(cfg *am.Config, database *sql.DB, log *zap.SugaredLogger) (*engine, error) {
	schedCfg, schedOpts, err := schedule.FromAM(cfg.Schedule)
	if err != nil {
		return nil, errors.Wrap(errors.Mark(err, errors.ErrInvalidConfig), "schedule.timezone")
	}
	monOpts, err := monitor.OptionsFromAM(cfg)
	if err != nil {
		return nil, err
	}

	publisher, err := platform.NewPublisher(cfg, log)
	if err != nil {
		return nil, err
	}

	e := &engine{
		cfg:       cfg,
		db:        database,
		loc:       schedOpts.Location,
		artifacts: content.NewStore(database),
		metrics:   analytics.NewStore(database),
		fires:     schedule.NewFireStore(database),
	}
	e.status = status.NewLocal(e.artifacts, e.loc)

	e.scheduler, err = schedule.New(e.artifacts, publisher, e.fires, schedCfg, schedOpts, log)
	if err != nil {
		return nil, err
	}

	e.monitor = monitor.New(e.status, e.artifacts, e.metrics, platform.NewSimulatedEngagement(nil), monOpts, log)
	if !cfg.Monitor.Enabled {
		e.monitor.SetEnabled(false)
	}

	e.operator = operator.NewService(e.scheduler, e.artifacts, e.metrics, e.status, e.fires, operator.Options{
		ConfigPath:       am.GetOperatorConfigPath(),
		PostNowPerMinute: cfg.Operator.PostNowPerMinute,
		Location:         e.loc,
	}, log)

	return e, nil
}

func (e *engine) Close() error {
	return e.db.Close()
}
