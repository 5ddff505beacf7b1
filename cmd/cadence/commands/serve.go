package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/teranos/cadence/am"
	"github.com/teranos/cadence/logger"
	"github.com/teranos/cadence/pulse/schedule"
	"github.com/teranos/cadence/sym"
	"github.com/teranos/cadence/telemetry"
	"github.com/teranos/cadence/version"
)

// ServeCmd runs the daemon
var ServeCmd = &cobra.Command{
	Use:   "serve",
	Short: sym.Pulse + " Run the scheduler and monitor loops",
	Long: sym.Pulse + ` serve — Run cadence in the foreground

The daemon will:
- Fire the daily trigger times and publish the oldest ready artifact
- Sample status, backfill engagement and roll up business metrics
- Reload the schedule when the operator config file changes
- Expose Prometheus metrics (metrics.address)
- Run until interrupted (Ctrl+C) with GRACE shutdown`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	log := logger.Logger
	openLog := logger.AddPulseOpenSymbol(log)

	e, err := openEngine(log)
	if err != nil {
		return err
	}
	defer e.Close()

	var metricsServer *telemetry.Server
	if e.cfg.Metrics.Enabled {
		info := version.Get()
		telemetry.BuildInfo.WithLabelValues(info.Version, info.Short(), info.GoVersion).Set(1)
		metricsServer = telemetry.NewServer(e.cfg.Metrics.Address, log)
		metricsServer.Start()
	}

	e.scheduler.Start()
	e.monitor.Start()

	watcher := startConfigWatcher(e, log)

	cfg := e.scheduler.Config()
	fmt.Printf("%s %s started\n", sym.PulseOpen, version.Get())
	fmt.Printf("  Triggers: %s (enabled: %t)\n", strings.Join(cfg.Times, ", "), cfg.Enabled)
	fmt.Printf("  Timezone: %s\n", e.loc)
	fmt.Printf("  Publisher: %s\n", e.cfg.Publisher.Kind)
	fmt.Printf("  Monitor interval: %v\n", e.cfg.Monitor.Interval())
	if metricsServer != nil {
		fmt.Printf("  Metrics: http://%s/metrics\n", e.cfg.Metrics.Address)
	}
	for _, next := range e.scheduler.NextFires(time.Now()) {
		openLog.Infow("Next fire", logger.FieldTrigger, next.Trigger, logger.FieldNextFire, next.At, "in", next.In)
	}
	fmt.Printf("\n%s Press Ctrl+C for graceful shutdown\n\n", sym.Pulse)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	fmt.Printf("\n%s Initiating GRACE shutdown...\n", sym.PulseClose)

	// Reverse order of startup; in-flight publishes finish first
	if watcher != nil {
		am.SetGlobalWatcher(nil)
		if err := watcher.Stop(); err != nil {
			log.Warnw("Config watcher stop failed", logger.FieldError, err)
		}
	}
	e.monitor.Stop()
	e.scheduler.Stop()

	if metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := metricsServer.Shutdown(ctx); err != nil {
			log.Warnw("Metrics endpoint shutdown failed", logger.FieldError, err)
		}
	}

	fmt.Printf("%s cadence stopped\n", sym.PulseClose)
	return nil
}

// startConfigWatcher reloads the schedule and the monitor flag when the
// operator config changes. Failure to watch is logged, not fatal.
func startConfigWatcher(e *engine, log *zap.SugaredLogger) *am.ConfigWatcher {
	configLog := logger.AddConfigSymbol(log)

	path := am.GetOperatorConfigPath()
	if path == "" {
		configLog.Warnw("No operator config path, schedule reload disabled")
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		configLog.Warnw("Cannot create config directory, schedule reload disabled", logger.FieldPath, path, logger.FieldError, err)
		return nil
	}

	watcher, err := am.NewConfigWatcher(path)
	if err != nil {
		configLog.Warnw("Cannot watch operator config, schedule reload disabled", logger.FieldPath, path, logger.FieldError, err)
		return nil
	}

	watcher.OnReload(func(cfg *am.Config) error {
		schedCfg, _, err := schedule.FromAM(cfg.Schedule)
		if err != nil {
			return err
		}
		return e.scheduler.UpdateSchedule(schedCfg)
	})
	watcher.OnReload(func(cfg *am.Config) error {
		e.monitor.SetEnabled(cfg.Monitor.Enabled)
		return nil
	})

	am.SetGlobalWatcher(watcher)
	watcher.Start()
	configLog.Infow("Watching operator config", logger.FieldPath, path)
	return watcher
}
