package commands

import (
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/cadence/errors"
	"github.com/teranos/cadence/status"
	"github.com/teranos/cadence/sym"
)

// HealthCmd checks the database and the host
var HealthCmd = &cobra.Command{
	Use:   "health",
	Short: sym.DB + " Check database and host health",
	RunE:  runHealth,
}

// healthReport is the health check result.
type healthReport struct {
	Database struct {
		Path      string `json:"path"`
		Tables    int    `json:"tables"`
		SizeBytes int64  `json:"size_bytes"`
	} `json:"database"`
	Host   *status.HostStats `json:"host,omitempty"`
	Status string            `json:"status"`
}

func runHealth(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	database, err := openDatabase(cfg.GetDatabasePath())
	if err != nil {
		return err
	}
	defer database.Close()

	var report healthReport
	report.Database.Path = cfg.GetDatabasePath()
	if err := database.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type = 'table'").Scan(&report.Database.Tables); err != nil {
		return errors.Wrap(err, "failed to count tables")
	}
	var pages, pageSize int64
	if err := database.QueryRow("PRAGMA page_count").Scan(&pages); err != nil {
		return errors.Wrap(err, "failed to read page count")
	}
	if err := database.QueryRow("PRAGMA page_size").Scan(&pageSize); err != nil {
		return errors.Wrap(err, "failed to read page size")
	}
	report.Database.SizeBytes = pages * pageSize

	report.Status = status.StatusRunning
	host, err := status.ReadHost()
	if err == nil {
		report.Host = &host
		if host.MemoryPercent >= status.DegradedMemoryPercent {
			report.Status = status.StatusDegraded
		}
	}

	if wantJSON(cmd) {
		return printJSON(report)
	}

	rows := [][]string{
		{"Database", report.Database.Path},
		{"Tables", strconv.Itoa(report.Database.Tables)},
		{"Size", formatFloat(float64(report.Database.SizeBytes)/1024) + " KiB"},
	}
	if report.Host != nil {
		rows = append(rows,
			[]string{"Memory", formatFloat(host.MemoryUsedGB) + " / " + formatFloat(host.MemoryTotalGB) + " GB (" + formatFloat(host.MemoryPercent) + "%)"},
			[]string{"CPUs", strconv.Itoa(host.CPUCount)},
		)
	} else {
		pterm.Warning.Printf("Host stats unavailable: %v\n", err)
	}

	if report.Status == status.StatusRunning {
		pterm.Success.Println("Healthy")
	} else {
		pterm.Warning.Println("Degraded: host memory above " + formatFloat(status.DegradedMemoryPercent) + "%")
	}
	return printTable([]string{"Check", "Value"}, rows)
}
