package commands

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/cadence/errors"
	"github.com/teranos/cadence/sym"
)

// DbCmd represents the db (database) command
var DbCmd = &cobra.Command{
	Use:   "db",
	Short: sym.DB + " Manage the cadence database",
	Long: sym.DB + ` db — Manage the cadence database

Examples:
  cadence db migrate              # Apply pending migrations`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending migrations",
	RunE:  runDbMigrate,
}

func init() {
	DbCmd.AddCommand(dbMigrateCmd)
}

func runDbMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	database, err := openDatabase(cfg.GetDatabasePath())
	if err != nil {
		return err
	}
	defer database.Close()

	rows, err := database.Query("SELECT version, applied_at FROM schema_migrations ORDER BY version")
	if err != nil {
		return errors.Wrap(err, "failed to list applied migrations")
	}
	defer rows.Close()

	var applied [][]string
	for rows.Next() {
		var version, at string
		if err := rows.Scan(&version, &at); err != nil {
			return errors.Wrap(err, "failed to scan migration")
		}
		applied = append(applied, []string{version, at})
	}
	if err := rows.Err(); err != nil {
		return errors.Wrap(err, "failed to list applied migrations")
	}

	if wantJSON(cmd) {
		return printJSON(map[string]interface{}{"path": cfg.GetDatabasePath(), "migrations": applied})
	}
	pterm.Success.Printf("%s %s is up to date\n", sym.DB, cfg.GetDatabasePath())
	return printTable([]string{"Version", "Applied"}, applied)
}
