package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"
)

const migrationTable = "schema_migrations"

var (
	migrateCmd = &cobra.Command{
		RunE:  runMigration,
		Use:   "migrate",
		Short: "Apply, roll back or inspect the schema migrations under db/migrations",
		Long: `Applies pending migrations by default. --to moves the schema to an exact
version in either direction, --rollback undoes the latest migration and
--status lists applied and pending files without changing anything.`,
	}
	migrateRollback bool
	migrateStatus   bool
	migrateTo       int64
	migrateDir      string
)

func init() {
	migrateCmd.Flags().BoolVarP(&migrateRollback, "rollback", "r", false, "roll back the latest migration")
	migrateCmd.Flags().BoolVarP(&migrateStatus, "status", "s", false, "print applied and pending migrations")
	migrateCmd.Flags().Int64Var(&migrateTo, "to", -1, "migrate up or down to this version (0 empties the schema)")
	migrateCmd.PersistentFlags().StringVarP(&migrateDir, "dir", "d", "db/migrations", "sql migrations directory")
	migrateCmd.MarkFlagsMutuallyExclusive("rollback", "status", "to")
}

// migrationPlan turns the flags into a goose command and its arguments.
// current is the applied version and is only consulted for --to.
func migrationPlan(status, rollback bool, to, current int64) (string, []string, error) {
	switch {
	case status:
		return "status", nil, nil
	case rollback:
		return "down", nil, nil
	case to < -1:
		return "", nil, fmt.Errorf("invalid target version %d", to)
	case to == -1:
		return "up", nil, nil
	case to == current:
		return "version", nil, nil
	case to > current:
		return "up-to", []string{strconv.FormatInt(to, 10)}, nil
	default:
		return "down-to", []string{strconv.FormatInt(to, 10)}, nil
	}
}

func runMigration(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := loadConfig(configDir)
	if err != nil {
		return err
	}

	db, err := goose.OpenDBWithDriver("pgx", cfg.Database.Source)
	if err != nil {
		return fmt.Errorf("goose: open database: %w", err)
	}
	defer db.Close()
	goose.SetTableName(migrationTable)

	var current int64
	if migrateTo >= 0 {
		if current, err = goose.GetDBVersionContext(ctx, db); err != nil {
			return fmt.Errorf("goose: read schema version: %w", err)
		}
	}

	command, args, err := migrationPlan(migrateStatus, migrateRollback, migrateTo, current)
	if err != nil {
		return err
	}
	if err := goose.RunContext(ctx, command, db, migrateDir, args...); err != nil {
		return fmt.Errorf("goose %s: %w", command, err)
	}
	return nil
}
