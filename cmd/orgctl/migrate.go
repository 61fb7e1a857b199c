package main

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/orgchart/internal/server/repositories/repomanager"
	"github.com/spf13/cobra"
)

// seams for tests
var (
	openDB     = sql.Open
	newManager = func() repomanager.RepositoryManager { return repomanager.NewPostgresRepositoryManager() }
)

type migrateConfig struct {
	DSN string
}

func (c migrateConfig) Validate() error {
	if c.DSN == "" {
		return errors.New("database DSN is required (--dsn or ORGCHART_DATABASE_DSN)")
	}
	return nil
}

// NewMigrateCmd creates the migrate subcommand.
func NewMigrateCmd() *cobra.Command {
	var cfg migrateConfig

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runMigrate(cmd, cfg)
		},
	}

	cmd.Flags().StringVar(&cfg.DSN, "dsn", envOr("ORGCHART_DATABASE_DSN", ""), "PostgreSQL DSN")
	return cmd
}

func runMigrate(cmd *cobra.Command, cfg migrateConfig) error {
	db, err := openDB("pgx", cfg.DSN)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	cmd.Println("Running migrations...")
	if err := newManager().RunMigrations(cmd.Context(), db); err != nil {
		return err
	}

	cmd.Println("Migrations completed successfully")
	return nil
}
