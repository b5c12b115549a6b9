package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/desertthunder/audx/internal/shared"
	"github.com/urfave/cli/v3"
)

// SetupDatabase initializes the database and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	var config *shared.Config
	if _, err := os.Stat(configPath); err == nil {
		if config, err = shared.LoadConfig(configPath); err != nil {
			r.logger.Warn("failed to load config, using defaults", "error", err)
			config = shared.DefaultConfig()
		}
	} else {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			r.logger.Warn("failed to create config file, using defaults", "error", err)
			config = shared.DefaultConfig()
		} else {
			r.logger.Info("config file created", "path", configPath)
			if config, err = shared.LoadConfig(configPath); err != nil {
				r.logger.Warn("failed to load created config, using defaults", "error", err)
				config = shared.DefaultConfig()
			}
		}
	}
	if err := config.ApplyEnv(); err != nil {
		r.logger.Warn("failed to apply environment overrides", "error", err)
	}

	r.logger.Info("initializing database", "path", config.Database.Path)

	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer db.Close()

	shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)

	r.logger.Info("running database migrations")
	if err := shared.RunMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	r.logger.Infof("setup complete for database: %v", config.Database.Path)
	return r.printMigrations(db)
}

// SetupStatus lists known migrations and whether each has been applied.
func (r *Runner) SetupStatus(ctx context.Context, cmd *cli.Command) error {
	if r.db == nil {
		return fmt.Errorf("%w: local database is not open", shared.ErrServiceUnavailable)
	}
	return r.printMigrations(r.db)
}

// SetupRollback reverts the most recent migration.
func (r *Runner) SetupRollback(ctx context.Context, cmd *cli.Command) error {
	if r.db == nil {
		return fmt.Errorf("%w: local database is not open", shared.ErrServiceUnavailable)
	}
	if err := shared.RollbackMigration(r.db); err != nil {
		return err
	}
	r.logger.Info("rolled back latest migration")
	return r.printMigrations(r.db)
}

func (r *Runner) printMigrations(db *sql.DB) error {
	statuses, err := shared.MigrationStatuses(db)
	if err != nil {
		return err
	}

	r.writePlainln("Migrations:")
	for _, s := range statuses {
		mark := "✗"
		if s.Applied {
			mark = "✓"
		}
		r.writePlain("  %s %04d %s\n", mark, s.Version, s.Name)
	}
	return nil
}
