package main

import (
	"context"
	"errors"
	"os"

	"github.com/desertthunder/audx/internal/shared"
	"github.com/urfave/cli/v3"
)

const configPath = "config.toml"

func main() {
	logger := shared.NewLogger(nil)

	config := shared.DefaultConfig()
	if _, err := os.Stat(configPath); err == nil {
		if loadedConfig, err := shared.LoadConfig(configPath); err == nil {
			config = loadedConfig
		} else {
			logger.Warn("failed to load config, using defaults", "error", err)
		}
	}
	if err := config.ApplyEnv(); err != nil {
		logger.Warn("failed to apply environment overrides", "error", err)
	}

	db, err := shared.OpenConfigured(config.Database)
	if err != nil {
		logger.Warn("local state unavailable, session and positions will not persist", "error", err)
		db = nil
	}

	runner := NewRunner(RunnerOpts{
		Config:     config,
		ConfigPath: configPath,
		DB:         db,
		Logger:     logger,
	})
	defer runner.Close()

	app := &cli.Command{
		Name:     "audx",
		Usage:    "Browse, buy and listen to audiobooks from the terminal",
		Version:  "0.1.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		if errors.Is(err, shared.ErrNotImplemented) {
			logger.Warn("not implemented")
			return
		}
		runner.Close()
		logger.Fatalf("%s", shared.UserMessage(err, err.Error()))
	}
}
