// Package cli holds the startup steps shared by the server and worker
// entrypoints.
package cli

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"outlay/internal/config"
	applog "outlay/internal/log"
	"outlay/internal/storage"
)

// SetupLogger initializes structured logging for the given component and
// installs it as the process default.
func SetupLogger(component string) *applog.Logger {
	logger := applog.New(component, slog.LevelInfo)
	applog.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development. Missing files are
// fine; production sets real environment variables.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration, exiting the process when it is
// unusable.
func LoadAndValidateConfig(logger *applog.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

// OpenRepository opens the SQLite store and runs migrations, exiting the
// process on failure.
func OpenRepository(logger *applog.Logger, cfg *config.Config) *storage.SQLiteRepository {
	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	return repo
}
