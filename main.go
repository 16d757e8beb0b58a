package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/taskdeck/taskdeck/internal/applog"
	"github.com/taskdeck/taskdeck/internal/config"
	"github.com/taskdeck/taskdeck/internal/db"
	"github.com/taskdeck/taskdeck/internal/ui"
)

func main() {
	cfg, err := config.Load(config.DefaultPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not load config: %v\n", err)
		cfg = config.Defaults()
	}

	// CLI overrides: taskdeck [server-url]
	if len(os.Args) >= 2 {
		cfg.Server.URL = os.Args[1]
	}
	if token := os.Getenv("TASKDECK_TOKEN"); token != "" {
		cfg.Server.Token = token
	}

	logger, logCloser, err := applog.Init(applog.InitConfig{
		LogDir:   config.LogDir(),
		LogLevel: cfg.LogLevel,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not init log file: %v\n", err)
		logger = slog.Default() // falls back to default (stderr)
	} else {
		defer logCloser.Close()
	}

	var store *db.DB
	if cfg.History.Enabled {
		dbPath := config.DBPath()
		if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
			fmt.Fprintf(os.Stderr, "error: could not create data directory: %v\n", err)
			os.Exit(1)
		}

		store, err = db.Open(dbPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: could not open history database: %v\n", err)
			os.Exit(1)
		}
		defer store.Close()

		if err := store.Migrate(); err != nil {
			fmt.Fprintf(os.Stderr, "error: database migration failed: %v\n", err)
			os.Exit(1)
		}

		retain := cfg.History.RetainDays
		if retain > 0 {
			cutoff := time.Now().AddDate(0, 0, -retain)
			if n, err := store.PruneOlderThan(cutoff); err != nil {
				logger.Warn("history prune failed", "err", err)
			} else if n > 0 {
				logger.Info("pruned old events", "removed", n)
			}
		}
	}

	app := ui.NewApp(store, cfg, logger)
	if err := app.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
