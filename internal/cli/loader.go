package cli

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"calsync/internal/calendar"
	"calsync/internal/config"
	"calsync/internal/engine"
	"calsync/internal/ics"
)

// app is everything a command needs after configuration is loaded.
type app struct {
	cfg    *config.Config
	store  calendar.Store
	runner *engine.Runner
	loc    *time.Location
}

// loadApp reads configuration and assembles the calendar store and runner.
// All failures here are setup failures.
func loadApp(opts *rootOptions) (*app, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config %q: %w", opts.configPath, err)
	}

	if !opts.verbose {
		applyLogLevel(cfg.LogLevel)
	}

	loc := time.Local
	if cfg.Timezone != "" {
		loc, err = time.LoadLocation(cfg.Timezone)
		if err != nil {
			return nil, fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
		}
	}

	var backends []calendar.Store
	if len(cfg.Feeds) > 0 {
		feeds := make([]ics.Feed, 0, len(cfg.Feeds))
		for _, f := range cfg.Feeds {
			feeds = append(feeds, ics.Feed{ID: f.ID, Name: f.Name, URL: f.URL})
		}
		backends = append(backends, ics.NewFeedStore(feeds, cfg.CacheDir, loc))
	}
	if cfg.Local != nil {
		dirStore, err := ics.NewDirStore(cfg.Local.Path, loc)
		if err != nil {
			return nil, fmt.Errorf("open local calendar store %q: %w", cfg.Local.Path, err)
		}
		backends = append(backends, dirStore)
	}
	if len(backends) == 0 {
		return nil, fmt.Errorf("no calendar backends configured: add feeds or a local store to %s", opts.configPath)
	}

	store := calendar.NewMultiStore(backends...)
	return &app{
		cfg:   cfg,
		store: store,
		runner: &engine.Runner{
			Store:    store,
			Account:  engine.Account(cfg.Account),
			Location: loc,
		},
		loc: loc,
	}, nil
}

func applyLogLevel(name string) {
	var level slog.Level
	switch name {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))
}
