package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/sydlexius/backbeat/internal/api"
	"github.com/sydlexius/backbeat/internal/auth"
	"github.com/sydlexius/backbeat/internal/backup"
	"github.com/sydlexius/backbeat/internal/config"
	"github.com/sydlexius/backbeat/internal/database"
	"github.com/sydlexius/backbeat/internal/event"
	"github.com/sydlexius/backbeat/internal/logging"
	"github.com/sydlexius/backbeat/internal/maintenance"
	"github.com/sydlexius/backbeat/internal/match"
	"github.com/sydlexius/backbeat/internal/resolver"
	"github.com/sydlexius/backbeat/internal/store"
	"github.com/sydlexius/backbeat/internal/version"
	"github.com/sydlexius/backbeat/internal/watcher"
	"github.com/sydlexius/backbeat/internal/webhook"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	configPath := os.Getenv("BB_CONFIG_PATH")
	if configPath == "" {
		configPath = "/data/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Set up structured logging via the logging Manager
	logManager, logger := logging.NewManager(logging.Config{
		Level:    cfg.Logging.Level,
		Format:   cfg.Logging.Format,
		FilePath: cfg.Logging.File,
	})
	defer logManager.Close() //nolint:errcheck
	slog.SetDefault(logger)

	// Open database
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("closing database", "error", err)
		}
	}()

	// Run migrations
	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	logger.Info("database ready", slog.String("path", cfg.Database.Path))

	// Initialize services
	authService := auth.NewService(db, logger)
	st := store.New(db, logger)
	res := resolver.New(logger)

	// Hydrate the resolver from the durable store, then apply tuning:
	// persisted values override config defaults.
	ctx := context.Background()
	records, lastSync, source := st.LoadAll(ctx)
	if len(records) > 0 {
		res.Replace(records, lastSync, source)
		logger.Info("cache hydrated",
			slog.Int("records", len(records)),
			slog.String("source", source),
		)
	}

	tuning := st.LoadTuning(ctx, store.Tuning{
		Threshold:    cfg.Match.Threshold,
		TitleWeight:  cfg.Match.TitleWeight,
		ArtistWeight: cfg.Match.ArtistWeight,
	})
	res.SetTuning(match.Weights{Title: tuning.TitleWeight, Artist: tuning.ArtistWeight}, tuning.Threshold)

	// Initialize event bus
	eventBus := event.NewBus(logger, 256)
	go eventBus.Start()
	defer eventBus.Stop()

	// Wire webhook notifications for cache lifecycle events
	if len(cfg.Webhooks.URLs) > 0 {
		notifier := webhook.NewNotifier(cfg.Webhooks.URLs, logger)
		for _, eventType := range []event.Type{
			event.RecordsUpdated, event.ImportCompleted,
			event.SyncCompleted, event.CacheCleared,
		} {
			eventBus.Subscribe(eventType, notifier.HandleEvent)
		}
	}

	// Backup and maintenance services
	backupDir := cfg.Backup.Path
	if backupDir == "" {
		backupDir = filepath.Join(filepath.Dir(cfg.Database.Path), "backups")
	}
	backupService := backup.NewService(db, backupDir, cfg.Backup.Retention, logger)
	maintenanceService := maintenance.NewService(db, cfg.Database.Path, logger)

	logger.Info("starting backbeat",
		slog.String("version", version.Version),
		slog.String("commit", version.Commit),
	)

	// Set up HTTP router
	router := api.NewRouter(api.RouterDeps{
		AuthService:        authService,
		Resolver:           res,
		Store:              st,
		EventBus:           eventBus,
		LogManager:         logManager,
		BackupService:      backupService,
		MaintenanceService: maintenanceService,
		DB:                 db,
		Logger:             logger,
	})

	// Graceful shutdown
	runCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start backup and maintenance schedulers
	if cfg.Backup.Enabled {
		go backupService.StartScheduler(runCtx, time.Duration(cfg.Backup.IntervalHours)*time.Hour)
	}
	go maintenanceService.StartScheduler(runCtx, 24*time.Hour)

	// Start import directory watcher
	if cfg.Import.Dir != "" {
		watcherService := watcher.NewService(cfg.Import.Dir, res, eventBus, logger)
		watcherService.SetDebounce(time.Duration(cfg.Import.DebounceSeconds) * time.Second)
		go watcherService.Start(runCtx)
	}

	// Start session cleanup goroutine
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				if err := authService.CleanExpiredSessions(runCtx); err != nil {
					logger.Error("session cleanup failed", "error", err)
				}
			}
		}
	}()

	// Persist watcher-ingested records periodically. HTTP ingestion writes
	// through on each request; the import watcher batches through here.
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		lastLen := res.Len()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				if n := res.Len(); n != lastLen {
					sync, src := res.LastSync()
					if err := st.SaveBatch(runCtx, res.Records(), sync, src); err != nil {
						logger.Error("periodic persistence failed", "error", err)
						continue
					}
					lastLen = n
				}
			}
		}
	}()

	go func() {
		logger.Info("server starting", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-runCtx.Done()
	logger.Info("shutting down")

	// Final write-through so nothing ingested since the last tick is lost.
	flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	sync, src := res.LastSync()
	if err := st.SaveBatch(flushCtx, res.Records(), sync, src); err != nil {
		logger.Error("final persistence failed", "error", err)
	}

	return srv.Shutdown(flushCtx)
}
