// Package api exposes the HTTP surface: record ingestion from scraper
// userscripts, lookup endpoints for annotation clients, and cache
// administration.
package api

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/sydlexius/backbeat/internal/api/middleware"
	"github.com/sydlexius/backbeat/internal/auth"
	"github.com/sydlexius/backbeat/internal/backup"
	"github.com/sydlexius/backbeat/internal/event"
	"github.com/sydlexius/backbeat/internal/logging"
	"github.com/sydlexius/backbeat/internal/maintenance"
	"github.com/sydlexius/backbeat/internal/resolver"
	"github.com/sydlexius/backbeat/internal/store"
)

// RouterDeps bundles all dependencies needed by the HTTP router.
type RouterDeps struct {
	AuthService        *auth.Service
	Resolver           *resolver.Resolver
	Store              *store.Store
	EventBus           *event.Bus
	LogManager         *logging.Manager
	BackupService      *backup.Service
	MaintenanceService *maintenance.Service
	DB                 *sql.DB
	Logger             *slog.Logger
}

// Router sets up all HTTP routes for the application.
type Router struct {
	authService        *auth.Service
	resolver           *resolver.Resolver
	store              *store.Store
	eventBus           *event.Bus
	logManager         *logging.Manager
	backupService      *backup.Service
	maintenanceService *maintenance.Service
	db                 *sql.DB
	logger             *slog.Logger
}

// NewRouter creates a new Router with all routes configured.
func NewRouter(deps RouterDeps) *Router {
	return &Router{
		authService:        deps.AuthService,
		resolver:           deps.Resolver,
		store:              deps.Store,
		eventBus:           deps.EventBus,
		logManager:         deps.LogManager,
		backupService:      deps.BackupService,
		maintenanceService: deps.MaintenanceService,
		db:                 deps.DB,
		logger:             deps.Logger,
	}
}

// Handler returns the fully configured HTTP handler with middleware applied.
func (r *Router) Handler() http.Handler {
	authMw := middleware.Auth(r.authService)
	loginLimiter := middleware.NewLoginRateLimiter()
	mux := http.NewServeMux()

	// Public routes (no auth)
	mux.HandleFunc("GET /api/v1/health", r.handleHealth)
	mux.Handle("POST /api/v1/auth/setup", loginLimiter.Middleware(http.HandlerFunc(r.handleSetup)))
	mux.Handle("POST /api/v1/auth/login", loginLimiter.Middleware(http.HandlerFunc(r.handleLogin)))

	// Protected routes (auth required)
	mux.HandleFunc("POST /api/v1/auth/logout", wrapAuth(r.handleLogout, authMw))
	mux.HandleFunc("GET /api/v1/auth/me", wrapAuth(r.handleMe, authMw))
	mux.HandleFunc("GET /api/v1/auth/tokens", wrapAuth(r.handleListAPITokens, authMw))
	mux.HandleFunc("POST /api/v1/auth/tokens", wrapAuth(r.handleCreateAPIToken, authMw))
	mux.HandleFunc("DELETE /api/v1/auth/tokens/{id}", wrapAuth(r.handleRevokeAPIToken, authMw))

	// Record ingestion and browsing
	mux.HandleFunc("POST /api/v1/records", wrapAuth(r.handleIngestRecords, authMw))
	mux.HandleFunc("GET /api/v1/records", wrapAuth(r.handleListRecords, authMw))
	mux.HandleFunc("GET /api/v1/records/{slug}", wrapAuth(r.handleGetRecord, authMw))

	// Lookup
	mux.HandleFunc("GET /api/v1/lookup", wrapAuth(r.handleLookup, authMw))
	mux.HandleFunc("GET /api/v1/lookup/fuzzy", wrapAuth(r.handleFuzzyLookup, authMw))
	mux.HandleFunc("POST /api/v1/lookup/bulk", wrapAuth(r.handleBulkLookup, authMw))

	// Cache administration
	mux.HandleFunc("POST /api/v1/sync", wrapAuth(r.handleSync, authMw))
	mux.HandleFunc("GET /api/v1/cache/status", wrapAuth(r.handleCacheStatus, authMw))
	mux.HandleFunc("GET /api/v1/cache/snapshot", wrapAuth(r.handleCacheSnapshot, authMw))
	mux.HandleFunc("DELETE /api/v1/cache", wrapAuth(r.handleClearCache, authMw))
	mux.HandleFunc("GET /api/v1/export/csv", wrapAuth(r.handleExportCSV, authMw))
	mux.HandleFunc("POST /api/v1/import/csv", wrapAuth(r.handleImportCSV, authMw))

	// Backups and database maintenance
	mux.HandleFunc("GET /api/v1/backups", wrapAuth(r.handleListBackups, authMw))
	mux.HandleFunc("POST /api/v1/backups", wrapAuth(r.handleCreateBackup, authMw))
	mux.HandleFunc("DELETE /api/v1/backups/{filename}", wrapAuth(r.handleDeleteBackup, authMw))
	mux.HandleFunc("GET /api/v1/maintenance/status", wrapAuth(r.handleMaintenanceStatus, authMw))
	mux.HandleFunc("POST /api/v1/maintenance/optimize", wrapAuth(r.handleMaintenanceOptimize, authMw))

	// Settings
	mux.HandleFunc("GET /api/v1/settings/match", wrapAuth(r.handleGetMatchSettings, authMw))
	mux.HandleFunc("PUT /api/v1/settings/match", wrapAuth(r.handleUpdateMatchSettings, authMw))
	mux.HandleFunc("GET /api/v1/settings/logging", wrapAuth(r.handleGetLogging, authMw))
	mux.HandleFunc("PUT /api/v1/settings/logging", wrapAuth(r.handleUpdateLogging, authMw))

	return middleware.Logging(r.logger)(middleware.SecurityHeaders(mux))
}

// wrapAuth wraps a handler function with auth middleware.
func wrapAuth(fn http.HandlerFunc, authMw func(http.Handler) http.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authMw(fn).ServeHTTP(w, r)
	}
}
