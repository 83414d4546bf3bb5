// Package server provides the HTTP server and routing for the engine.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/aristath/networth/internal/config"
	"github.com/aristath/networth/internal/database"
	"github.com/aristath/networth/internal/events"
	"github.com/aristath/networth/internal/modules/balances"
	balanceshandlers "github.com/aristath/networth/internal/modules/balances/handlers"
	"github.com/aristath/networth/internal/modules/groups"
	groupshandlers "github.com/aristath/networth/internal/modules/groups/handlers"
	"github.com/aristath/networth/internal/modules/prices"
	priceshandlers "github.com/aristath/networth/internal/modules/prices/handlers"
	"github.com/aristath/networth/internal/modules/rates"
	rateshandlers "github.com/aristath/networth/internal/modules/rates/handlers"
	"github.com/aristath/networth/internal/modules/settings"
	settingshandlers "github.com/aristath/networth/internal/modules/settings/handlers"
	"github.com/aristath/networth/internal/reliability"
)

// Config holds server configuration
type Config struct {
	Log       zerolog.Logger
	Config    *config.Config
	FinanceDB *database.DB
	RatesDB   *database.DB
	CacheDB   *database.DB

	BalancesService *balances.Service
	ResultCache     *balances.ResultCache
	RatesService    *rates.Service
	RatesRepo       *rates.Repository
	RatesSyncer     *rates.Syncer
	PricesRepo      *prices.Repository
	PricesSyncer    *prices.Syncer
	GroupsService   *groups.Service
	SettingsService *settings.Service
	Hub             *events.Hub
	BackupService   *reliability.BackupService
	RestoreService  *reliability.RestoreService
}

// Server represents the HTTP server
type Server struct {
	router         *chi.Mux
	server         *http.Server
	log            zerolog.Logger
	cfg            Config
	systemHandlers *SystemHandlers
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router: chi.NewRouter(),
		log:    cfg.Log.With().Str("component", "server").Logger(),
		cfg:    cfg,
	}

	s.systemHandlers = NewSystemHandlers(SystemConfig{
		Log:     cfg.Log,
		DataDir: cfg.Config.DataDir,
		Databases: map[string]*database.DB{
			"finance": cfg.FinanceDB,
			"rates":   cfg.RatesDB,
			"cache":   cfg.CacheDB,
		},
		ResultCache: cfg.ResultCache,
		Hub:         cfg.Hub,
		Backups:     cfg.BackupService,
		Restore:     cfg.RestoreService,
	})

	s.setupMiddleware(cfg.Config.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// SetJobs registers job instances for manual triggering via API
func (s *Server) SetJobs(jobs ...TriggerableJob) {
	s.systemHandlers.SetJobs(jobs...)
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Timeout(60 * time.Second))

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	balancesHandler := balanceshandlers.NewHandler(s.cfg.BalancesService, s.cfg.SettingsService, s.cfg.Log)
	ratesHandler := rateshandlers.NewHandler(s.cfg.RatesService, s.cfg.RatesSyncer, s.cfg.Log)
	pricesHandler := priceshandlers.NewHandler(s.cfg.PricesRepo, s.cfg.PricesSyncer, s.cfg.Log)
	groupsHandler := groupshandlers.NewHandler(s.cfg.GroupsService, s.cfg.Log)
	settingsHandler := settingshandlers.NewHandler(
		s.cfg.SettingsService,
		s.cfg.RatesRepo,
		s.cfg.GroupsService,
		s.cfg.ResultCache,
		s.cfg.RatesService.Pivot(),
		s.cfg.Log,
	)

	wsHandler := events.NewWSHandler(s.cfg.Hub, s.cfg.Log)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/events/ws", wsHandler.ServeHTTP)

		balancesHandler.RegisterRoutes(r)
		ratesHandler.RegisterRoutes(r)
		pricesHandler.RegisterRoutes(r)
		groupsHandler.RegisterRoutes(r)
		settingsHandler.RegisterRoutes(r)

		s.systemHandlers.RegisterRoutes(r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"ok","timestamp":"%s"}`, time.Now().UTC().Format(time.RFC3339))
}

// Start starts the HTTP server and blocks until it exits
func (s *Server) Start() error {
	s.log.Info().Int("port", s.cfg.Config.Port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
