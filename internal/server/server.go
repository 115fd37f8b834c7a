// Package server provides the HTTP server and routing for the auto-settle daemon.
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

	autosettlehandlers "github.com/aristath/autosettle/internal/autosettle/handlers"
	"github.com/aristath/autosettle/internal/config"
	"github.com/aristath/autosettle/internal/di"
	marketshandlers "github.com/aristath/autosettle/internal/modules/markets/handlers"
	settingshandlers "github.com/aristath/autosettle/internal/modules/settings/handlers"
	wallethandlers "github.com/aristath/autosettle/internal/modules/wallet/handlers"
)

// Config holds server configuration
type Config struct {
	Log       zerolog.Logger
	Config    *config.Config
	Container *di.Container // DI container with all services
	Port      int
	DevMode   bool
}

// Server represents the HTTP server
type Server struct {
	router         *chi.Mux
	server         *http.Server
	log            zerolog.Logger
	cfg            *config.Config
	port           int
	container      *di.Container
	systemHandlers *SystemHandlers
	statusMonitor  *StatusMonitor
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	systemHandlers := NewSystemHandlers(
		cfg.Log,
		cfg.Config.DataDir,
		cfg.Container.ConfigDB,
		cfg.Container.ChainClient,
		cfg.Container.Scheduler,
	)

	s := &Server{
		router:         chi.NewRouter(),
		log:            cfg.Log.With().Str("component", "server").Logger(),
		cfg:            cfg.Config,
		port:           cfg.Port,
		container:      cfg.Container,
		systemHandlers: systemHandlers,
		statusMonitor: NewStatusMonitor(
			cfg.Container.EventManager,
			cfg.Container.ChainClient,
			cfg.Log,
		),
	}

	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Router exposes the configured router
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) setupMiddleware(devMode bool) {
	// Recovery from panics
	s.router.Use(middleware.Recoverer)

	// Request ID
	s.router.Use(middleware.RequestID)

	// Real IP
	s.router.Use(middleware.RealIP)

	// Logging
	s.router.Use(s.loggingMiddleware)

	// CORS
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)
	s.router.Handle("/metrics", s.container.Metrics.Handler())

	// API routes
	s.router.Route("/api", func(r chi.Router) {
		// Event streams hold the connection open, so they sit outside the timeout group
		eventsStream := NewEventsStreamHandler(s.container.EventBus, s.log)
		r.Get("/events/stream", eventsStream.ServeHTTP)
		r.Get("/events/ws", eventsStream.ServeWebSocket)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(60 * time.Second))

			r.Route("/system", func(r chi.Router) {
				r.Get("/status", s.systemHandlers.HandleSystemStatus)
				r.Get("/database", s.systemHandlers.HandleDatabaseStats)
				r.Get("/jobs", s.systemHandlers.HandleJobsStatus)
			})

			settingsHandler := settingshandlers.NewHandler(
				s.container.PreferenceStore,
				s.container.ConnectionProvider,
				s.container.SettingsRepo,
				s.container.EventManager,
				s.log,
			)
			settingsHandler.RegisterRoutes(r)

			marketsHandler := marketshandlers.NewHandler(
				s.container.MarketRegistry,
				s.container.CustomMarketRepo,
				s.container.MarketCache,
				s.container.EventManager,
				s.log,
			)
			marketsHandler.RegisterRoutes(r)

			walletHandler := wallethandlers.NewHandler(
				s.container.WalletSession,
				s.container.TokenTracker,
				s.log,
			)
			walletHandler.RegisterRoutes(r)

			autosettleHandler := autosettlehandlers.NewHandler(s.container.AutoSettle, s.log)
			autosettleHandler.RegisterRoutes(r)
		})
	})
}

// Start starts the HTTP server and the RPC status monitor. The monitor
// stops when ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	if s.statusMonitor != nil {
		s.statusMonitor.Start(ctx, 60*time.Second)
		s.log.Info().Msg("Status monitor started")
	}

	s.log.Info().Int("port", s.port).Msg("Starting HTTP server")
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
