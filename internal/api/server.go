package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/cors"
	"github.com/newthinker/folio/internal/api/handler/api"
	"github.com/newthinker/folio/internal/api/response"
	"github.com/newthinker/folio/internal/metrics"
	"github.com/newthinker/folio/internal/strategy"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server represents the HTTP server for folio
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
	mux        *http.ServeMux
	handler    http.Handler
	version    string
}

// Config holds server configuration
type Config struct {
	Host         string
	Port         int
	CORSOrigins  []string
	MetricsPath  string // empty disables the metrics endpoint
	WriteTimeout time.Duration
	Version      string
}

// Dependencies holds the components the handlers need.
type Dependencies struct {
	Suggester     api.Suggester
	Catalog       *strategy.Catalog
	Metrics       *metrics.Registry // optional
	MinInvestment float64
}

// NewServer creates a new HTTP server
func NewServer(cfg Config, deps Dependencies, logger *zap.Logger) (*Server, error) {
	if deps.Suggester == nil {
		return nil, fmt.Errorf("suggester is required")
	}
	if deps.Catalog == nil {
		return nil, fmt.Errorf("strategy catalog is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 60 * time.Second
	}

	mux := http.NewServeMux()
	s := &Server{
		logger:  logger,
		mux:     mux,
		version: cfg.Version,
	}

	s.setupRoutes(cfg, deps)

	var h http.Handler = mux
	if deps.Metrics != nil {
		h = metrics.HTTPMiddleware(deps.Metrics)(h)
	}
	h = metrics.LoggingMiddleware(logger)(h)
	h = cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", metrics.RequestIDHeader},
		ExposedHeaders: []string{metrics.RequestIDHeader},
		MaxAge:         300,
	})(h)
	s.handler = h

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes(cfg Config, deps Dependencies) {
	suggestHandler := api.NewSuggestHandler(deps.Suggester, deps.MinInvestment, s.logger)
	strategiesHandler := api.NewStrategiesHandler(deps.Catalog)

	s.mux.HandleFunc("POST /api/v1/suggest_portfolio", suggestHandler.Suggest)
	s.mux.HandleFunc("GET /api/v1/strategies", strategiesHandler.List)

	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /{$}", s.handleRoot)

	if deps.Metrics != nil && cfg.MetricsPath != "" {
		s.mux.Handle("GET "+cfg.MetricsPath, promhttp.HandlerFor(deps.Metrics, promhttp.HandlerOpts{}))
	}
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, map[string]string{
		"message": "folio portfolio suggestion API",
		"version": s.version,
		"docs":    "/api/v1/strategies",
	})
}
