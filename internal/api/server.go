// Package api provides the HTTP surface for the scansage sanitized
// ingestion service. It wires the public ingestion, record retrieval, and
// operational endpoints behind the shared middleware chain.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	ghandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/scansage/scansage/internal/api/handlers"
	"github.com/scansage/scansage/internal/api/middleware"
	"github.com/scansage/scansage/internal/audit"
	"github.com/scansage/scansage/internal/config"
	"github.com/scansage/scansage/internal/ingest"
	"github.com/scansage/scansage/internal/logging"
	"github.com/scansage/scansage/internal/metrics"
	"github.com/scansage/scansage/internal/store"
)

// Server timeout constants.
const (
	serverShutdownTimeout = 30 * time.Second
	serverIdleTimeout     = 60 * time.Second
	serverMaxHeaderBytes  = 1 << 20
	systemMetricsInterval = 15 * time.Second
)

// Server represents the API server.
type Server struct {
	httpServer *http.Server
	router     *mux.Router
	config     *config.Config
	handlers   *handlers.HandlerManager
	logger     *logging.Logger
	metrics    *metrics.Registry
	prometheus *metrics.PrometheusMetrics
	startTime  time.Time
}

// New creates a new API server instance.
func New(
	cfg *config.Config,
	service *ingest.Service,
	records *store.Store,
	auditSink *audit.Sink,
	logger *logging.Logger,
) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if service == nil {
		return nil, fmt.Errorf("ingest service is required")
	}
	if logger == nil {
		logger = logging.NewDefault()
	}
	logger = logger.WithComponent("api")

	registry := metrics.NewRegistry()
	prom := metrics.GetGlobalMetrics()
	router := mux.NewRouter()

	server := &Server{
		router:     router,
		config:     cfg,
		logger:     logger,
		metrics:    registry,
		prometheus: prom,
		startTime:  time.Now(),
	}

	server.handlers = handlers.New(
		service, records, auditSink,
		logger.Logger, registry,
		cfg.Server.MaxRequestSize,
	)

	server.setupRoutes()
	server.setupMiddleware()

	server.httpServer = &http.Server{
		Addr:           net.JoinHostPort(cfg.Server.ListenAddr, strconv.Itoa(cfg.Server.Port)),
		Handler:        server.router,
		ReadTimeout:    cfg.Server.RequestTimeout,
		WriteTimeout:   cfg.Server.RequestTimeout,
		IdleTimeout:    serverIdleTimeout,
		MaxHeaderBytes: serverMaxHeaderBytes,
	}

	return server, nil
}

// Start starts the API server and blocks until the context is canceled
// or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting API server",
		"address", s.httpServer.Addr,
		"request_timeout", s.config.Server.RequestTimeout)

	go s.prometheus.StartPeriodicUpdates(ctx, systemMetricsInterval)

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("API server failed: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		return s.Stop()
	case err := <-errChan:
		return err
	}
}

// Stop gracefully stops the API server.
func (s *Server) Stop() error {
	s.logger.Info("Stopping API server")

	ctx, cancel := context.WithTimeout(context.Background(), serverShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("API server shutdown error", "error", err)
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.logger.Info("API server stopped")
	return nil
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()

	// Health and status endpoints
	api.HandleFunc("/liveness", s.handlers.Liveness).Methods("GET")
	api.HandleFunc("/health", s.handlers.Health).Methods("GET")
	api.HandleFunc("/status", s.handlers.Status).Methods("GET")
	api.HandleFunc("/version", s.handlers.Version).Methods("GET")
	api.HandleFunc("/metrics", s.handlers.Metrics).Methods("GET")

	// Public ingestion endpoints
	api.HandleFunc("/ingest", s.handlers.Ingest).Methods("POST")
	api.HandleFunc("/ingest/xml", s.handlers.IngestXML).Methods("POST")
	api.HandleFunc("/ingests", s.handlers.ListIngests).Methods("GET")
	api.HandleFunc("/ingests/{id}", s.handlers.GetIngest).Methods("GET")

	// Root-level operational endpoints
	s.router.HandleFunc("/health", s.handlers.Health).Methods("GET")
	s.router.Path("/metrics").Handler(promhttp.HandlerFor(
		s.prometheus.GetRegistry(), promhttp.HandlerOpts{})).Methods("GET")

	s.router.HandleFunc("/", s.indexHandler).Methods("GET")
}

// setupMiddleware configures middleware for the API server.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Recovery(s.logger.Logger))

	if s.config.Logging.RequestLogging {
		s.router.Use(middleware.Logging(s.logger.Logger))
	}

	s.router.Use(middleware.Metrics(s.metrics, s.prometheus))
	s.router.Use(middleware.SecurityHeaders())

	if s.config.Server.RateLimit.Enabled {
		// The burst size bounds the one second window when it exceeds
		// the sustained rate.
		limit := s.config.Server.RateLimit.RequestsPerSecond
		if s.config.Server.RateLimit.BurstSize > limit {
			limit = s.config.Server.RateLimit.BurstSize
		}
		s.router.Use(middleware.RateLimit(limit, time.Second, s.logger.Logger))
	}

	s.router.Use(middleware.ContentType("application/json", "application/xml", "text/xml"))
	s.router.Use(middleware.RequestTimeout(s.config.Server.RequestTimeout))

	if s.config.Server.CORS.Enabled {
		origins := ghandlers.AllowedOrigins(s.config.Server.CORS.AllowedOrigins)
		headerNames := ghandlers.AllowedHeaders(s.config.Server.CORS.AllowedHeaders)
		methods := ghandlers.AllowedMethods(s.config.Server.CORS.AllowedMethods)
		s.router.Use(ghandlers.CORS(origins, headerNames, methods))
	}
}

// indexHandler returns API information for root requests.
func (s *Server) indexHandler(w http.ResponseWriter, _ *http.Request) {
	response := map[string]interface{}{
		"service": "scansage API",
		"version": "v1",
		"endpoints": map[string]string{
			"health":  "/api/v1/health",
			"status":  "/api/v1/status",
			"ingest":  "/api/v1/ingest",
			"ingests": "/api/v1/ingests",
			"metrics": "/metrics",
		},
		"timestamp": time.Now().UTC(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		s.logger.Error("Failed to encode API index response", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// GetRouter returns the configured router.
func (s *Server) GetRouter() *mux.Router {
	return s.router
}

// GetAddress returns the server address.
func (s *Server) GetAddress() string {
	return s.httpServer.Addr
}
