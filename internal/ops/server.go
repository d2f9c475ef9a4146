package ops

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/cardguard/remediator/internal/config"
	"github.com/cardguard/remediator/internal/logger"
)

// Server is the operational HTTP surface: health checks and metrics. The
// remediation pipeline itself has no request/response interface.
type Server struct {
	config config.OpsConfig
	logger *logger.Logger
	router *mux.Router
	server *http.Server
}

// New creates the ops server
func New(cfg config.OpsConfig, registry *prometheus.Registry, log *logger.Logger) *Server {
	router := mux.NewRouter()

	server := &Server{
		config: cfg,
		logger: log,
		router: router,
	}

	router.HandleFunc("/health", server.handleHealth).Methods("GET")
	router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{})).Methods("GET")

	server.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return server
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("Ops server listening", zap.Int("port", s.config.Port))
	return s.server.ListenAndServe()
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping ops server")
	return s.server.Shutdown(ctx)
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"healthy","timestamp":"%s"}`, time.Now().Format(time.RFC3339))
}
