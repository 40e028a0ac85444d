package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Config contains metrics server settings
type Config struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address"`
	Path    string `mapstructure:"path"`
}

// Server provides an HTTP endpoint for the training metrics
type Server struct {
	server    *http.Server
	config    Config
	log       logrus.FieldLogger
	startTime time.Time
}

// NewServer creates a new metrics HTTP server
func NewServer(cfg Config, m *Training, log logrus.FieldLogger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		config: cfg,
		log:    log,
		server: &http.Server{
			Addr:    cfg.Address,
			Handler: mux,
		},
		startTime: time.Now(),
	}

	mux.Handle(cfg.Path, promhttp.HandlerFor(m.Registry(),
		promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", s.handleHealth)

	return s
}

// Start starts the metrics HTTP server in its own goroutine
func (s *Server) Start() {
	if !s.config.Enabled {
		s.log.Info("metrics server disabled")
		return
	}

	s.log.WithField("address", s.config.Address).Info("starting metrics server")
	go func() {
		err := s.server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.WithError(err).Error("metrics server failed")
		}
	}()
}

// Stop gracefully stops the metrics server
func (s *Server) Stop(ctx context.Context) error {
	if !s.config.Enabled {
		return nil
	}

	s.log.Info("stopping metrics server")
	return s.server.Shutdown(ctx)
}

// handleHealth serves a simple health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.startTime).String(),
	})
}
