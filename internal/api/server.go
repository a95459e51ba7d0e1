// Package api implements the HTTP service: network upload, on-demand
// planning, plan-metric history and the live planner stream.
package api

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"roadcover/internal/config"
	"roadcover/internal/observe"
	"roadcover/internal/store"
)

type Server struct {
	Store  store.Store
	Broker observe.Broker
	Config config.Config
	Logger *slog.Logger
}

// NewServer creates a Server. If DatabaseURL is empty it uses the in-memory
// store; if RedisURL is empty events stay in process.
func NewServer(ctx context.Context, cfg config.Config) (*Server, error) {
	var s store.Store
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		s = store.NewMemory()
	} else {
		sp, err := store.NewPostgres(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := sp.Migrate(ctx); err != nil {
			return nil, err
		}
		s = sp
	}

	var broker observe.Broker = observe.NewMemoryBroker()
	if cfg.RedisURL != "" {
		if rb, err := observe.NewRedisBroker(cfg.RedisURL); err == nil {
			broker = rb
		}
	}
	return &Server{
		Store:  s,
		Broker: broker,
		Config: cfg,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, nil
}

// Routes registers every endpoint on a new mux.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	// Networks
	mux.HandleFunc("/v1/networks", s.NetworksHandler)
	mux.HandleFunc("/v1/networks/", s.NetworkByIDHandler)

	// Planning
	mux.HandleFunc("/v1/plan", s.PlanHandler)
	mux.HandleFunc("/v1/plan-metrics", s.PlanMetricsHandler)
	mux.HandleFunc("/v1/runs/ws", s.RunStreamHandler)

	// Health and introspection
	mux.HandleFunc("/healthz", s.HealthHandler)
	mux.HandleFunc("/readyz", s.ReadyHandler)
	mux.HandleFunc("/debug/info", s.DebugJSON)
	mux.Handle("/metrics", metricsHandler())
	return mux
}

// Handler is Routes wrapped in the request log and metrics middleware.
func (s *Server) Handler() http.Handler {
	return instrument(logRequests(s.Logger, s.Routes()))
}
