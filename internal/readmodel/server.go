package readmodel

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	cfhttp "github.com/kilnforge/pipelinectl/internal/adapter/http"
	"github.com/kilnforge/pipelinectl/internal/config"
	"github.com/kilnforge/pipelinectl/internal/middleware"
	"github.com/kilnforge/pipelinectl/internal/store"
)

// Server wraps a chi.Router (grounded in the teacher's cmd/codeforge/main.go
// router assembly) plus the SSE broadcast hub, exposing the feature,
// config, architecture, and session state the Autoplay Controller writes
// to a dashboard or any polling HTTP client.
type Server struct {
	Hub    *Hub
	http   *http.Server
	cancel context.CancelFunc
}

// NewServer builds the Read-Model Server. store is shared with whatever
// process also runs the Autoplay Controller, if any: the Store's own
// transaction handling makes concurrent access from a CLI process and a
// dashboard server safe.
//
// cfg.Host defaults to the loopback interface: the dashboard is a local
// developer tool, not a service meant to be reachable from other hosts.
// Set cfg.Host explicitly (or FRAMEWORK_HOST) to bind more broadly.
func NewServer(cfg config.Server, st *store.Store) *Server {
	hub := NewHub()

	host := cfg.Host
	if host == "" {
		host = "127.0.0.1"
	}

	handlers := &cfhttp.Handlers{Store: st, Broadcaster: hub}

	r := chi.NewRouter()
	r.Use(cfhttp.CORS(cfg.CORSOrigin))
	r.Use(cfhttp.SecurityHeaders)
	r.Use(middleware.RequestID)
	r.Use(cfhttp.Logger)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))

	r.Get("/health", healthHandler(st))
	r.Get("/api/events", hub.HandleStream)
	cfhttp.MountRoutes(r, handlers)

	tickerCtx, cancel := context.WithCancel(context.Background())
	startFeatureSnapshotTicker(tickerCtx, st, hub)

	return &Server{
		Hub:    hub,
		cancel: cancel,
		http: &http.Server{
			Addr:              host + ":" + cfg.Port,
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      0, // SSE connections are long-lived
			IdleTimeout:       120 * time.Second,
		},
	}
}

// ListenAndServe blocks serving HTTP until the server is shut down.
func (s *Server) ListenAndServe() error {
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("read-model server: %w", err)
	}
	return nil
}

// Shutdown gracefully drains connections, including SSE streams, and stops
// the feature snapshot ticker.
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancel()
	return s.http.Shutdown(ctx)
}

func healthHandler(st *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := "ok"
		if _, err := st.AllConfig(r.Context()); err != nil {
			status = "degraded"
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status":%q}`, status)
	}
}
