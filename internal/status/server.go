// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package status

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ManuGH/tsrec/internal/health"
	"github.com/ManuGH/tsrec/internal/log"
)

// NewRouter serves /metrics, /status, /healthz and /readyz. A nil h
// serves probes without component checks.
func NewRouter(t *Tracker, h *health.Manager) *chi.Mux {
	if h == nil {
		h = health.NewManager("")
	}
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/status", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(t.Snapshot())
	})
	r.Get("/healthz", h.ServeHealth)
	r.Get("/readyz", h.ServeReady)
	return r
}

// Server is the optional listener running alongside a recording.
type Server struct {
	srv  *http.Server
	ln   net.Listener
	done chan struct{}
}

// Start listens on addr and serves in the background until Shutdown.
func Start(addr string, t *Tracker, h *health.Manager) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("status listener %s: %w", addr, err)
	}

	s := &Server{
		srv: &http.Server{
			Handler:           NewRouter(t, h),
			ReadHeaderTimeout: 5 * time.Second,
		},
		ln:   ln,
		done: make(chan struct{}),
	}

	logger := log.WithComponent("status")
	go func() {
		defer close(s.done)
		logger.Info().
			Str(log.FieldEvent, "status.listen").
			Str("addr", ln.Addr().String()).
			Msg("status server listening")
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().
				Err(err).
				Str(log.FieldEvent, "status.server.failed").
				Msg("status server failed")
		}
	}()
	return s, nil
}

// Addr returns the bound address, useful with ":0".
func (s *Server) Addr() string {
	return s.ln.Addr().String()
}

// Shutdown stops the server and waits for the serve loop to return.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.srv.Shutdown(ctx)
	<-s.done
	return err
}
