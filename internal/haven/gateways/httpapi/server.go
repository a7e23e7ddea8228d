// Package httpapi exposes the decision gate to capture pipelines that
// run outside this process. It binds loopback-only by convention: the
// API carries no secrets, but there is no reason to answer anyone else.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/havengate/havengate/internal/haven/common/log"
	"github.com/havengate/havengate/internal/haven/domain"
	"github.com/havengate/havengate/internal/haven/services/gate"
)

// Evaluator is the one capability the transport needs from the service
// layer: the synchronous protection decision.
type Evaluator interface {
	Evaluate(rawURL string) domain.MatchResult
}

// Server serves the evaluate API over HTTP.
type Server struct {
	addr      string
	evaluator Evaluator
	snapshots gate.SnapshotProvider
	logger    log.Logger

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
}

// Options configures a Server. Addr and Evaluator are required;
// Snapshots feeds the health endpoint.
type Options struct {
	Addr      string
	Evaluator Evaluator
	Snapshots gate.SnapshotProvider
	Logger    log.Logger
}

// New constructs a Server.
func New(opts Options) (*Server, error) {
	if opts.Addr == "" {
		return nil, errors.New("listen address is required")
	}
	if opts.Evaluator == nil {
		return nil, errors.New("evaluator is required")
	}
	if opts.Logger == nil {
		opts.Logger = log.NewNoopLogger()
	}
	return &Server{
		addr:      opts.Addr,
		evaluator: opts.Evaluator,
		snapshots: opts.Snapshots,
		logger:    opts.Logger,
	}, nil
}

// Start binds the listener and begins serving. It returns once the
// listener is accepting; serving continues until Stop.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return errors.New("already started")
	}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/evaluate", s.handleEvaluate)
	mux.HandleFunc("GET /healthz", s.handleHealth)

	s.listener = ln
	s.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error(map[string]any{"error": err.Error()}, "evaluate API server failed")
		}
	}()

	s.logger.Info(map[string]any{"address": ln.Addr().String()}, "evaluate API listening")
	return nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := s.server.Shutdown(ctx)
	s.server = nil
	s.listener = nil
	return err
}

// Address returns the bound address, or the configured one before Start.
func (s *Server) Address() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	rawURL := r.URL.Query().Get("url")
	if rawURL == "" {
		http.Error(w, `missing "url" query parameter`, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, s.evaluator.Evaluate(rawURL))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{"status": "ok"}
	if s.snapshots != nil {
		if snap := s.snapshots.Snapshot(); snap != nil {
			body["allowlist_version"] = snap.Version
			body["allowlist_source"] = snap.Source.String()
			body["allowlist_entries"] = snap.Len()
			if !snap.FetchedAt.IsZero() {
				body["allowlist_fetched_at"] = snap.FetchedAt.UTC().Format(time.RFC3339)
			}
		}
	}
	writeJSON(w, http.StatusOK, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
