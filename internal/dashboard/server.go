package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// ServerStatus reports the lifecycle state of the HTTP server.
type ServerStatus string

const (
	StatusStopped  ServerStatus = "stopped"
	StatusReady    ServerStatus = "ready"
	StatusDraining ServerStatus = "draining"
)

// Server owns the listener serving the dashboard router.
type Server struct {
	addr    string
	handler http.Handler
	logger  *slog.Logger

	readTimeout time.Duration

	mu       sync.RWMutex
	server   *http.Server
	listener net.Listener
	status   ServerStatus
}

// ServerOption customizes a Server.
type ServerOption func(*Server)

// WithServerLogger sets the logger for lifecycle messages.
func WithServerLogger(l *slog.Logger) ServerOption {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer serves deps on addr once started.
func NewServer(addr string, deps Deps, opts ...ServerOption) *Server {
	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		addr:        addr,
		logger:      deps.Logger,
		readTimeout: 15 * time.Second,
		status:      StatusStopped,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	if deps.Logger == nil {
		deps.Logger = s.logger
	}
	s.handler = NewRouter(deps)
	return s
}

// Start binds the listener and serves in the background.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return errors.New("dashboard: server already started")
	}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("dashboard: listen %s: %w", s.addr, err)
	}
	// No write timeout: /api/events holds the response open.
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: s.readTimeout,
		ReadTimeout:       s.readTimeout,
		IdleTimeout:       2 * time.Minute,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	s.listener = ln
	s.server = srv
	s.status = StatusReady

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("dashboard serve error", "error", err)
		}
	}()
	s.logger.Info("dashboard listening", "addr", ln.Addr().String())
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server == nil {
		return nil
	}
	s.status = StatusDraining
	err := s.server.Shutdown(ctx)
	if err != nil {
		// Streaming clients keep connections busy; cut them.
		_ = s.server.Close()
	}
	s.server = nil
	s.listener = nil
	s.status = StatusStopped
	return err
}

// Addr returns the bound address once started.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Status reports the lifecycle state.
func (s *Server) Status() ServerStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}
