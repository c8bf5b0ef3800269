// Package daemon runs the long-lived Mission Control process: the scan loop,
// the hourly digest job, history pruning and the dashboard HTTP server.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"missioncontrol/config"
	"missioncontrol/internal/broker"
	"missioncontrol/internal/controlplane"
	"missioncontrol/internal/credentials"
	"missioncontrol/internal/dashboard"
	"missioncontrol/internal/history"
	"missioncontrol/internal/scanner"
)

const (
	// HistoryRetention is how long report events are kept.
	HistoryRetention = 14 * 24 * time.Hour
	pruneInterval    = 6 * time.Hour
	shutdownTimeout  = 5 * time.Second
	resultBuffer     = 16
)

// Server is one daemon instance. Only one may run per config directory.
type Server struct {
	settings *config.Settings
	logger   *slog.Logger
	pidFile  string
	dbPath   string
	token    func() (string, error)
	ready    func(addr string)
}

// Option customizes a Server.
type Option func(*Server)

// WithLogger sets the daemon logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithPaths overrides the PID file and database locations.
func WithPaths(pidFile, dbPath string) Option {
	return func(s *Server) {
		s.pidFile = pidFile
		s.dbPath = dbPath
	}
}

// WithTokenSource replaces the keyring lookup of the dashboard API token.
func WithTokenSource(fn func() (string, error)) Option {
	return func(s *Server) {
		if fn != nil {
			s.token = fn
		}
	}
}

// WithReady is called with the bound dashboard address once serving.
func WithReady(fn func(addr string)) Option {
	return func(s *Server) { s.ready = fn }
}

// NewServer prepares a daemon for settings.
func NewServer(settings *config.Settings, opts ...Option) *Server {
	s := &Server{
		settings: settings,
		logger:   slog.New(slog.DiscardHandler),
		token:    credentials.DashboardToken,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *Server) resolvePaths() error {
	if s.pidFile == "" {
		p, err := config.GetPIDFile()
		if err != nil {
			return err
		}
		s.pidFile = p
	}
	if s.dbPath == "" {
		p, err := config.GetDatabasePath()
		if err != nil {
			return err
		}
		s.dbPath = p
	}
	return nil
}

// Run holds the PID lock and serves until ctx is cancelled or a component
// fails. A cancelled context is a clean exit.
func (s *Server) Run(ctx context.Context) (err error) {
	if err := s.resolvePaths(); err != nil {
		return err
	}

	lock, err := acquireProcessLock(s.pidFile, s.logger)
	if err != nil {
		return err
	}
	defer func() {
		if releaseErr := lock.Release(); releaseErr != nil {
			s.logger.Warn("failed to release pid lock", "error", releaseErr)
		}
	}()

	comps, err := Build(ctx, s.settings, s.dbPath, s.logger)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, comps.Close()) }()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := scanner.MustNewMetrics(registry)

	results := broker.New[scanner.Result](resultBuffer)
	defer results.Close()

	control := controlplane.New(controlplane.WithLogger(s.logger.With("component", "controlplane")))
	defer control.Close()

	tokens := newTokenCache(s.token, tokenTTL, s.logger.With("component", "token"))
	if tokens.Token() == "" {
		s.logger.Info("no dashboard token set, mutating endpoints are open")
	}

	scan := comps.NewScanner(nil, func(c *scanner.Config) {
		c.Watch = true
		c.Metrics = metrics
		c.Results = results
	})
	hourly := comps.NewGenerator(nil, 0, nil)

	srv := dashboard.NewServer(s.settings.Listen, dashboard.Deps{
		Roster:      comps.Roster,
		Reports:     comps.Reports,
		Tasks:       comps.Tasks,
		Control:     control,
		Features:    comps.Features,
		Notes:       comps.Notes,
		HourlyPath:  s.settings.HourlyReportPath(),
		Workspace:   s.settings.Workspace,
		StaticDir:   s.settings.StaticDir,
		Results:     results,
		Gatherer:    registry,
		TokenSource: tokens.Token,
		Logger:      s.logger.With("component", "dashboard"),
	})

	g, gctx := errgroup.WithContext(ctx)
	if err := srv.Start(gctx); err != nil {
		return err
	}
	if s.ready != nil {
		s.ready(srv.Addr())
	}
	s.logger.Info("daemon started",
		"listen", srv.Addr(),
		"agents_root", s.settings.AgentsRoot,
		"workspace", s.settings.Workspace,
		"publish", s.settings.Publish.Enabled,
	)

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("dashboard shutdown: %w", err)
		}
		return nil
	})
	g.Go(func() error { return scan.Run(gctx) })
	g.Go(func() error { return hourly.Run(gctx, s.settings.HourlyInterval) })
	g.Go(func() error { return s.pruneHistory(gctx, comps.History) })

	err = g.Wait()
	s.logger.Info("daemon stopped", "error", err)
	return err
}

func (s *Server) pruneHistory(ctx context.Context, store *history.Store) error {
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()

	for {
		cutoff := time.Now().Add(-HistoryRetention)
		if n, err := store.Prune(ctx, cutoff); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.logger.Warn("history prune failed", "error", err)
		} else if n > 0 {
			s.logger.Info("history pruned", "removed", n, "cutoff", cutoff)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
