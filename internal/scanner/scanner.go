// Package scanner polls each agent's WORKING.md, folds changed files into
// the report document and publishes the result.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/cespare/xxhash/v2"

	"missioncontrol/internal/agent"
	"missioncontrol/internal/broker"
	"missioncontrol/internal/extract"
	"missioncontrol/internal/publish"
	"missioncontrol/internal/report"
)

const (
	defaultInterval       = 60 * time.Second
	defaultPublishTimeout = 2 * time.Minute
	publishMessage        = "Update agent reports"
)

// Result describes one scan cycle.
type Result struct {
	StartedAt time.Time            `json:"startedAt"`
	Duration  time.Duration        `json:"duration"`
	Changed   []report.AgentReport `json:"changed,omitempty"`
	Missing   []string             `json:"missing,omitempty"`
	Errors    map[string]string    `json:"errors,omitempty"`
	Publish   *publish.Outcome     `json:"publish,omitempty"`
	Err       string               `json:"error,omitempty"`
}

// HasChanges reports whether the cycle wrote the document.
func (r Result) HasChanges() bool { return len(r.Changed) > 0 }

// Config wires a Scanner.
type Config struct {
	Root           string
	Roster         *agent.Roster
	Extractor      *extract.Extractor
	Service        *report.Service
	Publisher      publish.Publisher
	PublishTimeout time.Duration
	Interval       time.Duration
	// Watch enables the filesystem watcher that triggers early scans.
	Watch    bool
	Debounce time.Duration
	Metrics  *Metrics
	Results  *broker.Broker[Result]
	Logger   *slog.Logger
}

// Scanner tracks the last seen content hash per agent. Scan is not safe for
// concurrent use; Run serializes cycles on a single goroutine.
type Scanner struct {
	cfg      Config
	logger   *slog.Logger
	hashes   map[string]uint64
	// publishPending is set while the last publish failed; the next cycle
	// publishes again even when no file changed.
	publishPending bool
	trigger        chan struct{}
	readFile func(string) ([]byte, error)
	now      func() time.Time
}

// New returns a scanner with defaults applied to cfg.
func New(cfg Config) *Scanner {
	if cfg.Extractor == nil {
		cfg.Extractor = extract.New(extract.Options{})
	}
	if cfg.Publisher == nil {
		cfg.Publisher = publish.Disabled{}
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = defaultPublishTimeout
	}
	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = defaultDebounce
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Scanner{
		cfg:      cfg,
		logger:   logger.With("component", "scanner"),
		hashes:   make(map[string]uint64),
		trigger:  make(chan struct{}, 1),
		readFile: os.ReadFile,
		now:      time.Now,
	}
}

// Trigger requests a scan as soon as the loop is free. Extra requests while
// one is pending are coalesced.
func (s *Scanner) Trigger() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// Run scans once immediately, then on every tick or trigger until ctx ends.
func (s *Scanner) Run(ctx context.Context) error {
	if s.cfg.Watch {
		w, err := newWatcher(s.cfg.Root, s.cfg.Roster, s.cfg.Debounce, s.Trigger, s.logger)
		if err != nil {
			s.logger.Warn("file watcher unavailable, polling only", "error", err)
		} else {
			go w.run(ctx)
		}
	}

	s.logger.Info("scanner started", "root", s.cfg.Root, "interval", s.cfg.Interval, "agents", s.cfg.Roster.Len())
	s.Scan(ctx)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scanner stopped")
			return nil
		case <-ticker.C:
		case <-s.trigger:
		}
		s.Scan(ctx)
	}
}

// Scan runs one cycle: read every agent file, extract the changed ones, write
// the document once and publish.
func (s *Scanner) Scan(ctx context.Context) Result {
	start := s.now()
	res := Result{StartedAt: start}

	var (
		entries []report.Entry
		pending = make(map[string]uint64)
	)
	for _, a := range s.cfg.Roster.All() {
		entry, sum, changed, err := s.scanAgent(a)
		switch {
		case errors.Is(err, os.ErrNotExist):
			res.Missing = append(res.Missing, a.ID)
			s.logger.Debug("no WORKING.md", "agent", a.ID)
		case err != nil:
			if res.Errors == nil {
				res.Errors = make(map[string]string)
			}
			res.Errors[a.ID] = err.Error()
			s.cfg.Metrics.observeReadError(a.ID)
			s.logger.Warn("failed to scan agent", "agent", a.ID, "error", err)
		case changed:
			entries = append(entries, entry)
			pending[a.ID] = sum
		}
	}

	switch {
	case len(entries) > 0:
		s.apply(ctx, entries, pending, &res)
	case s.publishPending:
		s.logger.Info("retrying failed publish")
		s.publish(ctx, &res)
	}

	res.Duration = s.now().Sub(start)
	s.cfg.Metrics.observeCycle(res.Duration)
	if s.cfg.Results != nil {
		s.cfg.Results.Publish(res)
	}
	return res
}

func (s *Scanner) apply(ctx context.Context, entries []report.Entry, pending map[string]uint64, res *Result) {
	changed, err := s.cfg.Service.Apply(ctx, entries)
	if err != nil {
		// Hashes stay stale so the next cycle retries these agents.
		res.Err = err.Error()
		s.logger.Error("failed to write report document", "error", err)
		return
	}

	for id, sum := range pending {
		s.hashes[id] = sum
	}
	res.Changed = changed
	for _, r := range changed {
		s.cfg.Metrics.observeChange(r.AgentID, r.Status)
		s.logger.Info("agent report changed", "agent", r.AgentID, "status", r.Status, "task", r.CurrentTask)
	}
	s.publish(ctx, res)
}

func (s *Scanner) publish(ctx context.Context, res *Result) {
	pubCtx, cancel := context.WithTimeout(ctx, s.cfg.PublishTimeout)
	defer cancel()
	out := s.cfg.Publisher.Publish(pubCtx, publishMessage, s.cfg.Service.Store().Path())
	res.Publish = &out
	s.cfg.Metrics.observePublish(out)
	s.publishPending = !out.OK()
	if s.publishPending {
		s.logger.Warn("publish failed, will retry next cycle", "outcome", out.String())
	}
}

// scanAgent reads and extracts one agent. Panics in extraction are recovered
// so one agent cannot stop the cycle.
func (s *Scanner) scanAgent(a agent.Agent) (entry report.Entry, sum uint64, changed bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while scanning %s: %v", a.ID, r)
			changed = false
		}
	}()

	data, err := s.readFile(agent.MemoryFile(s.cfg.Root, a.ID))
	if err != nil {
		return report.Entry{}, 0, false, err
	}

	sum = xxhash.Sum64(data)
	if prev, ok := s.hashes[a.ID]; ok && prev == sum {
		return report.Entry{}, sum, false, nil
	}

	res := s.cfg.Extractor.Extract(string(data))
	return report.Entry{
		AgentID:     a.ID,
		Status:      res.Status,
		CurrentTask: res.CurrentTask,
		Report:      res.Report,
	}, sum, true, nil
}
