package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"missioncontrol/internal/agent"
	"missioncontrol/internal/extract"
	"missioncontrol/internal/history"
	"missioncontrol/internal/publish"
	"missioncontrol/internal/timeutil"
)

var (
	// ErrUnknownAgent is returned for ids outside the roster.
	ErrUnknownAgent = errors.New("unknown agent")
	// ErrInvalidStatus is returned for a status other than active, idle or blocked.
	ErrInvalidStatus = errors.New("invalid status")
)

// Recorder appends report events to the history.
type Recorder interface {
	Record(ctx context.Context, events ...history.Event) error
}

// Entry is one extracted report waiting to be merged.
type Entry struct {
	AgentID     string
	Status      extract.Status
	CurrentTask string
	Report      string
}

// UpdateRequest is a manual report submitted from the CLI or the API.
type UpdateRequest struct {
	AgentID     string `json:"agentId"`
	Status      string `json:"status"`
	CurrentTask string `json:"currentTask"`
	Report      string `json:"report"`
	Publish     bool   `json:"publish"`
}

// Service serializes read-modify-write cycles on the document.
type Service struct {
	mu        sync.Mutex
	store     *Store
	roster    *agent.Roster
	recorder  Recorder
	publisher publish.Publisher
	now       func() time.Time
	logger    *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithRecorder appends an event for every accepted update.
func WithRecorder(r Recorder) Option { return func(s *Service) { s.recorder = r } }

// WithPublisher sets the publisher used by Update when asked to publish.
func WithPublisher(p publish.Publisher) Option { return func(s *Service) { s.publisher = p } }

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(s *Service) { s.logger = l } }

// NewService wires a service over store for the given roster.
func NewService(store *Store, roster *agent.Roster, opts ...Option) *Service {
	s := &Service{
		store:     store,
		roster:    roster,
		publisher: publish.Disabled{},
		now:       time.Now,
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store returns the underlying document store.
func (s *Service) Store() *Store { return s.store }

// Snapshot returns the current document.
func (s *Service) Snapshot() *Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.LoadOrInit()
}

// Apply merges entries into the document with a single write and records one
// history event per entry. Entries for unknown agents are rejected up front.
func (s *Service) Apply(ctx context.Context, entries []Entry) ([]AgentReport, error) {
	if len(entries) == 0 {
		return nil, nil
	}

	for _, e := range entries {
		if !s.roster.Contains(e.AgentID) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownAgent, e.AgentID)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	doc := s.store.LoadOrInit()
	applied := make([]AgentReport, 0, len(entries))
	events := make([]history.Event, 0, len(entries))
	for _, e := range entries {
		a, _ := s.roster.Lookup(e.AgentID)
		r := s.build(a, e, now)
		doc.Update(a.ID, r, now)
		applied = append(applied, doc.Agents[a.ID])
		events = append(events, EventFor(r, now))
	}

	if err := s.store.Save(doc); err != nil {
		return nil, err
	}
	s.record(ctx, events)
	return applied, nil
}

// Update validates a manual report, writes it and optionally publishes. The
// returned outcome is Ok when publishing was not requested.
func (s *Service) Update(ctx context.Context, req UpdateRequest) (AgentReport, publish.Outcome, error) {
	a, ok := s.roster.Lookup(req.AgentID)
	if !ok {
		return AgentReport{}, publish.Ok(), fmt.Errorf("%w: %q", ErrUnknownAgent, req.AgentID)
	}

	status := extract.StatusIdle
	if strings.TrimSpace(req.Status) != "" {
		parsed, ok := extract.ParseStatus(req.Status)
		if !ok {
			return AgentReport{}, publish.Ok(), fmt.Errorf("%w: %q", ErrInvalidStatus, req.Status)
		}
		status = parsed
	}

	applied, err := s.Apply(ctx, []Entry{{
		AgentID:     a.ID,
		Status:      status,
		CurrentTask: req.CurrentTask,
		Report:      req.Report,
	}})
	if err != nil {
		return AgentReport{}, publish.Ok(), err
	}
	r := applied[0]
	s.logger.Info("agent report updated", "agent", a.ID, "status", r.Status)

	if !req.Publish {
		return r, publish.Ok(), nil
	}
	out := s.publisher.Publish(ctx, fmt.Sprintf("Update %s report", a.Name), s.store.Path())
	return r, out, nil
}

func (s *Service) build(a agent.Agent, e Entry, now time.Time) AgentReport {
	task := strings.TrimSpace(e.CurrentTask)
	if task == "" {
		task = extract.DefaultTask
	}
	status := e.Status
	if status == "" {
		status = extract.StatusIdle
	}
	return AgentReport{
		AgentID:     a.ID,
		Name:        a.Name,
		Role:        a.Role,
		Status:      status,
		CurrentTask: task,
		LastReport:  timeutil.FormatReportStamp(now),
		Report:      strings.TrimSpace(e.Report),
		ObservedAt:  now.UTC(),
	}
}

func (s *Service) record(ctx context.Context, events []history.Event) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.Record(ctx, events...); err != nil {
		s.logger.Warn("failed to record report events", "count", len(events), "error", err)
	}
}

// EventFor derives the history event for an accepted report. A blocked agent's
// current task is its blocker.
func EventFor(r AgentReport, now time.Time) history.Event {
	blocking := history.NoBlocker
	if r.Status == extract.StatusBlocked {
		blocking = r.CurrentTask
	}
	return history.Event{
		Agent:        r.AgentID,
		Task:         r.CurrentTask,
		Accomplished: r.Report,
		Blocking:     blocking,
		Status:       string(r.Status),
		Timestamp:    now,
	}
}
