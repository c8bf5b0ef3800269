// Package controlplane holds the mock service and skill toggle tables shown
// on the dashboard. State is in memory only and resets on restart.
package controlplane

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidAction = errors.New("invalid action")
)

type ServiceStatus string

const (
	ServiceRunning    ServiceStatus = "running"
	ServiceStopped    ServiceStatus = "stopped"
	ServiceRestarting ServiceStatus = "restarting"
)

type SkillStatus string

const (
	SkillActive   SkillStatus = "active"
	SkillInactive SkillStatus = "inactive"
)

// RestartDelay is how long a restarting service stays in that state.
const RestartDelay = time.Second

type Service struct {
	ID     string        `json:"id"`
	Name   string        `json:"name"`
	Status ServiceStatus `json:"status"`
	Port   *int          `json:"port"`
}

type Skill struct {
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	Status   SkillStatus `json:"status"`
	LastSync *time.Time  `json:"lastSync,omitempty"`
}

// ActionResult echoes a performed action.
type ActionResult struct {
	ID     string `json:"id"`
	Action string `json:"action"`
	Status string `json:"status"`
	Result string `json:"result,omitempty"`
}

// Store guards both tables. Order of insertion is the listing order.
type Store struct {
	mu       sync.Mutex
	services []*Service
	skills   []*Skill
	delay    time.Duration
	now      func() time.Time
	logger   *slog.Logger
	// timers holds at most one pending restart per service id.
	timers map[string]*time.Timer
}

// Option configures a Store.
type Option func(*Store)

// WithRestartDelay overrides RestartDelay.
func WithRestartDelay(d time.Duration) Option { return func(s *Store) { s.delay = d } }

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option { return func(s *Store) { s.now = now } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(s *Store) { s.logger = l } }

func port(p int) *int { return &p }

// New returns a store seeded with the default tables.
func New(opts ...Option) *Store {
	s := &Store{
		delay:  RestartDelay,
		now:    time.Now,
		logger: slog.New(slog.DiscardHandler),
		timers: make(map[string]*time.Timer),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.services = []*Service{
		{ID: "gateway", Name: "Gateway", Status: ServiceRunning, Port: port(3000)},
		{ID: "websocket", Name: "WebSocket", Status: ServiceRunning, Port: port(3001)},
		{ID: "api", Name: "API", Status: ServiceRunning, Port: port(3002)},
		{ID: "mcp-server", Name: "MCP Server", Status: ServiceStopped, Port: port(3003)},
		{ID: "agent", Name: "Agent", Status: ServiceRunning},
	}

	started := s.now().UTC()
	s.skills = []*Skill{
		{ID: "github", Name: "GitHub", Status: SkillActive, LastSync: &started},
		{ID: "coding-agent", Name: "Coding Agent", Status: SkillActive},
		{ID: "mcporter", Name: "MCPorter", Status: SkillActive},
		{ID: "notion", Name: "Notion", Status: SkillInactive},
		{ID: "slack", Name: "Slack", Status: SkillActive},
		{ID: "terminal", Name: "Terminal", Status: SkillActive},
		{ID: "browser", Name: "Browser", Status: SkillActive},
		{ID: "memory", Name: "Memory", Status: SkillActive},
	}
	return s
}

// Services returns a copy of the service table.
func (s *Store) Services() []Service {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Service, len(s.services))
	for i, svc := range s.services {
		out[i] = *svc
	}
	return out
}

// Skills returns a copy of the skill table.
func (s *Store) Skills() []Skill {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Skill, len(s.skills))
	for i, sk := range s.skills {
		out[i] = *sk
	}
	return out
}

// ServiceAction applies start, stop or restart. A restart reports
// "restarting" and flips to running after the restart delay.
func (s *Store) ServiceAction(id, action string) (ActionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	svc := s.findService(id)
	if svc == nil {
		return ActionResult{}, fmt.Errorf("service %q: %w", id, ErrNotFound)
	}

	switch action {
	case "start":
		svc.Status = ServiceRunning
		s.cancelRestart(id)
	case "stop":
		svc.Status = ServiceStopped
		s.cancelRestart(id)
	case "restart":
		svc.Status = ServiceRestarting
		s.cancelRestart(id)
		var timer *time.Timer
		timer = time.AfterFunc(s.delay, func() { s.finishRestart(id, &timer) })
		s.timers[id] = timer
	default:
		return ActionResult{}, fmt.Errorf("service action %q: %w", action, ErrInvalidAction)
	}

	s.logger.Info("service action", "service", id, "action", action, "status", svc.Status)
	return ActionResult{ID: id, Action: action, Status: string(svc.Status)}, nil
}

// cancelRestart stops the pending restart of id. Callers hold s.mu.
func (s *Store) cancelRestart(id string) {
	if t, ok := s.timers[id]; ok {
		t.Stop()
		delete(s.timers, id)
	}
}

// finishRestart runs on the timer goroutine. timer is read under the lock so
// a superseded timer that fired late leaves the newer one in place.
func (s *Store) finishRestart(id string, timer **time.Timer) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timers[id] != *timer {
		return
	}
	delete(s.timers, id)

	if svc := s.findService(id); svc != nil && svc.Status == ServiceRestarting {
		svc.Status = ServiceRunning
	}
}

// SkillAction applies start, stop, sync or execute. execute only
// acknowledges; payload names the requested operation.
func (s *Store) SkillAction(id, action, payload string) (ActionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sk := s.findSkill(id)
	if sk == nil {
		return ActionResult{}, fmt.Errorf("skill %q: %w", id, ErrNotFound)
	}

	res := ActionResult{ID: id, Action: action}
	switch action {
	case "start":
		sk.Status = SkillActive
	case "stop":
		sk.Status = SkillInactive
	case "sync":
		now := s.now().UTC()
		sk.LastSync = &now
	case "execute":
		if payload != "" {
			res.Action = payload
		}
		res.Result = "Action executed successfully"
		s.logger.Info("skill execute", "skill", id, "action", payload)
	default:
		return ActionResult{}, fmt.Errorf("skill action %q: %w", action, ErrInvalidAction)
	}

	res.Status = string(sk.Status)
	return res, nil
}

// Close cancels pending restart timers.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
}

func (s *Store) findService(id string) *Service {
	for _, svc := range s.services {
		if svc.ID == id {
			return svc
		}
	}
	return nil
}

func (s *Store) findSkill(id string) *Skill {
	for _, sk := range s.skills {
		if sk.ID == id {
			return sk
		}
	}
	return nil
}
