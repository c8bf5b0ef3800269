// Package taskboard persists the kanban task list as a flat JSON array.
package taskboard

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidStatus = errors.New("invalid task status")
	ErrInvalidTask   = errors.New("invalid task")
	ErrNotFound      = errors.New("task not found")
)

type Status string

const (
	StatusInbox      Status = "inbox"
	StatusAssigned   Status = "assigned"
	StatusInProgress Status = "in_progress"
	StatusReview     Status = "review"
	StatusDone       Status = "done"
)

// Statuses lists the board columns in display order.
var Statuses = []Status{StatusInbox, StatusAssigned, StatusInProgress, StatusReview, StatusDone}

var aliases = map[string]Status{
	"backlog":     StatusInbox,
	"todo":        StatusAssigned,
	"doing":       StatusInProgress,
	"in-progress": StatusInProgress,
	"inprogress":  StatusInProgress,
}

// ParseStatus normalises a column name, accepting the legacy aliases.
func ParseStatus(s string) (Status, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if key == "" {
		return StatusInbox, nil
	}
	for _, st := range Statuses {
		if string(st) == key {
			return st, nil
		}
	}
	if st, ok := aliases[key]; ok {
		return st, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

type Task struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Assignee    string    `json:"assignee,omitempty"`
	Priority    string    `json:"priority,omitempty"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Store reads and rewrites the task file. Writes are serialized.
type Store struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

func NewStore(path string) *Store {
	return &Store{path: path, now: time.Now}
}

// Path returns the task file location.
func (s *Store) Path() string { return s.path }

// List returns all tasks, or an empty list when the file does not exist.
func (s *Store) List() ([]Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Replace validates and normalises tasks, then rewrites the file.
func (s *Store) Replace(tasks []Task) ([]Task, error) {
	normalized, err := s.normalize(tasks)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.save(normalized); err != nil {
		return nil, err
	}
	return normalized, nil
}

// Add appends one task.
func (s *Store) Add(t Task) (Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks, err := s.load()
	if err != nil {
		return Task{}, err
	}
	normalized, err := s.normalize([]Task{t})
	if err != nil {
		return Task{}, err
	}
	tasks = append(tasks, normalized[0])
	if err := s.save(tasks); err != nil {
		return Task{}, err
	}
	return normalized[0], nil
}

// Move changes the status of the task with id.
func (s *Store) Move(id string, status string) (Task, error) {
	st, err := ParseStatus(status)
	if err != nil {
		return Task{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tasks, err := s.load()
	if err != nil {
		return Task{}, err
	}
	for i := range tasks {
		if tasks[i].ID == id {
			tasks[i].Status = st
			if err := s.save(tasks); err != nil {
				return Task{}, err
			}
			return tasks[i], nil
		}
	}
	return Task{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

func (s *Store) normalize(tasks []Task) ([]Task, error) {
	out := make([]Task, 0, len(tasks))
	seen := make(map[string]bool, len(tasks))
	now := s.now().UTC()

	for i, t := range tasks {
		t.Title = strings.TrimSpace(t.Title)
		if t.Title == "" {
			return nil, fmt.Errorf("%w: task %d has no title", ErrInvalidTask, i)
		}
		st, err := ParseStatus(string(t.Status))
		if err != nil {
			return nil, fmt.Errorf("task %d: %w", i, err)
		}
		t.Status = st
		if strings.TrimSpace(t.ID) == "" {
			t.ID = uuid.NewString()
		}
		if seen[t.ID] {
			return nil, fmt.Errorf("%w: duplicate id %q", ErrInvalidTask, t.ID)
		}
		seen[t.ID] = true
		if t.CreatedAt.IsZero() {
			t.CreatedAt = now
		}
		out = append(out, t)
	}
	return out, nil
}

func (s *Store) load() ([]Task, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []Task{}, nil
		}
		return nil, fmt.Errorf("read tasks: %w", err)
	}

	tasks := []Task{}
	if len(strings.TrimSpace(string(data))) == 0 {
		return tasks, nil
	}
	if err := json.Unmarshal(data, &tasks); err != nil {
		return nil, fmt.Errorf("parse tasks %s: %w", s.path, err)
	}
	return tasks, nil
}

func (s *Store) save(tasks []Task) error {
	if tasks == nil {
		tasks = []Task{}
	}
	data, err := json.MarshalIndent(tasks, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal tasks: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("create tasks directory: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("write tasks: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write tasks: %w", err)
	}
	return nil
}
