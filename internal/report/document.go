// Package report owns the agent status document: one JSON file holding the
// latest report of every agent, rewritten wholesale on each change.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"missioncontrol/internal/extract"
)

// AgentReport is the current view of one agent.
type AgentReport struct {
	AgentID     string         `json:"agentId,omitempty"`
	Name        string         `json:"name"`
	Role        string         `json:"role"`
	Status      extract.Status `json:"status"`
	CurrentTask string         `json:"currentTask"`
	LastReport  string         `json:"lastReport"`
	Report      string         `json:"report"`
	ObservedAt  time.Time      `json:"observedAt,omitzero"`
}

// Document maps agent ids to their latest report.
type Document struct {
	Agents      map[string]AgentReport `json:"agents"`
	LastUpdated *time.Time             `json:"lastUpdated"`
}

// NewDocument returns the empty skeleton.
func NewDocument() *Document {
	return &Document{Agents: make(map[string]AgentReport)}
}

// Update replaces the entry for id and bumps LastUpdated.
func (d *Document) Update(id string, r AgentReport, now time.Time) {
	if d.Agents == nil {
		d.Agents = make(map[string]AgentReport)
	}
	r.AgentID = id
	d.Agents[id] = r
	ts := now.UTC()
	d.LastUpdated = &ts
}

// Get returns the report for id.
func (d *Document) Get(id string) (AgentReport, bool) {
	r, ok := d.Agents[id]
	return r, ok
}

// Store reads and writes the document file.
type Store struct {
	path   string
	logger *slog.Logger
}

// NewStore returns a store for the document at path.
func NewStore(path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{path: path, logger: logger}
}

// Path returns the document location.
func (s *Store) Path() string { return s.path }

// LoadOrInit reads the document. A missing, unreadable or corrupt file
// yields an empty document; only the latter two are logged.
func (s *Store) LoadOrInit() *Document {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("report document unreadable, starting empty", "path", s.path, "error", err)
		}
		return NewDocument()
	}

	doc := NewDocument()
	if err := json.Unmarshal(data, doc); err != nil {
		s.logger.Warn("report document corrupt, starting empty", "path", s.path, "error", err)
		return NewDocument()
	}
	if doc.Agents == nil {
		doc.Agents = make(map[string]AgentReport)
	}
	for id, r := range doc.Agents {
		if r.AgentID == "" {
			r.AgentID = id
			doc.Agents[id] = r
		}
	}
	return doc
}

// Save rewrites the whole document through a temp file and rename.
func (s *Store) Save(doc *Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report document: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create reports directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".agent-reports-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write report document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to write report document: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to write report document: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace report document: %w", err)
	}
	return nil
}
