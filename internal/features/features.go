// Package features manages the feature approval list agents propose and the
// owner approves or declines.
package features

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

var (
	// ErrNoFeatures is returned when the feature file does not exist.
	ErrNoFeatures = errors.New("no features found")
	ErrNotFound   = errors.New("feature not found")
	ErrInvalid    = errors.New("invalid feature update")
)

const (
	StatusApproved = "approved"
	StatusDeclined = "declined"
)

// Feature is one entry of features.json. Fields this package does not know
// about are kept as-is.
type Feature map[string]any

func (f Feature) str(key string) string {
	s, _ := f[key].(string)
	return s
}

func (f Feature) ID() string     { return f.str("id") }
func (f Feature) Title() string  { return f.str("title") }
func (f Feature) Status() string { return f.str("status") }

// Store reads and rewrites features.json.
type Store struct {
	mu    sync.Mutex
	path  string
	owner string
	now   func() time.Time
}

// NewStore returns a store whose approvals are attributed to owner.
func NewStore(path, owner string) *Store {
	return &Store{path: path, owner: owner, now: time.Now}
}

// List returns all features.
func (s *Store) List() ([]Feature, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// SetStatus updates one feature. Approving or declining stamps the owner and
// time; notes replace the existing notes when non-empty.
func (s *Store) SetStatus(id, status, notes string) (Feature, error) {
	id = strings.TrimSpace(id)
	status = strings.TrimSpace(status)
	if id == "" || status == "" {
		return nil, fmt.Errorf("%w: featureId and status are required", ErrInvalid)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.load()
	if err != nil {
		if errors.Is(err, ErrNoFeatures) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, err
	}

	for _, f := range list {
		if f.ID() != id {
			continue
		}
		f["status"] = status
		if notes != "" {
			f["notes"] = notes
		}
		now := s.now().UTC().Format(time.RFC3339Nano)
		switch status {
		case StatusApproved:
			f["approvedBy"] = s.owner
			f["approvedAt"] = now
		case StatusDeclined:
			f["declinedBy"] = s.owner
			f["declinedAt"] = now
		}
		if err := s.save(list); err != nil {
			return nil, err
		}
		return f, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
}

func (s *Store) load() ([]Feature, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoFeatures
		}
		return nil, fmt.Errorf("read features: %w", err)
	}
	var list []Feature
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("parse features %s: %w", s.path, err)
	}
	if list == nil {
		list = []Feature{}
	}
	return list, nil
}

func (s *Store) save(list []Feature) error {
	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal features: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("create features directory: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("write features: %w", err)
	}
	return os.Rename(tmp, s.path)
}
