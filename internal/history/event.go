// Package history keeps the append-only log of agent report events that the
// hourly summary is built from.
package history

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// NoBlocker is the placeholder agents write when nothing blocks them.
const NoBlocker = "None"

// Event is one raw agent report.
type Event struct {
	Agent        string    `json:"agent"`
	Task         string    `json:"task"`
	Accomplished string    `json:"accomplished"`
	Blocking     string    `json:"blocking"`
	Status       string    `json:"status,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// HasBlocker reports whether the event carries a real blocker.
func (e Event) HasBlocker() bool {
	b := strings.TrimSpace(e.Blocking)
	return b != "" && b != NoBlocker
}

// UnmarshalJSON accepts timestamps as RFC 3339 strings or epoch milliseconds.
func (e *Event) UnmarshalJSON(data []byte) error {
	type alias Event
	var raw struct {
		alias
		Timestamp json.RawMessage `json:"timestamp"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*e = Event(raw.alias)

	ts, err := parseTimestamp(raw.Timestamp)
	if err != nil {
		return fmt.Errorf("event %q: %w", e.Agent, err)
	}
	e.Timestamp = ts
	return nil
}

func parseTimestamp(raw json.RawMessage) (time.Time, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return time.Time{}, nil
	}

	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return time.Time{}, err
		}
		if s == "" {
			return time.Time{}, nil
		}
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02 15:04:05", time.DateOnly} {
			if t, err := time.Parse(layout, s); err == nil {
				return t, nil
			}
		}
		return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
	}

	ms, err := strconv.ParseFloat(string(raw), 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("unrecognised timestamp %s", raw)
	}
	return time.UnixMilli(int64(ms)), nil
}

// LoadFile reads events from a JSON file holding a bare array, a single event
// object or an object with a "reports" array. A missing file yields no events.
func LoadFile(path string) ([]Event, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read events: %w", err)
	}
	return Decode(data)
}

// Decode parses any of the accepted event file shapes.
func Decode(data []byte) ([]Event, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}

	if data[0] == '[' {
		var events []Event
		if err := json.Unmarshal(data, &events); err != nil {
			return nil, fmt.Errorf("decode events: %w", err)
		}
		return events, nil
	}

	var probe struct {
		Agent   string          `json:"agent"`
		Reports json.RawMessage `json:"reports"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("decode events: %w", err)
	}

	switch {
	case probe.Agent != "":
		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, fmt.Errorf("decode event: %w", err)
		}
		return []Event{ev}, nil
	case len(probe.Reports) > 0 && probe.Reports[0] == '[':
		var events []Event
		if err := json.Unmarshal(probe.Reports, &events); err != nil {
			return nil, fmt.Errorf("decode reports: %w", err)
		}
		return events, nil
	}
	return nil, nil
}
