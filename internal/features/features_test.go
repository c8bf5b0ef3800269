package features

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const seed = `[
  {"id": "f1", "title": "Dark mode", "status": "proposed", "proposedBy": "beacon", "votes": 3},
  {"id": "f2", "title": "CSV export", "status": "proposed"}
]`

func newStore(t *testing.T, content string) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "reports", "features.json")
	if content != "" {
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	s := NewStore(path, "ben")
	s.now = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }
	return s
}

func TestList(t *testing.T) {
	_, err := newStore(t, "").List()
	assert.ErrorIs(t, err, ErrNoFeatures)

	list, err := newStore(t, seed).List()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "f1", list[0].ID())
	assert.Equal(t, "Dark mode", list[0].Title())
	assert.Equal(t, "proposed", list[0].Status())
}

func TestSetStatus_Approve(t *testing.T) {
	s := newStore(t, seed)

	f, err := s.SetStatus("f1", StatusApproved, "ship it")
	require.NoError(t, err)
	assert.Equal(t, "approved", f.Status())
	assert.Equal(t, "ben", f["approvedBy"])
	assert.Equal(t, "2024-06-01T12:00:00Z", f["approvedAt"])
	assert.Equal(t, "ship it", f["notes"])

	data, err := os.ReadFile(s.path)
	require.NoError(t, err)
	var raw []map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "beacon", raw[0]["proposedBy"], "unknown fields are preserved")
	assert.EqualValues(t, 3, raw[0]["votes"])
	assert.Equal(t, "proposed", raw[1]["status"])
}

func TestSetStatus_Decline(t *testing.T) {
	s := newStore(t, seed)

	f, err := s.SetStatus("f2", StatusDeclined, "")
	require.NoError(t, err)
	assert.Equal(t, "ben", f["declinedBy"])
	_, hasNotes := f["notes"]
	assert.False(t, hasNotes)
	_, approved := f["approvedBy"]
	assert.False(t, approved)
}

func TestSetStatus_Errors(t *testing.T) {
	_, err := newStore(t, seed).SetStatus("missing", StatusApproved, "")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = newStore(t, "").SetStatus("f1", StatusApproved, "")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = newStore(t, seed).SetStatus("f1", " ", "")
	assert.ErrorIs(t, err, ErrInvalid)
}
