package taskboard

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore(filepath.Join(t.TempDir(), "tasks.json"))
	s.now = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }
	return s
}

func TestList_MissingFileIsEmpty(t *testing.T) {
	tasks, err := newStore(t).List()
	require.NoError(t, err)
	assert.NotNil(t, tasks)
	assert.Empty(t, tasks)
}

func TestParseStatus(t *testing.T) {
	tests := map[string]Status{
		"":            StatusInbox,
		"inbox":       StatusInbox,
		"backlog":     StatusInbox,
		"TODO":        StatusAssigned,
		"doing":       StatusInProgress,
		"in_progress": StatusInProgress,
		"review":      StatusReview,
		" done ":      StatusDone,
	}
	for in, want := range tests {
		got, err := ParseStatus(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseStatus("archived")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestReplace_Normalizes(t *testing.T) {
	s := newStore(t)
	created := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

	saved, err := s.Replace([]Task{
		{ID: "t1", Title: "  Write launch post ", Status: "todo", CreatedAt: created},
		{Title: "Fix flaky test", Status: "doing", Assignee: "forge"},
	})
	require.NoError(t, err)
	require.Len(t, saved, 2)

	assert.Equal(t, "Write launch post", saved[0].Title)
	assert.Equal(t, StatusAssigned, saved[0].Status)
	assert.True(t, saved[0].CreatedAt.Equal(created))

	_, err = uuid.Parse(saved[1].ID)
	assert.NoError(t, err)
	assert.Equal(t, StatusInProgress, saved[1].Status)
	assert.False(t, saved[1].CreatedAt.IsZero())

	listed, err := s.List()
	require.NoError(t, err)
	assert.Equal(t, saved, listed)
}

func TestReplace_RejectsInvalid(t *testing.T) {
	s := newStore(t)

	_, err := s.Replace([]Task{{Title: "ok", Status: "someday"}})
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, err = s.Replace([]Task{{Title: "  "}})
	assert.ErrorIs(t, err, ErrInvalidTask)

	_, err = s.Replace([]Task{{ID: "a", Title: "x"}, {ID: "a", Title: "y"}})
	assert.ErrorIs(t, err, ErrInvalidTask)

	_, statErr := os.Stat(s.Path())
	assert.True(t, os.IsNotExist(statErr), "invalid input must not be written")
}

func TestReplace_EmptyListWritesArray(t *testing.T) {
	s := newStore(t)
	_, err := s.Replace(nil)
	require.NoError(t, err)

	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(data))
}

func TestAddAndMove(t *testing.T) {
	s := newStore(t)

	task, err := s.Add(Task{Title: "Research competitors", Assignee: "scout"})
	require.NoError(t, err)
	assert.Equal(t, StatusInbox, task.Status)

	moved, err := s.Move(task.ID, "review")
	require.NoError(t, err)
	assert.Equal(t, StatusReview, moved.Status)

	tasks, err := s.List()
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, StatusReview, tasks[0].Status)

	_, err = s.Move("missing", "done")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.Move(task.ID, "later")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestList_CorruptFile(t *testing.T) {
	s := newStore(t)
	require.NoError(t, os.WriteFile(s.Path(), []byte("{oops"), 0644))

	_, err := s.List()
	assert.Error(t, err)
}
