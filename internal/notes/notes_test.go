package notes

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"missioncontrol/internal/agent"
	"missioncontrol/internal/extract"
)

const working = `# Forge

## Current Task
Refactor billing

✅ ACTIVE

## Ideas
Cache invoices per tenant

## Research:
Stripe webhooks retry for 3 days

## Recent Progress
- ✅ Split billing module into packages
- ok
⏳ Wrote migration for invoices table

- fourth line is ignored

## Next Steps
1. Add tests
2. Ship
- not numbered
`

func writeFile(t *testing.T, path, content string, mtime time.Time) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	if !mtime.IsZero() {
		require.NoError(t, os.Chtimes(path, mtime, mtime))
	}
}

func newReader(t *testing.T) (*Reader, string) {
	t.Helper()
	root := t.TempDir()
	r, err := NewReader(root, agent.DefaultRoster())
	require.NoError(t, err)
	return r, root
}

func find(t *testing.T, all []AgentNotes, id string) AgentNotes {
	t.Helper()
	for _, n := range all {
		if n.Agent.ID == id {
			return n
		}
	}
	t.Fatalf("agent %s not found", id)
	return AgentNotes{}
}

func TestAgents_FindingsAndStatus(t *testing.T) {
	r, root := newReader(t)
	writeFile(t, agent.MemoryFile(root, "forge"), working, time.Time{})

	all := r.Agents()
	require.Len(t, all, 5)

	forge := find(t, all, "forge")
	assert.Equal(t, extract.StatusActive, forge.Status)
	assert.Equal(t, "Refactor billing", forge.CurrentTask)
	assert.NotNil(t, forge.LastActive)
	assert.Equal(t, []Finding{
		{Type: "idea", Content: "Cache invoices per tenant"},
		{Type: "research", Content: "Stripe webhooks retry for 3 days"},
	}, forge.Findings)

	echo := find(t, all, "echo")
	assert.Equal(t, extract.StatusIdle, echo.Status)
	assert.Equal(t, extract.DefaultTask, echo.CurrentTask)
	assert.Nil(t, echo.LastActive)
	assert.Empty(t, echo.Findings)
	assert.Empty(t, echo.RecentNotes)
}

func TestAgents_RecentNotes(t *testing.T) {
	r, root := newReader(t)
	dir := agent.NotesDir(root, "scout")
	base := time.Now().Add(-time.Hour)

	for i, name := range []string{"a.md", "b.md", "c.md", "d.md", "e.md", "f.md"} {
		writeFile(t, filepath.Join(dir, name), "note "+name, base.Add(time.Duration(i)*time.Minute))
	}
	writeFile(t, filepath.Join(dir, "skip.txt"), "not markdown", time.Time{})
	long := make([]rune, 600)
	for i := range long {
		long[i] = 'é'
	}
	writeFile(t, filepath.Join(dir, "long.md"), string(long), base.Add(time.Hour))

	scout := find(t, r.Agents(), "scout")
	require.Len(t, scout.RecentNotes, 5)
	assert.Equal(t, "long.md", scout.RecentNotes[0].File)
	assert.Len(t, []rune(scout.RecentNotes[0].Content), 500)
	assert.Equal(t, "f.md", scout.RecentNotes[1].File)
	assert.Equal(t, "c.md", scout.RecentNotes[4].File)
}

func TestActivities(t *testing.T) {
	r, root := newReader(t)
	writeFile(t, agent.MemoryFile(root, "forge"), working, time.Time{})

	acts := r.Activities()
	require.Len(t, acts, 3)
	assert.Equal(t, "Split billing module into packages", acts[0].Action)
	assert.Equal(t, "Recent", acts[0].Time)
	assert.Equal(t, "🔨", acts[0].AgentAvatar)
	assert.Equal(t, "Wrote migration for invoices table", acts[1].Action)
	assert.Equal(t, "Has 2 pending tasks", acts[2].Action)
	assert.Equal(t, "Pending", acts[2].Time)
}

func TestIdeas(t *testing.T) {
	r, root := newReader(t)
	writeFile(t, filepath.Join(agent.NotesDir(root, "beacon"), "ideas.md"),
		"# Ideas\n- Weekly digest email for power users\n- short\n  - Referral credits for teams\ntext - inline dash\n", time.Time{})
	writeFile(t, filepath.Join(agent.NotesDir(root, "forge"), "ideas.md"), "- Not from the ideas agent at all", time.Time{})

	ideas := r.Ideas()
	require.Len(t, ideas, 2)
	assert.Equal(t, "Weekly digest email for power users", ideas[0].Text)
	assert.Equal(t, "ideas.md", ideas[0].Source)
	assert.Equal(t, "Referral credits for teams", ideas[1].Text)
}

func TestIdeas_AgentOutsideRoster(t *testing.T) {
	root := t.TempDir()
	r, err := NewReader(root, agent.DefaultRoster(), WithIdeasAgent("oracle"))
	require.NoError(t, err)
	assert.Empty(t, r.Ideas())
}

func TestLoad_CacheInvalidatesOnChange(t *testing.T) {
	r, root := newReader(t)
	path := agent.MemoryFile(root, "echo")
	t0 := time.Now().Add(-time.Hour)

	writeFile(t, path, "## Current Task\nFirst draft", t0)
	assert.Equal(t, "First draft", find(t, r.Agents(), "echo").CurrentTask)
	assert.Equal(t, 1, r.cache.Len())

	writeFile(t, path, "## Current Task\nSecond draft", t0.Add(time.Minute))
	assert.Equal(t, "Second draft", find(t, r.Agents(), "echo").CurrentTask)
}
