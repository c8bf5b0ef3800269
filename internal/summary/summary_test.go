package summary

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"missioncontrol/internal/agent"
	"missioncontrol/internal/history"
	"missioncontrol/internal/publish"
)

var now = time.Date(2024, 6, 1, 15, 20, 0, 0, time.UTC)

func tasks(rows []Row) []string {
	var out []string
	for _, r := range rows {
		out = append(out, r.Agent.ID+":"+r.Task)
	}
	return out
}

func TestBuild_Buckets(t *testing.T) {
	events := []history.Event{
		{Agent: "forge", Task: "API", Accomplished: "Built endpoint", Blocking: "None", Timestamp: now.Add(-time.Hour)},
		{Agent: "beacon", Task: "Roadmap", Accomplished: "Drafted Q3", Blocking: "", Timestamp: now.Add(-50 * time.Minute)},
		{Agent: "scout", Task: "Market", Accomplished: "Half done", Blocking: "Paywalled data", Timestamp: now.Add(-40 * time.Minute)},
		{Agent: "echo", Task: "Post", Blocking: "Needs review", Timestamp: now.Add(-30 * time.Minute)},
		{Agent: "forge", Task: "Tests", Timestamp: now.Add(-10 * time.Minute)},
	}

	s := Build(events, now, 2*time.Hour, agent.DefaultRoster())

	assert.Equal(t, []string{"forge:API", "beacon:Roadmap"}, tasks(s.Completed))
	assert.Equal(t, []string{"scout:Market"}, tasks(s.InProgress))
	assert.Equal(t, []string{"scout:Market", "echo:Post"}, tasks(s.Blockers))
	assert.Equal(t, []string{"beacon:Roadmap", "forge:Tests", "echo:Post", "scout:Market"}, tasks(s.Next))
	assert.Equal(t, 5, s.Reports)
	assert.Equal(t, 4, s.Agents)
}

func TestBuild_ExcludesEventsOutsideWindow(t *testing.T) {
	events := []history.Event{
		{Agent: "forge", Task: "Ancient", Accomplished: "old work", Blocking: "old blocker", Timestamp: now.Add(-3 * time.Hour)},
		{Agent: "forge", Task: "Boundary", Accomplished: "edge", Timestamp: now.Add(-2 * time.Hour)},
		{Agent: "echo", Task: "Fresh", Accomplished: "new work", Timestamp: now.Add(-time.Minute)},
	}

	s := Build(events, now, 2*time.Hour, agent.DefaultRoster())

	for _, bucket := range [][]Row{s.Completed, s.InProgress, s.Blockers, s.Next} {
		for _, r := range bucket {
			assert.NotEqual(t, "forge", r.Agent.ID, "event outside window leaked into a bucket")
		}
	}
	assert.Equal(t, []string{"echo:Fresh"}, tasks(s.Completed))
	assert.Equal(t, 1, s.Reports)
}

func TestBuild_DropsUnknownAgents(t *testing.T) {
	events := []history.Event{
		{Agent: "ghost", Task: "Haunt", Accomplished: "boo", Timestamp: now.Add(-time.Minute)},
	}
	s := Build(events, now, time.Hour, agent.DefaultRoster())

	assert.Empty(t, s.Completed)
	assert.Empty(t, s.Next)
	assert.Zero(t, s.Reports)
}

func TestBuild_TruncatesLongText(t *testing.T) {
	long := strings.Repeat("x", 120)
	events := []history.Event{
		{Agent: "forge", Task: "Long", Accomplished: long, Timestamp: now.Add(-time.Minute)},
		{Agent: "echo", Task: "Short", Accomplished: "tiny", Timestamp: now.Add(-time.Minute)},
	}
	s := Build(events, now, time.Hour, agent.DefaultRoster())

	require.Len(t, s.Completed, 2)
	assert.Equal(t, strings.Repeat("x", 80)+"...", s.Completed[0].Text)
	assert.Equal(t, "tiny", s.Completed[1].Text)
}

func TestMarkdown(t *testing.T) {
	events := []history.Event{
		{Agent: "forge", Task: "API", Accomplished: "Built | endpoint", Blocking: "None", Timestamp: now.Add(-time.Hour)},
		{Agent: "scout", Task: "Market", Accomplished: "Half done", Blocking: "Paywalled data", Timestamp: now.Add(-40 * time.Minute)},
	}
	md := Build(events, now, 2*time.Hour, agent.DefaultRoster()).Markdown()

	assert.True(t, strings.HasPrefix(md, "# 🤖 Hourly Agent Report (3:00 PM)\n\n*Generated: Saturday, Jun 1*\n\n"))
	assert.Contains(t, md, "| 🔨 Forge | API | Built \\| endpoint |\n")
	assert.Contains(t, md, "## 🔥 In Progress\n\n| Agent | Task | Status |\n|-------|------|--------|\n| 🔭 Scout | Market | Working... |\n")
	assert.Contains(t, md, "## ⚠️ Blockers\n\n- **Scout**: Paywalled data\n")
	assert.Contains(t, md, "## 📋 Next Hour\n\n- 🔨 Forge: API\n- 🔭 Scout: Market\n")
	assert.True(t, strings.HasSuffix(md, "\n---\n*2 reports from 2 agents*\n"))
}

func TestMarkdown_OmitsEmptyOptionalSections(t *testing.T) {
	md := Build(nil, now, time.Hour, agent.DefaultRoster()).Markdown()

	assert.Contains(t, md, "## ✅ Completed This Hour")
	assert.NotContains(t, md, "In Progress")
	assert.NotContains(t, md, "Blockers")
	assert.Contains(t, md, "*0 reports from 0 agents*")
}

type sliceSource []history.Event

func (s sliceSource) Events(context.Context, time.Time) ([]history.Event, error) { return s, nil }

type countingPublisher struct{ calls int }

func (p *countingPublisher) Publish(context.Context, string, ...string) publish.Outcome {
	p.calls++
	return publish.Ok()
}

func TestGenerator_NothingToSummarize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hourly-report.md")
	pub := &countingPublisher{}
	g := &Generator{Source: sliceSource(nil), Roster: agent.DefaultRoster(), Path: path, Publisher: pub, Now: func() time.Time { return now }}

	_, _, err := g.GenerateAndPublish(context.Background())
	assert.True(t, errors.Is(err, ErrNothingToSummarize))
	assert.Zero(t, pub.calls)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestGenerator_WritesAndPublishes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports", "hourly-report.md")
	pub := &countingPublisher{}
	g := &Generator{
		Source:    sliceSource{{Agent: "echo", Task: "Post", Accomplished: "Shipped", Timestamp: now.Add(-time.Minute)}},
		Roster:    agent.DefaultRoster(),
		Window:    time.Hour,
		Path:      path,
		Publisher: pub,
		Now:       func() time.Time { return now },
	}

	s, out, err := g.GenerateAndPublish(context.Background())
	require.NoError(t, err)
	assert.True(t, out.OK())
	assert.Equal(t, 1, pub.calls)
	assert.Equal(t, 1, s.Reports)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "| 📢 Echo | Post | Shipped |")
}

func TestGenerator_RunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	g := &Generator{Source: sliceSource(nil), Roster: agent.DefaultRoster(), Path: filepath.Join(t.TempDir(), "h.md")}

	done := make(chan error, 1)
	go func() { done <- g.Run(ctx, 5*time.Millisecond) }()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
