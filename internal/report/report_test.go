package report

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"missioncontrol/internal/agent"
	"missioncontrol/internal/extract"
	"missioncontrol/internal/history"
	"missioncontrol/internal/publish"
)

type memoryRecorder struct {
	events []history.Event
	err    error
}

func (m *memoryRecorder) Record(_ context.Context, events ...history.Event) error {
	m.events = append(m.events, events...)
	return m.err
}

type stubPublisher struct {
	out      publish.Outcome
	messages []string
	paths    [][]string
}

func (p *stubPublisher) Publish(_ context.Context, message string, paths ...string) publish.Outcome {
	p.messages = append(p.messages, message)
	p.paths = append(p.paths, paths)
	return p.out
}

var fixedNow = time.Date(2024, 6, 1, 15, 4, 0, 0, time.UTC)

func newTestService(t *testing.T, opts ...Option) (*Service, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "reports", "agent-reports.json")
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	return NewService(NewStore(path, nil), agent.DefaultRoster(), opts...), path
}

func TestStore_LoadOrInit(t *testing.T) {
	dir := t.TempDir()

	missing := NewStore(filepath.Join(dir, "missing.json"), nil).LoadOrInit()
	assert.Empty(t, missing.Agents)
	assert.Nil(t, missing.LastUpdated)

	corruptPath := filepath.Join(dir, "corrupt.json")
	require.NoError(t, os.WriteFile(corruptPath, []byte("{not json"), 0644))
	corrupt := NewStore(corruptPath, nil).LoadOrInit()
	assert.NotNil(t, corrupt.Agents)
	assert.Empty(t, corrupt.Agents)

	legacyPath := filepath.Join(dir, "legacy.json")
	require.NoError(t, os.WriteFile(legacyPath, []byte(`{"agents":{"forge":{"name":"Forge","status":"active"}},"lastUpdated":null}`), 0644))
	legacy := NewStore(legacyPath, nil).LoadOrInit()
	r, ok := legacy.Get("forge")
	require.True(t, ok)
	assert.Equal(t, "forge", r.AgentID)
	assert.Equal(t, extract.StatusActive, r.Status)
}

func TestStore_SaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "agent-reports.json")
	store := NewStore(path, nil)

	doc := NewDocument()
	doc.Update("echo", AgentReport{Name: "Echo", Status: extract.StatusIdle, CurrentTask: "Write"}, fixedNow)
	require.NoError(t, store.Save(doc))

	loaded := store.LoadOrInit()
	require.NotNil(t, loaded.LastUpdated)
	assert.True(t, loaded.LastUpdated.Equal(fixedNow))
	assert.Equal(t, "Write", loaded.Agents["echo"].CurrentTask)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestService_UpdateUnknownAgent(t *testing.T) {
	svc, path := newTestService(t)

	_, _, err := svc.Update(context.Background(), UpdateRequest{AgentID: "ghost", Status: "active"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownAgent))

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "no document written for unknown agent")
}

func TestService_UpdateInvalidStatus(t *testing.T) {
	svc, _ := newTestService(t)

	_, _, err := svc.Update(context.Background(), UpdateRequest{AgentID: "forge", Status: "sleeping"})
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestService_UpdateDefaultsAndRecords(t *testing.T) {
	rec := &memoryRecorder{}
	svc, _ := newTestService(t, WithRecorder(rec))

	r, out, err := svc.Update(context.Background(), UpdateRequest{AgentID: "beacon"})
	require.NoError(t, err)
	assert.True(t, out.OK())

	assert.Equal(t, "Beacon", r.Name)
	assert.Equal(t, "Product Strategist", r.Role)
	assert.Equal(t, extract.StatusIdle, r.Status)
	assert.Equal(t, extract.DefaultTask, r.CurrentTask)
	assert.Equal(t, "Jun 1, 3:04 PM", r.LastReport)

	require.Len(t, rec.events, 1)
	assert.Equal(t, history.NoBlocker, rec.events[0].Blocking)
	assert.False(t, rec.events[0].HasBlocker())
}

func TestService_UpdatePublishes(t *testing.T) {
	pub := &stubPublisher{out: publish.Failed(publish.StepPush, "rejected")}
	svc, path := newTestService(t, WithPublisher(pub))

	_, out, err := svc.Update(context.Background(), UpdateRequest{
		AgentID: "forge", Status: "blocked", CurrentTask: "Deploy", Report: "waiting on creds", Publish: true,
	})
	require.NoError(t, err)
	assert.False(t, out.OK())
	assert.Equal(t, publish.StepPush, out.Step)
	assert.Equal(t, []string{"Update Forge report"}, pub.messages)
	assert.Equal(t, [][]string{{path}}, pub.paths)

	doc := svc.Snapshot()
	assert.Equal(t, extract.StatusBlocked, doc.Agents["forge"].Status)
}

func TestService_UpdateWithoutPublish(t *testing.T) {
	pub := &stubPublisher{}
	svc, _ := newTestService(t, WithPublisher(pub))

	_, _, err := svc.Update(context.Background(), UpdateRequest{AgentID: "forge", Status: "active"})
	require.NoError(t, err)
	assert.Empty(t, pub.messages)
}

func TestService_ApplyKeepsOtherAgents(t *testing.T) {
	rec := &memoryRecorder{}
	svc, _ := newTestService(t, WithRecorder(rec))
	ctx := context.Background()

	_, err := svc.Apply(ctx, []Entry{{AgentID: "echo", Status: extract.StatusActive, CurrentTask: "Blog"}})
	require.NoError(t, err)

	applied, err := svc.Apply(ctx, []Entry{
		{AgentID: "scout", Status: extract.StatusBlocked, CurrentTask: "Need API key"},
		{AgentID: "sentinel", Status: extract.StatusIdle, Report: "All green"},
	})
	require.NoError(t, err)
	require.Len(t, applied, 2)

	doc := svc.Snapshot()
	assert.Len(t, doc.Agents, 3)
	assert.Equal(t, "Blog", doc.Agents["echo"].CurrentTask)

	require.Len(t, rec.events, 3)
	assert.Equal(t, "Need API key", rec.events[1].Blocking)
	assert.Equal(t, "All green", rec.events[2].Accomplished)
}

func TestService_ApplyRejectsUnknownAgent(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Apply(context.Background(), []Entry{{AgentID: "forge"}, {AgentID: "ghost"}})
	assert.ErrorIs(t, err, ErrUnknownAgent)
	assert.Empty(t, svc.Snapshot().Agents)
}

func TestService_RecorderFailureIsNotFatal(t *testing.T) {
	svc, _ := newTestService(t, WithRecorder(&memoryRecorder{err: errors.New("db locked")}))

	_, _, err := svc.Update(context.Background(), UpdateRequest{AgentID: "echo", Status: "active"})
	assert.NoError(t, err)
}
