package daemon

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"missioncontrol/config"
)

func testSettings(t *testing.T) *config.Settings {
	t.Helper()
	dir := t.TempDir()
	s := config.Default()
	s.AgentsRoot = filepath.Join(dir, "agents")
	s.Workspace = filepath.Join(dir, "workspace")
	s.Listen = "127.0.0.1:0"
	s.Owner = "tester"
	s.Publish.Enabled = false
	return s
}

func writeWorking(t *testing.T, root, id, content string) {
	t.Helper()
	dir := filepath.Join(root, id, "memory")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "WORKING.md"), []byte(content), 0644))
}

func TestProcessLock_Exclusive(t *testing.T) {
	pidFile := filepath.Join(t.TempDir(), "mc.pid")
	logger := slog.New(slog.DiscardHandler)

	lock, err := acquireProcessLock(pidFile, logger)
	require.NoError(t, err)

	pid, err := readPIDFile(pidFile)
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)

	_, err = acquireProcessLock(pidFile, logger)
	assert.ErrorIs(t, err, ErrAlreadyRunning)

	require.NoError(t, lock.Release())
	assert.NoFileExists(t, pidFile)
	assert.NoError(t, lock.Release())

	again, err := acquireProcessLock(pidFile, logger)
	require.NoError(t, err)
	require.NoError(t, again.Release())
}

func TestReadPIDFile_Invalid(t *testing.T) {
	dir := t.TempDir()
	for name, content := range map[string]string{"empty": "  \n", "garbage": "abc", "negative": "-4"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			require.NoError(t, os.WriteFile(path, []byte(content), 0644))
			_, err := readPIDFile(path)
			assert.Error(t, err)
		})
	}
}

func TestCleanupPIDFile(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, cleanupPIDFile(filepath.Join(dir, "missing.pid")))

	stale := filepath.Join(dir, "stale.pid")
	require.NoError(t, os.WriteFile(stale, []byte("2147483646\n"), 0644))
	require.NoError(t, cleanupPIDFile(stale))
	assert.NoFileExists(t, stale)

	invalid := filepath.Join(dir, "invalid.pid")
	require.NoError(t, os.WriteFile(invalid, []byte("nope"), 0644))
	require.NoError(t, cleanupPIDFile(invalid))
	assert.NoFileExists(t, invalid)

	live := filepath.Join(dir, "live.pid")
	require.NoError(t, os.WriteFile(live, []byte(fmt.Sprintf("%d\n", os.Getpid())), 0644))
	require.NoError(t, cleanupPIDFile(live))
	assert.FileExists(t, live)
}

func TestHealthURL(t *testing.T) {
	assert.Equal(t, "http://127.0.0.1:3000/api/health", HealthURL(":3000"))
	assert.Equal(t, "http://127.0.0.1:3000/api/health", HealthURL("0.0.0.0:3000"))
	assert.Equal(t, "http://localhost:8080/api/health", HealthURL("localhost:8080"))
}

func TestIsRunning_NothingListening(t *testing.T) {
	assert.False(t, IsRunning("127.0.0.1:1"))
}

func TestBuild(t *testing.T) {
	settings := testSettings(t)
	comps, err := Build(context.Background(), settings, filepath.Join(t.TempDir(), "mc.db"), nil)
	require.NoError(t, err)
	defer comps.Close()

	assert.Equal(t, 5, comps.Roster.Len())
	assert.Equal(t, settings.ReportDocumentPath(), comps.Reports.Store().Path())

	writeWorking(t, settings.AgentsRoot, "forge", "✅ ACTIVE\n## Current Task\nShip the scanner\n- [x] wrote tests\n")
	res := comps.NewScanner(nil).Scan(context.Background())
	require.Len(t, res.Changed, 1)
	assert.Equal(t, "Ship the scanner", res.Changed[0].CurrentTask)

	events, err := comps.History.Events(context.Background(), time.Now().Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "forge", events[0].Agent)

	gen := comps.NewGenerator(nil, 0, nil)
	sum, err := gen.Generate(context.Background())
	require.NoError(t, err)
	assert.Len(t, sum.Next, 1)
	assert.FileExists(t, settings.HourlyReportPath())

	require.NoError(t, comps.Close())
	require.NoError(t, comps.Close())
}

func TestServer_RunServesAndStops(t *testing.T) {
	settings := testSettings(t)
	dir := t.TempDir()
	pidFile := filepath.Join(dir, "mc.pid")

	addrCh := make(chan string, 1)
	srv := NewServer(settings,
		WithPaths(pidFile, filepath.Join(dir, "mc.db")),
		WithTokenSource(func() (string, error) { return "tok", nil }),
		WithReady(func(addr string) { addrCh <- addr }),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	var addr string
	select {
	case addr = <-addrCh:
	case err := <-done:
		t.Fatalf("daemon exited early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("daemon did not become ready")
	}

	assert.True(t, IsRunning(addr))
	assert.FileExists(t, pidFile)

	resp, err := http.Post("http://"+addr+"/api/services/api/stop", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, err = http.Get("http://" + addr + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), "missioncontrol_"), "scanner metrics are exported")

	second := NewServer(settings, WithPaths(pidFile, filepath.Join(dir, "other.db")))
	assert.ErrorIs(t, second.Run(context.Background()), ErrAlreadyRunning)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("daemon did not stop")
	}
	assert.NoFileExists(t, pidFile)
}

func TestOpenLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "daemon.log")
	logger, closer, err := OpenLogFile(path, slog.LevelInfo)
	require.NoError(t, err)
	logger.Info("hello", "k", "v")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "msg=hello")
	assert.Contains(t, string(data), "k=v")
}
