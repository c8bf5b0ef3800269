package daemon

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"missioncontrol/config"
)

// IsRunning reports whether a dashboard answers its health check on listen.
func IsRunning(listen string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, HealthURL(listen), nil)
	if err != nil {
		return false
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// HealthURL is the health endpoint for a listen address. Wildcard hosts are
// dialed on loopback.
func HealthURL(listen string) string {
	host := listen
	switch {
	case strings.HasPrefix(listen, ":"):
		host = "127.0.0.1" + listen
	case strings.HasPrefix(listen, "0.0.0.0:"):
		host = "127.0.0.1" + strings.TrimPrefix(listen, "0.0.0.0")
	}
	return "http://" + host + "/api/health"
}

// ReadPIDFile reads the PID from the configured PID file.
func ReadPIDFile() (int, error) {
	pidFile, err := config.GetPIDFile()
	if err != nil {
		return 0, err
	}
	return readPIDFile(pidFile)
}

func readPIDFile(pidFile string) (int, error) {
	data, err := os.ReadFile(pidFile)
	if err != nil {
		return 0, err
	}

	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return 0, fmt.Errorf("pid file %s is empty", pidFile)
	}

	pid, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, fmt.Errorf("invalid pid in %s: %w", pidFile, err)
	}

	if pid <= 0 {
		return 0, fmt.Errorf("invalid pid %d in %s", pid, pidFile)
	}

	return pid, nil
}

// CleanupStaleFiles removes a PID file left behind by a daemon that is no
// longer alive.
func CleanupStaleFiles() error {
	pidFile, err := config.GetPIDFile()
	if err != nil {
		return err
	}
	return cleanupPIDFile(pidFile)
}

func cleanupPIDFile(pidFile string) error {
	pid, err := readPIDFile(pidFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		if removeErr := os.Remove(pidFile); removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) {
			return fmt.Errorf("remove invalid pid file: %w", removeErr)
		}
		return nil
	}

	if isProcessRunning(pid) {
		return nil
	}
	if err := os.Remove(pidFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove stale pid file: %w", err)
	}
	return nil
}
