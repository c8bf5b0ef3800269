package daemon

import (
	"fmt"
	"log/slog"
	"os"
	"syscall"
	"time"
)

// killProcess sends a signal to a single process
func killProcess(pid int, signal syscall.Signal) error {
	if pid <= 0 {
		return fmt.Errorf("invalid process id: %d", pid)
	}

	err := syscall.Kill(pid, signal)
	if err != nil {
		// ESRCH means no such process, which is fine (already dead)
		if err == syscall.ESRCH {
			return nil
		}
		return fmt.Errorf("failed to signal process %d: %w", pid, err)
	}

	return nil
}

// waitForProcessExit waits for a process to exit, returns true if it exited within timeout
func waitForProcessExit(pid int, timeout time.Duration) bool {
	if pid <= 0 {
		return true
	}

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if !isProcessRunning(pid) {
			return true
		}
		time.Sleep(100 * time.Millisecond)
	}

	return false
}

// isProcessRunning checks if a process is still running
func isProcessRunning(pid int) bool {
	if pid <= 0 {
		return false
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	err = process.Signal(syscall.Signal(0))
	return err == nil
}

// Stop asks the daemon to exit with SIGTERM and escalates to SIGKILL when it
// has not exited within grace.
func Stop(daemonPID int, grace time.Duration, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if !isProcessRunning(daemonPID) {
		logger.Info("daemon is not running", "pid", daemonPID)
		return nil
	}

	logger.Info("sending SIGTERM to daemon", "pid", daemonPID)
	if err := killProcess(daemonPID, syscall.SIGTERM); err != nil {
		return err
	}
	if waitForProcessExit(daemonPID, grace) {
		logger.Info("daemon exited gracefully", "pid", daemonPID)
		return nil
	}

	logger.Warn("daemon did not respond to SIGTERM, sending SIGKILL", "pid", daemonPID)
	if err := killProcess(daemonPID, syscall.SIGKILL); err != nil {
		return err
	}
	if !waitForProcessExit(daemonPID, 2*time.Second) {
		return fmt.Errorf("daemon process %d could not be stopped", daemonPID)
	}
	return nil
}
