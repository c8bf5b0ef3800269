package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"syscall"
	"time"

	"missioncontrol/config"
	"missioncontrol/internal/daemon"
)

const (
	startupWait = 5 * time.Second
	stopGrace   = 5 * time.Second
)

// StartDaemonBackground re-executes the binary with --foreground, detached
// from the terminal, and waits for the dashboard to answer.
func StartDaemonBackground(out io.Writer, settings *config.Settings, configPath string) error {
	if daemon.IsRunning(settings.Listen) {
		return fmt.Errorf("daemon is already running at %s", settings.Listen)
	}
	if err := daemon.CleanupStaleFiles(); err != nil {
		fmt.Fprintf(out, "%s %v\n", warnStyle.Render("warning: cleanup failed:"), err)
	}

	executable, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get executable path: %w", err)
	}
	logPath, err := config.GetDaemonLogPath()
	if err != nil {
		return err
	}
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer logFile.Close()

	args := []string{"daemon", "start", "--foreground"}
	if configPath != "" {
		args = append(args, "--config", configPath)
	}
	cmd := exec.Command(executable, args...)
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start daemon: %w", err)
	}
	pid := cmd.Process.Pid
	_ = cmd.Process.Release()

	fmt.Fprintln(out, "Starting daemon in background...")
	deadline := time.Now().Add(startupWait)
	for time.Now().Before(deadline) {
		time.Sleep(250 * time.Millisecond)
		if daemon.IsRunning(settings.Listen) {
			fmt.Fprintf(out, "%s Daemon started (PID %d), dashboard at %s\n", successStyle.Render("✓"), pid, "http://"+settings.Listen)
			return nil
		}
	}
	return fmt.Errorf("daemon did not answer within %s; see %s", startupWait, logPath)
}

// RunDaemonForeground runs the daemon in this process until ctx ends.
func RunDaemonForeground(ctx context.Context, settings *config.Settings, logger *slog.Logger) error {
	srv := daemon.NewServer(settings, daemon.WithLogger(logger))
	err := srv.Run(ctx)
	if errors.Is(err, daemon.ErrAlreadyRunning) {
		return fmt.Errorf("another daemon holds the PID lock: %w", err)
	}
	return err
}

// StopDaemon signals the daemon recorded in the PID file.
func StopDaemon(out io.Writer, logger *slog.Logger) error {
	pid, err := daemon.ReadPIDFile()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintln(out, "Daemon is not running")
			return nil
		}
		return fmt.Errorf("error reading PID: %w", err)
	}

	fmt.Fprintf(out, "Stopping daemon (PID: %d)...\n", pid)
	if err := daemon.Stop(pid, stopGrace, logger); err != nil {
		return err
	}
	if err := daemon.CleanupStaleFiles(); err != nil {
		logger.Warn("cleanup failed", "error", err)
	}
	fmt.Fprintf(out, "%s Daemon stopped\n", successStyle.Render("✓"))
	return nil
}

// DaemonStatus prints whether the daemon answers and returns false when not.
func DaemonStatus(out io.Writer, settings *config.Settings) bool {
	pid, _ := daemon.ReadPIDFile()
	if daemon.IsRunning(settings.Listen) {
		line := fmt.Sprintf("%s Daemon is running at http://%s", successStyle.Render("●"), settings.Listen)
		if pid > 0 {
			line += mutedStyle.Render(fmt.Sprintf(" (PID %d)", pid))
		}
		fmt.Fprintln(out, line)
		return true
	}
	fmt.Fprintf(out, "%s Daemon is not running\n", mutedStyle.Render("○"))
	return false
}
