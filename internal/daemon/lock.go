package daemon

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"syscall"
)

// ErrAlreadyRunning is returned when another daemon instance already holds the lock.
var ErrAlreadyRunning = errors.New("daemon already running")

type processLock struct {
	file   *os.File
	path   string
	logger *slog.Logger
}

// acquireProcessLock takes an exclusive flock on pidFile and writes our pid
// into it.
func acquireProcessLock(pidFile string, logger *slog.Logger) (*processLock, error) {
	file, err := os.OpenFile(pidFile, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open pid file: %w", err)
	}

	if err := syscall.Flock(int(file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		file.Close()
		if errors.Is(err, syscall.EWOULDBLOCK) || errors.Is(err, syscall.EAGAIN) {
			logger.Warn("pid file is locked by another daemon", "path", pidFile)
			return nil, ErrAlreadyRunning
		}
		return nil, fmt.Errorf("lock pid file: %w", err)
	}

	logger.Debug("pid lock acquired", "path", pidFile, "pid", os.Getpid())
	lock := &processLock{file: file, path: pidFile, logger: logger}

	if err := file.Truncate(0); err != nil {
		lock.Release()
		return nil, fmt.Errorf("truncate pid file: %w", err)
	}
	if _, err := file.Seek(0, 0); err != nil {
		lock.Release()
		return nil, fmt.Errorf("seek pid file: %w", err)
	}
	if _, err := fmt.Fprintf(file, "%d\n", os.Getpid()); err != nil {
		lock.Release()
		return nil, fmt.Errorf("write pid file: %w", err)
	}
	if err := file.Sync(); err != nil {
		lock.Release()
		return nil, fmt.Errorf("sync pid file: %w", err)
	}

	return lock, nil
}

func (l *processLock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}

	var releaseErr error

	// Remove before unlocking so a new daemon never sees our stale pid.
	if err := os.Remove(l.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		releaseErr = errors.Join(releaseErr, fmt.Errorf("remove pid file: %w", err))
	}
	if err := syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN); err != nil {
		releaseErr = errors.Join(releaseErr, fmt.Errorf("unlock pid file: %w", err))
	}
	if err := l.file.Close(); err != nil {
		releaseErr = errors.Join(releaseErr, fmt.Errorf("close pid file: %w", err))
	}

	l.logger.Debug("pid lock released", "path", l.path)
	l.file = nil
	return releaseErr
}
