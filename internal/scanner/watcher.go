package scanner

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"missioncontrol/internal/agent"
)

const (
	defaultDebounce = 500 * time.Millisecond
	workingFile     = "WORKING.md"
)

// watcher turns WORKING.md writes into debounced scan triggers. Polling still
// runs, so directories that appear later are picked up on the next tick even
// if the watch cannot be added.
type watcher struct {
	fs       *fsnotify.Watcher
	root     string
	roster   *agent.Roster
	debounce time.Duration
	fire     func()
	logger   *slog.Logger
}

func newWatcher(root string, roster *agent.Roster, debounce time.Duration, fire func(), logger *slog.Logger) (*watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &watcher{fs: fw, root: root, roster: roster, debounce: debounce, fire: fire, logger: logger}
	w.addExisting()
	return w, nil
}

// addExisting watches every agent memory directory that exists right now.
func (w *watcher) addExisting() {
	for _, id := range w.roster.IDs() {
		dir := agent.MemoryDir(w.root, id)
		if st, err := os.Stat(dir); err != nil || !st.IsDir() {
			continue
		}
		if err := w.fs.Add(dir); err != nil {
			w.logger.Debug("cannot watch memory directory", "dir", dir, "error", err)
		}
	}
}

func (w *watcher) run(ctx context.Context) {
	defer w.fs.Close()

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	// Memory directories created after start are added here.
	rescan := time.NewTicker(time.Minute)
	defer rescan.Stop()

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != workingFile {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			timer.Reset(w.debounce)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Warn("file watcher error", "error", err)
		case <-timer.C:
			w.fire()
		case <-rescan.C:
			w.addExisting()
		}
	}
}
