// Package watch implements an fsnotify-backed project watcher: instead
// of polling a deployed project tree for drift, it subscribes to
// filesystem change notifications under the project's .claude/ root
// and republishes each one as events.DeploymentDrifted, without a scan
// loop. It does not compare content hashes itself.
package watch

import (
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/miethe/skillmeat/internal/events"
	"github.com/miethe/skillmeat/internal/logger"
)

// Watcher watches one project's .claude/ directory tree.
type Watcher struct {
	fsw       *fsnotify.Watcher
	bus       *events.Bus
	log       logger.Logger
	projectID string
	done      chan struct{}
}

// New starts watching every directory under claudeRoot (recursively
// adding new subdirectories as fsnotify reports them created, since
// fsnotify itself is not recursive).
func New(bus *events.Bus, projectID, claudeRoot string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{fsw: fsw, bus: bus, log: logger.New("watch"), projectID: projectID, done: make(chan struct{})}
	if err := w.addRecursive(claudeRoot); err != nil {
		fsw.Close()
		return nil, err
	}
	go w.run()
	return w, nil
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.fsw.Add(path)
		}
		return nil
	})
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fsw.Close()
}

func (w *Watcher) run() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = w.fsw.Add(event.Name)
				}
			}
			w.bus.Publish(events.Event{
				Type:   events.DeploymentDrifted,
				Source: "watch",
				Data: map[string]interface{}{
					"project_id": w.projectID,
					"path":       event.Name,
					"op":         event.Op.String(),
				},
			})
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn("fsnotify error", logger.String("project_id", w.projectID), logger.Error(err))
		}
	}
}
