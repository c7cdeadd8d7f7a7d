package schedules

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/teranos/cronstore/errors"
	"github.com/teranos/cronstore/logger"
)

// Watcher reloads a Registry whenever its schedules file changes.
type Watcher struct {
	path     string
	registry *Registry
	watcher  *fsnotify.Watcher
	log      *zap.SugaredLogger

	mu             sync.Mutex
	debounceTimer  *time.Timer
	debouncePeriod time.Duration
	done           chan struct{}
}

// NewWatcher watches path's directory so editor rename-and-replace saves are seen.
func NewWatcher(path string, registry *Registry, log *zap.SugaredLogger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create fsnotify watcher")
	}
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, errors.Wrapf(err, "failed to watch schedules file %s", path)
	}
	return &Watcher{
		path:           filepath.Clean(path),
		registry:       registry,
		watcher:        fw,
		log:            logger.AddSchedulesSymbol(log),
		debouncePeriod: 250 * time.Millisecond,
		done:           make(chan struct{}),
	}, nil
}

// Start begins watching in the background.
func (w *Watcher) Start() {
	go w.watchLoop()
}

// Stop ends watching.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.mu.Unlock()
	return w.watcher.Close()
}

// Reload reads the file and replaces the registry table.
func (w *Watcher) Reload() error {
	table, err := LoadFile(w.path)
	if err != nil {
		return err
	}
	if err := w.registry.Replace(table); err != nil {
		return err
	}
	w.log.Infow("Schedules reloaded", logger.FieldPath, w.path, logger.FieldCount, len(table))
	return nil
}

func (w *Watcher) watchLoop() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				w.scheduleReload()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warnw("Schedules watcher error", logger.FieldError, err)
		}
	}
}

func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(w.debouncePeriod, func() {
		if err := w.Reload(); err != nil {
			// Keep serving the previous table
			w.log.Errorw("Schedules reload failed", logger.FieldPath, w.path, logger.FieldError, err)
		}
	})
}
