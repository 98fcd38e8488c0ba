// Package watch reports changes to the database file made by other
// processes, such as a CLI command run while the TUI is open.
package watch

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const DefaultDebounce = 250 * time.Millisecond

type Watcher struct {
	watcher  *fsnotify.Watcher
	base     string
	debounce time.Duration
	log      *slog.Logger
	changes  chan struct{}
	done     chan struct{}
	once     sync.Once
}

// New watches the directory holding dbPath. Bursts of writes to the
// database file or its journal collapse into one change signal.
func New(dbPath string, debounce time.Duration, logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		fsw.Close()
		return nil, err
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &Watcher{
		watcher:  fsw,
		base:     filepath.Base(dbPath),
		debounce: debounce,
		log:      logger,
		changes:  make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	go w.processEvents()
	return w, nil
}

// Changes delivers one value per debounced burst of writes. Signals are
// dropped while a previous one is still unread.
func (w *Watcher) Changes() <-chan struct{} {
	return w.changes
}

func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		err = w.watcher.Close()
	})
	return err
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
		return false
	}
	// lifemanager.sqlite, lifemanager.sqlite-journal, lifemanager.sqlite-wal
	return strings.HasPrefix(filepath.Base(ev.Name), w.base)
}

func (w *Watcher) processEvents() {
	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-w.done:
			if timer != nil {
				timer.Stop()
			}
			return

		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.relevant(ev) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			select {
			case w.changes <- struct{}{}:
			default:
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("database watcher error", "error", err)
		}
	}
}
