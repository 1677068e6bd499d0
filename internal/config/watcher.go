package config

import (
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watcher watches the bootstrap file's directory and re-reads it on
// change, grounded on the teacher's directory-watch pattern in
// cmd/bd/list.go (there used to live-refresh a TUI issue list; here it
// live-refreshes the resolved Bootstrap). This is genuinely optional
// ambient plumbing — sync/query/metrics correctness never depends on it
// firing.
type Watcher struct {
	dir     string
	fsw     *fsnotify.Watcher
	logger  *slog.Logger
	current Bootstrap
	changed chan Bootstrap
}

// NewWatcher starts watching dir for changes to its bootstrap file.
func NewWatcher(dir string, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	initial, err := LoadBootstrap(dir)
	if err != nil {
		_ = fsw.Close()
		return nil, err
	}

	w := &Watcher{dir: dir, fsw: fsw, logger: logger, current: initial, changed: make(chan Bootstrap, 1)}
	go w.run()
	return w, nil
}

// Changes returns a channel receiving the newly-reloaded Bootstrap when
// the bootstrap file changes on disk. The channel holds one value; a
// reload that finds it still full is not sent (Current still reflects it).
func (w *Watcher) Changes() <-chan Bootstrap { return w.changed }

// Current returns the most recently loaded Bootstrap.
func (w *Watcher) Current() Bootstrap { return w.current }

// Close stops the underlying filesystem watch.
func (w *Watcher) Close() error { return w.fsw.Close() }

func (w *Watcher) run() {
	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != defaultBootstrapFile {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			b, err := LoadBootstrap(w.dir)
			if err != nil {
				w.logger.Warn("reload bootstrap file failed", "error", err)
				continue
			}
			w.current = b
			select {
			case w.changed <- b:
			default:
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("bootstrap file watch error", "error", err)
		}
	}
}
