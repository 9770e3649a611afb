// Package watcher imports collection files dropped into a directory, using fsnotify with debouncing.
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const (
	defaultDebounce  = 400 * time.Millisecond
	defaultExtension = ".vsb"
	// FailedSuffix is appended to files that could not be imported so they are not retried.
	FailedSuffix = ".failed"
)

// ImportFunc imports the file at path. The watcher removes the file when it returns nil.
type ImportFunc func(ctx context.Context, path string) error

// Watcher watches a single directory (non-recursive) and imports matching files.
type Watcher struct {
	dir       string
	extension string
	onImport  ImportFunc
	debounce  time.Duration
	watcher   *fsnotify.Watcher
	mu        sync.Mutex
	pending   map[string]*time.Timer
	inflight  sync.WaitGroup
	ctx       context.Context
	done      chan struct{}
	started   bool
	stopOnce  sync.Once
	logger    *zap.Logger
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) WatcherOption {
	return func(w *Watcher) { w.logger = l }
}

// WithDebounce sets how long a file must be quiet before it is imported.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) { w.debounce = d }
}

// WithExtension overrides the file extension to import (default ".vsb").
func WithExtension(ext string) WatcherOption {
	return func(w *Watcher) { w.extension = ext }
}

// NewWatcher creates a watcher for dir that calls onImport for each matching file.
func NewWatcher(dir string, onImport ImportFunc, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		dir:       filepath.Clean(dir),
		extension: defaultExtension,
		onImport:  onImport,
		debounce:  defaultDebounce,
		pending:   make(map[string]*time.Timer),
		done:      make(chan struct{}),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Dir returns the watched directory.
func (w *Watcher) Dir() string {
	return w.dir
}

// Start creates the directory if needed and begins watching it. It runs until
// ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return nil
	}
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return err
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fw.Add(w.dir); err != nil {
		_ = fw.Close()
		return err
	}
	w.watcher = fw
	w.ctx = ctx
	w.started = true
	w.logger.Debug("watcher starting", zap.String("dir", w.dir), zap.String("extension", w.extension))
	go w.run(ctx, fw.Events, fw.Errors)
	return nil
}

func (w *Watcher) run(ctx context.Context, events <-chan fsnotify.Event, errs <-chan error) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-errs:
			if !ok {
				return
			}
			if err != nil {
				w.logger.Debug("watcher error", zap.Error(err))
			}
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	path := ev.Name
	if filepath.Dir(filepath.Clean(path)) != w.dir || !w.matchExtension(path) {
		return
	}
	w.logger.Debug("watcher event", zap.String("op", ev.Op.String()), zap.String("path", path))
	switch {
	case ev.Has(fsnotify.Create), ev.Has(fsnotify.Write):
		if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
			w.debounceImport(path)
		}
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		w.cancelDebounce(path)
	}
}

func (w *Watcher) matchExtension(path string) bool {
	return matchExtension(path, w.extension)
}

func matchExtension(path, extension string) bool {
	if extension == "" {
		return true
	}
	return strings.EqualFold(filepath.Ext(path), extension)
}

func (w *Watcher) debounceImport(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.started {
		return
	}
	if t, ok := w.pending[path]; ok {
		t.Stop()
	}
	w.pending[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		if !w.started {
			w.mu.Unlock()
			return
		}
		delete(w.pending, path)
		w.inflight.Add(1)
		ctx := w.ctx
		w.mu.Unlock()
		defer w.inflight.Done()
		w.importFile(ctx, path)
	})
}

func (w *Watcher) cancelDebounce(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Stop()
		delete(w.pending, path)
	}
}

// importFile runs onImport and then removes the file, or renames it with
// FailedSuffix when the import fails.
func (w *Watcher) importFile(ctx context.Context, path string) {
	if _, err := os.Stat(path); err != nil {
		return
	}
	w.logger.Debug("watcher importing file", zap.String("path", path))
	if err := w.onImport(ctx, path); err != nil {
		w.logger.Warn("import failed", zap.String("path", path), zap.Error(err))
		if rerr := os.Rename(path, path+FailedSuffix); rerr != nil {
			w.logger.Warn("marking failed import", zap.String("path", path), zap.Error(rerr))
		}
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		w.logger.Warn("removing imported file", zap.String("path", path), zap.Error(err))
	}
}

// SyncExistingFiles imports every matching file already in the directory, in name order.
// Call this after Start to pick up files dropped while the server was down.
func (w *Watcher) SyncExistingFiles(ctx context.Context) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		w.logger.Warn("watcher sync failed", zap.String("dir", w.dir), zap.Error(err))
		return
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	w.logger.Debug("watcher syncing existing files", zap.String("dir", w.dir), zap.Int("entries", len(entries)))
	for _, e := range entries {
		if !e.Type().IsRegular() || !w.matchExtension(e.Name()) {
			continue
		}
		path := filepath.Join(w.dir, e.Name())
		w.cancelDebounce(path)
		w.importFile(ctx, path)
	}
}

// Stop stops the watcher, cancels pending imports and waits for running ones.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		return
	}
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
	_ = w.watcher.Close()
	w.started = false
	w.mu.Unlock()
	w.stopOnce.Do(func() { close(w.done) })
	w.inflight.Wait()
}
