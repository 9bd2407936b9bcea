// Package watch rebuilds the knowledge base when source documents change.
package watch

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"itemforge/internal/ingest"
	"itemforge/internal/logging"
)

const DefaultDebounce = 500 * time.Millisecond

// RebuildFunc is invoked once per burst of source changes.
type RebuildFunc func(ctx context.Context) error

// Watcher observes source files and directories and triggers a debounced
// rebuild. Rebuilds run on the watcher goroutine, one at a time.
type Watcher struct {
	fsw      *fsnotify.Watcher
	rebuild  RebuildFunc
	debounce time.Duration
	logger   *zap.Logger
	dirs     []string
}

type Option func(*Watcher)

func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) { w.logger = logging.OrNop(l) }
}

// New watches the directories behind sources: directories themselves (with
// their subdirectories) and the parent directory of files and glob matches.
func New(sources []string, rebuild RebuildFunc, opts ...Option) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		fsw:      fsw,
		rebuild:  rebuild,
		debounce: DefaultDebounce,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}

	dirs, err := watchDirs(sources)
	if err != nil {
		fsw.Close()
		return nil, err
	}
	for _, d := range dirs {
		if err := fsw.Add(d); err != nil {
			w.logger.Warn("cannot watch directory", zap.String("dir", d), zap.Error(err))
			continue
		}
		w.dirs = append(w.dirs, d)
	}
	if len(w.dirs) == 0 {
		fsw.Close()
		return nil, errors.New("no watchable source directory")
	}
	return w, nil
}

// Dirs lists the watched directories.
func (w *Watcher) Dirs() []string {
	return append([]string(nil), w.dirs...)
}

// Run blocks until ctx is cancelled and closes the underlying watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()
	w.logger.Info("watching sources", zap.Strings("dirs", w.dirs), zap.Duration("debounce", w.debounce))

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !relevant(ev) {
				continue
			}
			w.logger.Debug("source changed", zap.String("source", ev.Name), zap.String("op", ev.Op.String()))
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", zap.Error(err))
		case <-fire:
			fire = nil
			start := time.Now()
			if err := w.rebuild(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				w.logger.Error("rebuild after change failed", zap.Error(err))
				continue
			}
			w.logger.Info("rebuilt after change", zap.Duration("duration", time.Since(start)))
		}
	}
}

func relevant(ev fsnotify.Event) bool {
	if !ingest.IsSourceFile(ev.Name) {
		return false
	}
	return ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0
}

func watchDirs(sources []string) ([]string, error) {
	seen := make(map[string]struct{})
	var dirs []string
	add := func(d string) {
		d = filepath.Clean(d)
		if _, ok := seen[d]; ok {
			return
		}
		seen[d] = struct{}{}
		dirs = append(dirs, d)
	}
	for _, src := range sources {
		matches, err := filepath.Glob(src)
		if err != nil {
			return nil, err
		}
		if matches == nil {
			matches = []string{src}
		}
		for _, m := range matches {
			info, err := os.Stat(m)
			if err != nil || !info.IsDir() {
				add(filepath.Dir(m))
				continue
			}
			err = filepath.WalkDir(m, func(path string, d fs.DirEntry, err error) error {
				if err != nil {
					return err
				}
				if d.IsDir() {
					add(path)
				}
				return nil
			})
			if err != nil {
				return nil, err
			}
		}
	}
	return dirs, nil
}
