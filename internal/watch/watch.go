// Package watch reports debounced file changes.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period before changes are reported.
const DefaultDebounce = 100 * time.Millisecond

// Watcher collects write and create events for matching files and reports
// them in batches once no further event arrives within Debounce.
type Watcher struct {
	// Exts limits reported files by extension. Empty reports everything.
	Exts []string

	// Recursive also watches subdirectories. Hidden directories are skipped.
	Recursive bool

	Debounce time.Duration
	Logger   *slog.Logger

	// OnChange receives the sorted set of changed paths.
	OnChange func(paths []string)
}

// Run watches paths until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context, paths ...string) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = fw.Close() }()

	for _, p := range paths {
		if err := addPath(fw, p, w.Recursive); err != nil {
			return fmt.Errorf("failed to watch %s: %w", p, err)
		}
	}

	w.loop(ctx, fw)
	return nil
}

func addPath(fw *fsnotify.Watcher, path string, recursive bool) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() || !recursive {
		return fw.Add(path)
	}
	return filepath.Walk(path, func(p string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !fi.IsDir() {
			return nil
		}
		if p != path && len(fi.Name()) > 0 && fi.Name()[0] == '.' {
			return filepath.SkipDir
		}
		return fw.Add(p)
	})
}

func (w *Watcher) loop(ctx context.Context, fw *fsnotify.Watcher) {
	logger := w.Logger
	if logger == nil {
		logger = slog.Default()
	}
	debounce := w.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	var (
		mu      sync.Mutex
		pending = make(map[string]struct{})
		timer   *time.Timer
	)
	flush := func() {
		mu.Lock()
		changed := make([]string, 0, len(pending))
		for p := range pending {
			changed = append(changed, p)
		}
		pending = make(map[string]struct{})
		mu.Unlock()

		if len(changed) == 0 || ctx.Err() != nil {
			return
		}
		sort.Strings(changed)
		logger.Debug("change detected", "files", changed)
		w.OnChange(changed)
	}

	for {
		select {
		case <-ctx.Done():
			mu.Lock()
			if timer != nil {
				timer.Stop()
			}
			mu.Unlock()
			return
		case event, ok := <-fw.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if !w.matches(event.Name) {
				continue
			}

			mu.Lock()
			pending[event.Name] = struct{}{}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounce, flush)
			mu.Unlock()
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			logger.Warn("watcher error", "error", err)
		}
	}
}

func (w *Watcher) matches(name string) bool {
	if len(w.Exts) == 0 {
		return true
	}
	return slices.Contains(w.Exts, filepath.Ext(name))
}
