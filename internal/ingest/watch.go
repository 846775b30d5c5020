package ingest

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/xHacka/logstat/internal/filter"
	"github.com/xHacka/logstat/internal/models"
	"github.com/xHacka/logstat/internal/source"
)

const defaultDebounce = 500 * time.Millisecond

// WatchOptions extends Options for Watch.
type WatchOptions struct {
	Options
	// Debounce coalesces bursts of file events into one re-analysis.
	Debounce time.Duration
}

// Watch runs Analyze once, then again every time a local source changes.
// Each run starts from a fresh accumulator. New files matching a glob are
// picked up, as long as they appear in a directory watched at startup.
// Remote sources are fetched again on every run. Watch returns when ctx is
// cancelled.
func Watch(ctx context.Context, patterns []string, f models.Filters, opts WatchOptions, fn func(models.Summary, error)) error {
	if opts.Debounce <= 0 {
		opts.Debounce = defaultDebounce
	}

	if err := filter.Validate(f); err != nil {
		return err
	}
	if len(patterns) == 0 {
		return ErrNoSources
	}
	run := func() {
		s, err := Analyze(ctx, patterns, f, opts.Options)
		if ctx.Err() != nil {
			return
		}
		fn(s, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	dirs := watchDirs(patterns)
	for _, dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			slog.Warn("cannot watch directory", "dir", dir, "error", err)
		}
	}

	run()

	timer := time.NewTimer(opts.Debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			if !matchesAny(patterns, ev.Name) {
				continue
			}
			slog.Debug("source changed", "path", ev.Name, "op", ev.Op.String())
			timer.Reset(opts.Debounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("watch error", "error", err)
		case <-timer.C:
			run()
		}
	}
}

// watchDirs returns the directories holding the local sources: the parent of
// a plain path, the static prefix of a glob.
func watchDirs(patterns []string) []string {
	seen := make(map[string]bool)
	var dirs []string
	for _, p := range patterns {
		d := source.ParseDescriptor(p)
		if d.Kind == source.KindURL {
			continue
		}
		dir := filepath.Dir(d.Location)
		if source.IsGlob(d.Location) {
			base, _ := doublestar.SplitPattern(filepath.ToSlash(d.Location))
			dir = filepath.FromSlash(base)
		}
		if abs, err := filepath.Abs(dir); err == nil {
			dir = abs
		}
		if !seen[dir] {
			seen[dir] = true
			dirs = append(dirs, dir)
		}
	}
	return dirs
}

func matchesAny(patterns []string, path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	for _, p := range patterns {
		d := source.ParseDescriptor(p)
		if d.Kind == source.KindURL {
			continue
		}
		loc, err := filepath.Abs(d.Location)
		if err != nil {
			loc = d.Location
		}
		if !source.IsGlob(loc) {
			if loc == abs {
				return true
			}
			continue
		}
		if ok, _ := doublestar.PathMatch(loc, abs); ok {
			return true
		}
	}
	return false
}
