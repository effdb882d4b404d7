package vault

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/PolarWolf314/dotvault/internal/manifest"
	"github.com/PolarWolf314/dotvault/internal/state"
)

// DriftStatus classifies one item's local file against its baseline.
type DriftStatus string

const (
	DriftClean DriftStatus = "clean"
	// DriftModified means the local content differs from the baseline.
	DriftModified DriftStatus = "modified"
	// DriftMissing means the item was synced before but its file is gone.
	DriftMissing DriftStatus = "missing"
	// DriftUntracked means a local file exists that was never synced.
	DriftUntracked DriftStatus = "untracked"
	DriftError     DriftStatus = "error"
)

type DriftEntry struct {
	Item     manifest.Item `json:"-"`
	Name     string        `json:"name"`
	Status   DriftStatus   `json:"status"`
	Local    Digest        `json:"local,omitempty"`
	Baseline Digest        `json:"baseline,omitempty"`
	Err      string        `json:"error,omitempty"`
}

// DriftReport is the result of Detect. Available is false when there is no
// usable baseline store; that is not an error.
type DriftReport struct {
	Available bool         `json:"available"`
	Reason    string       `json:"reason,omitempty"`
	Entries   []DriftEntry `json:"items"`
}

// Drifted returns every entry that is not clean.
func (r DriftReport) Drifted() []DriftEntry {
	var out []DriftEntry
	for _, e := range r.Entries {
		if e.Status != DriftClean {
			out = append(out, e)
		}
	}
	return out
}

// DriftOptions tune Detect.
type DriftOptions struct {
	// Quick checks only items that have a baseline, skipping the
	// never-synced scan.
	Quick bool
}

// Detect compares local files of syncable items with their baselines. It
// never calls a backend. A nil or corrupt store yields Available=false.
func Detect(ctx context.Context, local Local, items []manifest.Item, store *state.Store, opts DriftOptions) (DriftReport, error) {
	if store == nil {
		return DriftReport{Reason: "no sync has been recorded yet"}, nil
	}
	if store.Corrupt() {
		return DriftReport{Reason: "checksum state is corrupt; run `dotvault vault reset-state`"}, nil
	}

	report := DriftReport{Available: true}
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if !item.Sync {
			continue
		}

		rec, tracked := store.Baseline(item.Name)
		if opts.Quick && !tracked {
			continue
		}

		entry := DriftEntry{Item: item, Name: item.Name, Baseline: Digest(rec.Checksum)}
		digest, err := local.Digest(item)
		entry.Local = digest
		switch {
		case err != nil:
			entry.Status = DriftError
			entry.Err = err.Error()
		case !tracked && digest.Present():
			entry.Status = DriftUntracked
		case !tracked:
			continue
		case !digest.Present():
			entry.Status = DriftMissing
		case digest != entry.Baseline:
			entry.Status = DriftModified
		default:
			entry.Status = DriftClean
		}
		report.Entries = append(report.Entries, entry)
	}
	return report, nil
}

// watchDebounce coalesces the burst of events an editor's save produces.
var watchDebounce = 250 * time.Millisecond

// Watch runs Detect once and again after every change to an item's file,
// calling onReport each time, until ctx is cancelled. Parent directories
// are watched so that editors replacing files by rename are seen.
func Watch(ctx context.Context, local Local, items []manifest.Item, store *state.Store, opts DriftOptions, onReport func(DriftReport)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	interesting := make(map[string]bool)
	dirs := make(map[string]bool)
	for _, item := range items {
		if !item.Sync {
			continue
		}
		path, err := local.Resolve(item)
		if err != nil {
			continue
		}
		interesting[path] = true
		if item.Kind == manifest.KindSSHKey {
			interesting[path+".pub"] = true
		}
		dirs[filepath.Dir(path)] = true
	}
	for dir := range dirs {
		// A directory that does not exist yet cannot be watched; its items
		// show up as missing in every report.
		_ = watcher.Add(dir)
	}

	emit := func() error {
		report, err := Detect(ctx, local, items, store, opts)
		if err != nil {
			return err
		}
		onReport(report)
		return nil
	}
	if err := emit(); err != nil {
		return err
	}

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !interesting[filepath.Clean(event.Name)] {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(watchDebounce)
			} else {
				timer.Reset(watchDebounce)
			}
			fire = timer.C
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watching item files: %w", err)
		case <-fire:
			fire = nil
			if err := emit(); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
		}
	}
}
