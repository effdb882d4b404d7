package vault

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/PolarWolf314/dotvault/internal/backend"
	"github.com/PolarWolf314/dotvault/internal/configs"
	kerrors "github.com/PolarWolf314/dotvault/internal/errors"
	logger "github.com/PolarWolf314/dotvault/internal/logging"
	"github.com/PolarWolf314/dotvault/internal/manifest"
	"github.com/PolarWolf314/dotvault/internal/state"
)

// Mode selects which directions a run may take.
type Mode int

const (
	// ModeSync decides per item with the three-way comparison.
	ModeSync Mode = iota
	// ModePush makes local content win for every differing item.
	ModePush
	// ModePull makes remote content win for every differing item.
	ModePull
)

func (m Mode) String() string {
	switch m {
	case ModePush:
		return "push"
	case ModePull:
		return "pull"
	default:
		return "sync"
	}
}

// Outcome is what actually happened to an item.
type Outcome string

const (
	OutcomeSkipped  Outcome = "skipped"
	OutcomePushed   Outcome = "pushed"
	OutcomePulled   Outcome = "pulled"
	OutcomeConflict Outcome = "conflict"
	OutcomeError    Outcome = "error"
	// OutcomePlanned marks a push or pull that a dry run did not execute.
	OutcomePlanned Outcome = "planned"
)

// Options tune a single run.
type Options struct {
	Mode   Mode
	DryRun bool
	Force  Force

	// AllowDrifted lets a pull overwrite local edits made since the last
	// sync. Without it such items are reported as conflicts.
	AllowDrifted bool
}

// Result is the per-item report of a run.
type Result struct {
	Item     manifest.Item
	Decision Decision
	Outcome  Outcome
	Err      error

	Local    Digest
	Remote   Digest
	Baseline Digest

	// Backups lists the copies made before a pull overwrote local files.
	Backups []string
}

// Engine executes sync decisions. All fields except Log and Workers are required.
type Engine struct {
	Backend  backend.Backend
	Location backend.Location
	State    *state.Store
	Local    Local
	Backups  Backups
	Workers  int
	Log      logger.Logger

	locks keyedMutex
}

// Plan computes decisions without touching anything.
func (e *Engine) Plan(ctx context.Context, items []manifest.Item, opts Options) ([]Result, error) {
	opts.DryRun = true
	return e.Run(ctx, items, opts)
}

// Sync runs the three-way sync over items.
func (e *Engine) Sync(ctx context.Context, items []manifest.Item, force Force, dryRun bool) ([]Result, error) {
	return e.Run(ctx, items, Options{Mode: ModeSync, Force: force, DryRun: dryRun})
}

// Push makes the remote match local content for every item.
func (e *Engine) Push(ctx context.Context, items []manifest.Item, dryRun bool) ([]Result, error) {
	return e.Run(ctx, items, Options{Mode: ModePush, DryRun: dryRun})
}

// Pull makes local files match the remote for every item.
func (e *Engine) Pull(ctx context.Context, items []manifest.Item, allowDrifted, dryRun bool) ([]Result, error) {
	return e.Run(ctx, items, Options{Mode: ModePull, AllowDrifted: allowDrifted, DryRun: dryRun})
}

// Run processes every item and returns one Result per item, in input order.
// Item failures are reported in the results; the error return is reserved
// for conditions that stop the run before anything is touched.
func (e *Engine) Run(ctx context.Context, items []manifest.Item, opts Options) ([]Result, error) {
	if e.State.Corrupt() && !opts.DryRun {
		return nil, fmt.Errorf("%w: run `dotvault vault reset-state` before syncing", kerrors.ErrStateCorrupt)
	}

	workers := e.Workers
	if workers < 1 {
		workers = configs.DefaultWorkers
	}
	if workers > configs.MaxWorkers {
		workers = configs.MaxWorkers
	}

	results := make([]Result, len(items))
	var g errgroup.Group
	g.SetLimit(workers)
	for i, item := range items {
		g.Go(func() error {
			results[i] = e.process(ctx, item, opts)
			return nil
		})
	}
	_ = g.Wait()
	return results, nil
}

func (e *Engine) process(ctx context.Context, item manifest.Item, opts Options) Result {
	unlock := e.locks.lock(item.Name)
	defer unlock()

	res := Result{Item: item}
	fail := func(err error) Result {
		res.Outcome = OutcomeError
		res.Err = fmt.Errorf("%s: %w", item.Name, err)
		e.Log.Debugf("%s: %v", item.Name, err)
		return res
	}

	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	localContent, localOK, err := e.Local.Read(item)
	if err != nil {
		return fail(err)
	}
	if localOK {
		res.Local = Hash(localContent)
	}

	remoteContent, err := e.Backend.Read(ctx, item.Name, e.Location)
	switch {
	case err == nil:
		res.Remote = Hash(remoteContent)
	case errors.Is(err, kerrors.ErrNotFound):
		res.Remote = Absent
	default:
		return fail(err)
	}

	if rec, ok := e.State.Baseline(item.Name); ok {
		res.Baseline = Digest(rec.Checksum)
	}

	res.Decision = e.decide(res, opts)
	e.Log.Debugf("%s: local=%s remote=%s baseline=%s -> %s (%s)",
		item.Name, res.Local.Short(), res.Remote.Short(), res.Baseline.Short(), res.Decision.Action, res.Decision.Reason)

	switch res.Decision.Action {
	case ActionSkip:
		res.Outcome = OutcomeSkipped
		if !opts.DryRun && res.Local.Present() && res.Local == res.Remote && res.Local != res.Baseline {
			// Both sides already agree; record it so the next edit has a baseline.
			if err := e.State.SetBaseline(item.Name, string(res.Local), state.Converged); err != nil {
				return fail(fmt.Errorf("in sync but baseline not recorded: %w", err))
			}
			res.Decision.Reason = "in sync, baseline recorded"
		}
		return res
	case ActionConflict:
		res.Outcome = OutcomeConflict
		return res
	}
	if opts.DryRun {
		res.Outcome = OutcomePlanned
		return res
	}
	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	switch res.Decision.Action {
	case ActionPush:
		if err := e.push(ctx, item, localContent, res.Remote); err != nil {
			if errors.Is(err, kerrors.ErrConflict) {
				res.Outcome = OutcomeConflict
				res.Decision.Reason = "remote changed while syncing"
				res.Err = fmt.Errorf("%s: %w", item.Name, err)
				return res
			}
			return fail(err)
		}
		if err := e.State.SetBaseline(item.Name, string(res.Local), state.Pushed); err != nil {
			return fail(fmt.Errorf("pushed but baseline not recorded: %w", err))
		}
		res.Outcome = OutcomePushed
		e.Log.Infof("%s: pushed", item.Name)

	case ActionPull:
		backups, err := e.pull(item, remoteContent, localOK)
		res.Backups = backups
		if err != nil {
			return fail(err)
		}
		if err := e.State.SetBaseline(item.Name, string(res.Remote), state.Pulled); err != nil {
			return fail(fmt.Errorf("pulled but baseline not recorded: %w", err))
		}
		res.Outcome = OutcomePulled
		e.Log.Infof("%s: pulled", item.Name)
	}
	return res
}

func (e *Engine) decide(res Result, opts Options) Decision {
	if res.Local == res.Remote {
		return Decide(res.Local, res.Remote, res.Baseline, ForceNone)
	}

	switch opts.Mode {
	case ModePush:
		if !res.Local.Present() {
			return Decision{Action: ActionSkip, Reason: "no local file to push"}
		}
		return Decision{Action: ActionPush, Reason: "push requested"}

	case ModePull:
		if !res.Remote.Present() {
			return Decision{Action: ActionSkip, Reason: "nothing stored remotely"}
		}
		if !opts.AllowDrifted && res.Local.Present() && res.Local != res.Baseline {
			return Decision{Action: ActionConflict, Reason: "local file has unsynced changes (use --force to overwrite)"}
		}
		return Decision{Action: ActionPull, Reason: "pull requested"}

	default:
		return Decide(res.Local, res.Remote, res.Baseline, opts.Force)
	}
}

// push writes content after re-checking that the remote still holds what
// the decision was based on.
func (e *Engine) push(ctx context.Context, item manifest.Item, content []byte, planned Digest) error {
	current, err := e.Backend.Read(ctx, item.Name, e.Location)
	switch {
	case err == nil:
		if Hash(current) != planned {
			return fmt.Errorf("%w: remote entry changed since it was read", kerrors.ErrConflict)
		}
	case errors.Is(err, kerrors.ErrNotFound):
		if planned.Present() {
			return fmt.Errorf("%w: remote entry disappeared since it was read", kerrors.ErrConflict)
		}
	default:
		return err
	}
	return e.Backend.Write(ctx, item.Name, e.Location, content)
}

func (e *Engine) pull(item manifest.Item, content []byte, localExists bool) ([]string, error) {
	var backups []string
	if localExists && item.Backup {
		path, err := e.Local.Resolve(item)
		if err != nil {
			return nil, err
		}
		backups, err = e.Backups.Save(item, path)
		if err != nil {
			return backups, fmt.Errorf("backup failed, local file left untouched: %w", err)
		}
		for _, b := range backups {
			e.Log.Infof("%s: backed up to %s", item.Name, b)
		}
	}
	return backups, e.Local.Write(item, content)
}

// keyedMutex serializes work on the same item name.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (k *keyedMutex) lock(name string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*sync.Mutex)
	}
	m, ok := k.locks[name]
	if !ok {
		m = &sync.Mutex{}
		k.locks[name] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}
