package workflows

import (
	"context"

	"github.com/PolarWolf314/dotvault/internal/vault"
)

// SyncOptions configures the sync, push and pull workflows.
type SyncOptions struct {
	// Items names the items to process. Empty means every syncable item.
	Items []string

	// DryRun reports decisions without touching either side.
	DryRun bool

	// Force resolves conflicts in one direction (sync only).
	Force vault.Force

	// AllowDrifted lets pull overwrite local edits (pull --force).
	AllowDrifted bool

	// Workers overrides sync.workers from the configuration.
	Workers int
}

// SyncResult contains the outcome of a sync, push or pull.
type SyncResult struct {
	Mode     vault.Mode
	Backend  string
	Location string
	Report   vault.Report
}

// ExitCode maps the result to the process exit status.
func (r *SyncResult) ExitCode() int {
	return r.Report.ExitCode()
}

// Sync runs the three-way sync: every selected item is pushed, pulled,
// skipped or reported as a conflict according to its baseline.
//
// Item failures are reported in the result, not as an error. The error
// return covers configuration, manifest and state problems that stop the
// run before any item is processed:
//
// Returns ErrValidation or ErrManifestNotFound if the manifest is unusable.
// Returns ErrUnknownItem if a named item is not in the manifest.
// Returns ErrStateCorrupt if the checksum store must be reset first.
func Sync(ctx context.Context, env *Env, opts SyncOptions) (*SyncResult, error) {
	return run(ctx, env, vault.ModeSync, opts)
}

// Push makes the remote match local content for every selected item.
// Items without a local file are skipped.
func Push(ctx context.Context, env *Env, opts SyncOptions) (*SyncResult, error) {
	return run(ctx, env, vault.ModePush, opts)
}

// Pull makes local files match the remote for every selected item. Items
// whose local file changed since the last sync are reported as conflicts
// unless AllowDrifted is set. Overwritten files are backed up first when the
// item asks for it.
func Pull(ctx context.Context, env *Env, opts SyncOptions) (*SyncResult, error) {
	return run(ctx, env, vault.ModePull, opts)
}

func run(ctx context.Context, env *Env, mode vault.Mode, opts SyncOptions) (*SyncResult, error) {
	s, err := env.open(true)
	if err != nil {
		return nil, err
	}

	items, err := s.manifest.Select(opts.Items)
	if err != nil {
		return nil, err
	}

	engine := s.engine(env, opts.Workers)
	env.Log.Debugf("%s: %d items, backend %s, location %s, workers %d",
		mode, len(items), s.remote.Name(), s.location, engine.Workers)

	results, err := engine.Run(ctx, items, vault.Options{
		Mode:         mode,
		DryRun:       opts.DryRun,
		Force:        opts.Force,
		AllowDrifted: opts.AllowDrifted,
	})

	entry := s.auditEntry(env, mode.String())
	entry.DryRun = opts.DryRun
	entry.Items = itemNames(items)
	if err != nil {
		entry.Error = err.Error()
		env.trail().Log(entry)
		return nil, err
	}

	report := vault.NewReport(results, opts.DryRun)
	if !opts.DryRun {
		entry.Pushed = report.Count(vault.OutcomePushed)
		entry.Pulled = report.Count(vault.OutcomePulled)
		entry.Conflicts = report.Count(vault.OutcomeConflict)
		entry.Errors = report.Count(vault.OutcomeError)
		entry.Skipped = report.Count(vault.OutcomeSkipped)
		entry.Error = errorString(report.Err())
		env.trail().Log(entry)
	}

	return &SyncResult{
		Mode:     mode,
		Backend:  s.remote.Name(),
		Location: s.location.String(),
		Report:   report,
	}, nil
}
