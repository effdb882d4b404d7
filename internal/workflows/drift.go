package workflows

import (
	"context"

	"github.com/spf13/afero"

	"github.com/PolarWolf314/dotvault/internal/state"
	"github.com/PolarWolf314/dotvault/internal/vault"
)

// DriftOptions configures the drift workflow.
type DriftOptions struct {
	// Quick only checks items that have a baseline.
	Quick bool
}

// DriftResult contains the outcome of a drift check.
type DriftResult struct {
	Report vault.DriftReport
}

// ExitCode returns ExitDrift when any item drifted and ExitItemErrors when
// an item could not be read at all.
func (r *DriftResult) ExitCode() int {
	code := vault.ExitOK
	for _, e := range r.Report.Entries {
		switch e.Status {
		case vault.DriftError:
			return vault.ExitItemErrors
		case vault.DriftClean:
		default:
			code = vault.ExitDrift
		}
	}
	return code
}

// Drift compares local files with their last synced checksums. It never
// contacts the backend, so it works offline and with a locked vault.
//
// A missing or corrupt checksum store is not an error: the report comes
// back with Available set to false and a reason.
func Drift(ctx context.Context, env *Env, opts DriftOptions) (*DriftResult, error) {
	s, store, err := openForDrift(env)
	if err != nil {
		return nil, err
	}

	report, err := vault.Detect(ctx, env.local(), s.manifest.Syncable(), store, vault.DriftOptions{Quick: opts.Quick})
	if err != nil {
		return nil, err
	}
	return &DriftResult{Report: report}, nil
}

// WatchDrift reports drift once and again whenever an item's file changes,
// until ctx is cancelled.
func WatchDrift(ctx context.Context, env *Env, opts DriftOptions, onReport func(*DriftResult)) error {
	s, store, err := openForDrift(env)
	if err != nil {
		return err
	}

	return vault.Watch(ctx, env.local(), s.manifest.Syncable(), store, vault.DriftOptions{Quick: opts.Quick},
		func(report vault.DriftReport) {
			onReport(&DriftResult{Report: report})
		})
}

// openForDrift loads the session without a backend. The store is nil when
// no sync has ever been recorded.
func openForDrift(env *Env) (*session, *state.Store, error) {
	s, err := env.open(false)
	if err != nil {
		return nil, nil, err
	}
	exists, err := afero.Exists(env.fs(), env.Paths.ChecksumFile())
	if err != nil || !exists {
		return s, nil, nil
	}
	return s, s.store, nil
}
