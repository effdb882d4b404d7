package workflows

import (
	"context"
	"errors"
	"fmt"

	kerrors "github.com/PolarWolf314/dotvault/internal/errors"
)

// ResetStateOptions configures the reset-state workflow.
type ResetStateOptions struct {
	// Items names the baselines to forget. Empty forgets all of them.
	Items []string
}

// ResetStateResult contains the baselines that were dropped.
type ResetStateResult struct {
	Cleared []string

	// WasCorrupt is true when the store had to be rebuilt from scratch.
	WasCorrupt bool
}

// ResetState forgets sync baselines so the next sync treats the items as
// never synced. It is the only way out of a corrupt checksum store.
//
// Names are checked against the stored baselines, not the manifest, so
// items removed from the manifest can still be cleaned up.
func ResetState(ctx context.Context, env *Env, opts ResetStateOptions) (*ResetStateResult, error) {
	if _, err := env.LoadConfig(); err != nil {
		return nil, err
	}
	store, err := env.openState()
	if err != nil && !errors.Is(err, kerrors.ErrStateCorrupt) {
		return nil, err
	}

	result := &ResetStateResult{WasCorrupt: store.Corrupt()}
	entry := env.trail().Entry("reset-state")
	defer func() { env.trail().Log(entry) }()

	if len(opts.Items) == 0 || store.Corrupt() {
		if len(opts.Items) > 0 {
			env.Log.WarnfAlways("checksum state is corrupt; clearing every baseline")
		}
		result.Cleared = store.Names()
		if err := store.InvalidateAll(); err != nil {
			entry.Error = err.Error()
			return nil, err
		}
		entry.Items = result.Cleared
		return result, nil
	}

	var unknown []string
	for _, name := range opts.Items {
		if _, ok := store.Baseline(name); !ok {
			unknown = append(unknown, name)
			continue
		}
		result.Cleared = append(result.Cleared, name)
	}
	if len(unknown) > 0 {
		env.Log.Warnf("no baseline recorded for %v", unknown)
	}
	if err := store.Invalidate(result.Cleared...); err != nil {
		entry.Error = err.Error()
		return nil, fmt.Errorf("clearing baselines: %w", err)
	}
	entry.Items = result.Cleared
	return result, nil
}
