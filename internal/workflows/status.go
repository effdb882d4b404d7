package workflows

import (
	"context"
	"errors"
	"time"

	kerrors "github.com/PolarWolf314/dotvault/internal/errors"
	"github.com/PolarWolf314/dotvault/internal/manifest"
	"github.com/PolarWolf314/dotvault/internal/state"
	"github.com/PolarWolf314/dotvault/internal/vault"
)

// ItemStatus describes one manifest item on this machine.
type ItemStatus struct {
	Name      string        `json:"name"`
	Path      string        `json:"path"`
	Kind      manifest.Kind `json:"kind"`
	Required  bool          `json:"required"`
	Sync      bool          `json:"sync"`
	Protected bool          `json:"protected"`

	// LocalPresent is false when the file does not exist yet.
	LocalPresent bool         `json:"local_present"`
	Local        vault.Digest `json:"local,omitempty"`

	Baseline     vault.Digest    `json:"baseline,omitempty"`
	LastSyncedAt *time.Time      `json:"last_synced_at,omitempty"`
	Direction    state.Direction `json:"direction,omitempty"`

	// Remote is set only when StatusOptions.Remote asked for it.
	Remote *bool  `json:"remote,omitempty"`
	Err    string `json:"error,omitempty"`
}

// Drifted reports whether the local file differs from its baseline.
func (s ItemStatus) Drifted() bool {
	return s.Baseline.Present() && s.Local != s.Baseline
}

// StatusOptions configures the status workflow.
type StatusOptions struct {
	// Remote also asks the backend whether each item exists there.
	Remote bool
}

// StatusResult contains the outcome of a status operation.
type StatusResult struct {
	ManifestPath string       `json:"manifest"`
	Location     string       `json:"location"`
	StateCorrupt bool         `json:"state_corrupt,omitempty"`
	Items        []ItemStatus `json:"items"`

	// MissingRequired lists required items with no local file.
	MissingRequired []string `json:"missing_required,omitempty"`
}

// Status lists every manifest item with its local presence and last sync.
//
// Only StatusOptions.Remote contacts the backend. A corrupt checksum store
// is reported in the result rather than failing the workflow.
func Status(ctx context.Context, env *Env, opts StatusOptions) (*StatusResult, error) {
	s, err := env.open(opts.Remote)
	if err != nil {
		return nil, err
	}

	result := &StatusResult{
		ManifestPath: s.manifest.Path,
		Location:     s.location.String(),
		StateCorrupt: s.store.Corrupt(),
	}

	local := env.local()
	for _, item := range s.manifest.Items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		st := ItemStatus{
			Name:      item.Name,
			Path:      item.Path,
			Kind:      item.Kind,
			Required:  item.Required,
			Sync:      item.Sync,
			Protected: item.Protected,
		}
		if path, err := local.Resolve(item); err == nil {
			st.Path = path
		}

		digest, err := local.Digest(item)
		if err != nil {
			st.Err = err.Error()
		}
		st.Local = digest
		st.LocalPresent = digest.Present()

		if rec, ok := s.store.Baseline(item.Name); ok {
			st.Baseline = vault.Digest(rec.Checksum)
			synced := rec.LastSyncedAt
			st.LastSyncedAt = &synced
			st.Direction = rec.Direction
		}

		if opts.Remote && st.Err == "" {
			exists, err := s.remote.Exists(ctx, item.Name, s.location)
			switch {
			case err == nil:
				st.Remote = &exists
			case errors.Is(err, kerrors.ErrAuth), errors.Is(err, kerrors.ErrBackendUnavailable):
				// One answer covers every item.
				return nil, err
			default:
				st.Err = err.Error()
			}
		}

		if item.Required && !st.LocalPresent {
			result.MissingRequired = append(result.MissingRequired, item.Name)
		}
		result.Items = append(result.Items, st)
	}
	return result, nil
}
