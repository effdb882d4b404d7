// Package workflows provides high-level orchestration for dotvault commands.
//
// Workflows coordinate configuration, the item manifest, the checksum state
// store, the backend and the audit trail to implement complete user-facing
// features. Each workflow handles a single command's business logic,
// independent of CLI concerns like flag parsing, spinners, and output
// formatting.
//
// # Design Philosophy
//
// The cmd/ package should be a thin layer that:
//   - Parses command-line flags and arguments
//   - Fills an Env and calls the appropriate workflow function
//   - Formats the result for display and picks the exit code
//
// Workflows handle everything else. They load configuration, manifest,
// state and backend in that order, so a broken manifest is reported before
// any backend is contacted.
//
// # Available Workflows
//
//   - Sync, Push, Pull: run the sync engine over selected items
//   - Drift, WatchDrift: compare local files with baselines, offline
//   - Status: per-item local presence and last sync
//   - List: remote entries in the configured location
//   - Delete: remove a remote entry behind the protected-item gate
//   - Validate: check the manifest
//   - ResetState: forget baselines
//   - ConfigInit, ConfigShow: manage the configuration file
//
// # Error Handling
//
// Workflows return typed errors from the internal/errors package. Per-item
// failures of a sync run are not errors; they are reported in the result
// and reflected in its exit code:
//
//	result, err := workflows.Sync(ctx, env, opts)
//	if errors.Is(err, kerrors.ErrStateCorrupt) {
//	    // Tell the user to run reset-state
//	}
//
// # Context Usage
//
// All workflow functions accept a context.Context as their first parameter.
// Cancelling it stops items that have not started yet.
package workflows
