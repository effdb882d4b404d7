// Package errors provides typed error values for dotvault.
//
// Using sentinel errors allows callers to handle specific error conditions
// programmatically with errors.Is() rather than string matching. This matters
// most for backend failures: a locked vault must never be mistaken for an
// empty one.
//
// # Error Categories
//
// Errors are grouped by category:
//
//   - Manifest errors: the item manifest is malformed (ErrValidation, ErrUnknownItem)
//   - Backend errors: the remote store refused or failed (ErrAuth, ErrNotFound, ErrTimeout)
//   - Sync errors: a decision outcome needing user intent (ErrConflict)
//   - Local errors: disk or state problems (ErrIO, ErrStateCorrupt)
//   - Safety errors: a destructive operation was not confirmed (ErrConfirmationMismatch)
//
// # Usage
//
// Return errors from internal packages:
//
//	if locked {
//	    return nil, fmt.Errorf("reading %s: %w", name, errors.ErrAuth)
//	}
//
// Handle errors in the CLI layer:
//
//	result, err := workflows.Delete(ctx, opts)
//	if errors.Is(err, kerrors.ErrConfirmationMismatch) {
//	    // Show user-friendly message
//	}
package errors
