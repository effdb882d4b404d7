package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Manifest errors indicate the item manifest cannot be used.
var (
	// ErrValidation indicates the manifest is malformed. The concrete error is a
	// *ValidationError listing every violation.
	ErrValidation = errors.New("manifest validation failed")

	// ErrManifestNotFound indicates the manifest file does not exist.
	ErrManifestNotFound = errors.New("manifest not found")

	// ErrUnknownItem indicates a requested item name is not in the manifest.
	ErrUnknownItem = errors.New("item not in manifest")
)

// Backend errors indicate the remote secret store refused or failed an operation.
var (
	// ErrAuth indicates the backend is locked or not signed in.
	ErrAuth = errors.New("backend is locked or unauthenticated")

	// ErrNotFound indicates a local file or remote item does not exist.
	ErrNotFound = errors.New("not found")

	// ErrTimeout indicates a backend call exceeded the configured timeout. The
	// call may still be waiting on an authentication prompt.
	ErrTimeout = errors.New("backend call timed out")

	// ErrBackendUnavailable indicates the backend tool is not installed or not usable.
	ErrBackendUnavailable = errors.New("backend not available")

	// ErrUnknownBackend indicates the configured backend name is not supported.
	ErrUnknownBackend = errors.New("unknown backend")
)

// Sync errors are decision outcomes rather than failures.
var (
	// ErrConflict indicates both local and remote changed since the last sync,
	// or the remote moved underneath a pending write.
	ErrConflict = errors.New("local and remote both changed")
)

// Local errors indicate disk or state problems.
var (
	// ErrIO indicates a local read, write, or backup failed.
	ErrIO = errors.New("local I/O failure")

	// ErrStateCorrupt indicates the checksum state file could not be parsed.
	ErrStateCorrupt = errors.New("checksum state is corrupt")

	// ErrInvalidConfig indicates the configuration file or overrides are invalid.
	ErrInvalidConfig = errors.New("configuration is invalid")
)

// Safety errors indicate a destructive operation was refused.
var (
	// ErrProtected indicates a protected item was targeted without --force.
	ErrProtected = errors.New("item is protected")

	// ErrConfirmationMismatch indicates the confirmation token did not match the item name.
	ErrConfirmationMismatch = errors.New("confirmation does not match item name")

	// ErrDrifted indicates local content changed since the last sync and a pull was refused.
	ErrDrifted = errors.New("local file has unsynced changes")
)

// Violation is a single manifest problem.
type Violation struct {
	Item    string
	Field   string
	Message string
}

func (v Violation) String() string {
	switch {
	case v.Item != "" && v.Field != "":
		return fmt.Sprintf("item %q: %s: %s", v.Item, v.Field, v.Message)
	case v.Item != "":
		return fmt.Sprintf("item %q: %s", v.Item, v.Message)
	case v.Field != "":
		return fmt.Sprintf("%s: %s", v.Field, v.Message)
	default:
		return v.Message
	}
}

// ValidationError batches every violation found while loading a manifest.
type ValidationError struct {
	Path       string
	Violations []Violation
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d problem(s)", e.Path, len(e.Violations))
	for _, v := range e.Violations {
		b.WriteString("\n  - ")
		b.WriteString(v.String())
	}
	return b.String()
}

// Unwrap lets errors.Is(err, ErrValidation) succeed.
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}
