// Package backend adapts the remote secret stores dotvault can sync with to a
// single five-operation interface.
//
// # Variants
//
// The set of backends is closed and chosen once per invocation by New:
//
//   - bitwarden:   the bw CLI; items are secure notes, locations are folders
//   - onepassword: the op CLI; items are Secure Notes, locations are vaults
//   - pass:        the pass CLI; locations are directory prefixes in the store
//   - age:         an in-process directory of age-encrypted files
//
// # Errors
//
// Every failure is classified with the sentinels of internal/errors. The
// distinction that matters most is between errors.ErrAuth and
// errors.ErrNotFound: a locked vault must never look like an empty one,
// otherwise the sync engine would happily "restore" stale content over it.
//
// CLI invocations run through a Runner so tests can script the tools'
// responses without installing them.
package backend
