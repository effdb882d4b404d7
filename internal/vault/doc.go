// Package vault decides and executes the synchronization of manifest items
// between the local filesystem and a remote backend.
//
// Each item is compared three ways: the hash of the local file, the hash of
// the remote entry, and the baseline hash recorded after the last successful
// sync. Decide turns those three digests into one of skip, push, pull or
// conflict. Engine runs the decisions through a bounded worker pool and
// advances the baseline only after the backend or disk write succeeded, so an
// interrupted or failed run is safe to repeat.
//
// Detect is the cheap local-only variant used on shell start: it compares
// local files with their baselines and never touches the backend.
package vault
