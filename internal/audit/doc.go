// Package audit records what dotvault did to the remote store and to local
// files.
//
// Every mutating operation (sync, push, pull, delete, reset-state) appends
// one entry to a machine-local audit log. Entries written by the same
// process share a run id, so a single invocation can be traced through the
// log even when several machines append to synced copies of it.
//
// # Log Format
//
// The audit log is stored as JSON Lines (one JSON object per line) at:
//
//	$XDG_STATE_HOME/dotvault/audit.jsonl
//
// Each entry contains:
//   - Timestamp (RFC3339 with microseconds, UTC)
//   - Run id (a random UUID per process)
//   - User and machine name
//   - Operation name
//   - Operation-specific details (items, outcome counts, delete target)
//
// Item contents and checksums are never written to the log.
//
// # Usage
//
//	trail := audit.New(fs, paths.AuditFile())
//	entry := trail.Entry("sync")
//	entry.Items = names
//	trail.Log(entry)
//
// # Failure Handling
//
// Audit logging is best-effort. If logging fails (permissions, disk full,
// etc.), the operation continues without error.
//
// # Reading Logs
//
// Use ReadEntries to parse the audit log for display or analysis.
// Malformed entries are silently skipped to handle partial writes.
package audit
