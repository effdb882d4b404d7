// Package utils provides shared helpers for the dotvault commands.
//
// # System Utilities
//
//   - GetUsername, GetHostname: identify who ran an operation
//   - MachineName: sanitized hostname recorded in audit entries
//
// # String Utilities
//
//   - FormatPaths: formats file paths for human-readable output
//   - Plural: naive English pluralization for summaries
//
// # Terminal Utilities
//
//   - IsTerminal, IsStdoutTerminal, IsInteractive: decide whether to
//     prompt or animate
package utils
