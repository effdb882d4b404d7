// Package logger provides leveled logging for dotvault commands.
//
// The logger supports multiple verbosity levels controlled by command-line
// flags. Output is formatted with semantic prefixes and colors from
// fatih/color.
//
// # Verbosity Levels
//
//   - --verbose: Shows info messages
//   - --debug: Shows all messages including debug details
//
// Without flags, only warnings and errors are shown.
//
// # Log Methods
//
//	Logger.Infof()           // Shown with --verbose or --debug
//	Logger.Debugf()          // Shown only with --debug
//	Logger.Warnf()           // Shown with --verbose or --debug
//	Logger.WarnfAlways()     // Always shown
//	Logger.Errorf()          // Always shown
//	Logger.ErrorfAndReturn() // Logs with --debug and returns the error
//
// # Log File
//
// When a log file is configured, every message is also appended to it
// regardless of verbosity, without colors. The file is rotated by
// lumberjack so it never grows unbounded:
//
//	sink := logger.NewFileSink("/home/me/.local/state/dotvault/dotvault.log")
//	log := Logger{Verbose: verbose, File: sink}
package logger
