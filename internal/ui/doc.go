// Package ui provides semantic text formatting for CLI output.
//
// Formatters render with color when the terminal supports it. When NO_COLOR
// is set or the terminal doesn't support colors, text-based decorations
// (backticks, quotes) are used instead so output stays readable in logs.
//
// # Semantic Formatters
//
//	ui.Code.Sprint("dotvault vault sync")  // Commands and code
//	ui.Path.Sprint("~/.gitconfig")         // File paths
//	ui.Success.Sprint("✓")                 // Success indicators
//	ui.Error.Sprint("✗")                   // Error indicators
//	ui.Warning.Sprint("[dry-run]")         // Warnings
//	ui.Info.Sprint("→")                    // Informational hints
//	ui.Highlight.Sprint("Git-Config")      // Item names and user values
//	ui.Muted.Sprint("never synced")        // De-emphasized text
//
// Marks pair a symbol with its formatter for the per-item result lines:
//
//	fmt.Println(ui.MarkOK() + " Git-Config pushed")
package ui
