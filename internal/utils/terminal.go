package utils

import (
	"os"

	"golang.org/x/term"
)

// IsTerminal returns true if stdin is a terminal.
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// IsStdoutTerminal returns true if stdout is a terminal. Spinners and
// interactive prompts are suppressed when it is not.
func IsStdoutTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// IsInteractive reports whether prompting the user can work: both stdin and
// stdout must be terminals.
func IsInteractive() bool {
	return IsTerminal() && IsStdoutTerminal()
}
