package backend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	kerrors "github.com/PolarWolf314/dotvault/internal/errors"
)

// Command is one CLI invocation.
type Command struct {
	Name string
	Args []string

	// Stdin is fed to the process when non-nil. Secret content travels here,
	// never in Args, so it does not show up in the process table.
	Stdin []byte

	// Env is appended to the parent environment as KEY=VALUE pairs.
	Env []string
}

// String renders the command without its arguments past the subcommand,
// which may carry item names the user did not ask to log.
func (c Command) String() string {
	parts := []string{c.Name}
	for _, a := range c.Args {
		if strings.HasPrefix(a, "-") {
			break
		}
		parts = append(parts, a)
		if len(parts) == 3 {
			break
		}
	}
	return strings.Join(parts, " ")
}

// Runner executes commands and returns their stdout.
type Runner interface {
	Run(ctx context.Context, cmd Command) ([]byte, error)
}

// CommandError is a non-zero exit from a backend tool.
type CommandError struct {
	Command  string
	ExitCode int
	Stderr   string
}

func (e *CommandError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("%s: exit status %d", e.Command, e.ExitCode)
	}
	return fmt.Sprintf("%s: exit status %d: %s", e.Command, e.ExitCode, e.Stderr)
}

// stderrContains reports whether err is a CommandError whose stderr mentions
// any of needles, case-insensitively.
func stderrContains(err error, needles ...string) bool {
	var cmdErr *CommandError
	if !errors.As(err, &cmdErr) {
		return false
	}
	lower := strings.ToLower(cmdErr.Stderr)
	for _, n := range needles {
		if strings.Contains(lower, strings.ToLower(n)) {
			return true
		}
	}
	return false
}

// ExecRunner runs commands with os/exec, bounding each call by Timeout.
type ExecRunner struct {
	Timeout time.Duration
}

func (r ExecRunner) Run(ctx context.Context, c Command) ([]byte, error) {
	runCtx := ctx
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, c.Name, c.Args...)
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}
	if c.Stdin != nil {
		cmd.Stdin = bytes.NewReader(c.Stdin)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return stdout.Bytes(), nil
	}

	switch {
	case ctx.Err() != nil:
		return nil, ctx.Err()
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		// The tool may be waiting on an unlock prompt.
		return nil, fmt.Errorf("%w: %s did not finish within %s", kerrors.ErrTimeout, c, r.Timeout)
	case errors.Is(err, exec.ErrNotFound):
		return nil, fmt.Errorf("%w: %s is not installed or not on PATH", kerrors.ErrBackendUnavailable, c.Name)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil, &CommandError{
			Command:  c.String(),
			ExitCode: exitErr.ExitCode(),
			Stderr:   strings.TrimSpace(stderr.String()),
		}
	}
	return nil, fmt.Errorf("%w: running %s: %w", kerrors.ErrBackendUnavailable, c, err)
}
