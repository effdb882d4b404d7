package cmd

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/PolarWolf314/dotvault/internal/configs"
	kerrors "github.com/PolarWolf314/dotvault/internal/errors"
	logger "github.com/PolarWolf314/dotvault/internal/logging"
	"github.com/PolarWolf314/dotvault/internal/ui"
	"github.com/PolarWolf314/dotvault/internal/utils"
	"github.com/PolarWolf314/dotvault/internal/vault"
	"github.com/PolarWolf314/dotvault/internal/workflows"
	"github.com/briandowns/spinner"
	"github.com/spf13/afero"
)

// exitCode is the process status main reports after the command returns.
var exitCode int

// ExitCode returns the status chosen by the last command that ran.
func ExitCode() int {
	return exitCode
}

func setExitCode(code int) {
	exitCode = code
}

// envHook lets tests replace parts of the environment, typically the backend.
var envHook func(*workflows.Env)

// startSpinner creates and starts a spinner with the given message when not in verbose or debug mode.
// Returns the spinner and a function that should be deferred to clean up.
// Uses the global debug flag from the vault command.
//
// IMPORTANT: spinner.FinalMSG values do NOT need trailing newlines. The cleanup function
// automatically calls ui.EnsureNewline() on the final message before printing it.
func startSpinner(message string, verbose bool) (*spinner.Spinner, func()) {
	return startSpinnerWithFlags(message, verbose, debug)
}

// startSpinnerWithFlags creates and starts a spinner with explicit verbose and debug flags.
// This is useful for commands that have their own flag variables (e.g., config commands).
// The spinner only animates when stdout is a terminal.
func startSpinnerWithFlags(message string, verbose, debugFlag bool) (*spinner.Spinner, func()) {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " " + message

	// Ignore color errors - continue without colored spinner if it fails.
	if ui.ColorEnabled() {
		_ = s.Color("cyan")
	}

	animate := !verbose && !debugFlag && utils.IsStdoutTerminal()
	if animate {
		s.Start()
		// Ensure log output is discarded unless in verbose mode.
		log.SetOutput(io.Discard)
	}

	cleanup := func() {
		// Restore log output first.
		if animate {
			log.SetOutput(os.Stdout)
		}

		// Ensure final message ends with a newline.
		finalMsg := ""
		if s.FinalMSG != "" {
			finalMsg = ui.EnsureNewline(s.FinalMSG)
			// Clear FinalMSG so s.Stop() doesn't print it.
			s.FinalMSG = ""
		}

		// Stop the spinner first to clear the spinner line.
		if animate {
			s.Stop()
		}

		// Print final message to stdout (for tests to capture).
		if finalMsg != "" {
			fmt.Print(finalMsg)
		}
	}

	return s, cleanup
}

// newEnv builds the workflow environment from the process environment and
// the persistent vault flags. The returned closer flushes the debug log.
func newEnv(log logger.Logger, cfgFile, manifest string, overrides *configs.Config) (*workflows.Env, func(), error) {
	paths, err := configs.ResolvePaths()
	if err != nil {
		return nil, func() {}, err
	}

	file, err := absPath(paths, cfgFile)
	if err != nil {
		return nil, func() {}, fmt.Errorf("%w: --config: %w", kerrors.ErrInvalidConfig, err)
	}
	manifestPath, err := absPath(paths, manifest)
	if err != nil {
		return nil, func() {}, fmt.Errorf("%w: --manifest: %w", kerrors.ErrInvalidConfig, err)
	}

	env := &workflows.Env{
		Fs:    afero.NewOsFs(),
		Paths: paths,
		ConfigOptions: configs.LoadOptions{
			File:      file,
			Overrides: overrides,
		},
		Manifest: manifestPath,
		Log:      log,
	}
	if envHook != nil {
		envHook(env)
	}

	closer := func() {}
	// A config error here is reported again by the workflow itself.
	if cfg, err := env.LoadConfig(); err == nil {
		if logPath, err := cfg.LogFilePath(paths); err == nil && logPath != "" {
			sink := logger.NewFileSink(logPath)
			env.Log.File = sink
			closer = func() { _ = sink.Close() }
		}
	}
	return env, closer, nil
}

// vaultEnv builds the environment for the vault subcommands.
func vaultEnv() (*workflows.Env, func(), error) {
	overrides := &configs.Config{}
	overrides.Backend.Kind = backendKind
	if timeout > 0 {
		overrides.Backend.Timeout = timeout.String()
	}
	return newEnv(Logger, configFile, manifestFile, overrides)
}

// absPath turns a flag value into an absolute path. Anchored values (~/,
// $VAR/) are expanded, anything else is taken relative to the working
// directory.
func absPath(paths configs.Paths, raw string) (string, error) {
	if raw == "" {
		return "", nil
	}
	if configs.HasAnchor(raw) {
		return paths.Expand(raw)
	}
	return filepath.Abs(raw)
}

// exitCodeFor maps a workflow error to the process exit status.
func exitCodeFor(err error) int {
	switch {
	case errors.Is(err, kerrors.ErrValidation),
		errors.Is(err, kerrors.ErrManifestNotFound),
		errors.Is(err, kerrors.ErrUnknownItem),
		errors.Is(err, kerrors.ErrInvalidConfig),
		errors.Is(err, kerrors.ErrUnknownBackend):
		return vault.ExitInvalid
	case errors.Is(err, kerrors.ErrConflict):
		return vault.ExitConflicts
	default:
		return vault.ExitItemErrors
	}
}

// formatError renders err with a hint for the errors users can fix.
func formatError(err error) string {
	var b strings.Builder
	b.WriteString(ui.MarkFail() + " " + err.Error())

	hint := ""
	switch {
	case errors.Is(err, kerrors.ErrManifestNotFound):
		hint = "Run " + ui.Code.Sprint("dotvault config init") + " to create a starter manifest"
	case errors.Is(err, kerrors.ErrStateCorrupt):
		hint = "Run " + ui.Code.Sprint("dotvault vault reset-state") + " to rebuild the checksum state"
	case errors.Is(err, kerrors.ErrAuth):
		hint = "Unlock your vault first (" + ui.Code.Sprint("bw unlock") + ", " + ui.Code.Sprint("op signin") + " or your GPG agent)"
	case errors.Is(err, kerrors.ErrBackendUnavailable):
		hint = "Install the backend CLI or set " + ui.Flag.Sprint("backend.binary") + " in config.toml"
	case errors.Is(err, kerrors.ErrTimeout):
		hint = "The backend may be waiting for a prompt; raise " + ui.Flag.Sprint("--timeout") + " or unlock it first"
	case errors.Is(err, kerrors.ErrProtected):
		hint = "Protected items need " + ui.Flag.Sprint("--force") + " and " + ui.Flag.Sprint("--confirm <name>")
	case errors.Is(err, kerrors.ErrUnknownItem):
		hint = "Run " + ui.Code.Sprint("dotvault vault status") + " to see the items in the manifest"
	}
	if hint != "" {
		b.WriteString("\n" + ui.MarkHint() + " " + hint)
	}
	return b.String()
}

// failWith reports err through the spinner and records its exit status.
func failWith(s *spinner.Spinner, err error) error {
	Logger.Debugf("command failed: %v", err)
	setExitCode(exitCodeFor(err))
	s.FinalMSG = formatError(err)
	return nil
}
