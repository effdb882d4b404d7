package cmd

import (
	"time"

	logger "github.com/PolarWolf314/dotvault/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	verbose      bool
	debug        bool
	configFile   string
	manifestFile string
	backendKind  string
	timeout      time.Duration
	Logger       logger.Logger

	VaultCmd = &cobra.Command{
		Use:   "vault",
		Short: "Keep dotfiles and credentials in sync with a secret store",
		Long: `Synchronizes the files listed in the item manifest with a remote secret
store (Bitwarden, 1Password, pass or an age-encrypted directory).

Every item is compared three ways: the local file, the remote entry, and the
checksum recorded at the last successful sync. Only the side that changed is
propagated; items changed on both sides are reported as conflicts and left
untouched.

Exit codes:
  0  nothing to do or everything succeeded
  1  one or more items failed
  2  unresolved conflicts
  3  drift detected (drift only)
  4  invalid manifest or configuration`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			Logger = logger.Logger{
				Verbose: verbose,
				Debug:   debug,
			}
			Logger.Debugf("Initializing vault command with verbose=%t, debug=%t", verbose, debug)
		},
	}
)

func init() {
	VaultCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	VaultCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug output")
	VaultCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to config.toml")
	VaultCmd.PersistentFlags().StringVar(&manifestFile, "manifest", "", "path to the item manifest")
	VaultCmd.PersistentFlags().StringVar(&backendKind, "backend", "", "backend to use (bitwarden, onepassword, pass, age)")
	VaultCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "timeout for each backend call (default 45s)")

	VaultCmd.AddCommand(syncCmd)
	VaultCmd.AddCommand(pushCmd)
	VaultCmd.AddCommand(pullCmd)
	VaultCmd.AddCommand(driftCmd)
	VaultCmd.AddCommand(statusCmd)
	VaultCmd.AddCommand(listCmd)
	VaultCmd.AddCommand(deleteCmd)
	VaultCmd.AddCommand(validateCmd)
	VaultCmd.AddCommand(resetStateCmd)
}

// Helper functions for testing

// GetVaultCmd returns the VaultCmd for testing.
func GetVaultCmd() *cobra.Command {
	return VaultCmd
}

// ResetGlobalState resets all global variables to their default values for testing.
func ResetGlobalState() {
	verbose = false
	debug = false
	configFile = ""
	manifestFile = ""
	backendKind = ""
	timeout = 0
	exitCode = 0
	resetSyncCommandState()
	resetPushCommandState()
	resetPullCommandState()
	resetDriftCommandState()
	resetStatusCommandState()
	resetDeleteCommandState()
	resetResetStateCommandState()
	resetCobraFlagState(VaultCmd)
}

// resetCobraFlagState clears Changed on every flag of c and its children so
// one test's flags do not leak into the next.
func resetCobraFlagState(c *cobra.Command) {
	reset := func(flag *pflag.Flag) { flag.Changed = false }
	c.PersistentFlags().VisitAll(reset)
	c.Flags().VisitAll(reset)
	for _, child := range c.Commands() {
		resetCobraFlagState(child)
	}
}

// SetVerbose sets the verbose flag for testing.
func SetVerbose(v bool) {
	verbose = v
}

// SetDebug sets the debug flag for testing.
func SetDebug(d bool) {
	debug = d
}

// SetLogger sets the logger for testing.
func SetLogger(l logger.Logger) {
	Logger = l
}
