package cmd

import (
	"github.com/PolarWolf314/dotvault/internal/workflows"

	"github.com/spf13/cobra"
)

var (
	pullDryRun bool
	pullForce  bool
)

func init() {
	pullCmd.Flags().BoolVar(&pullDryRun, "dry-run", false, "show what would be pulled without touching anything")
	pullCmd.Flags().BoolVarP(&pullForce, "force", "f", false, "overwrite local files even when they changed since the last sync")
}

func resetPullCommandState() {
	pullDryRun = false
	pullForce = false
}

var pullCmd = &cobra.Command{
	Use:   "pull [items...]",
	Short: "Overwrite local files with remote content",
	Long: `Makes local files match the remote store. Items missing from the
remote store are skipped.

A local file that changed since the last sync is not overwritten unless
--force is given; such items are reported as conflicts. Items with
backup: true are copied to the backup directory before being replaced.

Examples:
  # Restore everything on a new machine
  dotvault vault pull

  # Throw away local edits to one item
  dotvault vault pull Shell-Local --force`,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting pull command")
		Logger.Debugf("Flags: dry-run=%t, force=%t, items=%v", pullDryRun, pullForce, args)

		return runEngineCommand(cmd.Context(), "Pulling items...", workflows.Pull, workflows.SyncOptions{
			Items:        args,
			DryRun:       pullDryRun,
			AllowDrifted: pullForce,
		})
	},
}
