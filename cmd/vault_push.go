package cmd

import (
	"fmt"

	"github.com/PolarWolf314/dotvault/internal/workflows"

	"github.com/spf13/cobra"
)

var (
	pushDryRun bool
	pushAll    bool
)

func init() {
	pushCmd.Flags().BoolVar(&pushDryRun, "dry-run", false, "show what would be pushed without touching anything")
	pushCmd.Flags().BoolVar(&pushAll, "all", false, "push every item with sync: true")
}

func resetPushCommandState() {
	pushDryRun = false
	pushAll = false
}

var pushCmd = &cobra.Command{
	Use:   "push [items...]",
	Short: "Overwrite remote entries with local content",
	Long: `Makes the remote store match local files, regardless of which side
changed. Items without a local file are skipped; nothing is ever deleted
from the remote store.

Before overwriting an entry the remote content is read again. If it moved
since the decision was made the item is reported as a conflict.

Examples:
  # Push one item
  dotvault vault push Git-Config

  # Push everything
  dotvault vault push --all`,
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 && !pushAll {
			return fmt.Errorf("name the items to push or pass --all")
		}
		if len(args) > 0 && pushAll {
			return fmt.Errorf("--all cannot be combined with item names")
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting push command")
		Logger.Debugf("Flags: dry-run=%t, all=%t, items=%v", pushDryRun, pushAll, args)

		return runEngineCommand(cmd.Context(), "Pushing items...", workflows.Push, workflows.SyncOptions{
			Items:  args,
			DryRun: pushDryRun,
		})
	},
}
