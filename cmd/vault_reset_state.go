package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/PolarWolf314/dotvault/internal/ui"
	"github.com/PolarWolf314/dotvault/internal/workflows"

	"github.com/spf13/cobra"
)

var resetStateCmd = &cobra.Command{
	Use:   "reset-state [items...]",
	Short: "Forget the last-sync checksums",
	Long: `Drops the recorded sync baselines so the next sync treats the items as
never synced: content that differs on both sides is then reported as a
conflict instead of being propagated.

Use this after editing files outside dotvault's control, or to recover
from a corrupt checksum file. With no arguments every baseline is cleared.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting reset-state command")
		Logger.Debugf("Items: %v", args)

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		env, closeLog, err := vaultEnv()
		defer closeLog()
		if err != nil {
			return reportPlainError(err)
		}

		result, err := workflows.ResetState(ctx, env, workflows.ResetStateOptions{Items: args})
		if err != nil {
			return reportPlainError(err)
		}

		msg := ui.MarkOK() + " Cleared sync state"
		switch {
		case result.WasCorrupt:
			msg += " (the checksum file was corrupt and has been rebuilt)"
		case len(result.Cleared) == 0:
			msg = ui.MarkSkip() + " Nothing to clear"
		default:
			msg += " for " + strings.Join(result.Cleared, ", ")
		}
		fmt.Println(msg)
		return nil
	},
}

func resetResetStateCommandState() {}
