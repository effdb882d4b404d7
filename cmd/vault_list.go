package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/PolarWolf314/dotvault/internal/ui"
	"github.com/PolarWolf314/dotvault/internal/workflows"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the entries stored in the remote location",
	Long: `Lists every entry the backend holds in the configured location and
marks the ones the manifest does not know about. Manifest items with no
remote entry yet are listed at the end.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting list command")

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		spinner, cleanup := startSpinner("Listing vault entries...", verbose)
		defer cleanup()

		env, closeLog, err := vaultEnv()
		defer closeLog()
		if err != nil {
			return failWith(spinner, err)
		}

		result, err := workflows.List(ctx, env)
		if err != nil {
			return failWith(spinner, err)
		}

		var b strings.Builder
		fmt.Fprintf(&b, "%d entries in %s (location %s)\n", len(result.Entries), result.Backend, result.Location)
		for _, e := range result.Entries {
			if e.Managed {
				fmt.Fprintf(&b, "  %s\n", e.Name)
			} else {
				fmt.Fprintf(&b, "  %s %s\n", e.Name, ui.Muted.Sprint("not in manifest"))
			}
		}
		if len(result.Missing) > 0 {
			fmt.Fprintf(&b, "%s Not in the vault yet: %s", ui.MarkHint(), strings.Join(result.Missing, ", "))
		}
		spinner.FinalMSG = b.String()
		return nil
	},
}
