package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/PolarWolf314/dotvault/internal/ui"
	"github.com/PolarWolf314/dotvault/internal/workflows"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the item manifest",
	Long: `Loads the configuration and the item manifest and reports every problem
at once. Nothing is read from or written to the backend.

Exits with status 4 when the manifest is invalid.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting validate command")

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		env, closeLog, err := vaultEnv()
		defer closeLog()
		if err != nil {
			return reportPlainError(err)
		}

		result, err := workflows.Validate(ctx, env)
		if err != nil {
			return reportPlainError(err)
		}

		m := result.Manifest
		var b strings.Builder
		fmt.Fprintf(&b, "%s %s is valid: %d items, location %s", ui.MarkOK(), ui.Path.Sprint(m.Path), len(m.Items), result.Location)
		if len(m.Items) > 0 {
			fmt.Fprintf(&b, "\n  %s", strings.Join(m.Names(), ", "))
		}
		for _, w := range m.Warnings {
			fmt.Fprintf(&b, "\n%s %s", ui.MarkWarn(), w)
		}
		fmt.Println(b.String())
		return nil
	},
}
