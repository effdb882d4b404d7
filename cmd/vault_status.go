package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/PolarWolf314/dotvault/internal/ui"
	"github.com/PolarWolf314/dotvault/internal/workflows"

	"github.com/spf13/cobra"
)

var (
	statusJSON   bool
	statusRemote bool
)

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "output in JSON format")
	statusCmd.Flags().BoolVar(&statusRemote, "remote", false, "also check which items exist in the remote store")
}

func resetStatusCommandState() {
	statusJSON = false
	statusRemote = false
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show every manifest item with its local file and last sync",
	Long: `Lists the items in the manifest with their local path, whether the file
exists, and when it was last pushed or pulled. Required items without a
local file are called out.

The backend is only contacted with --remote.

Examples:
  dotvault vault status
  dotvault vault status --remote --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting status command")
		Logger.Debugf("Flags: json=%t, remote=%t", statusJSON, statusRemote)

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		env, closeLog, err := vaultEnv()
		defer closeLog()
		if err != nil {
			return reportPlainError(err)
		}

		result, err := workflows.Status(ctx, env, workflows.StatusOptions{Remote: statusRemote})
		if err != nil {
			return reportPlainError(err)
		}

		if statusJSON {
			out, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return Logger.ErrorfAndReturn("failed to encode status: %v", err)
			}
			fmt.Println(string(out))
			return nil
		}

		printStatusTable(result)
		return nil
	},
}

func printStatusTable(result *workflows.StatusResult) {
	nameWidth := len("ITEM")
	for _, item := range result.Items {
		if len(item.Name) > nameWidth {
			nameWidth = len(item.Name)
		}
	}

	fmt.Printf("Manifest: %s (location %s)\n\n", ui.Path.Sprint(result.ManifestPath), result.Location)
	fmt.Printf("  %-*s  %-6s  %-8s  %-30s  %s\n", nameWidth, "ITEM", "KIND", "LOCAL", "LAST SYNC", "PATH")

	for _, item := range result.Items {
		local := ui.Error.Sprint("missing")
		switch {
		case item.Err != "":
			local = ui.Error.Sprint("error")
		case item.Drifted():
			local = ui.Warning.Sprint("modified")
		case item.LocalPresent:
			local = ui.Success.Sprint("present")
		}

		synced := "never"
		if item.LastSyncedAt != nil {
			synced = item.LastSyncedAt.Local().Format(time.DateTime)
			synced += " " + string(item.Direction)
		}

		var flags []string
		if item.Required {
			flags = append(flags, "required")
		}
		if !item.Sync {
			flags = append(flags, "manual")
		}
		if item.Protected {
			flags = append(flags, "protected")
		}
		if item.Remote != nil && !*item.Remote {
			flags = append(flags, "not in vault")
		}
		suffix := ""
		if len(flags) > 0 {
			suffix = " " + ui.Muted.Sprint(strings.Join(flags, ", "))
		}

		fmt.Printf("  %-*s  %-6s  %s  %-30s  %s%s\n", nameWidth, item.Name, item.Kind, ui.PadRight(local, 8), synced, item.Path, suffix)
		if item.Err != "" {
			fmt.Printf("  %s %s\n", ui.MarkFail(), ui.Error.Sprint(item.Err))
		}
	}

	if result.StateCorrupt {
		fmt.Println()
		fmt.Println(ui.MarkWarn() + " Checksum state is corrupt; run " + ui.Code.Sprint("dotvault vault reset-state"))
	}
	if len(result.MissingRequired) > 0 {
		fmt.Println()
		fmt.Printf("%s Required items missing locally: %s\n", ui.MarkWarn(), strings.Join(result.MissingRequired, ", "))
		fmt.Println(ui.MarkHint() + " Run " + ui.Code.Sprint("dotvault vault pull") + " to restore them")
	}
}
