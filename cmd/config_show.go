package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/PolarWolf314/dotvault/internal/ui"
	"github.com/PolarWolf314/dotvault/internal/workflows"

	"github.com/spf13/cobra"
)

var configShowJSON bool

func init() {
	configShowCmd.Flags().BoolVar(&configShowJSON, "json", false, "output in JSON format")
	ConfigCmd.AddCommand(configShowCmd)
}

// resetConfigShowState resets the config show command's global state for testing.
func resetConfigShowState() {
	configShowJSON = false
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Display the effective configuration",
	Long: `Shows the configuration after config.toml, DOTVAULT_* environment
variables and defaults have been merged, together with the resolved
manifest, state and backup locations. A session token is never printed.

Examples:
  dotvault config show
  dotvault config show --json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ConfigLogger.Infof("Starting config show command")

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		env, closeLog, err := configEnv()
		defer closeLog()
		if err != nil {
			return reportConfigError(err)
		}

		result, err := workflows.ConfigShow(ctx, env)
		if err != nil {
			return reportConfigError(err)
		}

		if configShowJSON {
			out, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return ConfigLogger.ErrorfAndReturn("Failed to encode configuration: %v", err)
			}
			fmt.Println(string(out))
			return nil
		}

		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(result.Config); err != nil {
			return ConfigLogger.ErrorfAndReturn("Failed to encode configuration: %v", err)
		}

		session := "not set"
		if result.SessionSet {
			session = "set"
		}
		fmt.Println(ui.Muted.Sprint("# " + result.ConfigFile))
		fmt.Print(buf.String())
		fmt.Println()
		fmt.Println("Paths:")
		fmt.Println("  Manifest: " + ui.Path.Sprint(result.ManifestPath))
		fmt.Println("  State:    " + ui.Path.Sprint(result.StateDir))
		fmt.Println("  Backups:  " + ui.Path.Sprint(result.BackupDir))
		fmt.Println("  Session:  " + session)
		return nil
	},
}

func reportConfigError(err error) error {
	ConfigLogger.Debugf("command failed: %v", err)
	setExitCode(exitCodeFor(err))
	if configShowJSON {
		out, _ := json.Marshal(map[string]string{"error": err.Error()})
		fmt.Println(string(out))
		return nil
	}
	fmt.Println(formatError(err))
	return nil
}
