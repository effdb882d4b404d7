package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/PolarWolf314/dotvault/internal/configs"
	"github.com/PolarWolf314/dotvault/internal/ui"
	"github.com/PolarWolf314/dotvault/internal/workflows"

	"github.com/spf13/cobra"
)

var (
	configInitBackend  string
	configInitLocation string
	configInitForce    bool
)

func init() {
	configInitCmd.Flags().StringVar(&configInitBackend, "backend", "", "backend to record (bitwarden, onepassword, pass, age)")
	configInitCmd.Flags().StringVar(&configInitLocation, "location", "", "default folder, vault or subdirectory for items")
	configInitCmd.Flags().BoolVarP(&configInitForce, "force", "f", false, "overwrite an existing config.toml")
	ConfigCmd.AddCommand(configInitCmd)
}

// resetConfigInitState resets the config init command's global state for testing.
func resetConfigInitState() {
	configInitBackend = ""
	configInitLocation = ""
	configInitForce = false
}

// configEnv builds the environment for the config subcommands.
func configEnv() (*workflows.Env, func(), error) {
	return newEnv(ConfigLogger, configPath, "", nil)
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter configuration and item manifest",
	Long: `Creates config.toml and an example items.yaml in the config directory.

An existing config.toml is left alone unless --force is given. An existing
items.yaml is never overwritten.

Examples:
  # Use Bitwarden (the default)
  dotvault config init

  # Use an age-encrypted directory under the state dir
  dotvault config init --backend age

  # Keep items in a dedicated 1Password vault
  dotvault config init --backend onepassword --location Dotfiles`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ConfigLogger.Infof("Starting config init command")
		ConfigLogger.Debugf("Flags: backend=%q, location=%q, force=%t", configInitBackend, configInitLocation, configInitForce)

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		spinner, cleanup := startSpinnerWithFlags("Writing configuration...", configVerbose, configDebug)
		defer cleanup()

		env, closeLog, err := configEnv()
		defer closeLog()
		if err != nil {
			return failWith(spinner, err)
		}

		result, err := workflows.ConfigInit(ctx, env, workflows.ConfigInitOptions{
			Backend:  configInitBackend,
			Location: configInitLocation,
			Force:    configInitForce,
		})
		if err != nil {
			return failWith(spinner, err)
		}

		var lines []string
		switch {
		case result.WroteConfig && result.ExistingConfig:
			lines = append(lines, fmt.Sprintf("%s Overwrote %s", ui.MarkOK(), ui.Path.Sprint(result.ConfigPath)))
		case result.WroteConfig:
			lines = append(lines, fmt.Sprintf("%s Wrote %s (backend %s)", ui.MarkOK(), ui.Path.Sprint(result.ConfigPath), ui.Highlight.Sprint(result.BackendKind)))
		default:
			lines = append(lines, fmt.Sprintf("%s %s already exists %s", ui.MarkSkip(), ui.Path.Sprint(result.ConfigPath), ui.Muted.Sprint("use --force to overwrite")))
		}
		if result.WroteManifest {
			lines = append(lines, fmt.Sprintf("%s Wrote example manifest %s", ui.MarkOK(), ui.Path.Sprint(result.ManifestPath)))
		} else {
			lines = append(lines, fmt.Sprintf("%s Kept existing manifest %s", ui.MarkSkip(), ui.Path.Sprint(result.ManifestPath)))
		}
		if result.BackendKind == configs.BackendAge {
			lines = append(lines, ui.MarkHint()+" Generate an identity with "+ui.Code.Sprint("age-keygen -o ~/.config/dotvault/identity.txt"))
		}
		lines = append(lines, ui.MarkHint()+" Edit the manifest, then run "+ui.Code.Sprint("dotvault vault validate"))
		spinner.FinalMSG = strings.Join(lines, "\n")
		return nil
	},
}
