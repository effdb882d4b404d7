package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/PolarWolf314/dotvault/cmd"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "dotvault",
	Short: "dotvault - keep dotfiles and credentials in sync with a secret store",
	Long: `dotvault synchronizes the dotfiles and credential files listed in a YAML
manifest with a remote secret store, so every machine you work on ends up
with the same SSH keys, cloud credentials and shell configuration.

Usage:
  dotvault <command> [flags]

Available Commands:
  vault      Sync, push, pull and inspect managed items
  config     Create and inspect the configuration

Run 'dotvault help <command>' for more details on a specific command.
`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("Welcome to dotvault! Run 'dotvault --help' to see available commands.")
	},
}

func main() {
	rootCmd.AddCommand(cmd.VaultCmd)
	rootCmd.AddCommand(cmd.ConfigCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	os.Exit(cmd.ExitCode())
}
