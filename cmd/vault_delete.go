package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/PolarWolf314/dotvault/internal/ui"
	"github.com/PolarWolf314/dotvault/internal/utils"
	"github.com/PolarWolf314/dotvault/internal/workflows"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

var (
	deleteForce   bool
	deleteConfirm string
	deleteYes     bool
)

func init() {
	deleteCmd.Flags().BoolVarP(&deleteForce, "force", "f", false, "allow deleting a protected item")
	deleteCmd.Flags().StringVar(&deleteConfirm, "confirm", "", "repeat the item name to confirm deleting a protected item")
	deleteCmd.Flags().BoolVarP(&deleteYes, "yes", "y", false, "do not ask before deleting an unprotected item")
}

func resetDeleteCommandState() {
	deleteForce = false
	deleteConfirm = ""
	deleteYes = false
}

// confirmPrompt asks questions on the terminal. Tests replace it.
var confirmPrompt prompter = huhPrompt{}

type prompter interface {
	Confirm(title string) (bool, error)
	TypeName(title, name string) (string, error)
}

type huhPrompt struct{}

func (huhPrompt) Confirm(title string) (bool, error) {
	var ok bool
	err := huh.NewConfirm().
		Title(title).
		Affirmative("Delete").
		Negative("Cancel").
		Value(&ok).
		Run()
	return ok, err
}

func (huhPrompt) TypeName(title, name string) (string, error) {
	var typed string
	err := huh.NewInput().
		Title(title).
		Description("Type " + name + " to continue").
		Value(&typed).
		Run()
	return typed, err
}

var deleteCmd = &cobra.Command{
	Use:   "delete NAME",
	Short: "Remove an item from the remote store",
	Long: `Deletes the remote entry of one manifest item and forgets its sync
baseline. The local file is never touched. Items with backup: true have
their remote content copied to the backup directory first.

Protected items (credentials such as SSH-*, AWS-*, Git-*, GPG-*) require
--force and --confirm with the exact item name. On a terminal the name is
asked for interactively when --confirm is omitted.

Examples:
  # Delete an unprotected item
  dotvault vault delete Shell-Local

  # Delete a protected item
  dotvault vault delete AWS-Credentials --force --confirm AWS-Credentials`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting delete command")
		Logger.Debugf("Flags: force=%t, confirm=%q, yes=%t", deleteForce, deleteConfirm, deleteYes)
		name := args[0]

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		env, closeLog, err := vaultEnv()
		defer closeLog()
		if err != nil {
			return reportPlainError(err)
		}

		validated, err := workflows.Validate(ctx, env)
		if err != nil {
			return reportPlainError(err)
		}
		item, ok := validated.Manifest.Get(name)
		if ok && utils.IsInteractive() {
			switch {
			case item.Protected && deleteForce && deleteConfirm == "":
				typed, err := confirmPrompt.TypeName(
					fmt.Sprintf("%s is protected. Delete it from the vault?", name), name)
				if errors.Is(err, huh.ErrUserAborted) {
					fmt.Println("Aborted.")
					return nil
				}
				if err != nil {
					return reportPlainError(err)
				}
				deleteConfirm = typed
			case !item.Protected && !deleteYes:
				ok, err := confirmPrompt.Confirm(fmt.Sprintf("Delete %s from the vault?", name))
				if err != nil && !errors.Is(err, huh.ErrUserAborted) {
					return reportPlainError(err)
				}
				if !ok {
					fmt.Println("Aborted.")
					return nil
				}
			}
		}

		spinner, cleanup := startSpinner("Deleting "+name+"...", verbose)
		defer cleanup()

		result, err := workflows.Delete(ctx, env, workflows.DeleteOptions{
			Name:    name,
			Force:   deleteForce,
			Confirm: deleteConfirm,
		})
		if err != nil {
			return failWith(spinner, err)
		}

		msg := ui.MarkOK() + " Deleted " + ui.Highlight.Sprint(name) + " from " + result.Backend +
			" (location " + result.Location + ")"
		if !result.Existed {
			msg = ui.MarkSkip() + " " + ui.Highlight.Sprint(name) + " was not in the vault; its sync record was cleared"
		}
		if result.Backup != "" {
			msg += "\n" + ui.MarkHint() + " Remote content saved to " + ui.Path.Sprint(result.Backup)
		}
		msg += "\n" + ui.MarkHint() + " The local file was left in place; remove it from the manifest to stop syncing it"
		spinner.FinalMSG = msg
		return nil
	},
}
