package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/PolarWolf314/dotvault/internal/ui"
	"github.com/PolarWolf314/dotvault/internal/utils"
	"github.com/PolarWolf314/dotvault/internal/vault"
	"github.com/PolarWolf314/dotvault/internal/workflows"

	"github.com/spf13/cobra"
)

var (
	syncDryRun     bool
	syncForceLocal bool
	syncForceVault bool
	syncWorkers    int
)

func init() {
	syncCmd.Flags().BoolVar(&syncDryRun, "dry-run", false, "show what would change without touching anything")
	syncCmd.Flags().BoolVar(&syncForceLocal, "force-local", false, "resolve conflicts by pushing local content")
	syncCmd.Flags().BoolVar(&syncForceVault, "force-vault", false, "resolve conflicts by pulling remote content")
	syncCmd.Flags().IntVar(&syncWorkers, "workers", 0, "items processed in parallel (1-8, default from config)")
	syncCmd.MarkFlagsMutuallyExclusive("force-local", "force-vault")
}

func resetSyncCommandState() {
	syncDryRun = false
	syncForceLocal = false
	syncForceVault = false
	syncWorkers = 0
}

var syncCmd = &cobra.Command{
	Use:   "sync [items...]",
	Short: "Push local changes and pull remote changes for every item",
	Long: `Compares every selected item with its remote entry and the checksum
recorded at the last sync, then pushes, pulls or skips it.

Items changed on both sides since the last sync are conflicts: nothing is
written and the command exits with status 2. Use --force-local or
--force-vault to resolve every conflict in one direction.

With no arguments every item with sync: true is processed. Naming an item
includes it even when sync is false.

Examples:
  # Sync everything
  dotvault vault sync

  # Preview the decisions
  dotvault vault sync --dry-run

  # Sync two items, keeping the local copy on conflict
  dotvault vault sync Git-Config SSH-Personal --force-local`,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting sync command")
		Logger.Debugf("Flags: dry-run=%t, force-local=%t, force-vault=%t, workers=%d, items=%v",
			syncDryRun, syncForceLocal, syncForceVault, syncWorkers, args)

		force := vault.ForceNone
		switch {
		case syncForceLocal:
			force = vault.ForceLocal
		case syncForceVault:
			force = vault.ForceVault
		}

		return runEngineCommand(cmd.Context(), "Syncing items...", workflows.Sync, workflows.SyncOptions{
			Items:   args,
			DryRun:  syncDryRun,
			Force:   force,
			Workers: syncWorkers,
		})
	},
}

type engineWorkflow func(context.Context, *workflows.Env, workflows.SyncOptions) (*workflows.SyncResult, error)

// runEngineCommand is shared by sync, push and pull.
func runEngineCommand(ctx context.Context, message string, run engineWorkflow, opts workflows.SyncOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}

	spinner, cleanup := startSpinner(message, verbose)
	defer cleanup()

	env, closeLog, err := vaultEnv()
	defer closeLog()
	if err != nil {
		return failWith(spinner, err)
	}

	result, err := run(ctx, env, opts)
	if err != nil {
		return failWith(spinner, err)
	}

	Logger.Infof("%s finished: %d pushed, %d pulled, %d conflicts, %d errors",
		result.Mode, result.Report.Count(vault.OutcomePushed), result.Report.Count(vault.OutcomePulled),
		result.Report.Count(vault.OutcomeConflict), result.Report.Count(vault.OutcomeError))

	setExitCode(result.ExitCode())
	spinner.FinalMSG = formatReport(result)
	return nil
}

// formatReport renders one line per item followed by a summary.
func formatReport(result *workflows.SyncResult) string {
	var b strings.Builder
	report := result.Report

	if report.DryRun {
		b.WriteString(ui.Muted.Sprint("dry run, nothing was changed") + "\n")
	}

	for _, res := range report.Results {
		name := ui.Highlight.Sprint(res.Item.Name)
		switch res.Outcome {
		case vault.OutcomePushed:
			fmt.Fprintf(&b, "%s %s pushed %s\n", ui.MarkOK(), name, ui.Muted.Sprint(res.Decision.Reason))
		case vault.OutcomePulled:
			fmt.Fprintf(&b, "%s %s pulled %s\n", ui.MarkOK(), name, ui.Muted.Sprint(res.Decision.Reason))
			if len(res.Backups) > 0 {
				b.WriteString("    previous version saved to:" + utils.FormatPaths(res.Backups))
			}
		case vault.OutcomePlanned:
			fmt.Fprintf(&b, "%s %s would %s %s\n", ui.MarkHint(), name, res.Decision.Action, ui.Muted.Sprint(res.Decision.Reason))
		case vault.OutcomeConflict:
			reason := res.Decision.Reason
			if res.Err != nil {
				reason = res.Err.Error()
			}
			fmt.Fprintf(&b, "%s %s conflict: %s\n", ui.MarkConflict(), name, reason)
		case vault.OutcomeError:
			fmt.Fprintf(&b, "%s %s %s\n", ui.MarkFail(), name, ui.Error.Sprint(res.Err))
		case vault.OutcomeSkipped:
			if verbose || debug {
				fmt.Fprintf(&b, "%s %s %s\n", ui.MarkSkip(), name, res.Decision.Reason)
			}
		}
	}

	counts := []string{
		fmt.Sprintf("%d pushed", report.Count(vault.OutcomePushed)),
		fmt.Sprintf("%d pulled", report.Count(vault.OutcomePulled)),
		fmt.Sprintf("%d skipped", report.Count(vault.OutcomeSkipped)),
	}
	if n := report.Count(vault.OutcomePlanned); n > 0 {
		counts = append(counts, fmt.Sprintf("%d planned", n))
	}
	if n := report.Count(vault.OutcomeConflict); n > 0 {
		counts = append(counts, ui.Warning.Sprintf("%d %s", n, utils.Plural(n, "conflict")))
	}
	if n := report.Count(vault.OutcomeError); n > 0 {
		counts = append(counts, ui.Error.Sprintf("%d %s", n, utils.Plural(n, "error")))
	}
	conflicts := report.With(vault.OutcomeConflict)
	if !report.DryRun && !report.Changed() && len(conflicts) == 0 && report.Count(vault.OutcomeError) == 0 {
		b.WriteString(ui.MarkOK() + " Nothing to do, every item is in sync\n")
	}
	fmt.Fprintf(&b, "%s (%s, location %s): %s", result.Mode, result.Backend, result.Location, strings.Join(counts, ", "))

	if len(conflicts) == 0 {
		return b.String()
	}
	names := make([]string, len(conflicts))
	for i, res := range conflicts {
		names[i] = res.Item.Name
	}
	switch result.Mode {
	case vault.ModeSync:
		b.WriteString("\n" + ui.MarkHint() + " Resolve " + strings.Join(names, ", ") + " with " + ui.Flag.Sprint("--force-local") +
			" or " + ui.Flag.Sprint("--force-vault") + ", or edit one side and sync again")
	case vault.ModePull:
		b.WriteString("\n" + ui.MarkHint() + " Local edits to " + strings.Join(names, ", ") + " were kept; pass " +
			ui.Flag.Sprint("--force") + " to overwrite them")
	}
	return b.String()
}
