package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/PolarWolf314/dotvault/internal/ui"
	"github.com/PolarWolf314/dotvault/internal/vault"
	"github.com/PolarWolf314/dotvault/internal/workflows"

	"github.com/spf13/cobra"
)

var (
	driftQuick bool
	driftJSON  bool
	driftWatch bool
)

func init() {
	driftCmd.Flags().BoolVar(&driftQuick, "quick", false, "only check items that have been synced before")
	driftCmd.Flags().BoolVar(&driftJSON, "json", false, "output in JSON format")
	driftCmd.Flags().BoolVar(&driftWatch, "watch", false, "keep running and report whenever an item file changes")
}

func resetDriftCommandState() {
	driftQuick = false
	driftJSON = false
	driftWatch = false
}

var driftCmd = &cobra.Command{
	Use:   "drift",
	Short: "Show local files that changed since the last sync",
	Long: `Compares every local item file with the checksum recorded at its last
sync. The backend is never contacted, so this works offline and while the
vault is locked. Fast enough for a shell prompt hook with --quick.

Statuses:
  modified:  the file changed since the last sync
  missing:   the file was synced before but is gone
  untracked: the file exists but was never synced (not shown with --quick)

Exits with status 3 when anything drifted.

Examples:
  # Check for unsynced edits
  dotvault vault drift

  # Machine-readable output
  dotvault vault drift --json

  # Watch item files until interrupted
  dotvault vault drift --watch`,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting drift command")
		Logger.Debugf("Flags: quick=%t, json=%t, watch=%t", driftQuick, driftJSON, driftWatch)

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		env, closeLog, err := vaultEnv()
		defer closeLog()
		if err != nil {
			return reportPlainError(err)
		}
		opts := workflows.DriftOptions{Quick: driftQuick}

		if driftWatch {
			err := workflows.WatchDrift(ctx, env, opts, func(result *workflows.DriftResult) {
				printDrift(result, true)
			})
			if err != nil {
				return reportPlainError(err)
			}
			return nil
		}

		result, err := workflows.Drift(ctx, env, opts)
		if err != nil {
			return reportPlainError(err)
		}
		setExitCode(result.ExitCode())
		printDrift(result, false)
		return nil
	},
}

// reportPlainError prints err for commands that do not use a spinner.
func reportPlainError(err error) error {
	Logger.Debugf("command failed: %v", err)
	setExitCode(exitCodeFor(err))
	if driftJSON || statusJSON {
		out, _ := json.Marshal(map[string]string{"error": err.Error()})
		fmt.Println(string(out))
		return nil
	}
	fmt.Fprintln(os.Stdout, formatError(err))
	return nil
}

func printDrift(result *workflows.DriftResult, stamped bool) {
	if driftJSON {
		out, err := json.Marshal(result.Report)
		if err != nil {
			Logger.Errorf("failed to encode drift report: %v", err)
			return
		}
		fmt.Println(string(out))
		return
	}

	var b strings.Builder
	if stamped {
		b.WriteString(ui.Muted.Sprint(time.Now().Format(time.TimeOnly)) + "\n")
	}

	report := result.Report
	if !report.Available {
		b.WriteString(ui.MarkWarn() + " Drift detection unavailable: " + report.Reason)
		fmt.Println(b.String())
		return
	}

	drifted := report.Drifted()
	if len(drifted) == 0 {
		fmt.Fprintf(&b, "%s No drift in %d tracked items", ui.MarkOK(), len(report.Entries))
		fmt.Println(b.String())
		return
	}

	for _, e := range drifted {
		name := ui.Highlight.Sprint(e.Name)
		switch e.Status {
		case vault.DriftModified:
			fmt.Fprintf(&b, "%s %s modified %s\n", ui.MarkWarn(), name,
				ui.Muted.Sprintf("%s -> %s", e.Baseline.Short(), e.Local.Short()))
		case vault.DriftMissing:
			fmt.Fprintf(&b, "%s %s missing locally\n", ui.MarkFail(), name)
		case vault.DriftUntracked:
			fmt.Fprintf(&b, "%s %s never synced\n", ui.MarkHint(), name)
		case vault.DriftError:
			fmt.Fprintf(&b, "%s %s %s\n", ui.MarkFail(), name, ui.Error.Sprint(e.Err))
		}
	}
	b.WriteString(ui.MarkHint() + " Run " + ui.Code.Sprint("dotvault vault sync") + " to reconcile")
	fmt.Println(b.String())
}
