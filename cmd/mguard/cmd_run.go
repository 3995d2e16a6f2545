package main

import (
	"fmt"
	"log/slog"

	"market_guard/internal/app"

	"github.com/spf13/cobra"
)

var (
	runTape   string
	runPreset uint8
)

// runCmd implements 'mguard run'
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a tape through the pipeline",
	Long: `Feed a CSV tape of kind,value rows through the sequencer. Every event is
written to the journal before it is processed, so the run can be replayed.

Examples:
  mguard run --tape data/crash.csv
  mguard run --tape data/crash.csv --preset 3`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runTape, "tape", "", "Tape file (defaults to feed.tape from config)")
	runCmd.Flags().Uint8Var(&runPreset, "preset", 0, "Threshold preset 0..3 (overrides config)")
}

func runRun(cmd *cobra.Command, args []string) error {
	presetSet := cmd.Flags().Changed("preset")
	if presetSet && runPreset > 3 {
		return fmt.Errorf("preset must be 0..3, got %d", runPreset)
	}

	b, err := bootstrap(func(b *app.Bootstrap) {
		if presetSet {
			b.Config.Pipeline.Preset = runPreset
		}
	})
	if err != nil {
		return err
	}
	defer b.Close()

	path := runTape
	if path == "" {
		path = b.Config.Feed.Tape
	}
	if path == "" {
		return fmt.Errorf("no tape given: use --tape or feed.tape")
	}

	ctx := cmd.Context()
	res, err := b.RunTape(ctx, path)
	if res != nil {
		slog.InfoContext(ctx, "✨ Run finished",
			slog.String("run_id", res.RunID),
			slog.Int("events", res.Events),
			slog.Uint64("alerts", res.Report.AlertRises),
			slog.Duration("elapsed", res.Duration))
		if perr := printJSON(cmd.OutOrStdout(), res); perr != nil {
			return perr
		}
	}
	return err
}
