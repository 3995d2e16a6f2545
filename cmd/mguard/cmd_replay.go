package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var replayRunID string

// replayCmd implements 'mguard replay'
var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Re-run a journaled run and verify its alert trace",
	Long: `Load a run's write-ahead log, feed it through a fresh pipeline and compare the
fingerprint of the fused alert and breaker trace with the recorded one.

Example:
  mguard replay --run 6f1c2a0e-...`,
	RunE: runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)

	replayCmd.Flags().StringVar(&replayRunID, "run", "", "Run ID to replay")
	replayCmd.MarkFlagRequired("run")
}

func runReplay(cmd *cobra.Command, args []string) error {
	b, err := bootstrap(nil)
	if err != nil {
		return err
	}
	defer b.Close()

	res, err := b.Replay(cmd.Context(), replayRunID)
	if err != nil {
		return err
	}
	if err := printJSON(cmd.OutOrStdout(), res); err != nil {
		return err
	}
	if !res.Match {
		return fmt.Errorf("replay of %s diverged: digest %s, recorded %s", res.RunID, res.Report.Digest, res.Expected)
	}
	return nil
}
