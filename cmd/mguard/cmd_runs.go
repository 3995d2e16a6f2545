package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var (
	runsLimit int
	runsJSON  bool
)

// runsCmd implements 'mguard runs'
var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List journaled runs, newest first",
	Long: `List the runs recorded in the journal so their IDs can be passed to replay.

Example:
  mguard runs --limit 5`,
	Args: cobra.NoArgs,
	RunE: runRuns,
}

func init() {
	rootCmd.AddCommand(runsCmd)

	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "Maximum number of runs to list (0 for all)")
	runsCmd.Flags().BoolVar(&runsJSON, "json", false, "Print runs as JSON")
}

func runRuns(cmd *cobra.Command, args []string) error {
	b, err := bootstrap(nil)
	if err != nil {
		return err
	}
	defer b.Close()

	runs, err := b.Runs(cmd.Context(), runsLimit)
	if err != nil {
		return err
	}
	if runsJSON {
		return printJSON(cmd.OutOrStdout(), runs)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tPRESET\tCLASSIFIER\tSTEPS\tSTARTED\tSOURCE\t")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%d\t%s\t%d\t%s\t%s\t\n",
			r.ID, r.Preset, r.Classifier, r.Steps, r.StartedAt.Format(time.RFC3339), r.Source)
	}
	return w.Flush()
}
