package main

import (
	"fmt"
	"text/tabwriter"

	"market_guard/internal/domain"

	"github.com/spf13/cobra"
)

// presetsCmd implements 'mguard presets'
var presetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "List the rule threshold presets",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "PRESET\tSPIKE\tFLASH\t")
		for p := domain.Preset(0); p < 4; p++ {
			marker := ""
			if p == domain.DefaultPreset {
				marker = " (default)"
			}
			fmt.Fprintf(w, "%d%s\t%d\t%d\t\n", p, marker, p.Spike(), p.Flash())
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(presetsCmd)
}
