package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"market_guard/internal/app"

	"github.com/spf13/cobra"
)

var configPath string

// rootCmd is the base command for the Market Guard CLI
var rootCmd = &cobra.Command{
	Use:   "mguard",
	Short: "Lockstep market anomaly detection and circuit breaker",
	Long: `Market Guard replays market event tapes through a deterministic pipeline of
rule and classifier detectors, a cascade recogniser and a trading circuit
breaker, journaling every alert edge and breaker transition.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "configs/config.yaml", "Path to configuration file")
}

func main() {
	// Graceful Shutdown Context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// bootstrap loads the configuration and initializes the shared components.
func bootstrap(mutate func(b *app.Bootstrap)) (*app.Bootstrap, error) {
	b := app.NewBootstrap()
	if err := b.Initialize(configPath); err != nil {
		return nil, fmt.Errorf("bootstrapping failed: %w", err)
	}
	if mutate != nil {
		mutate(b)
	}
	return b, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
