package main

import (
	"fmt"
	"os"

	"github.com/aretw0/transit/internal/config"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "transit",
	Short: "Transit orchestrates gated, cancellable content transitions",
	Long: `Transit drives a content transition through unload, load, server gates and
activation, with smoothed progress, failure classification and one-shot fallback.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", config.DefaultPath, "Path to the transit config file (YAML or JSON)")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging and lifecycle tracing")
	rootCmd.PersistentFlags().Bool("json", false, "Emit JSON output and JSON logs")
}
