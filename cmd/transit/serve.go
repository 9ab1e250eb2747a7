package main

import (
	"context"

	"github.com/aretw0/transit/internal/cli"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP control server",
	Long: `Exposes an orchestrator over HTTP: start, cancel and retry transitions, hold and
release gates, stream status events and scrape Prometheus metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := cli.ServeOptions{}
		opts.ConfigPath, _ = cmd.Flags().GetString("config")
		opts.Debug, _ = cmd.Flags().GetBool("debug")
		opts.JSON, _ = cmd.Flags().GetBool("json")
		opts.Addr, _ = cmd.Flags().GetString("addr")
		opts.StepDelay, _ = cmd.Flags().GetDuration("step-delay")
		opts.From, _ = cmd.Flags().GetStringSlice("from")

		ctx := cli.NewSignalContext(context.Background())
		defer ctx.Cancel()

		return cli.Serve(ctx, opts, nil, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("addr", "a", "", "Address to listen on (overrides the config)")
	serveCmd.Flags().Duration("step-delay", 0, "Delay per simulated load step")
	serveCmd.Flags().StringSlice("from", nil, "Content active at startup")
}
