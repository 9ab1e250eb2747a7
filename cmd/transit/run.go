package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aretw0/transit/internal/cli"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run <destination|preset>",
	Short: "Simulate one transition in the terminal",
	Long: `Runs a transition against in-memory content. The argument is looked up as a
config preset first and used as a destination otherwise. Failures can be injected
with --fail and a server hold simulated with --gate-delay.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := cli.RunOptions{Target: args[0]}
		opts.ConfigPath, _ = cmd.Flags().GetString("config")
		opts.Debug, _ = cmd.Flags().GetBool("debug")
		opts.JSON, _ = cmd.Flags().GetBool("json")
		opts.Fail, _ = cmd.Flags().GetString("fail")
		opts.GateDelay, _ = cmd.Flags().GetDuration("gate-delay")
		opts.Timeout, _ = cmd.Flags().GetDuration("timeout")
		opts.Fallback, _ = cmd.Flags().GetString("fallback")
		opts.Retry, _ = cmd.Flags().GetBool("retry")
		opts.Steps, _ = cmd.Flags().GetInt("steps")
		opts.StepDelay, _ = cmd.Flags().GetDuration("step-delay")
		opts.From, _ = cmd.Flags().GetStringSlice("from")

		ctx := cli.NewSignalContext(context.Background())
		defer ctx.Cancel()

		err := cli.Execute(ctx, opts, cmd.OutOrStdout())
		if sig := ctx.Signal(); sig != nil {
			fmt.Fprintf(os.Stderr, "\nInterrupted by %v\n", sig)
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().String("fail", "", "Inject a failure: load, cache or rejected")
	runCmd.Flags().Duration("gate-delay", 0, "Hold the activation gate for this long, like a slow server")
	runCmd.Flags().Duration("timeout", 0, "Activation gate timeout (0 waits forever)")
	runCmd.Flags().String("fallback", "", "Destination to fall back to when the policy allows it")
	runCmd.Flags().Bool("retry", false, "Retry once using the recovery the failure policy offers")
	runCmd.Flags().Int("steps", 0, "Number of simulated load steps (0 uses the default)")
	runCmd.Flags().Duration("step-delay", 0, "Delay per simulated load step")
	runCmd.Flags().StringSlice("from", nil, "Content active before the transition")
}
