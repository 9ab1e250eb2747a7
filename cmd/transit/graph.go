package main

import (
	"github.com/aretw0/transit/internal/cli"
	"github.com/spf13/cobra"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph <destination|preset>",
	Short: "Export the transition pipeline as a Mermaid diagram",
	Long:  `Builds the step pipeline a transition would run and outputs it as a Mermaid diagram (graph TD).`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		return cli.PrintPlan(cmd.OutOrStdout(), path, args[0])
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
}
