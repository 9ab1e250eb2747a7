package main

import (
	"github.com/aretw0/transit/internal/cli"
	"github.com/spf13/cobra"
)

var policiesCmd = &cobra.Command{
	Use:   "policies",
	Short: "Print the failure policy table",
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		return cli.PrintPolicies(cmd.OutOrStdout(), asJSON)
	},
}

func init() {
	rootCmd.AddCommand(policiesCmd)
}
