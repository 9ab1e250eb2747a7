package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/transit"
	"github.com/aretw0/transit/internal/presentation/tui"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of transit",
	Run: func(cmd *cobra.Command, args []string) {
		version := strings.TrimSpace(transit.Version)
		if banner, _ := cmd.Flags().GetBool("banner"); banner {
			tui.PrintBanner(cmd.OutOrStdout(), version)
			return
		}
		fmt.Fprintf(cmd.OutOrStdout(), "transit version %s\n", version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().Bool("banner", false, "Print the full banner")
}
