package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is overridden at build time.
var Version = "dev"

func init() {
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("nbrun %s\n", Version)
	},
}
