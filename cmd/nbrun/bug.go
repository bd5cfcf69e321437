package main

import (
	"fmt"

	"github.com/pkg/browser"
	"github.com/spf13/cobra"

	"github.com/nbrun/nbrun/internal/core"
)

func init() {
	rootCmd.AddCommand(bugCmd)
}

var bugCmd = &cobra.Command{
	Use:   "bug",
	Short: "Report a bug",
	Long:  `Open the issue tracker in a browser.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := browser.OpenURL(core.IssueTrackerURL); err != nil {
			// No browser available. The URL is still useful.
			fmt.Println(core.IssueTrackerURL)
		}
	},
}
