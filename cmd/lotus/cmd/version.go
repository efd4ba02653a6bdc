package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show CLI version information",
	Long:  `Display the version, commit hash, and build date of the Lotus CLI.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("lotus %s\n", Version)
		fmt.Printf("commit: %s\n", Commit)
		fmt.Printf("build date: %s\n", BuildDate)
	},
}
