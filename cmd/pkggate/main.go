// Package main provides the entry point for the pkggate CLI tool.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/pkggate/pkggate/cmd/pkggate/commands"
	"github.com/pkggate/pkggate/pkg/version"
)

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "pkggate",
		Short: "Pkggate Registry Analysis - publish-time package validation",
		Long: `Pkggate validates package versions before they are published.

Commands:
  analyze   Run the publish pipeline on a package directory
  rebuild   Reassemble the npm tarball of a published version`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Add commands.
	rootCmd.AddCommand(commands.NewAnalyzeCommand())
	rootCmd.AddCommand(commands.NewRebuildCommand())
	rootCmd.AddCommand(versionCmd())

	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintf(os.Stdout, "pkggate %s (commit: %s, built: %s)\n", version.Version, version.Commit, version.Date)
		},
	}
}
