package main

import (
	"fmt"
	"os"

	"github.com/cloo-solutions/testcopilot/internal/cli"
	"github.com/cloo-solutions/testcopilot/internal/cli/client"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "copilot",
		Short: "Test Copilot CLI - test plans from requirements documents",
		Long: `Test Copilot CLI uploads requirements documents, searches them, and
generates test plans through the copilotd API.

Environment variables:
  COPILOT_API_URL   API base URL (default: http://localhost:8080)`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().Bool("output", false, "Output as JSON")
	rootCmd.PersistentFlags().String("api-url", "", "API base URL (overrides env and config)")
	cli.AddHelpJSONFlag(rootCmd)

	rootCmd.AddCommand(client.ProjectCmd())
	rootCmd.AddCommand(client.UploadCmd())
	rootCmd.AddCommand(client.DocumentCmd())
	rootCmd.AddCommand(client.SearchCmd())
	rootCmd.AddCommand(client.PlanCmd())
	rootCmd.AddCommand(client.JobCmd())

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
