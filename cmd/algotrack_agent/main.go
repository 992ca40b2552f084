// Package main provides the entry point for the Algotrack judge-site agent.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "algotrack_agent",
	Short: "Judge-site observation and relay agent",
	Long:  "Algotrack agent extracts sample inputs and outputs from problem pages, watches the results listing for newly accepted submissions, and relays each one to the companion service exactly once.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
