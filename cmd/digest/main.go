// Package main provides the entry point for the news digest CLI.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "digest",
	Short: "News digest acquisition and curation pipeline",
	Long: `Collects candidate articles from configured sources and web search, filters and ranks them
with an AI model, writes missing descriptions, assigns balanced categories and summarizes the result.`,
	SilenceUsage: true,
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
