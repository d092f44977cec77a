// Command toolrouter is the CLI entry point for the self-improving tool
// router: it can run as a long-lived service, drop into an interactive
// REPL, or inspect the static catalog and configuration.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "toolrouter",
	Short: "toolrouter - a self-improving LLM tool router",
	Long:  `toolrouter discovers, caches, and health-tracks MCP tool servers on behalf of an agent, learning which servers matter from usage over time.`,
}

var (
	configPath  string
	catalogPath string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.yaml (default ~/.toolrouter/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&catalogPath, "catalog", "", "path to catalog.yaml (required by run/repl)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(replCmd)
	rootCmd.AddCommand(catalogCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
