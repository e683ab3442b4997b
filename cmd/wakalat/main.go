// Command wakalat runs the legal research assistant: an HTTP service, a
// one-shot chat client and helpers for inspecting the MCP tool server.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "wakalat",
	Short: "WAKALAT.AI legal research assistant",
	Long: `wakalat answers questions about Indian law with a hosted language model,
optionally grounding its answers in tools exposed by an MCP server.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to a YAML config file (default: ./wakalat.yaml when present)")
	rootCmd.PersistentFlags().String("log-level", "", "Override the configured log level")
}
