// Command precedents-mcp serves the sample precedent corpus as an MCP tool
// server on stdin/stdout. Logs go to stderr so they never corrupt the
// protocol stream.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Protocol-Lattice/wakalat-agent/pkg/config"
	"github.com/Protocol-Lattice/wakalat-agent/pkg/logging"
	"github.com/Protocol-Lattice/wakalat-agent/pkg/precedents"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rootCmd = &cobra.Command{
	Use:          "precedents-mcp",
	Short:        "MCP tool server over a sample corpus of Indian judgments and statutes",
	Version:      precedents.Version,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		level, _ := cmd.Flags().GetString("log-level")
		logger, err := logging.New(config.LogConfig{Level: level})
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		logger.Info("precedents MCP server starting", zap.String("version", precedents.Version))
		err = precedents.ServeStdio(ctx, precedents.NewServer(logger), cmd.InOrStdin(), cmd.OutOrStdout())
		if err != nil && ctx.Err() == nil {
			return err
		}
		return nil
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().String("log-level", "warn", "Log level (logs are written to stderr)")
}
