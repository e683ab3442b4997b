package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/Protocol-Lattice/wakalat-agent/pkg/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long:  `Serves the chat, streaming chat and MCP management endpoints over HTTP.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := bootstrap(ctx, cmd)
		if err != nil {
			return err
		}
		defer a.close()

		addr := a.cfg.Server.Addr
		if flagAddr, _ := cmd.Flags().GetString("addr"); flagAddr != "" {
			addr = flagAddr
		}
		if a.cfg.MCP.AutoConnect {
			a.connect(ctx)
		}

		srv := server.New(server.Options{
			Assistant:  a.assistant,
			Connection: a.conn,
			Defaults:   a.connectionDefaults(),
			CORSOrigin: a.cfg.Server.CORSOrigin,
			Metrics:    a.metrics,
			Logger:     a.logger,
		})

		a.logger.Info("starting wakalat",
			zap.String("addr", addr),
			zap.String("provider", a.cfg.Model.Provider),
			zap.Bool("configured", a.assistant.IsConfigured()))
		err = srv.Serve(ctx, addr)
		if err == nil || ctx.Err() != nil {
			a.logger.Info("wakalat stopped")
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Listen address (overrides server.addr)")
}
