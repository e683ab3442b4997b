package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/Protocol-Lattice/wakalat-agent/pkg/agent"
	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat <message>",
	Short: "Ask the assistant a single question",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := bootstrap(ctx, cmd)
		if err != nil {
			return err
		}
		defer a.close()

		useTools := a.cfg.Assistant.UseMCPTools
		if cmd.Flags().Changed("tools") {
			useTools, _ = cmd.Flags().GetBool("tools")
		}
		if useTools {
			a.connect(ctx)
		}

		opts := agent.RunOptions{
			Message:     strings.Join(args, " "),
			UseMCPTools: useTools,
		}

		out := cmd.OutOrStdout()
		var result agent.RunResult
		if stream, _ := cmd.Flags().GetBool("stream"); stream {
			result, err = a.assistant.RunStream(ctx, opts, func(delta string) {
				fmt.Fprint(out, delta)
			})
			fmt.Fprintln(out)
		} else {
			result, err = a.assistant.Run(ctx, opts)
			if err == nil {
				fmt.Fprintln(out, result.FinalText)
			}
		}
		if err != nil {
			return err
		}

		if show, _ := cmd.Flags().GetBool("show-tool-calls"); show && len(result.ToolCalls) > 0 {
			enc := json.NewEncoder(os.Stderr)
			enc.SetIndent("", "  ")
			return enc.Encode(result.ToolCalls)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().Bool("stream", false, "Print the answer as it is generated")
	chatCmd.Flags().Bool("tools", true, "Offer the MCP server's tools to the model")
	chatCmd.Flags().Bool("show-tool-calls", false, "Print the tool call audit trail to stderr")
}
