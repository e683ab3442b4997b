package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/Protocol-Lattice/wakalat-agent/pkg/mcp"
	"github.com/Protocol-Lattice/wakalat-agent/pkg/tools"
	"github.com/spf13/cobra"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "Inspect and call the MCP server's tools",
}

var toolsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the tools the MCP server exposes",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		a, err := bootstrap(ctx, cmd)
		if err != nil {
			return err
		}
		defer a.close()

		if status := a.connect(ctx); !status.Connected {
			return fmt.Errorf("MCP client not connected: %s", status.Error)
		}
		descriptors, err := a.conn.ListCapabilities(ctx)
		if err != nil {
			return err
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(descriptors)
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tREQUIRED\tDESCRIPTION")
		for _, d := range descriptors {
			fmt.Fprintf(w, "%s\t%s\t%s\n", d.Name, strings.Join(d.InputSchema.Required, ","), d.Description)
		}
		return w.Flush()
	},
}

var toolsCallCmd = &cobra.Command{
	Use:   "call <tool>",
	Short: "Invoke a tool with JSON arguments",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		rawArgs, _ := cmd.Flags().GetString("args")
		var toolArgs map[string]any
		if err := json.Unmarshal([]byte(rawArgs), &toolArgs); err != nil {
			return fmt.Errorf("--args must be a JSON object: %w", err)
		}
		if toolArgs == nil {
			toolArgs = map[string]any{}
		}

		a, err := bootstrap(ctx, cmd)
		if err != nil {
			return err
		}
		defer a.close()

		if status := a.connect(ctx); !status.Connected {
			return fmt.Errorf("MCP client not connected: %s", status.Error)
		}
		descriptors, err := a.conn.ListCapabilities(ctx)
		if err != nil {
			return err
		}
		descriptor, ok := findTool(descriptors, args[0])
		if !ok {
			return fmt.Errorf("tool %q not found", args[0])
		}

		output, err := tools.NewCapability(a.conn, descriptor).Run(ctx, toolArgs)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), output)
		return nil
	},
}

var toolsPingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Start the MCP server and check that it answers",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		a, err := bootstrap(ctx, cmd)
		if err != nil {
			return err
		}
		defer a.close()

		status := a.connect(ctx)
		if !status.Connected {
			return fmt.Errorf("MCP client not connected: %s", status.Error)
		}
		if err := a.conn.Ping(ctx); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if cfg, ok := a.conn.Config(); ok {
			fmt.Fprintf(out, "command: %s\n", strings.TrimSpace(cfg.Command+" "+strings.Join(cfg.Args, " ")))
			if cfg.WorkingDirectory != "" {
				fmt.Fprintf(out, "cwd:     %s\n", cfg.WorkingDirectory)
			}
		}
		if status.ServerInfo != nil {
			fmt.Fprintf(out, "server:  %s %s\n", status.ServerInfo.Name, status.ServerInfo.Version)
		}
		fmt.Fprintln(out, "ok")
		return nil
	},
}

func findTool(descriptors []mcp.ToolDescriptor, name string) (mcp.ToolDescriptor, bool) {
	for _, d := range descriptors {
		if d.Name == name {
			return d, true
		}
	}
	return mcp.ToolDescriptor{}, false
}

func init() {
	rootCmd.AddCommand(toolsCmd)
	toolsCmd.AddCommand(toolsListCmd, toolsCallCmd, toolsPingCmd)
	toolsListCmd.Flags().Bool("json", false, "Print the normalised descriptors as JSON")
	toolsCallCmd.Flags().String("args", "{}", "Tool arguments as a JSON object")
}
