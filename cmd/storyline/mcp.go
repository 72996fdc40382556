package main

import (
	"github.com/spf13/cobra"

	"github.com/wavebound/storyline/internal/cli"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve authoring and preview tools over MCP (stdio)",
	Long: `Speaks the Model Context Protocol on stdin and stdout so assistants can
inspect, edit, validate and play episodes. Logs go to stderr.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		sigCtx := cli.NewSignalContext(commandContext(cmd))
		defer sigCtx.Cancel()

		srv := cli.NewMCPServer(a.engine, a.logger)
		return cli.ServeMCP(sigCtx, srv, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
