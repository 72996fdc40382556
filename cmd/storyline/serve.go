package main

import (
	"github.com/spf13/cobra"

	"github.com/wavebound/storyline/internal/cli"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the authoring and preview HTTP server",
	Long: `Serves the episode API for editors: graphs, canvases, Mermaid exports,
validation and live preview sessions with server-sent events.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		addr := a.cfg.HTTPAddr
		if cmd.Flags().Changed("addr") {
			addr, _ = cmd.Flags().GetString("addr")
		}

		sigCtx := cli.NewSignalContext(commandContext(cmd))
		defer sigCtx.Cancel()

		api := cli.NewAPI(a.engine, a.logger)
		return cli.Serve(sigCtx, addr, api, cmd.ErrOrStderr())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("addr", "a", ":8080", "Address to listen on")
}
