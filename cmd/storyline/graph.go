package main

import (
	"github.com/spf13/cobra"

	"github.com/wavebound/storyline/internal/cli"
)

var graphCmd = &cobra.Command{
	Use:   "graph [file | episode]",
	Short: "Export an episode graph",
	Long: `Prints a Mermaid diagram (graph TD) of an episode, or re-encodes it as
canvas, json or yaml.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		out := cmd.OutOrStdout()

		if isDocumentPath(args[0]) && format != cli.FormatCanvas {
			g, err := cli.ReadEpisodeFile(args[0])
			if err != nil {
				return err
			}
			return cli.WriteGraph(out, g, format)
		}

		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()
		return cli.ExportEpisode(commandContext(cmd), out, a.engine, seriesFlag(cmd), args[0], format)
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().StringP("format", "f", cli.FormatMermaid, "Output format: mermaid, canvas, json or yaml")
}
