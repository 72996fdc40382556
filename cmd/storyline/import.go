package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wavebound/storyline/internal/cli"
)

var importCmd = &cobra.Command{
	Use:   "import <file> [episode]",
	Short: "Store an episode document",
	Long: `Reads a .yaml or .json episode document and saves it to the configured
store. The episode id defaults to the file name without extension. Invalid
graphs are saved and their violations reported.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		episodeID := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		if len(args) > 1 {
			episodeID = args[1]
		}

		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		series := seriesFlag(cmd)
		report, err := cli.ImportEpisode(commandContext(cmd), a.engine, series, episodeID, path)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Saved %s/%s\n", series, episodeID)
		_ = cli.PrintReport(out, report)
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the episodes of a series",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		ids, err := a.engine.Episodes().List(commandContext(cmd), seriesFlag(cmd))
		if err != nil {
			return err
		}
		for _, id := range ids {
			fmt.Fprintln(cmd.OutOrStdout(), id)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(importCmd, listCmd)
}

func isDocumentPath(arg string) bool {
	switch strings.ToLower(filepath.Ext(arg)) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}
