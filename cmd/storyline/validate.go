package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wavebound/storyline/internal/cli"
	"github.com/wavebound/storyline/pkg/validator"
)

var validateCmd = &cobra.Command{
	Use:   "validate [file | episode]",
	Short: "Check an episode graph for consistency",
	Long: `Reports dangling targets, duplicate ids, unreachable nodes and other
violations. A path to a .yaml or .json document is checked directly;
anything else is taken as an episode id in the configured store.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		report, err := validateTarget(cmd, args[0])
		if err != nil {
			return err
		}
		if err := cli.PrintReport(cmd.OutOrStdout(), report); err != nil {
			return fmt.Errorf("validation failed: %d violation(s)", len(report.Violations))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func validateTarget(cmd *cobra.Command, target string) (*validator.Report, error) {
	if isDocumentPath(target) {
		g, err := cli.ReadEpisodeFile(target)
		if err != nil {
			return nil, err
		}
		return validator.Validate(g), nil
	}

	a, err := newApp(cmd)
	if err != nil {
		return nil, err
	}
	defer a.Close()
	g, err := a.engine.Open(commandContext(cmd), seriesFlag(cmd), target)
	if err != nil {
		return nil, err
	}
	return a.engine.Validate(g), nil
}
