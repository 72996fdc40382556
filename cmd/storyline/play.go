package main

import (
	"github.com/spf13/cobra"

	"github.com/wavebound/storyline/internal/cli"
)

var playCmd = &cobra.Command{
	Use:   "play <episode>",
	Short: "Play an episode in the terminal",
	Long: `Plays a stored episode interactively. Audio is simulated: media time
advances in steps and choices appear at each node's timestamp. Press enter
without a number to let the choice window run out.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		user, _ := cmd.Flags().GetString("user")
		step, _ := cmd.Flags().GetFloat64("step")
		length, _ := cmd.Flags().GetFloat64("audio-length")
		plain, _ := cmd.Flags().GetBool("plain")
		quiet, _ := cmd.Flags().GetBool("quiet")

		return cli.RunPlay(commandContext(cmd), a.engine, cli.PlayOptions{
			SeriesID:    seriesFlag(cmd),
			EpisodeID:   args[0],
			UserID:      user,
			Step:        step,
			AudioLength: length,
			Plain:       plain,
			Quiet:       quiet,
			Stdin:       cmd.InOrStdin(),
			Stdout:      cmd.OutOrStdout(),
		})
	},
}

func init() {
	rootCmd.AddCommand(playCmd)
	playCmd.Flags().String("user", "", "User id for cross-episode memory")
	playCmd.Flags().Float64("step", 1, "Simulated seconds per tick")
	playCmd.Flags().Float64("audio-length", 0, "Simulated length of every asset in seconds")
	playCmd.Flags().Bool("plain", false, "Disable banner and Markdown rendering")
	playCmd.Flags().BoolP("quiet", "q", false, "Hide playback progress")
}
