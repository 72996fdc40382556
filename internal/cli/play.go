package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"github.com/wavebound/storyline"
	"github.com/wavebound/storyline/internal/presentation/tui"
	"github.com/wavebound/storyline/pkg/domain"
)

// PlayOptions configures an interactive playback in the terminal.
type PlayOptions struct {
	SeriesID  string
	EpisodeID string
	UserID    string

	// Step is the simulated media time per tick, in seconds.
	Step float64
	// AudioLength is the simulated length of every asset, in seconds.
	AudioLength float64
	// Plain disables the banner and Markdown rendering.
	Plain bool
	// Quiet suppresses playback progress lines.
	Quiet bool

	Stdin  io.Reader
	Stdout io.Writer
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// RunPlay plays an episode interactively until it ends, fails or the user
// quits. Interrupts end playback without an error.
func RunPlay(ctx context.Context, engine *storyline.Engine, opts PlayOptions) error {
	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}

	sigCtx := NewSignalContext(ctx)
	defer sigCtx.Cancel()

	runner := storyline.NewRunner(NewInterruptibleReader(opts.Stdin, sigCtx.Done()), opts.Stdout)
	runner.Quiet = opts.Quiet
	if opts.Step > 0 {
		runner.Step = opts.Step
	}
	if opts.AudioLength > 0 {
		length := opts.AudioLength
		runner.AudioLength = func(string) float64 { return length }
	}

	fancy := !opts.Plain && isTerminal(opts.Stdout)
	if fancy {
		tui.PrintBanner(opts.Stdout, storyline.Version)
		runner.Renderer = tui.NewRenderer()
	}

	s, err := runner.Run(sigCtx, engine, storyline.PlayRequest{
		SeriesID:  opts.SeriesID,
		EpisodeID: opts.EpisodeID,
		UserID:    opts.UserID,
	})
	if err != nil {
		if sig := sigCtx.Signal(); sig != nil {
			fmt.Fprintln(opts.Stdout)
			printSystemMessage(opts.Stdout, "Interrupted by %v", sig)
		}
		return handleExecutionError(err)
	}
	logCompletion(opts.Stdout, s)
	return nil
}

func logCompletion(w io.Writer, s domain.Session) {
	switch s.Phase {
	case domain.PhaseEnded, domain.PhaseFailed:
		printSystemMessage(w, "Session %s finished (%s) after %d nodes", s.ID, s.Phase, len(s.Trail))
	default:
		printSystemMessage(w, "Session %s stopped at %s", s.ID, s.CurrentNodeID)
	}
}
