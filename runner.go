package storyline

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/wavebound/storyline/pkg/domain"
	"github.com/wavebound/storyline/pkg/observability"
	"github.com/wavebound/storyline/pkg/playback"
)

// DefaultAudioLength is the simulated length of every asset unless
// Runner.AudioLength says otherwise.
const DefaultAudioLength = 15.0

// ContentRenderer transforms node text before it is printed, for example
// Markdown to ANSI.
type ContentRenderer func(string) (string, error)

// Runner plays an episode in a terminal. There is no real audio: media time
// is simulated in Step increments and the choice window runs on a fake
// clock, so an empty answer lets the window expire.
type Runner struct {
	Input    io.Reader
	Output   io.Writer
	Renderer ContentRenderer

	// Step is the simulated media time between ticks, in seconds.
	Step float64
	// AudioLength returns the simulated length of an asset in seconds.
	AudioLength func(ref string) float64
	// Quiet suppresses per-tick progress output.
	Quiet bool
}

// NewRunner creates a Runner over in and out.
func NewRunner(in io.Reader, out io.Writer) *Runner {
	return &Runner{Input: in, Output: out, Step: 1}
}

func (r *Runner) printf(format string, args ...any) {
	fmt.Fprintf(r.Output, format, args...)
}

func (r *Runner) render(text string) string {
	if r.Renderer == nil || text == "" {
		return text
	}
	out, err := r.Renderer(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(out, "\n")
}

func (r *Runner) length(ref string) float64 {
	if r.AudioLength != nil {
		return r.AudioLength(ref)
	}
	return DefaultAudioLength
}

// Run plays req to a terminal phase and returns the final session. Typing
// "q" quits early; the session is then returned as it stood.
func (r *Runner) Run(ctx context.Context, engine *Engine, req PlayRequest) (domain.Session, error) {
	if r.Input == nil || r.Output == nil {
		return domain.Session{}, errors.New("runner needs both input and output")
	}
	step := r.Step
	if step <= 0 {
		step = 1
	}

	g, err := engine.Open(ctx, req.SeriesID, req.EpisodeID)
	if err != nil {
		return domain.Session{}, err
	}

	clock := playback.NewFakeClock(time.Now())
	req.Clock = clock
	req.Hooks = observability.Chain(r.hooks(g), req.Hooks)
	ctrl := engine.NewController(g, req)
	defer ctrl.Close()

	if err := ctrl.Start(ctx); err != nil {
		return ctrl.Snapshot(), err
	}

	lines := bufio.NewScanner(r.Input)
	for {
		if err := ctx.Err(); err != nil {
			return ctrl.Snapshot(), err
		}
		s := ctrl.Snapshot()

		switch s.Phase {
		case domain.PhaseEnded, domain.PhaseFailed:
			return s, nil

		case domain.PhasePlaying:
			if err := r.playNode(ctx, ctrl, g, step); err != nil {
				return ctrl.Snapshot(), err
			}

		case domain.PhaseAwaitingChoice:
			node := g.FindNode(s.CurrentNodeID)
			r.printf("choose [1-%d], enter to wait, q to quit: ", len(node.Choices))
			if !lines.Scan() {
				return ctrl.Snapshot(), lines.Err()
			}
			answer := strings.TrimSpace(lines.Text())
			switch {
			case answer == "q":
				return ctrl.Snapshot(), nil
			case answer == "":
				clock.Advance(ctrl.Machine().Settings().ChoiceWindow)
			default:
				i, convErr := strconv.Atoi(answer)
				if convErr != nil || i < 1 || i > len(node.Choices) {
					r.printf("no such choice: %s\n", answer)
					continue
				}
				if err := ctrl.Select(ctx, node.Choices[i-1].ID); err != nil {
					return ctrl.Snapshot(), err
				}
			}

		default:
			return s, fmt.Errorf("playback stalled in phase %s", s.Phase)
		}
	}
}

// playNode advances media time on the current node until it presents
// choices, moves on, or its audio ends.
func (r *Runner) playNode(ctx context.Context, ctrl *playback.Controller, g *domain.Graph, step float64) error {
	start := ctrl.Snapshot()
	node := g.FindNode(start.CurrentNodeID)
	if node == nil {
		return fmt.Errorf("current node %q is not in the graph", start.CurrentNodeID)
	}
	length := r.length(node.AudioRef)

	for elapsed := start.ElapsedSeconds + step; elapsed < length; elapsed += step {
		if err := ctrl.Tick(ctx, math.Round(elapsed*1000)/1000); err != nil {
			return err
		}
		now := ctrl.Snapshot()
		if now.Epoch != start.Epoch || now.Phase != domain.PhasePlaying {
			return nil
		}
		if !r.Quiet {
			r.printf("\r  ▶ %5.1fs / %.1fs", elapsed, length)
		}
	}
	if !r.Quiet {
		r.printf("\n")
	}
	return ctrl.AudioEnded(ctx)
}

func (r *Runner) hooks(g *domain.Graph) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeEnter: func(_ context.Context, e *domain.NodeEvent) {
			n := g.FindNode(e.NodeID)
			if n == nil {
				return
			}
			title := n.Title
			if title == "" {
				title = n.ID
			}
			r.printf("\n== %s (%s)\n", title, e.Kind)
			if n.Description != "" {
				r.printf("%s\n", r.render(n.Description))
			}
		},
		OnAudio: func(_ context.Context, e *domain.AudioEvent) {
			if e.Command == domain.AudioPlay && !r.Quiet {
				r.printf("  ♪ %s\n", e.URL)
			}
		},
		OnChoicesPresented: func(_ context.Context, e *domain.ChoiceEvent) {
			for i, c := range e.Choices {
				r.printf("  %d) %s\n", i+1, r.render(c.Text))
			}
		},
		OnChoiceResolved: func(_ context.Context, e *domain.ChoiceEvent) {
			if e.Auto {
				r.printf("  (no answer, continuing with %q)\n", e.ChoiceID)
			}
		},
		OnSessionEnd: func(_ context.Context, e *domain.SessionEvent) {
			if e.Phase == domain.PhaseFailed {
				r.printf("\n%s\n", domain.StoryPathNotFound)
				return
			}
			r.printf("\nThe End. Choices: %s\n", strings.Join(e.History, ", "))
		},
	}
}
