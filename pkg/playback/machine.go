package playback

import (
	"errors"
	"fmt"
	"time"

	"github.com/wavebound/storyline/pkg/domain"
	"github.com/wavebound/storyline/pkg/validator"
)

const (
	// DefaultChoiceWindow bounds how long choices wait for the player.
	DefaultChoiceWindow = 30 * time.Second
	// DefaultChoiceTimestamp is the offset in seconds at which choices appear
	// when a node has no timestamp.
	DefaultChoiceTimestamp = 5.0
)

// Settings tunes the state machine.
type Settings struct {
	ChoiceWindow      time.Duration
	FallbackTimestamp float64
}

// DefaultSettings returns the standard timing.
func DefaultSettings() Settings {
	return Settings{
		ChoiceWindow:      DefaultChoiceWindow,
		FallbackTimestamp: DefaultChoiceTimestamp,
	}
}

func (s Settings) normalized() Settings {
	if s.ChoiceWindow <= 0 {
		s.ChoiceWindow = DefaultChoiceWindow
	}
	if s.FallbackTimestamp < 0 {
		s.FallbackTimestamp = DefaultChoiceTimestamp
	}
	return s
}

// Machine is the playback state machine for one episode graph.
// It is immutable and safe for concurrent use.
type Machine struct {
	graph    *domain.Graph
	start    string
	settings Settings
}

// NewMachine builds a machine over a private copy of g.
func NewMachine(g *domain.Graph, settings Settings) *Machine {
	graph := validator.Normalize(g)
	return &Machine{
		graph:    graph,
		start:    graph.StartNodeID,
		settings: settings.normalized(),
	}
}

// StartNodeID returns the effective start node.
func (m *Machine) StartNodeID() string {
	return m.start
}

// Graph returns the graph the machine plays. Callers must not mutate it.
func (m *Machine) Graph() *domain.Graph {
	return m.graph
}

// Settings returns the timing in effect.
func (m *Machine) Settings() Settings {
	return m.settings
}

// Step applies ev to s and returns the next session and the effects the host
// must perform, in order. Events that do not apply to the current phase, and
// asynchronous events issued under an older epoch, leave the session
// unchanged. The only error is a rejected choice selection.
func (m *Machine) Step(s domain.Session, ev Event) (domain.Session, []Effect, error) {
	next := s.Clone()
	t := &transition{m: m, s: &next}

	if next.Phase.IsTerminal() && ev.Type != EventRestart {
		return s, nil, rejectIfChoice(ev)
	}

	switch ev.Type {
	case EventStart:
		if next.Phase != domain.PhaseIdle && next.Phase != "" {
			return s, nil, nil
		}
		next.Flags = make(map[string]bool)
		t.enter(m.start, "", false)

	case EventRestart:
		if next.Phase != domain.PhaseIdle && next.Phase != "" {
			t.emit(Effect{Type: EffectCancelChoiceTimer, NodeID: next.CurrentNodeID})
			t.emit(Effect{Type: EffectStopAudio, NodeID: next.CurrentNodeID})
		}
		next.Reset()
		t.enter(m.start, "", false)

	case EventTick:
		if next.Phase != domain.PhasePlaying && next.Phase != domain.PhaseAwaitingChoice {
			return s, nil, nil
		}
		if ev.Elapsed >= 0 {
			next.ElapsedSeconds = ev.Elapsed
		}
		if next.Phase == domain.PhasePlaying {
			t.maybePresent()
		}

	case EventAudioEnded:
		if next.Phase != domain.PhasePlaying {
			return s, nil, nil
		}
		t.finishNode()

	case EventAssetReady:
		if next.Phase != domain.PhaseLoading || ev.Epoch != next.Epoch {
			return s, nil, nil
		}
		next.Phase = domain.PhasePlaying
		t.emit(Effect{Type: EffectPlayAudio, NodeID: next.CurrentNodeID, URL: ev.URL})
		t.maybePresent()

	case EventAssetFailed:
		if next.Phase != domain.PhaseLoading || ev.Epoch != next.Epoch {
			return s, nil, nil
		}
		t.finishNode()

	case EventChoiceSelected:
		awaiting := next.Phase == domain.PhaseAwaitingChoice ||
			(next.Phase == domain.PhasePaused && next.ResumePhase == domain.PhaseAwaitingChoice)
		if !awaiting {
			return s, nil, ErrNotAwaitingChoice
		}
		choice := t.node().ChoiceByID(ev.ChoiceID)
		if choice == nil {
			return s, nil, fmt.Errorf("%w: %q at node %q", ErrUnknownChoice, ev.ChoiceID, next.CurrentNodeID)
		}
		t.resolve(*choice, false)

	case EventTimeoutExpired:
		if next.Phase != domain.PhaseAwaitingChoice || ev.Epoch != next.Epoch {
			return s, nil, nil
		}
		t.resolve(t.node().Choices[0], true)

	case EventPause:
		if next.Phase != domain.PhasePlaying && next.Phase != domain.PhaseAwaitingChoice {
			return s, nil, nil
		}
		if next.Phase == domain.PhaseAwaitingChoice {
			next.Epoch++
			t.emit(Effect{Type: EffectCancelChoiceTimer, NodeID: next.CurrentNodeID})
		}
		next.ResumePhase = next.Phase
		next.Phase = domain.PhasePaused
		if t.node().HasAudio() {
			t.emit(Effect{Type: EffectPauseAudio, NodeID: next.CurrentNodeID})
		}

	case EventResume:
		if next.Phase != domain.PhasePaused {
			return s, nil, nil
		}
		next.Phase = next.ResumePhase
		next.ResumePhase = ""
		if t.node().HasAudio() {
			t.emit(Effect{Type: EffectResumeAudio, NodeID: next.CurrentNodeID})
		}
		if next.Phase == domain.PhaseAwaitingChoice {
			next.Epoch++
			t.emit(Effect{
				Type:   EffectArmChoiceTimer,
				NodeID: next.CurrentNodeID,
				Window: m.settings.ChoiceWindow,
				Epoch:  next.Epoch,
			})
		}

	default:
		return s, nil, fmt.Errorf("unknown playback event %q", ev.Type)
	}

	return next, t.effects, nil
}

func rejectIfChoice(ev Event) error {
	if ev.Type == EventChoiceSelected {
		return ErrNotAwaitingChoice
	}
	return nil
}

// transition accumulates the effects of a single Step.
type transition struct {
	m       *Machine
	s       *domain.Session
	effects []Effect
}

func (t *transition) emit(e Effect) {
	t.effects = append(t.effects, e)
}

func (t *transition) node() *domain.Node {
	return t.m.graph.FindNode(t.s.CurrentNodeID)
}

// enter moves into id and any silent nodes chained after it. Flags are
// recorded only when the chain is reached by a transition; the whole
// (re)start chain sets none.
func (t *transition) enter(id, fromID string, viaTransition bool) {
	if id == "" {
		t.fail(&domain.ResolutionError{FromNodeID: fromID, Reason: "episode has no nodes"})
		return
	}

	chain, err := validator.FirstPlayable(t.m.graph, id)
	for i, nodeID := range chain {
		n := t.m.graph.FindNode(nodeID)
		t.s.CurrentNodeID = nodeID
		t.s.Trail = append(t.s.Trail, nodeID)
		if viaTransition {
			t.s.SetFlags(n.SetsFlags...)
		}
		t.emit(Effect{Type: EffectEnterNode, NodeID: nodeID})
		if i < len(chain)-1 {
			t.emit(Effect{Type: EffectLeaveNode, NodeID: nodeID})
		}
	}
	if err != nil {
		var res *domain.ResolutionError
		if errors.As(err, &res) && res.FromNodeID == "" {
			res.FromNodeID = fromID
		}
		t.fail(err)
		return
	}

	t.s.ElapsedSeconds = 0
	t.s.ChoicesPresented = false
	t.s.ResumePhase = ""
	t.s.Epoch++
	t.s.Phase = domain.PhaseLoading

	n := t.node()
	if n.HasAudio() {
		t.emit(Effect{Type: EffectLoadAsset, NodeID: n.ID, AudioRef: n.AudioRef, Epoch: t.s.Epoch})
		return
	}
	t.finishNode()
}

// maybePresent shows choices once per visit when playback reaches the
// node's choice offset.
func (t *transition) maybePresent() {
	n := t.node()
	if !n.IsDecision() || t.s.ChoicesPresented {
		return
	}
	if t.s.ElapsedSeconds >= n.ChoiceOffset(t.m.settings.FallbackTimestamp) {
		t.present()
	}
}

func (t *transition) present() {
	n := t.node()
	t.s.ChoicesPresented = true
	t.s.Phase = domain.PhaseAwaitingChoice
	t.s.Epoch++
	choices := make([]domain.Choice, len(n.Choices))
	copy(choices, n.Choices)
	t.emit(Effect{Type: EffectPresentChoices, NodeID: n.ID, Choices: choices, Window: t.m.settings.ChoiceWindow})
	t.emit(Effect{Type: EffectArmChoiceTimer, NodeID: n.ID, Window: t.m.settings.ChoiceWindow, Epoch: t.s.Epoch})
}

// finishNode handles a node whose media is over or absent: choices are
// presented if they have not been, a linear link is followed, or the session
// ends.
func (t *transition) finishNode() {
	n := t.node()
	switch {
	case n.IsDecision():
		if t.s.Phase != domain.PhasePlaying {
			t.s.Phase = domain.PhasePlaying
		}
		if !t.s.ChoicesPresented {
			t.present()
		}
	case n.NextID != "":
		t.emit(Effect{Type: EffectLeaveNode, NodeID: n.ID})
		t.s.Phase = domain.PhaseTransitioning
		t.follow(n.ID, "", n.NextID)
	default:
		t.s.Phase = domain.PhaseEnded
		t.emit(Effect{Type: EffectEnded, NodeID: n.ID})
	}
}

// resolve commits a choice and moves to its target.
func (t *transition) resolve(c domain.Choice, auto bool) {
	n := t.node()
	t.emit(Effect{Type: EffectCancelChoiceTimer, NodeID: n.ID})
	if n.HasAudio() {
		t.emit(Effect{Type: EffectStopAudio, NodeID: n.ID})
	}
	t.s.RecordChoice(c.ID)
	t.s.Phase = domain.PhaseTransitioning
	t.s.ResumePhase = ""
	t.emit(Effect{Type: EffectChoiceResolved, NodeID: n.ID, ChoiceID: c.ID, Auto: auto})
	t.emit(Effect{Type: EffectLeaveNode, NodeID: n.ID})
	t.follow(n.ID, c.ID, c.LeadsToNodeID)
}

func (t *transition) follow(fromID, choiceID, targetID string) {
	if targetID == "" {
		t.fail(&domain.ResolutionError{FromNodeID: fromID, ChoiceID: choiceID, Reason: "link has no target"})
		return
	}
	if t.m.graph.FindNode(targetID) == nil {
		t.fail(&domain.ResolutionError{
			FromNodeID: fromID,
			ChoiceID:   choiceID,
			TargetID:   targetID,
			Reason:     "target node does not exist",
		})
		return
	}
	t.enter(targetID, fromID, true)
}

func (t *transition) fail(err error) {
	var res *domain.ResolutionError
	if !errors.As(err, &res) {
		res = &domain.ResolutionError{FromNodeID: t.s.CurrentNodeID, Reason: err.Error()}
	}
	t.s.Phase = domain.PhaseFailed
	t.s.ResumePhase = ""
	t.s.Failure = res
	t.emit(Effect{Type: EffectCancelChoiceTimer, NodeID: t.s.CurrentNodeID})
	t.emit(Effect{Type: EffectFailed, NodeID: t.s.CurrentNodeID, Err: res})
}
