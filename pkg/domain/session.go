package domain

import "sort"

// Phase is the state of the playback state machine.
type Phase string

const (
	PhaseIdle           Phase = "idle"
	PhaseLoading        Phase = "loading"
	PhasePlaying        Phase = "playing"
	PhasePaused         Phase = "paused"
	PhaseAwaitingChoice Phase = "awaiting_choice"
	PhaseTransitioning  Phase = "transitioning"
	PhaseEnded          Phase = "ended"
	// PhaseFailed is terminal; Session.Failure holds the cause.
	PhaseFailed Phase = "failed"
)

// IsTerminal reports whether no further event can move the session.
func (p Phase) IsTerminal() bool {
	return p == PhaseEnded || p == PhaseFailed
}

// Session is the runtime snapshot of one playback attempt.
// It is a value: the playback machine returns a new Session per event.
type Session struct {
	ID        string `json:"id"`
	SeriesID  string `json:"seriesId,omitempty"`
	EpisodeID string `json:"episodeId,omitempty"`
	UserID    string `json:"userId,omitempty"`

	CurrentNodeID  string  `json:"currentNodeId"`
	ElapsedSeconds float64 `json:"elapsedSeconds"`
	Phase          Phase   `json:"phase"`

	// ResumePhase is the phase to return to when Paused.
	ResumePhase Phase `json:"resumePhase,omitempty"`

	// History holds the ids of the choices taken, in order.
	History []string `json:"history"`
	// Flags is the set of flags written by checkpoints during this session.
	Flags map[string]bool `json:"flags"`
	// Inherited holds flags carried over from earlier episodes. Read-only.
	Inherited map[string]bool `json:"inherited,omitempty"`
	// Trail lists every node entered, including silent pass-through nodes.
	Trail []string `json:"trail"`

	// ChoicesPresented is set once per node visit when choices are shown.
	ChoicesPresented bool `json:"choicesPresented"`
	// Epoch increments on node entry, choice presentation and resume.
	// Asynchronous events issued under an older epoch are stale.
	Epoch uint64 `json:"epoch"`

	Failure *ResolutionError `json:"failure,omitempty"`
}

// NewSession creates an idle session.
func NewSession(id string) Session {
	return Session{
		ID:    id,
		Phase: PhaseIdle,
		Flags: make(map[string]bool),
	}
}

// RecordChoice appends a resolved choice to the history.
func (s *Session) RecordChoice(choiceID string) {
	s.History = append(s.History, choiceID)
}

// SetFlags adds flags to the session. Setting a flag twice has no effect.
func (s *Session) SetFlags(flags ...string) {
	if len(flags) == 0 {
		return
	}
	if s.Flags == nil {
		s.Flags = make(map[string]bool)
	}
	for _, f := range flags {
		if f != "" {
			s.Flags[f] = true
		}
	}
}

// HasFlag reports whether the flag is set in this session or inherited.
func (s Session) HasFlag(flag string) bool {
	return s.Flags[flag] || s.Inherited[flag]
}

// ChoicesMade returns a copy of the choice history.
func (s Session) ChoicesMade() []string {
	out := make([]string, len(s.History))
	copy(out, s.History)
	return out
}

// ActiveFlags returns the session flags, sorted.
func (s Session) ActiveFlags() []string {
	return sortedKeys(s.Flags)
}

// InheritedFlags returns the carried-over flags, sorted.
func (s Session) InheritedFlags() []string {
	return sortedKeys(s.Inherited)
}

// Reset clears progress for a restart while keeping identity and inherited
// memory.
func (s *Session) Reset() {
	s.CurrentNodeID = ""
	s.ElapsedSeconds = 0
	s.ResumePhase = ""
	s.History = nil
	s.Flags = make(map[string]bool)
	s.Trail = nil
	s.ChoicesPresented = false
	s.Failure = nil
}

// Clone returns a deep copy safe for mutation.
func (s Session) Clone() Session {
	next := s
	next.History = cloneSlice(s.History)
	next.Trail = cloneSlice(s.Trail)
	next.Flags = make(map[string]bool, len(s.Flags))
	for k, v := range s.Flags {
		next.Flags[k] = v
	}
	if s.Inherited != nil {
		next.Inherited = make(map[string]bool, len(s.Inherited))
		for k, v := range s.Inherited {
			next.Inherited[k] = v
		}
	}
	return next
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k, v := range m {
		if v {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}
