package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSession_SetFlagsIsIdempotent(t *testing.T) {
	s := NewSession("s1")
	s.SetFlags("b", "a")
	s.SetFlags("a")
	s.SetFlags("")

	assert.Equal(t, []string{"a", "b"}, s.ActiveFlags())
	assert.True(t, s.HasFlag("a"))
	assert.False(t, s.HasFlag("c"))
}

func TestSession_HasFlagSeesInherited(t *testing.T) {
	s := NewSession("s1")
	s.Inherited = map[string]bool{"ep1_hero": true}

	assert.True(t, s.HasFlag("ep1_hero"))
	assert.Empty(t, s.ActiveFlags())
	assert.Equal(t, []string{"ep1_hero"}, s.InheritedFlags())
}

func TestSession_ChoicesMadeIsACopy(t *testing.T) {
	s := NewSession("s1")
	s.RecordChoice("c1")
	s.RecordChoice("c2")

	got := s.ChoicesMade()
	got[0] = "mutated"

	assert.Equal(t, []string{"c1", "c2"}, s.History)
}

func TestSession_Reset(t *testing.T) {
	s := NewSession("s1")
	s.UserID = "u1"
	s.Inherited = map[string]bool{"old": true}
	s.CurrentNodeID = "cave"
	s.ElapsedSeconds = 12
	s.RecordChoice("c1")
	s.SetFlags("dark")
	s.Trail = []string{"start", "cave"}
	s.ChoicesPresented = true
	s.Failure = &ResolutionError{Reason: "x"}

	s.Reset()

	assert.Equal(t, "s1", s.ID)
	assert.Equal(t, "u1", s.UserID)
	assert.True(t, s.HasFlag("old"))
	assert.Empty(t, s.CurrentNodeID)
	assert.Zero(t, s.ElapsedSeconds)
	assert.Empty(t, s.History)
	assert.Empty(t, s.ActiveFlags())
	assert.Empty(t, s.Trail)
	assert.False(t, s.ChoicesPresented)
	assert.Nil(t, s.Failure)
}

func TestSession_CloneIsDeep(t *testing.T) {
	s := NewSession("s1")
	s.SetFlags("a")
	s.RecordChoice("c1")
	s.Inherited = map[string]bool{"i": true}

	c := s.Clone()
	c.SetFlags("b")
	c.RecordChoice("c2")
	c.Inherited["j"] = true

	assert.Equal(t, []string{"a"}, s.ActiveFlags())
	assert.Equal(t, []string{"c1"}, s.History)
	assert.Len(t, s.Inherited, 1)
}

func TestPhase_IsTerminal(t *testing.T) {
	assert.True(t, PhaseEnded.IsTerminal())
	assert.True(t, PhaseFailed.IsTerminal())
	assert.False(t, PhaseAwaitingChoice.IsTerminal())
}
