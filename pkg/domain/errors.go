package domain

import (
	"errors"
	"fmt"
)

// ErrGraphNotFound is returned by graph stores when an episode has no document.
var ErrGraphNotFound = errors.New("episode graph not found")

// ErrAssetUnavailable is returned by asset resolvers when a reference cannot
// be turned into a playable URL. Playback treats it as a silent node.
var ErrAssetUnavailable = errors.New("asset unavailable")

// StoryPathNotFound is the user-facing message for resolution failures.
const StoryPathNotFound = "Story path not found"

// ViolationCode classifies a graph integrity problem.
type ViolationCode string

const (
	CodeEmptyGraph        ViolationCode = "empty_graph"
	CodeEmptyNodeID       ViolationCode = "empty_node_id"
	CodeDuplicateID       ViolationCode = "duplicate_id"
	CodeDanglingNext      ViolationCode = "dangling_next"
	CodeDanglingChoice    ViolationCode = "dangling_choice"
	CodeEmptyChoiceTarget ViolationCode = "empty_choice_target"
	CodeDuplicateChoiceID ViolationCode = "duplicate_choice_id"
	CodeNextShadowed      ViolationCode = "next_shadowed_by_choices"
	CodeUnknownStart      ViolationCode = "unknown_start"
	CodeMultipleStarts    ViolationCode = "multiple_starts"
	CodeNegativeTimestamp ViolationCode = "negative_timestamp"
	CodeUnreachable       ViolationCode = "unreachable"
	CodeUnknownFlag       ViolationCode = "unknown_required_flag"
	CodeAmbiguousNext     ViolationCode = "ambiguous_next"
	CodeStrayEdge         ViolationCode = "stray_edge"
)

// ValidationError is a non-fatal integrity violation. Authoring continues;
// playback treats the affected edge as absent.
type ValidationError struct {
	Code     ViolationCode `json:"code"`
	NodeID   string        `json:"nodeId,omitempty"`
	ChoiceID string        `json:"choiceId,omitempty"`
	TargetID string        `json:"targetId,omitempty"`
	Message  string        `json:"message"`
}

func (e *ValidationError) Error() string {
	if e.NodeID == "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s at node %q: %s", e.Code, e.NodeID, e.Message)
}

// ResolutionError means a transition target could not be found at playback
// time. It is fatal to the session only.
type ResolutionError struct {
	FromNodeID string `json:"fromNodeId,omitempty"`
	ChoiceID   string `json:"choiceId,omitempty"`
	TargetID   string `json:"targetId,omitempty"`
	Reason     string `json:"reason"`
}

func (e *ResolutionError) Error() string {
	switch {
	case e.ChoiceID != "":
		return fmt.Sprintf("story path not found: choice %q of node %q leads to %q: %s", e.ChoiceID, e.FromNodeID, e.TargetID, e.Reason)
	case e.FromNodeID != "":
		return fmt.Sprintf("story path not found: node %q leads to %q: %s", e.FromNodeID, e.TargetID, e.Reason)
	default:
		return fmt.Sprintf("story path not found: %s", e.Reason)
	}
}

// UserMessage is the text shown to the player.
func (e *ResolutionError) UserMessage() string {
	return StoryPathNotFound
}

// LoadFailure means the episode graph could not be read; no session starts.
type LoadFailure struct {
	SeriesID  string
	EpisodeID string
	Err       error
}

func (e *LoadFailure) Error() string {
	return fmt.Sprintf("failed to load episode %s/%s: %v", e.SeriesID, e.EpisodeID, e.Err)
}

func (e *LoadFailure) Unwrap() error {
	return e.Err
}
