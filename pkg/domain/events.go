package domain

import (
	"context"
	"time"
)

// EventType defines the category of a lifecycle event.
type EventType string

const (
	EventNodeEnter        EventType = "node_enter"
	EventNodeLeave        EventType = "node_leave"
	EventAudio            EventType = "audio"
	EventChoicesPresented EventType = "choices_presented"
	EventChoiceResolved   EventType = "choice_resolved"
	EventSessionEnded     EventType = "session_ended"
	EventSessionFailed    EventType = "session_failed"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id"`
	EpisodeID string    `json:"episode_id,omitempty"`
}

// NodeEvent represents entry into or exit from a node.
type NodeEvent struct {
	EventBase
	NodeID string        `json:"node_id"`
	Kind   EffectiveKind `json:"kind"`
}

// AudioCommand tells the host media player what to do.
type AudioCommand string

const (
	AudioPlay   AudioCommand = "play"
	AudioPause  AudioCommand = "pause"
	AudioResume AudioCommand = "resume"
	AudioStop   AudioCommand = "stop"
)

// AudioEvent asks the host to drive its media element.
type AudioEvent struct {
	EventBase
	NodeID  string       `json:"node_id"`
	Command AudioCommand `json:"command"`
	URL     string       `json:"url,omitempty"`
}

// ChoiceEvent describes choices being presented or one being resolved.
type ChoiceEvent struct {
	EventBase
	NodeID   string        `json:"node_id"`
	Choices  []Choice      `json:"choices,omitempty"`
	Window   time.Duration `json:"window,omitempty"`
	ChoiceID string        `json:"choice_id,omitempty"`
	// Auto is true when the wait window expired and the first choice won.
	Auto   bool          `json:"auto,omitempty"`
	Waited time.Duration `json:"waited,omitempty"`
}

// SessionEvent reports that a session reached a terminal phase.
type SessionEvent struct {
	EventBase
	NodeID  string   `json:"node_id"`
	Phase   Phase    `json:"phase"`
	History []string `json:"history"`
	Flags   []string `json:"flags"`
	Err     error    `json:"-"`
}

// LifecycleHooks defines callbacks for the presentation layer and for
// observability. Nil callbacks are skipped.
type LifecycleHooks struct {
	OnNodeEnter        func(context.Context, *NodeEvent)
	OnNodeLeave        func(context.Context, *NodeEvent)
	OnAudio            func(context.Context, *AudioEvent)
	OnChoicesPresented func(context.Context, *ChoiceEvent)
	OnChoiceResolved   func(context.Context, *ChoiceEvent)
	OnSessionEnd       func(context.Context, *SessionEvent)
}
