package playback

import (
	"time"

	"github.com/wavebound/storyline/pkg/domain"
)

// EventType identifies an input to the state machine.
type EventType string

const (
	EventStart          EventType = "start"
	EventRestart        EventType = "restart"
	EventTick           EventType = "tick"
	EventAudioEnded     EventType = "audio_ended"
	EventChoiceSelected EventType = "choice_selected"
	EventTimeoutExpired EventType = "timeout_expired"
	EventAssetReady     EventType = "asset_ready"
	EventAssetFailed    EventType = "asset_failed"
	EventPause          EventType = "pause"
	EventResume         EventType = "resume"
)

// Event is an input to Machine.Step.
type Event struct {
	Type EventType

	// Elapsed is the media position in seconds (tick).
	Elapsed float64
	// ChoiceID is the player's selection (choice_selected).
	ChoiceID string
	// URL is the playable asset (asset_ready).
	URL string
	// Epoch is the session epoch the asynchronous event was issued under
	// (timeout_expired, asset_ready, asset_failed).
	Epoch uint64
	// Err is the asset resolution failure (asset_failed).
	Err error
}

// Start begins a session at the effective start node.
func Start() Event { return Event{Type: EventStart} }

// Restart discards progress and begins again at the effective start node.
func Restart() Event { return Event{Type: EventRestart} }

// Pause is the user-initiated pause toggle.
func Pause() Event { return Event{Type: EventPause} }

// Resume undoes Pause.
func Resume() Event { return Event{Type: EventResume} }

// Tick reports the media position of the current node.
func Tick(elapsed float64) Event {
	return Event{Type: EventTick, Elapsed: elapsed}
}

// AudioEnded reports that the current node's audio finished.
func AudioEnded() Event {
	return Event{Type: EventAudioEnded}
}

// ChoiceSelected reports an explicit player selection.
func ChoiceSelected(choiceID string) Event {
	return Event{Type: EventChoiceSelected, ChoiceID: choiceID}
}

// TimeoutExpired reports that the choice-wait window armed at epoch elapsed.
func TimeoutExpired(epoch uint64) Event {
	return Event{Type: EventTimeoutExpired, Epoch: epoch}
}

// AssetReady reports that the asset requested at epoch can be played.
func AssetReady(url string, epoch uint64) Event {
	return Event{Type: EventAssetReady, URL: url, Epoch: epoch}
}

// AssetFailed reports that the asset requested at epoch is unavailable.
func AssetFailed(err error, epoch uint64) Event {
	return Event{Type: EventAssetFailed, Err: err, Epoch: epoch}
}

// EffectType identifies an instruction for the host.
type EffectType string

const (
	EffectEnterNode         EffectType = "enter_node"
	EffectLeaveNode         EffectType = "leave_node"
	EffectLoadAsset         EffectType = "load_asset"
	EffectPlayAudio         EffectType = "play_audio"
	EffectPauseAudio        EffectType = "pause_audio"
	EffectResumeAudio       EffectType = "resume_audio"
	EffectStopAudio         EffectType = "stop_audio"
	EffectPresentChoices    EffectType = "present_choices"
	EffectArmChoiceTimer    EffectType = "arm_choice_timer"
	EffectCancelChoiceTimer EffectType = "cancel_choice_timer"
	EffectChoiceResolved    EffectType = "choice_resolved"
	EffectEnded             EffectType = "ended"
	EffectFailed            EffectType = "failed"
)

// Effect is a side effect requested by Machine.Step, in order.
type Effect struct {
	Type   EffectType
	NodeID string

	AudioRef string
	URL      string

	Choices  []domain.Choice
	ChoiceID string
	Auto     bool

	Window time.Duration
	Epoch  uint64

	Err error
}
