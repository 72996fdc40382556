package playback

import "errors"

var (
	// ErrNotAwaitingChoice is returned when a choice is selected while no
	// choices are on screen.
	ErrNotAwaitingChoice = errors.New("not awaiting a choice")
	// ErrUnknownChoice is returned when the selected id is not offered by the
	// current node.
	ErrUnknownChoice = errors.New("unknown choice")
	// ErrClosed is returned by a Controller after Close.
	ErrClosed = errors.New("playback controller closed")
)
