/*
Package playback runs interactive episodes.

It is split in two layers:

  - Machine is a pure finite-state machine. Step takes a session snapshot and
    an Event and returns the next snapshot plus the Effects the host must
    perform. It owns no timers, goroutines or I/O and is trivially testable.
  - Controller drives a Machine for one live session. It resolves assets,
    arms the bounded choice-wait timer on an injectable Clock, fires
    lifecycle hooks and carries flags across episodes when a memory store is
    configured.

Phases follow Idle → Loading → Playing → AwaitingChoice → Transitioning →
Loading … → Ended, with Paused orthogonal to Playing and AwaitingChoice and
Failed as the terminal error state.
*/
package playback
