/*
Package storyline is an engine for interactive audio narratives.

An episode is a graph of nodes. Each node may carry an audio asset, flags it
sets when reached, and choices offered to the listener at a timestamp of its
audio. When the listener does not decide within a bounded window, playback
continues through the first choice.

# Concept

Authoring and playback share one canonical Graph. Editors work on a visual
projection (a canvas of positioned nodes and edges) that converts back to the
graph without losing anything. Playback is a finite state machine driven by
media ticks, audio-end notifications, player choices and timer expiry; the
host renders what the lifecycle hooks report.

# Usage

	store := memory.NewStore()
	eng, err := storyline.New(store)
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	if _, err := eng.Save(ctx, "saga", "ep1", graph); err != nil {
		log.Fatal(err)
	}

	ctrl, err := eng.Play(ctx, storyline.PlayRequest{SeriesID: "saga", EpisodeID: "ep1"})
	if err != nil {
		log.Fatal(err)
	}
	defer ctrl.Close()

	// Feed media positions from the player.
	_ = ctrl.Tick(ctx, 12.5)
	_ = ctrl.Select(ctx, "left")
*/
package storyline
