/*
Package domain contains the core models of the Storyline narrative engine.

It defines the story graph (Nodes connected by implicit "next" links and
labeled Choices), the runtime Session of a single playback attempt, and the
error taxonomy shared by authoring and playback. The package is pure: it has no
I/O and no dependency on storage or presentation.

# Key Entities

  - Node: a unit of narrative content with optional audio and outgoing links.
  - Choice: a labeled, player-selectable transition to another node.
  - Graph: the full episode, a node list plus an optional start node id.
  - Session: the ephemeral state of one playback attempt (current node,
    elapsed time, phase, choices made and flags set).
  - EffectiveKind: the behavior of a node derived from its content rather than
    its declared Kind.
*/
package domain
