/*
Package ports defines the driven ports (interfaces) of the narrative engine.

These interfaces decouple authoring and playback from external implementations,
allowing the engine to work with various storage backends and asset hosts.

# Key Interfaces

  - GraphStore: Loads and persists whole episode graphs.
  - AssetResolver: Turns an audio reference into a playable URL.
  - MemoryStore: Carries checkpoint flags across episodes of a series.
  - DistributedLocker: Serializes authoring saves across replicas.
*/
package ports
