/*
Package ports defines the driven ports (interfaces) of the dialogue engine.

These interfaces decouple the traversal core from storage backends, dialogue
sources, randomness and the host objects taking part in a conversation.

# Key Interfaces

  - DialogueLoader: retrieves raw dialogue documents (e.g., from Loam or Memory).
  - SnapshotStore: persists and loads conversation Snapshots.
  - SessionLocker: coordinates concurrent session access across replicas.
  - RandomSource: feeds random selectors; inject a fixed one for deterministic tests.
  - ValueProvider, ConditionChecker, EventReceiver: optional participant capabilities.
  - CustomCondition, CustomEvent: the extensibility slot for host-defined logic.
*/
package ports
