/*
Package ports defines the driven ports (interfaces) for the agentgraph engine.

These interfaces decouple the execution core from external implementations, allowing
the engine to work with various model transports, storage backends and lock services.

# Key Interfaces

  - LLM: The model capability nodes call (complete a role-tagged conversation).
  - MemoryStore: Persists and loads a run's SharedMemory for durable execution.
  - DistributedLocker: Provides distributed locking for concurrent access to one run.
*/
package ports
