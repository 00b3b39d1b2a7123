/*
Package domain contains the core domain models of the agentgraph engine.

It defines the static description of a workflow graph (NodeSpec, ActionSpec), the per-run
data plane (SharedMemory) and the per-invocation binding handed to node execution
(NodeContext). This package is kept pure and free of I/O, following Hexagonal Architecture
principles; transports and persistence live behind the interfaces in pkg/ports.

# Key Entities

  - SharedMemory: Ordered key/value store threaded through a single workflow run.
  - NodeSpec: Declarative description of one node (type, prompts, input/output keys).
  - NodeContext: Binding of a NodeSpec to the run's SharedMemory and a model runtime.
  - ActionSpec: A unit of work a worker node performs, tagged by ActionType.
  - Graph: An ordered set of NodeSpecs validated at build time.
*/
package domain
