/*
Package ports defines the driven ports (interfaces) for the ledgerchat engine.

These interfaces decouple the core logic from external implementations, allowing
the engine to work with various cache backends, upstream services and error sinks.

# Key Interfaces

  - Cache: single-key byte storage with TTL (memory or Redis).
  - DistributedLocker: optional per-channel locking across replicas.
  - Upstream: the external ledger service that receives completed flows.
  - ErrorReporter: receives the structured context of every classified failure.
*/
package ports
