/*
Package domain contains the core domain models of the ledgerchat engine.

It defines the session document persisted per channel, the flow bookkeeping
carried inside it, and the error taxonomy shared by every layer. This package is
kept free of I/O so it can be imported by adapters and the engine alike.

# Key Entities

  - Session: the full persisted state for one channel identifier.
  - FlowData: the flow in progress (flow id, current step, collected data).
  - Action: the last operation outcome reported by the upstream ledger.
  - Validation: the diagnostic envelope attached by the state store.
  - FlowError, SystemError, ComponentError: the three failure classes.
*/
package domain
