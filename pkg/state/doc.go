// Package state is the session store: single-key get, set, update and delete
// of domain.Session documents over a ports.Cache.
//
// Every operation records attempt telemetry for its (key, operation) pair and
// hands it back to the caller as a domain.Validation value. Sessions read or
// written through the store carry the same value on their _validation field.
// Backend failures surface as *domain.SystemError with a stable code.
//
// The store provides no cross-key atomicity. Callers that need several fields
// to change together keep them in one session document.
package state
