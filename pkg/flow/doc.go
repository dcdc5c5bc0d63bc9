// Package flow is the flow registry: a closed table from flow type to its
// ordered steps, and from each step to the component bound to it.
//
// A Registry is immutable once built and safe for any number of concurrent
// readers. Adding a flow means adding a Config, either in Default or in a
// flows file loaded with LoadFile.
package flow
