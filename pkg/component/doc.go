// Package component holds the step components bound to flow steps.
//
// A component is either an Input, which validates what the user typed, or a
// Display, which formats stored session state for the channel to render. The
// set of components is closed: Kind enumerates them and New is the only way to
// get an instance. Instances are cheap and request scoped.
//
// Validate never panics and never returns an error value. Every outcome is a
// Result, and the engine decides whether to re-prompt or abort.
package component
