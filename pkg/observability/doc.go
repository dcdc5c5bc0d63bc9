/*
Package observability provides metrics and lifecycle hooks for the flow engine.

Metrics live on a private prometheus registry so that several engines (or tests)
can coexist in one process. Hooks turns engine lifecycle events into structured
log lines and metric updates.
*/
package observability
