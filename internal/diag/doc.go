// Package diag defines the diagnostic model shared by program checking,
// emission and reporting.
//
// Diagnostic is the central record: Severity, Code (stable "[CHK1001]: ..."
// string form), the Phase that produced it, a human message, an optional
// primary Location and optional Notes. Diagnostics are plain values; no
// formatting or IO happens here. Rendering lives in internal/diagfmt.
//
// Ordering is significant. Producers append to a Bag in the order findings are
// made, and Concat joins pre-emit and emit sequences without reordering, so
// reports are deterministic for identical inputs.
package diag
