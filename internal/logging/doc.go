// Package logging assembles structured slog loggers and formatting helpers used
// across singleapp.
//
// It owns the console and JSON handlers, centralizes level and output plumbing,
// and exposes the attribute helpers and field keys the coordinator, directory,
// and ipc layers use so every log line carries the same service/state/client
// vocabulary. The package also provides a no-op logger for tests and wiring code
// that cannot fail.
//
// Prefer these constructors over hand-rolled slog setup so new components emit
// data with the same shape as the rest of the system.
package logging
