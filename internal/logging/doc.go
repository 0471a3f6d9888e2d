// Package logging assembles the structured slog loggers used by vidbunch.
//
// It owns the console and JSON handlers, level parsing, the tee handler that
// mirrors console output into a JSON log file, and small helpers for component
// loggers and run identifiers carried in a context. A no-op logger is provided
// for tests and for library code constructed without a logger.
package logging
