// Package logging provides structured logging for Hearth Core.
//
// It wraps log/slog with configuration-driven level and format selection
// and stamps every record with service and version attributes. Components
// derive child loggers with With("component", ...) so log lines can be
// filtered per subsystem.
package logging
