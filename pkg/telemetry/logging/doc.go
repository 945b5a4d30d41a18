// Package logging provides structured logging for warden built on
// log/slog.
//
// Setup installs the configured handler as the process-wide slog
// default so components that derive loggers with
// slog.Default().With("component", ...) pick up the configured level
// and format. Context helpers carry project and sweep identifiers
// through call chains, and the optional redactor keeps owner emails
// and credential-shaped values out of shipped logs.
package logging
