// Package logger provides structured logging functionality for the application.
//
// It utilizes Go's standard library log/slog package to implement structured JSON logging
// with configurable log levels, and carries request- or run-scoped loggers through
// context.Context so that stores and services log with the caller's correlation fields.
package logger
