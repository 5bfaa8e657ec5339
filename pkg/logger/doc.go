// Package logger is a small factory over log/slog with the attribute
// vocabulary used across the module. Defaults suit interactive tooling:
// text format, warn level, stderr. Libraries in this module never log
// through a global; they take an injected *slog.Logger and default to a
// discarding one.
package logger
