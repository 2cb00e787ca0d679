// Package logging provides structured logging utilities for mailgate.
//
// It centralizes attribute naming so every package logs the same keys
// for the same concepts, using the standard library's slog package.
//
// Sensitive data never reaches the log: recipient addresses are hashed
// for correlation and tokens are reduced to a length indicator.
package logging
