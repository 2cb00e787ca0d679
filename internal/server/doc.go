// Package server provides the MCP server context for mailgate along
// with the metrics and health sidecar.
//
// ServerContext carries the mail service facade and the OAuth token
// manager behind it, and coordinates graceful shutdown: closing the
// context persists the current token state to disk.
//
// MetricsServer exposes Prometheus metrics on a dedicated port so that
// operational data never mixes with the stdio MCP transport. The same
// listener serves the Kubernetes liveness and readiness probes
// registered by HealthChecker.
package server
