// Package metrics registers the Prometheus collectors for mailgate.
// Collectors live on the default registry and are served by the side
// metrics server in internal/server.
package metrics
