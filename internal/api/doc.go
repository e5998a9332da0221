// Package api hosts the HTTP server, middleware, and REST handlers for operator
// access. Notable routes:
//   - GET /healthz / readyz for Kubernetes probes.
//   - GET /metrics for Prometheus scraping.
//   - GET /v1/status, /v1/status/text and /v1/devices for the live session.
//   - POST /v1/status/pause and /v1/status/resume for operator control.
//   - GET /v1/sessions and /v1/sessions/{session_id}/snapshots for history via
//     the SnapshotRepository interface.
package api
