// Package server implements the HTTP side of deplog.
//
// This package provides:
//   - Slack Events API endpoint with signing-secret verification
//   - Per-IP rate limiting on the monitoring endpoints
//   - Health and channel status endpoints
//   - Structured logging of all HTTP requests
//
// The server integrates with other packages:
//   - internal/listener: routing of Events API payloads to the tracker
//   - internal/tracker: channel summaries and deployment history
//
// Security features:
//   - Slack v0 request signatures with timestamp freshness checks
//   - Payload size limits (1MB max)
//   - Slack retries are acknowledged without reprocessing
package server
