// Package api hosts the read-only HTTP interface over the job ledger.
// Notable routes:
//   - GET /healthz and /readyz for probes.
//   - GET /metrics for Prometheus scraping.
//   - GET /v1/jobs?platform=&limit= lists ledger rows, newest first.
//   - GET /v1/jobs/{job_id} returns one ledger row or 404.
package api
