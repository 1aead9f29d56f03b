// Package server exposes historic queries and cleanable reports over HTTP.
//
// # Routes
//
//   - GET /history/process-instance and /history/process-instance/count
//   - GET /history/process-definition/cleanable-process-instance-report[/count]
//   - GET /history/case-definition/cleanable-case-instance-report[/count]
//   - GET /history/decision-definition/cleanable-decision-instance-report[/count]
//   - GET /history/batch/cleanable-batch-report[/count]
//   - GET /health/live, /health/ready and /version
//   - GET /metrics (configurable path) when metrics are enabled
//
// Filters use camelCase query parameters; list parameters are comma
// separated. Sorting requires both sortBy and sortOrder. Paging uses
// firstResult and maxResults, and a missing maxResults falls back to the
// configured default page size.
//
// # Errors
//
// Failures are returned as {"type": ..., "message": ...}. Builder misuse and
// invalid arguments are 400 Bad Request; store and policy failures are 500.
//
// # Middleware Chain
//
// Requests pass through, outermost first: panic recovery, request ID,
// tracing, access logging, CORS (when origins are configured) and, on the
// /history routes, a per-client rate limit (when configured).
package server
