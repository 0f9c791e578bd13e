// Package api exposes the HTTP surface of the service.
//
// # Endpoints
//
//   - POST /api/v1/ask                      answer a question about the course content
//   - GET  /api/v1/sessions/{id}/messages   list a session's conversation history
//   - POST /api/v1/feedback                 record reader feedback on an answer
//   - POST /api/v1/translate                translate a chapter, cached per language
//   - GET  /api/v1/health                   per-dependency health report
//   - GET  /health                          liveness (always 200 while the process runs)
//   - GET  /ready                           readiness (database reachable)
//
// # Errors
//
// Every error response carries a flat JSON envelope:
//
//	{"code": "INVALID_QUESTION", "message": "question must be between 10 and 500 characters"}
//
// Codes are stable identifiers for programmatic handling; messages are
// human-readable and may change.
//
// # Middleware
//
// API routes pass through recovery, request-ID propagation, request
// logging, CORS, and a per-IP rate limit, in that order. The liveness
// and readiness probes bypass the stack entirely.
package api
