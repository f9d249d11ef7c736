// Package server serves the close operations over HTTP.
//
// Routes:
//
//	GET  /healthz         store health
//	GET  /metrics         Prometheus metrics, when enabled
//	GET  /v1/operations   operation names
//	POST /v1/operations   invocation envelope in, envelope response out
//
// Failed invocations keep the envelope body and map the error type onto the
// status code: 400 for ValidationError, 404 for NotFoundError, 502 for
// ExecutionError and 500 otherwise.
package server
