// Package server exposes the classification core over HTTP.
//
// Routes:
//
//	POST /v1/dispatch  request/response actions (dispatch.Request in, action response out)
//	GET  /v1/events    notification stream as server-sent events
//	GET  /metrics      Prometheus metrics
//	GET  /healthz      liveness
package server
