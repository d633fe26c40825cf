package domain

import "net/http"

// DispatchRequest is the gateway's internal representation of one inbound
// request, built once at the top of the Proxy Handler and never mutated by
// anything downstream of routing.
type DispatchRequest struct {
	Headers     http.Header
	Parameters  map[string]string
	RequestID   string
	Method      string
	Path        string
	Body        []byte
}

// DispatchResult is the outcome of running a DispatchRequest through the
// full pipeline: routing, breaker check, balancing, outbound issue and
// response relay.
type DispatchResult struct {
	ResponseHeaders  http.Header
	TargetEndpoint   string
	Message          string
	RequestID        string
	Body             []byte
	StatusCode       int
	ProcessingTimeMs int64
	Success          bool
}
