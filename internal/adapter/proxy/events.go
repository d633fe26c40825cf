package proxy

import "time"

// DispatchEvent is published on the gateway's event bus after every
// completed dispatch, decoupling observers (logging, future metrics) from
// the request path itself.
type DispatchEvent struct {
	RequestID  string
	Service    string
	Endpoint   string
	StatusCode int
	Success    bool
	Duration   time.Duration
	At         time.Time
}
