package domain

import "errors"

var (
	// ErrNoReplicas is returned when a service has no healthy replica to
	// dispatch to.
	ErrNoReplicas = errors.New("no available replicas")

	// ErrCircuitOpen is returned when a service's circuit breaker denies
	// admission.
	ErrCircuitOpen = errors.New("circuit breaker open")

	// ErrMalformedEndpoint is returned when a registration's endpoint URL
	// cannot be parsed into scheme+host.
	ErrMalformedEndpoint = errors.New("malformed endpoint")
)
