// Package ports declares the interfaces the request-dispatch fabric is
// built from, so adapters (registry, balancer, breaker, health checker,
// client pool) can be wired together and swapped independently.
package ports

import (
	"context"
	"net/http"

	"github.com/dushu/gateway/internal/core/domain"
)

// ServiceRegistry is the runtime mapping from logical service name to its
// registered replicas. Implementations must be safe for concurrent use by
// admin handlers, the Proxy Handler and the Health Checker.
type ServiceRegistry interface {
	Register(service string, replica *domain.Replica)
	Deregister(service, name, endpoint string) bool
	Healthy(service string) []*domain.Replica
	All(service string) []*domain.Replica
	Snapshot() map[string][]*domain.Replica
	Services() []string
	SetHealthy(service, endpoint string, healthy bool) bool
}

// EndpointSelector picks one replica from a candidate list. Implementations
// are the Load Balancer's policies: round-robin, random, weighted-random
// and least-connections.
type EndpointSelector interface {
	Name() string
	Select(ctx context.Context, replicas []*domain.Replica) (*domain.Replica, error)
}

// CircuitBreaker is the per-service three-state gate described by the
// CLOSED/OPEN/HALF_OPEN machine. Implementations must make state
// transitions atomic under concurrent Allow/Record calls.
type CircuitBreaker interface {
	Allow() bool
	Record(success bool)
	Observe() BreakerSnapshot
}

// BreakerSnapshot is a point-in-time read of one breaker's state, returned
// to the circuit-breaker-status admin endpoint.
type BreakerSnapshot struct {
	State           string
	FailureCount    int
	SuccessCount    int
	LastFailureUnix int64
}

// BreakerRegistry looks up (creating if absent) the CircuitBreaker for a
// service name.
type BreakerRegistry interface {
	Get(service string) CircuitBreaker
	All() map[string]BreakerSnapshot
}

// ClientPool returns a keep-alive HTTP client bound to one origin, creating
// it lazily on first use and retaining it for the process lifetime.
type ClientPool interface {
	ClientFor(endpoint string) *http.Client
}

// ConnectionTracker is queried by the least-connections balancer policy and
// updated by the Proxy Handler around each outbound call.
type ConnectionTracker interface {
	IncrementConnections(replica *domain.Replica)
	DecrementConnections(replica *domain.Replica)
	ConnectionCount(replica *domain.Replica) int64
}
