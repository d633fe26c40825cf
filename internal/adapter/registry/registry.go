// Package registry implements the runtime service registry: the
// in-memory mapping from logical service name to its ordered replicas.
package registry

import (
	"sync"

	"github.com/puzpuzpuz/xsync/v4"
	"github.com/dushu/gateway/internal/core/domain"
	"github.com/dushu/gateway/internal/logger"
)

// serviceEntry holds one service's replicas behind its own mutex, so that
// mutating one service never blocks reads of another.
type serviceEntry struct {
	mu       sync.RWMutex
	replicas []*domain.Replica
}

// MemoryRegistry is the process-lifetime, concurrency-safe ServiceRegistry.
// It never persists state across restarts and never coordinates with any
// peer instance.
type MemoryRegistry struct {
	services *xsync.Map[string, *serviceEntry]
	logger   *logger.StyledLogger

	// onServiceSeen is invoked the first time a service name is registered,
	// giving callers (the application wiring) a hook to create that
	// service's circuit breaker.
	onServiceSeen func(service string)
}

func NewMemoryRegistry(log *logger.StyledLogger) *MemoryRegistry {
	return &MemoryRegistry{
		services: xsync.NewMap[string, *serviceEntry](),
		logger:   log,
	}
}

// OnServiceSeen installs a callback fired the first time a service name
// appears in the registry. Used to lazily create that service's breaker.
func (r *MemoryRegistry) OnServiceSeen(fn func(service string)) {
	r.onServiceSeen = fn
}

func (r *MemoryRegistry) entry(service string) *serviceEntry {
	entry, loaded := r.services.LoadOrCompute(service, func() (*serviceEntry, bool) {
		return &serviceEntry{replicas: make([]*domain.Replica, 0, 2)}, false
	})
	if !loaded && r.onServiceSeen != nil {
		r.onServiceSeen(service)
	}
	return entry
}

// Register appends replica to service's sequence, creating the sequence if
// absent. Duplicate endpoints are permitted and scheduled independently by
// the load balancer.
func (r *MemoryRegistry) Register(service string, replica *domain.Replica) {
	e := r.entry(service)
	e.mu.Lock()
	e.replicas = append(e.replicas, replica)
	e.mu.Unlock()

	if r.logger != nil {
		r.logger.InfoWithEndpoint("Registered replica for "+service, replica.Endpoint())
	}
}

// Deregister removes the first entry in service's sequence whose endpoint
// and name match. Returns false if no such replica was found.
func (r *MemoryRegistry) Deregister(service, name, endpoint string) bool {
	e, ok := r.services.Load(service)
	if !ok {
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	for i, replica := range e.replicas {
		if replica.SameIdentity(name, endpoint) {
			e.replicas = append(e.replicas[:i], e.replicas[i+1:]...)
			if r.logger != nil {
				r.logger.InfoWithEndpoint("Deregistered replica for "+service, endpoint)
			}
			return true
		}
	}
	return false
}

// Healthy returns the subsequence of replicas with Healthy true, preserving
// insertion order.
func (r *MemoryRegistry) Healthy(service string) []*domain.Replica {
	e, ok := r.services.Load(service)
	if !ok {
		return nil
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	healthy := make([]*domain.Replica, 0, len(e.replicas))
	for _, replica := range e.replicas {
		if replica.Healthy {
			healthy = append(healthy, replica)
		}
	}
	return healthy
}

// All returns every replica registered for service, healthy or not.
func (r *MemoryRegistry) All(service string) []*domain.Replica {
	e, ok := r.services.Load(service)
	if !ok {
		return nil
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	all := make([]*domain.Replica, len(e.replicas))
	copy(all, e.replicas)
	return all
}

// Snapshot returns a consistent-enough view of every service and its
// replicas for the status endpoint. Each service's slice is copied under
// its own lock; there is no cross-service atomicity guarantee, matching
// the "idempotent snapshot" property only for a single unchanging registry.
func (r *MemoryRegistry) Snapshot() map[string][]*domain.Replica {
	out := make(map[string][]*domain.Replica)
	r.services.Range(func(service string, e *serviceEntry) bool {
		e.mu.RLock()
		cp := make([]*domain.Replica, len(e.replicas))
		copy(cp, e.replicas)
		e.mu.RUnlock()
		out[service] = cp
		return true
	})
	return out
}

// Services returns every known service name, including ones whose replica
// list is currently empty.
func (r *MemoryRegistry) Services() []string {
	names := make([]string, 0, r.services.Size())
	r.services.Range(func(service string, _ *serviceEntry) bool {
		names = append(names, service)
		return true
	})
	return names
}

// SetHealthy mutates a single replica's Healthy flag in place, used by the
// Health Checker. Returns false if the replica isn't found.
func (r *MemoryRegistry) SetHealthy(service, endpoint string, healthy bool) bool {
	e, ok := r.services.Load(service)
	if !ok {
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	for _, replica := range e.replicas {
		if replica.Endpoint() == endpoint {
			replica.Healthy = healthy
			return true
		}
	}
	return false
}
