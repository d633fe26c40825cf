package balancer

import (
	"context"
	"sync"

	"github.com/dushu/gateway/internal/core/domain"
)

// LeastConnectionsSelector picks the replica with the fewest outstanding
// outbound connections, as tracked by the Proxy Handler around each call.
type LeastConnectionsSelector struct {
	connections map[string]int64
	mu          sync.RWMutex
}

func NewLeastConnectionsSelector() *LeastConnectionsSelector {
	return &LeastConnectionsSelector{
		connections: make(map[string]int64),
	}
}

func (l *LeastConnectionsSelector) Name() string {
	return DefaultBalancerLeastConnections
}

func (l *LeastConnectionsSelector) Select(ctx context.Context, replicas []*domain.Replica) (*domain.Replica, error) {
	if len(replicas) == 0 {
		return nil, domain.ErrNoReplicas
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	var selected *domain.Replica
	minConnections := int64(-1)

	for _, replica := range replicas {
		count := l.connections[replica.Endpoint()]
		if minConnections == -1 || count < minConnections {
			minConnections = count
			selected = replica
		}
	}

	return selected, nil
}

func (l *LeastConnectionsSelector) IncrementConnections(replica *domain.Replica) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.connections[replica.Endpoint()]++
}

func (l *LeastConnectionsSelector) DecrementConnections(replica *domain.Replica) {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := replica.Endpoint()
	if count, exists := l.connections[key]; exists && count > 0 {
		l.connections[key]--
	}
}

func (l *LeastConnectionsSelector) ConnectionCount(replica *domain.Replica) int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.connections[replica.Endpoint()]
}
