package balancer

import (
	"context"
	"sync/atomic"

	"github.com/dushu/gateway/internal/core/domain"
)

// RoundRobinSelector cycles through replicas in registration order using a
// single atomic counter, so Select never blocks on a lock.
type RoundRobinSelector struct {
	counter uint64
}

func NewRoundRobinSelector() *RoundRobinSelector {
	return &RoundRobinSelector{}
}

func (r *RoundRobinSelector) Name() string {
	return DefaultBalancerRoundRobin
}

func (r *RoundRobinSelector) Select(ctx context.Context, replicas []*domain.Replica) (*domain.Replica, error) {
	if len(replicas) == 0 {
		return nil, domain.ErrNoReplicas
	}

	current := atomic.AddUint64(&r.counter, 1) - 1
	index := current % uint64(len(replicas))
	return replicas[index], nil
}
