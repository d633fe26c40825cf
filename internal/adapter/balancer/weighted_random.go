package balancer

import (
	"context"
	"math/rand/v2"

	"github.com/dushu/gateway/internal/core/domain"
)

// WeightedRandomSelector draws a replica with probability proportional to
// its registered weight. It is the gateway's default policy. When every
// candidate has a non-positive total weight it degrades to a uniform draw
// rather than failing the request.
type WeightedRandomSelector struct{}

func NewWeightedRandomSelector() *WeightedRandomSelector {
	return &WeightedRandomSelector{}
}

func (w *WeightedRandomSelector) Name() string {
	return DefaultBalancerWeightedRandom
}

func (w *WeightedRandomSelector) Select(ctx context.Context, replicas []*domain.Replica) (*domain.Replica, error) {
	if len(replicas) == 0 {
		return nil, domain.ErrNoReplicas
	}

	total := 0
	for _, replica := range replicas {
		if replica.Weight > 0 {
			total += replica.Weight
		}
	}
	if total <= 0 {
		return replicas[rand.IntN(len(replicas))], nil
	}

	draw := rand.IntN(total)
	cumulative := 0
	for _, replica := range replicas {
		if replica.Weight <= 0 {
			continue
		}
		cumulative += replica.Weight
		if draw < cumulative {
			return replica, nil
		}
	}

	// Unreachable under correct accounting; fall back defensively.
	return replicas[len(replicas)-1], nil
}
