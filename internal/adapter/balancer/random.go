package balancer

import (
	"context"
	"math/rand/v2"

	"github.com/dushu/gateway/internal/core/domain"
)

// RandomSelector picks a uniformly random replica, ignoring weight.
type RandomSelector struct{}

func NewRandomSelector() *RandomSelector {
	return &RandomSelector{}
}

func (r *RandomSelector) Name() string {
	return DefaultBalancerRandom
}

func (r *RandomSelector) Select(ctx context.Context, replicas []*domain.Replica) (*domain.Replica, error) {
	if len(replicas) == 0 {
		return nil, domain.ErrNoReplicas
	}
	return replicas[rand.IntN(len(replicas))], nil
}
