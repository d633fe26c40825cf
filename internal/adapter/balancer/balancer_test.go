package balancer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dushu/gateway/internal/core/domain"
)

func replicas(t *testing.T, weights ...int) []*domain.Replica {
	t.Helper()
	out := make([]*domain.Replica, 0, len(weights))
	for i, w := range weights {
		r, err := domain.NewReplica("svc", "r", "http://10.0.0.1:808"+string(rune('0'+i)), w)
		require.NoError(t, err)
		out = append(out, r)
	}
	return out
}

func TestRoundRobinSelector_RotatesEvenly(t *testing.T) {
	sel := NewRoundRobinSelector()
	rs := replicas(t, 1, 1, 1)

	counts := map[string]int{}
	for i := 0; i < 9; i++ {
		picked, err := sel.Select(context.Background(), rs)
		require.NoError(t, err)
		counts[picked.Name+picked.Endpoint()]++
	}

	for _, r := range rs {
		assert.Equal(t, 3, counts[r.Name+r.Endpoint()])
	}
}

func TestRoundRobinSelector_NoReplicas(t *testing.T) {
	sel := NewRoundRobinSelector()
	_, err := sel.Select(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrNoReplicas)
}

func TestRandomSelector_AlwaysReturnsACandidate(t *testing.T) {
	sel := NewRandomSelector()
	rs := replicas(t, 1, 1)
	for i := 0; i < 20; i++ {
		picked, err := sel.Select(context.Background(), rs)
		require.NoError(t, err)
		assert.Contains(t, rs, picked)
	}
}

func TestWeightedRandomSelector_ConvergesToWeight(t *testing.T) {
	heavy, err := domain.NewReplica("svc", "heavy", "http://10.0.0.1:8080", 9)
	require.NoError(t, err)
	light, err := domain.NewReplica("svc", "light", "http://10.0.0.2:8080", 1)
	require.NoError(t, err)

	sel := NewWeightedRandomSelector()
	rs := []*domain.Replica{heavy, light}

	heavyHits := 0
	const trials = 10000
	for i := 0; i < trials; i++ {
		picked, err := sel.Select(context.Background(), rs)
		require.NoError(t, err)
		if picked.Name == "heavy" {
			heavyHits++
		}
	}

	assert.GreaterOrEqual(t, float64(heavyHits)/float64(trials), 0.85)
}

func TestWeightedRandomSelector_FallsBackToUniformWhenWeightsAreNonPositive(t *testing.T) {
	sel := NewWeightedRandomSelector()
	rs := replicas(t, 1, 1)
	// NewReplica normalises non-positive weights to 1, so set them directly.
	rs[0].Weight = 0
	rs[1].Weight = -1

	picked, err := sel.Select(context.Background(), rs)
	require.NoError(t, err)
	assert.Contains(t, rs, picked)
}

func TestLeastConnectionsSelector_PicksFewestConnections(t *testing.T) {
	sel := NewLeastConnectionsSelector()
	rs := replicas(t, 1, 1)

	sel.IncrementConnections(rs[0])
	sel.IncrementConnections(rs[0])

	picked, err := sel.Select(context.Background(), rs)
	require.NoError(t, err)
	assert.Equal(t, rs[1], picked)

	sel.DecrementConnections(rs[0])
	assert.Equal(t, int64(1), sel.ConnectionCount(rs[0]))
}

func TestFactory_CreateDefaultsToWeightedRandom(t *testing.T) {
	factory := NewFactory()

	selector, err := factory.Create("")
	require.NoError(t, err)
	assert.Equal(t, DefaultBalancerWeightedRandom, selector.Name())

	_, err = factory.Create("not-a-policy")
	assert.Error(t, err)

	assert.ElementsMatch(t, []string{
		DefaultBalancerRoundRobin,
		DefaultBalancerRandom,
		DefaultBalancerWeightedRandom,
		DefaultBalancerLeastConnections,
	}, factory.AvailablePolicies())
}
