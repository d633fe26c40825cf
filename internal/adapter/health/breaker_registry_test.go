package health

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBreakerRegistry_GetIsIdempotentPerService(t *testing.T) {
	reg := NewBreakerRegistry(0, 0, 0)

	first := reg.Get("svc-a")
	second := reg.Get("svc-a")
	assert.Same(t, first, second)

	other := reg.Get("svc-b")
	assert.NotSame(t, first, other)
}

func TestBreakerRegistry_AllReflectsEveryService(t *testing.T) {
	reg := NewBreakerRegistry(0, 0, 0)

	reg.Get("svc-a").Record(false)
	reg.Get("svc-b")

	all := reg.All()
	require.Contains(t, all, "svc-a")
	require.Contains(t, all, "svc-b")
	assert.Equal(t, 1, all["svc-a"].FailureCount)
}
