package health

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBreaker_TripsAtFailureThreshold(t *testing.T) {
	b := NewBreaker(0, 0, 0)

	for i := 0; i < DefaultFailureThreshold-1; i++ {
		require.True(t, b.Allow())
		b.Record(false)
	}
	snapshot := b.Observe()
	assert.Equal(t, "CLOSED", snapshot.State)
	assert.Equal(t, DefaultFailureThreshold-1, snapshot.FailureCount)

	require.True(t, b.Allow())
	b.Record(false)

	snapshot = b.Observe()
	assert.Equal(t, "OPEN", snapshot.State)
	assert.Equal(t, DefaultFailureThreshold, snapshot.FailureCount)
}

func TestBreaker_SuccessResetsFailureCountWhileClosed(t *testing.T) {
	b := NewBreaker(0, 0, 0)

	b.Record(false)
	b.Record(false)
	b.Record(true)

	snapshot := b.Observe()
	assert.Equal(t, "CLOSED", snapshot.State)
	assert.Equal(t, 0, snapshot.FailureCount)
}

func TestBreaker_DeniesWithinCooldownThenHalfOpens(t *testing.T) {
	b := NewBreaker(0, 0, 0)
	b.cooldown = 10 * time.Millisecond

	for i := 0; i < DefaultFailureThreshold; i++ {
		b.Record(false)
	}
	require.Equal(t, "OPEN", b.Observe().State)
	assert.False(t, b.Allow())

	time.Sleep(15 * time.Millisecond)

	assert.True(t, b.Allow())
	assert.Equal(t, "HALF_OPEN", b.Observe().State)
}

func TestBreaker_HalfOpenAlwaysAdmitsAndClosesAfterProbeQuota(t *testing.T) {
	b := NewBreaker(0, 0, 0)
	b.cooldown = 0
	for i := 0; i < DefaultFailureThreshold; i++ {
		b.Record(false)
	}
	require.True(t, b.Allow())
	require.Equal(t, "HALF_OPEN", b.Observe().State)

	for i := 0; i < DefaultHalfOpenProbeQuota-1; i++ {
		assert.True(t, b.Allow())
		b.Record(true)
		assert.Equal(t, "HALF_OPEN", b.Observe().State)
	}

	assert.True(t, b.Allow())
	b.Record(true)

	snapshot := b.Observe()
	assert.Equal(t, "CLOSED", snapshot.State)
	assert.Equal(t, 0, snapshot.FailureCount)
}

func TestNewBreaker_HonoursConfiguredThreshold(t *testing.T) {
	b := NewBreaker(2, time.Minute, 1)

	b.Record(false)
	require.Equal(t, "CLOSED", b.Observe().State)
	b.Record(false)
	assert.Equal(t, "OPEN", b.Observe().State)
}

func TestBreaker_HalfOpenFailureReTripsImmediately(t *testing.T) {
	b := NewBreaker(0, 0, 0)
	b.cooldown = 0
	for i := 0; i < DefaultFailureThreshold; i++ {
		b.Record(false)
	}
	require.True(t, b.Allow())
	require.Equal(t, "HALF_OPEN", b.Observe().State)

	b.Record(false)

	assert.Equal(t, "OPEN", b.Observe().State)
}
