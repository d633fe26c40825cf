package health

import (
	"time"

	"github.com/dushu/gateway/internal/core/ports"
	"github.com/puzpuzpuz/xsync/v4"
)

// BreakerRegistry lazily creates and retains one Breaker per service name
// for the process lifetime, tuning every breaker it creates from the
// threshold/cooldown/probeQuota it was constructed with.
type BreakerRegistry struct {
	breakers *xsync.Map[string, *Breaker]

	threshold  int
	cooldown   time.Duration
	probeQuota int
}

// NewBreakerRegistry builds a registry whose breakers use threshold,
// cooldown and probeQuota (see NewBreaker for zero-value fallback).
func NewBreakerRegistry(threshold int, cooldown time.Duration, probeQuota int) *BreakerRegistry {
	return &BreakerRegistry{
		breakers:   xsync.NewMap[string, *Breaker](),
		threshold:  threshold,
		cooldown:   cooldown,
		probeQuota: probeQuota,
	}
}

func (r *BreakerRegistry) Get(service string) ports.CircuitBreaker {
	breaker, _ := r.breakers.LoadOrCompute(service, func() (*Breaker, bool) {
		return NewBreaker(r.threshold, r.cooldown, r.probeQuota), false
	})
	return breaker
}

func (r *BreakerRegistry) All() map[string]ports.BreakerSnapshot {
	out := make(map[string]ports.BreakerSnapshot)
	r.breakers.Range(func(service string, b *Breaker) bool {
		out[service] = b.Observe()
		return true
	})
	return out
}
