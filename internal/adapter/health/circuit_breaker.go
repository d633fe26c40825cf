package health

import (
	"sync"
	"time"

	"github.com/dushu/gateway/internal/core/ports"
)

type breakerState int

const (
	stateClosed breakerState = iota
	stateOpen
	stateHalfOpen
)

func (s breakerState) String() string {
	switch s {
	case stateOpen:
		return "OPEN"
	case stateHalfOpen:
		return "HALF_OPEN"
	default:
		return "CLOSED"
	}
}

const (
	// DefaultFailureThreshold is the consecutive-failure count that trips a
	// closed breaker open.
	DefaultFailureThreshold = 5
	// DefaultCooldown is how long a tripped breaker stays open before its
	// next admission check may transition it to half-open.
	DefaultCooldown = 60 * time.Second
	// DefaultHalfOpenProbeQuota is the number of consecutive half-open
	// successes required to close the breaker again.
	DefaultHalfOpenProbeQuota = 3
)

// Breaker is a per-service CLOSED/OPEN/HALF_OPEN circuit breaker. Every
// transition is taken under mu, so Allow and Record stay atomic with
// respect to each other under concurrent dispatch.
type Breaker struct {
	mu sync.Mutex

	state           breakerState
	failureCount    int
	successCount    int
	lastFailureUnix int64
	openedAt        time.Time

	threshold  int
	cooldown   time.Duration
	probeQuota int
}

// NewBreaker builds a breaker tuned by threshold/cooldown/probeQuota. A
// non-positive value for any of them falls back to its Default constant,
// so zero-valued config (no breaker section in config.yaml) still yields
// a working breaker.
func NewBreaker(threshold int, cooldown time.Duration, probeQuota int) *Breaker {
	if threshold <= 0 {
		threshold = DefaultFailureThreshold
	}
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	if probeQuota <= 0 {
		probeQuota = DefaultHalfOpenProbeQuota
	}

	return &Breaker{
		threshold:  threshold,
		cooldown:   cooldown,
		probeQuota: probeQuota,
	}
}

// Allow consults the machine and may itself drive the OPEN -> HALF_OPEN
// transition once the cooldown has elapsed. CLOSED and HALF_OPEN both
// admit every request; only OPEN, within its cooldown, denies.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != stateOpen {
		return true
	}
	if time.Since(b.openedAt) < b.cooldown {
		return false
	}

	b.state = stateHalfOpen
	b.successCount = 0
	return true
}

// Record feeds the machine the outcome of a dispatch previously admitted
// by Allow.
func (b *Breaker) Record(success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case stateClosed:
		if success {
			b.failureCount = 0
			return
		}
		b.failureCount++
		b.lastFailureUnix = time.Now().Unix()
		if b.failureCount >= b.threshold {
			b.trip()
		}
	case stateHalfOpen:
		if !success {
			b.trip()
			return
		}
		b.successCount++
		if b.successCount >= b.probeQuota {
			b.state = stateClosed
			b.failureCount = 0
		}
	case stateOpen:
		if !success {
			b.lastFailureUnix = time.Now().Unix()
		}
	}
}

func (b *Breaker) trip() {
	b.state = stateOpen
	b.openedAt = time.Now()
	b.lastFailureUnix = time.Now().Unix()
}

// Observe returns a point-in-time view for the circuit-breaker-status
// admin endpoint.
func (b *Breaker) Observe() ports.BreakerSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	return ports.BreakerSnapshot{
		State:           b.state.String(),
		FailureCount:    b.failureCount,
		SuccessCount:    b.successCount,
		LastFailureUnix: b.lastFailureUnix,
	}
}
