// Package clientpool caches one keep-alive HTTP client per upstream
// origin, so repeated dispatches to the same replica reuse connections
// instead of paying a fresh handshake each time.
package clientpool

import (
	"net/http"
	"sync"
	"time"
)

const (
	// ConnectTimeout is the default overall timeout (http.Client.Timeout)
	// of one outbound request, connection set-up included.
	ConnectTimeout = 50 * time.Second
	// IdleConnTimeout is how long an idle connection is kept before the
	// pool closes it.
	IdleConnTimeout = 30 * time.Second
	// MaxConnsPerOrigin caps the pool size for a single upstream origin.
	MaxConnsPerOrigin = 20
	// ScavengePeriod is how often the transport's idle-connection reaper
	// sweeps stale entries. http.Transport has no direct knob for this and
	// the pool does not use this constant; idle connections are closed by
	// the transport's IdleConnTimeout instead.
	ScavengePeriod = 50 * time.Second
)

// Pool lazily creates and retains one *http.Client per origin (scheme +
// host) for the process lifetime, tuning every client it creates from
// the connectTimeout/idleTimeout/maxConnsPerOrigin it was constructed
// with.
type Pool struct {
	mu      sync.RWMutex
	clients map[string]*http.Client

	connectTimeout    time.Duration
	idleTimeout       time.Duration
	maxConnsPerOrigin int
}

// New builds a pool whose clients use connectTimeout/idleTimeout/
// maxConnsPerOrigin. A non-positive value for any of them falls back to
// its Default constant, so zero-valued config still yields working
// clients.
func New(connectTimeout, idleTimeout time.Duration, maxConnsPerOrigin int) *Pool {
	if connectTimeout <= 0 {
		connectTimeout = ConnectTimeout
	}
	if idleTimeout <= 0 {
		idleTimeout = IdleConnTimeout
	}
	if maxConnsPerOrigin <= 0 {
		maxConnsPerOrigin = MaxConnsPerOrigin
	}

	return &Pool{
		clients:           make(map[string]*http.Client),
		connectTimeout:    connectTimeout,
		idleTimeout:       idleTimeout,
		maxConnsPerOrigin: maxConnsPerOrigin,
	}
}

// ClientFor returns the client bound to endpoint's origin, creating it on
// first use.
func (p *Pool) ClientFor(endpoint string) *http.Client {
	p.mu.RLock()
	client, ok := p.clients[endpoint]
	p.mu.RUnlock()
	if ok {
		return client
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if client, ok = p.clients[endpoint]; ok {
		return client
	}

	client = p.newClient()
	p.clients[endpoint] = client
	return client
}

func (p *Pool) newClient() *http.Client {
	transport := &http.Transport{
		MaxIdleConns:        p.maxConnsPerOrigin,
		MaxIdleConnsPerHost: p.maxConnsPerOrigin,
		MaxConnsPerHost:     p.maxConnsPerOrigin,
		IdleConnTimeout:     p.idleTimeout,
		TLSHandshakeTimeout: 10 * time.Second,
		DisableCompression:  false,
	}

	return &http.Client{
		Timeout:   p.connectTimeout,
		Transport: transport,
	}
}
