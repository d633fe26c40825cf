package balancer

import (
	"fmt"
	"sync"

	"github.com/dushu/gateway/internal/core/ports"
)

const (
	DefaultBalancerRoundRobin       = "round-robin"
	DefaultBalancerRandom           = "random"
	DefaultBalancerWeightedRandom   = "weighted-random"
	DefaultBalancerLeastConnections = "least-connections"
)

// DefaultPolicy is used when no balancer policy is configured.
const DefaultPolicy = DefaultBalancerWeightedRandom

type Factory struct {
	creators map[string]func() ports.EndpointSelector
	mu       sync.RWMutex
}

func NewFactory() *Factory {
	factory := &Factory{
		creators: make(map[string]func() ports.EndpointSelector),
	}

	factory.Register(DefaultBalancerRoundRobin, func() ports.EndpointSelector {
		return NewRoundRobinSelector()
	})
	factory.Register(DefaultBalancerRandom, func() ports.EndpointSelector {
		return NewRandomSelector()
	})
	factory.Register(DefaultBalancerWeightedRandom, func() ports.EndpointSelector {
		return NewWeightedRandomSelector()
	})
	factory.Register(DefaultBalancerLeastConnections, func() ports.EndpointSelector {
		return NewLeastConnectionsSelector()
	})

	return factory
}

func (f *Factory) Register(name string, creator func() ports.EndpointSelector) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creators[name] = creator
}

func (f *Factory) Create(name string) (ports.EndpointSelector, error) {
	if name == "" {
		name = DefaultPolicy
	}

	f.mu.RLock()
	creator, exists := f.creators[name]
	f.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("unknown load balancer policy: %s", name)
	}

	return creator(), nil
}

func (f *Factory) AvailablePolicies() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	names := make([]string, 0, len(f.creators))
	for name := range f.creators {
		names = append(names, name)
	}
	return names
}
