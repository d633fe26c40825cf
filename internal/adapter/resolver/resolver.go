// Package resolver implements the gateway's path/host routing table: the
// Router component that turns an inbound request's host and path into a
// target service name.
package resolver

import (
	"strings"

	"github.com/dushu/gateway/internal/core/domain"
)

// Resolver holds an ordered rule list and resolves (host, path) pairs
// against it. Rule order is significant and is never mutated at runtime.
type Resolver struct {
	rules []domain.RoutingRule
}

func New(rules []domain.RoutingRule) *Resolver {
	if len(rules) == 0 {
		rules = domain.DefaultRoutingRules()
	}
	return &Resolver{rules: rules}
}

// Resolve returns the first matching rule's target service name, or
// domain.DefaultServiceName if nothing matches.
func (r *Resolver) Resolve(host, path string) string {
	lowerHost := strings.ToLower(host)
	for _, rule := range r.rules {
		if rule.Matches(lowerHost, path) {
			return rule.Service
		}
	}
	return domain.DefaultServiceName
}
