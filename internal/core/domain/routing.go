package domain

import "strings"

// RoutingRule maps an inbound request's Host/path to a logical service
// name. Rule ordering is significant: the first matching rule wins, so
// more specific prefixes must precede less specific ones.
type RoutingRule struct {
	HostSubstring string // empty means host-agnostic
	Prefix        string // must end in "/"
	Service       string
}

// DefaultServiceName is returned when no routing rule matches.
const DefaultServiceName = "default-service"

// Matches reports whether the rule applies to the given lower-cased host
// and request path.
func (r RoutingRule) Matches(lowerHost, path string) bool {
	if r.HostSubstring != "" && !strings.Contains(lowerHost, r.HostSubstring) {
		return false
	}
	return strings.HasPrefix(path, r.Prefix)
}

// DefaultRoutingRules returns the compiled-in rule set from the gateway's
// zero-config deployment. Host-scoped rules precede host-agnostic ones so
// that a request to a recognised host never falls through to a looser
// host-agnostic prefix that happens to match too.
func DefaultRoutingRules() []RoutingRule {
	return []RoutingRule{
		{HostSubstring: "dushu.com", Prefix: "/user-orch/", Service: "user-orch"},
		{HostSubstring: "dushu.com", Prefix: "/order-orch/", Service: "order-orch"},
		{Prefix: "/springboot-grpc-server/", Service: "springboot-grpc-server"},
		{Prefix: "/order/", Service: "order-service"},
		{Prefix: "/product/", Service: "product-service"},
		{Prefix: "/payment/", Service: "payment-service"},
	}
}
