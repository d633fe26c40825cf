package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dushu/gateway/internal/core/domain"
)

func TestResolve_DefaultRulesMatchHostScopedPrefix(t *testing.T) {
	r := New(nil)

	assert.Equal(t, "user-orch", r.Resolve("dushu.com", "/user-orch/profile"))
	assert.Equal(t, "order-orch", r.Resolve("DUSHU.com", "/order-orch/list"))
	assert.Equal(t, "order-service", r.Resolve("anyhost.example", "/order/123"))
}

func TestResolve_FallsBackToDefaultService(t *testing.T) {
	r := New(nil)
	assert.Equal(t, domain.DefaultServiceName, r.Resolve("unknown.example", "/nope"))
}

func TestResolve_FirstMatchingRuleWins(t *testing.T) {
	r := New([]domain.RoutingRule{
		{HostSubstring: "api.example", Prefix: "/v1/", Service: "specific"},
		{Prefix: "/v1/", Service: "generic"},
	})

	assert.Equal(t, "specific", r.Resolve("api.example.com", "/v1/items"))
	assert.Equal(t, "generic", r.Resolve("other.example.com", "/v1/items"))
}
