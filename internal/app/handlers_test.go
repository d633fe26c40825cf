package app

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dushu/gateway/internal/adapter/balancer"
	"github.com/dushu/gateway/internal/adapter/clientpool"
	"github.com/dushu/gateway/internal/adapter/health"
	"github.com/dushu/gateway/internal/adapter/proxy"
	"github.com/dushu/gateway/internal/adapter/registry"
	"github.com/dushu/gateway/internal/adapter/resolver"
	"github.com/dushu/gateway/internal/core/domain"
)

func newTestApplication(t *testing.T) *Application {
	t.Helper()

	svcRegistry := registry.NewMemoryRegistry(nil)
	breakers := health.NewBreakerRegistry(0, 0, 0)
	policy := balancer.NewRoundRobinSelector()
	clients := clientpool.New(0, 0, 0)
	routeResolver := resolver.New(nil)
	proxyHandler := proxy.NewHandler(routeResolver, svcRegistry, breakers, policy, clients, nil, nil, nil)

	return &Application{
		registry: svcRegistry,
		breakers: breakers,
		proxy:    proxyHandler,
	}
}

func TestHandleRegister_RejectsMissingFields(t *testing.T) {
	a := newTestApplication(t)

	body, _ := json.Marshal(registrationBody{ServiceName: "", Endpoint: ""})
	req := httptest.NewRequest(http.MethodPost, "/gateway/register", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	a.handleRegister(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleRegister_RejectsMalformedEndpoint(t *testing.T) {
	a := newTestApplication(t)

	body, _ := json.Marshal(registrationBody{ServiceName: "svc", Endpoint: "not-a-url"})
	req := httptest.NewRequest(http.MethodPost, "/gateway/register", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	a.handleRegister(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, a.registry.All("svc"))
}

func TestHandleRegisterThenStatus_ReportsRegisteredReplica(t *testing.T) {
	a := newTestApplication(t)

	body, _ := json.Marshal(registrationBody{ServiceName: "svc", ProjectName: "p", Endpoint: "http://10.0.0.1:8080"})
	req := httptest.NewRequest(http.MethodPost, "/gateway/register", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	a.handleRegister(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	statusReq := httptest.NewRequest(http.MethodGet, "/gateway/status", nil)
	statusRec := httptest.NewRecorder()
	a.handleStatus(statusRec, statusReq)

	var status map[string]serviceStatus
	require.NoError(t, json.Unmarshal(statusRec.Body.Bytes(), &status))
	require.Contains(t, status, "svc")
	assert.Equal(t, 1, status["svc"].TotalProjects)
	assert.Equal(t, 1, status["svc"].HealthyProjects)
}

func TestHandleDeregister_RemovesReplica(t *testing.T) {
	a := newTestApplication(t)
	replica, err := domain.NewReplica("svc", "p", "http://10.0.0.1:8080", 1)
	require.NoError(t, err)
	a.registry.Register("svc", replica)

	body, _ := json.Marshal(registrationBody{ServiceName: "svc", ProjectName: "p", Endpoint: "http://10.0.0.1:8080"})
	req := httptest.NewRequest(http.MethodPost, "/gateway/deregister", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	a.handleDeregister(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, a.registry.All("svc"))
}

func TestHandleBreakerStatus_ReportsObservedState(t *testing.T) {
	a := newTestApplication(t)
	a.breakers.Get("svc").Record(false)

	req := httptest.NewRequest(http.MethodGet, "/gateway/circuit-breaker-status", nil)
	rec := httptest.NewRecorder()
	a.handleBreakerStatus(rec, req)

	var status map[string]breakerStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	require.Contains(t, status, "svc")
	assert.Equal(t, "CLOSED", status["svc"].State)
	assert.Equal(t, 1, status["svc"].FailureCount)
}

func TestHandleHealth_ReportsUp(t *testing.T) {
	a := newTestApplication(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	a.handleHealth(rec, req)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "UP", body["status"])
}
