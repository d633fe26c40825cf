package app

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/dushu/gateway/internal/core/domain"
	"github.com/dushu/gateway/internal/util"
	"github.com/dushu/gateway/internal/version"
)

func (a *Application) registerRoutes() {
	a.routes.RegisterWithMethod("/gateway/register", a.handleRegister, "Register a replica", http.MethodPost)
	a.routes.RegisterWithMethod("/gateway/deregister", a.handleDeregister, "Deregister a replica", http.MethodPost)
	a.routes.Register("/gateway/status", a.handleStatus, "Registry status")
	a.routes.Register("/gateway/circuit-breaker-status", a.handleBreakerStatus, "Circuit breaker status")
	a.routes.Register("/gateway/test-dispatch", a.handleTestDispatch, "Canned dispatch")
	a.routes.RegisterWithMethod("/gateway/dispatch", a.handleDispatch, "Dispatch a request", http.MethodPost)
	a.routes.Register("/health", a.handleHealth, "Liveness probe")
	a.routes.RegisterProxyRoute("/", a.proxy.ServeHTTP, "Proxied traffic", "ANY")
}

type registrationBody struct {
	ServiceName string `json:"serviceName"`
	ProjectName string `json:"projectName"`
	Endpoint    string `json:"endpoint"`
}

type messageBody struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func (a *Application) handleRegister(w http.ResponseWriter, r *http.Request) {
	var body registrationBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing required field"})
		return
	}
	if body.ServiceName == "" || body.Endpoint == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing required field"})
		return
	}

	replica, err := domain.NewReplica(body.ServiceName, body.ProjectName, body.Endpoint, 1)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	a.registry.Register(body.ServiceName, replica)
	writeJSON(w, http.StatusOK, messageBody{Message: "registered " + body.ServiceName})
}

func (a *Application) handleDeregister(w http.ResponseWriter, r *http.Request) {
	var body registrationBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing required field"})
		return
	}
	if body.ServiceName == "" || body.Endpoint == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing required field"})
		return
	}

	a.registry.Deregister(body.ServiceName, body.ProjectName, body.Endpoint)
	writeJSON(w, http.StatusOK, messageBody{Message: "deregistered " + body.ServiceName})
}

type serviceStatus struct {
	TotalProjects     int              `json:"totalProjects"`
	HealthyProjects   int              `json:"healthyProjects"`
	Endpoints         []string         `json:"endpoints"`
	ActiveConnections map[string]int64 `json:"activeConnections,omitempty"`
}

func (a *Application) handleStatus(w http.ResponseWriter, r *http.Request) {
	snapshot := a.registry.Snapshot()
	out := make(map[string]serviceStatus, len(snapshot))

	for service, replicas := range snapshot {
		endpoints := make([]string, 0, len(replicas))
		healthy := 0
		var connections map[string]int64
		if a.tracker != nil {
			connections = make(map[string]int64, len(replicas))
		}
		for _, replica := range replicas {
			endpoints = append(endpoints, replica.Endpoint())
			if replica.Healthy {
				healthy++
			}
			if a.tracker != nil {
				connections[replica.Endpoint()] = a.tracker.ConnectionCount(replica)
			}
		}
		out[service] = serviceStatus{
			TotalProjects:     len(replicas),
			HealthyProjects:   healthy,
			Endpoints:         endpoints,
			ActiveConnections: connections,
		}
	}

	writeJSON(w, http.StatusOK, out)
}

type breakerStatus struct {
	State           string `json:"state"`
	FailureCount    int    `json:"failureCount"`
	SuccessCount    int    `json:"successCount"`
	LastFailureTime int64  `json:"lastFailureTime"`
}

func (a *Application) handleBreakerStatus(w http.ResponseWriter, r *http.Request) {
	all := a.breakers.All()
	out := make(map[string]breakerStatus, len(all))
	for service, snapshot := range all {
		out[service] = breakerStatus{
			State:           snapshot.State,
			FailureCount:    snapshot.FailureCount,
			SuccessCount:    snapshot.SuccessCount,
			LastFailureTime: snapshot.LastFailureUnix,
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// handleTestDispatch runs a canned request through the full pipeline and
// reports only the dispatch's outcome message, per spec.md's {"message": "..."}
// response shape.
func (a *Application) handleTestDispatch(w http.ResponseWriter, r *http.Request) {
	canned, err := http.NewRequestWithContext(r.Context(), http.MethodGet, "http://dushu.com/user-orch/profile", nil)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	canned.Host = "dushu.com"

	result := a.proxy.Dispatch(canned, &domain.DispatchRequest{
		RequestID: util.GenerateRequestID(),
		Method:    http.MethodGet,
		Path:      "/user-orch/profile",
		Headers:   http.Header{},
	})

	writeJSON(w, http.StatusOK, messageBody{Message: result.Message})
}

type dispatchRequestBody struct {
	Headers    map[string][]string `json:"headers"`
	Parameters map[string]string   `json:"parameters"`
	Method     string              `json:"method"`
	Path       string              `json:"path"`
	Body       []byte              `json:"body"`
}

type dispatchResponseBody struct {
	Message        string `json:"message"`
	RequestID      string `json:"requestId"`
	TargetEndpoint string `json:"targetEndpoint"`
	ProcessingTime int64  `json:"processingTime"`
	Success        bool   `json:"success"`
}

func (a *Application) handleDispatch(w http.ResponseWriter, r *http.Request) {
	var body dispatchRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	headers := http.Header{}
	for key, values := range body.Headers {
		for _, v := range values {
			headers.Add(key, v)
		}
	}

	inner, err := http.NewRequestWithContext(r.Context(), body.Method, "http://"+r.Host+body.Path, nil)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	result := a.proxy.Dispatch(inner, &domain.DispatchRequest{
		RequestID:  util.GenerateRequestID(),
		Method:     body.Method,
		Path:       body.Path,
		Headers:    headers,
		Parameters: body.Parameters,
		Body:       body.Body,
	})

	writeJSON(w, http.StatusOK, dispatchResponseBody{
		Message:        result.Message,
		RequestID:      result.RequestID,
		TargetEndpoint: result.TargetEndpoint,
		ProcessingTime: result.ProcessingTimeMs,
		Success:        result.Success,
	})
}

func (a *Application) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "UP",
		"timestamp": time.Now().UnixMilli(),
		"gateway":   version.Name,
	})
}
