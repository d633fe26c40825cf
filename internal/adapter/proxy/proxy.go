// Package proxy implements the Proxy Handler: the inbound request
// pipeline that resolves a service, picks a healthy replica, and relays
// the request upstream through a pooled client.
package proxy

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dushu/gateway/internal/core/domain"
	"github.com/dushu/gateway/internal/core/ports"
	"github.com/dushu/gateway/internal/logger"
	"github.com/dushu/gateway/internal/util"
	"github.com/dushu/gateway/pkg/eventbus"
	"github.com/dushu/gateway/pkg/pool"
)

// bodyBufferPool recycles the buffers used to drain upstream response
// bodies, avoiding a fresh allocation on every dispatch.
var bodyBufferPool = pool.NewLitePool(func() *bytes.Buffer {
	return &bytes.Buffer{}
})

// Resolver maps an inbound host/path to a logical service name.
type Resolver interface {
	Resolve(host, path string) string
}

// droppedHeaders lists the exact header names stripped before relaying a
// request upstream, in addition to any header whose name starts with
// "sec-".
var droppedHeaders = map[string]struct{}{
	"upgrade-insecure-requests": {},
	"sec-fetch-site":            {},
	"sec-fetch-mode":            {},
	"sec-fetch-dest":            {},
	"sec-fetch-user":            {},
	"dnt":                       {},
	"save-data":                 {},
}

// Handler implements the full dispatch pipeline as an http.Handler.
type Handler struct {
	resolver Resolver
	registry ports.ServiceRegistry
	breakers ports.BreakerRegistry
	balancer ports.EndpointSelector
	clients  ports.ClientPool
	tracker  ports.ConnectionTracker
	events   *eventbus.EventBus[DispatchEvent]
	logger   *logger.StyledLogger

	trustProxyHeaders bool
	trustedCIDRs      []*net.IPNet
}

func NewHandler(
	resolver Resolver,
	registry ports.ServiceRegistry,
	breakers ports.BreakerRegistry,
	balancer ports.EndpointSelector,
	clients ports.ClientPool,
	tracker ports.ConnectionTracker,
	events *eventbus.EventBus[DispatchEvent],
	log *logger.StyledLogger,
) *Handler {
	return &Handler{
		resolver: resolver,
		registry: registry,
		breakers: breakers,
		balancer: balancer,
		clients:  clients,
		tracker:  tracker,
		events:   events,
		logger:   log,
	}
}

// WithClientIPTrust configures how Dispatch resolves the caller's address
// for failure logging: whether X-Forwarded-For/X-Real-IP are trusted, and
// from which upstream CIDRs.
func (h *Handler) WithClientIPTrust(trustProxyHeaders bool, trustedCIDRs []*net.IPNet) *Handler {
	h.trustProxyHeaders = trustProxyHeaders
	h.trustedCIDRs = trustedCIDRs
	return h
}

type errorBody struct {
	Error     string `json:"error"`
	RequestID string `json:"requestId"`
}

// ServeHTTP runs one inbound request through the full dispatch pipeline.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	result := h.Dispatch(r, h.buildRequest(r))

	for key, values := range result.ResponseHeaders {
		for _, v := range values {
			w.Header().Add(key, v)
		}
	}
	w.WriteHeader(result.StatusCode)
	_, _ = w.Write(result.Body)
}

func (h *Handler) buildRequest(r *http.Request) *domain.DispatchRequest {
	body, _ := io.ReadAll(r.Body)
	_ = r.Body.Close()

	params := make(map[string]string, len(r.URL.Query()))
	for key, values := range r.URL.Query() {
		if len(values) > 0 {
			params[key] = values[0]
		}
	}

	return &domain.DispatchRequest{
		RequestID:  util.GenerateRequestID(),
		Method:     r.Method,
		Path:       r.URL.Path,
		Headers:    r.Header.Clone(),
		Parameters: params,
		Body:       body,
	}
}

// Dispatch runs req through routing, the breaker gate, balancing and the
// outbound call, honouring r's context for cancellation propagation.
func (h *Handler) Dispatch(r *http.Request, req *domain.DispatchRequest) *domain.DispatchResult {
	start := time.Now()
	service := h.resolver.Resolve(r.Host, req.Path)

	clientIP := util.GetClientIP(r, h.trustProxyHeaders, h.trustedCIDRs)

	healthy := h.registry.Healthy(service)
	if len(healthy) == 0 {
		return h.fail(req, service, "", clientIP, http.StatusInternalServerError,
			fmt.Sprintf("%s: %s", domain.ErrNoReplicas, service), start)
	}

	breaker := h.breakers.Get(service)
	if !breaker.Allow() {
		return h.fail(req, service, "", clientIP, http.StatusInternalServerError,
			fmt.Sprintf("%s: %s", domain.ErrCircuitOpen, service), start)
	}

	replica, err := h.balancer.Select(r.Context(), healthy)
	if err != nil || replica == nil {
		return h.fail(req, service, "", clientIP, http.StatusInternalServerError,
			fmt.Sprintf("%s: %s", domain.ErrNoReplicas, service), start)
	}

	client := h.clients.ClientFor(replica.Endpoint())
	outboundURL := replica.Endpoint() + req.Path
	if rawQuery := r.URL.RawQuery; rawQuery != "" {
		outboundURL += "?" + rawQuery
	}

	outReq, err := http.NewRequestWithContext(r.Context(), req.Method, outboundURL, bytes.NewReader(req.Body))
	if err != nil {
		breaker.Record(false)
		return h.fail(req, service, replica.Endpoint(), clientIP, http.StatusInternalServerError,
			"upstream failed: "+err.Error(), start)
	}
	applyOutboundHeaders(outReq, req.Headers, replica.URL)

	if h.tracker != nil {
		h.tracker.IncrementConnections(replica)
		defer h.tracker.DecrementConnections(replica)
	}

	resp, err := client.Do(outReq)
	duration := time.Since(start)

	if err != nil {
		if r.Context().Err() != nil {
			// Client-side cancellation: neither a success nor a server
			// failure, so the breaker is left untouched.
			return h.fail(req, service, replica.Endpoint(), clientIP, http.StatusInternalServerError,
				"upstream failed: "+err.Error(), start)
		}
		breaker.Record(false)
		h.publish(req, service, replica.Endpoint(), 0, false, duration)
		return h.fail(req, service, replica.Endpoint(), clientIP, http.StatusInternalServerError,
			"upstream failed: "+err.Error(), start)
	}
	defer func() { _ = resp.Body.Close() }()

	buf := bodyBufferPool.Get()
	defer bodyBufferPool.Put(buf)
	_, _ = buf.ReadFrom(resp.Body)
	respBody := append([]byte(nil), buf.Bytes()...)

	breaker.Record(resp.StatusCode < 400)
	h.publish(req, service, replica.Endpoint(), resp.StatusCode, resp.StatusCode < 400, duration)

	return &domain.DispatchResult{
		Success:          resp.StatusCode < 400,
		Body:             respBody,
		TargetEndpoint:   replica.Endpoint(),
		ProcessingTimeMs: duration.Milliseconds(),
		StatusCode:       resp.StatusCode,
		ResponseHeaders:  resp.Header,
		RequestID:        req.RequestID,
		Message:          fmt.Sprintf("dispatched to %s: %d", replica.Endpoint(), resp.StatusCode),
	}
}

func (h *Handler) fail(req *domain.DispatchRequest, service, endpoint, clientIP string, status int, message string, start time.Time) *domain.DispatchResult {
	body, _ := json.Marshal(errorBody{Error: message, RequestID: req.RequestID})
	if h.logger != nil {
		h.logger.WarnWithEndpoint("Dispatch failed for "+service, endpoint, "error", message, "client_ip", clientIP)
	}
	return &domain.DispatchResult{
		Success:          false,
		Body:             body,
		TargetEndpoint:   endpoint,
		ProcessingTimeMs: time.Since(start).Milliseconds(),
		StatusCode:       status,
		Message:          message,
		ResponseHeaders:  http.Header{"Content-Type": []string{"application/json"}},
		RequestID:        req.RequestID,
	}
}

func (h *Handler) publish(req *domain.DispatchRequest, service, endpoint string, status int, success bool, duration time.Duration) {
	if h.events == nil {
		return
	}
	h.events.PublishAsync(DispatchEvent{
		RequestID:  req.RequestID,
		Service:    service,
		Endpoint:   endpoint,
		StatusCode: status,
		Success:    success,
		Duration:   duration,
		At:         time.Now(),
	})
}

// applyOutboundHeaders copies inbound headers onto outReq, dropping the
// security-posture headers browsers attach and that upstream services
// have no use for, replacing Host, and filling in defaults for
// Content-Type/Accept when the caller omitted them.
func applyOutboundHeaders(outReq *http.Request, headers http.Header, target *url.URL) {
	for name, values := range headers {
		lower := strings.ToLower(name)
		if strings.HasPrefix(lower, "sec-") {
			continue
		}
		if _, dropped := droppedHeaders[lower]; dropped {
			continue
		}
		for _, v := range values {
			outReq.Header.Add(name, v)
		}
	}

	outReq.Host = target.Host
	outReq.Header.Set("Host", target.Host)

	if outReq.Header.Get("Content-Type") == "" {
		outReq.Header.Set("Content-Type", "application/json")
	}
	if outReq.Header.Get("Accept") == "" {
		outReq.Header.Set("Accept", "application/json")
	}
}
