// Package app wires every adapter into a running gateway process:
// config, registry, balancer, breaker, health checker, client pool,
// proxy handler and the admin/proxy HTTP surface.
package app

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/dushu/gateway/internal/adapter/balancer"
	"github.com/dushu/gateway/internal/adapter/clientpool"
	"github.com/dushu/gateway/internal/adapter/health"
	"github.com/dushu/gateway/internal/adapter/proxy"
	"github.com/dushu/gateway/internal/adapter/registry"
	"github.com/dushu/gateway/internal/adapter/resolver"
	"github.com/dushu/gateway/internal/config"
	"github.com/dushu/gateway/internal/core/domain"
	"github.com/dushu/gateway/internal/core/ports"
	"github.com/dushu/gateway/internal/logger"
	"github.com/dushu/gateway/internal/router"
	"github.com/dushu/gateway/internal/util"
	"github.com/dushu/gateway/pkg/eventbus"
)

// Application owns every long-lived component and the HTTP server.
type Application struct {
	cfg    *config.Config
	logger *logger.StyledLogger

	registry *registry.MemoryRegistry
	breakers *health.BreakerRegistry
	checker  *health.Checker
	clients  *clientpool.Pool
	resolver *resolver.Resolver
	events   *eventbus.EventBus[proxy.DispatchEvent]
	proxy    *proxy.Handler
	tracker  ports.ConnectionTracker

	routes *router.RouteRegistry
	server *http.Server

	startTime     time.Time
	dispatchDone  chan struct{}
	dispatchStopC context.CancelFunc
}

// New loads configuration and constructs every component, but does not
// start the health checker or HTTP server — call Start for that.
func New(startTime time.Time, log *logger.StyledLogger) (*Application, error) {
	cfg, err := config.Load(nil)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	svcRegistry := registry.NewMemoryRegistry(log)
	breakers := health.NewBreakerRegistry(cfg.Breaker.FailureThreshold, cfg.Breaker.Cooldown, cfg.Breaker.HalfOpenProbeQuota)
	svcRegistry.OnServiceSeen(func(service string) {
		breakers.Get(service)
	})

	balancerFactory := balancer.NewFactory()
	policy, err := balancerFactory.Create(cfg.Balancer.Policy)
	if err != nil {
		return nil, fmt.Errorf("building load balancer: %w", err)
	}

	tracker, _ := policy.(ports.ConnectionTracker)

	clients := clientpool.New(cfg.ClientPool.ConnectTimeout, cfg.ClientPool.IdleTimeout, cfg.ClientPool.MaxConnsPerOrigin)

	rules := make([]domain.RoutingRule, 0, len(cfg.Routing.Rules))
	for _, r := range cfg.Routing.Rules {
		rules = append(rules, domain.RoutingRule{
			HostSubstring: r.HostSubstring,
			Prefix:        r.Prefix,
			Service:       r.Service,
		})
	}
	routeResolver := resolver.New(rules)

	checker := health.NewChecker(svcRegistry, breakers, log)
	checker.SetInterval(cfg.Health.Interval)

	events := eventbus.New[proxy.DispatchEvent]()

	trustedCIDRs, err := util.ParseTrustedCIDRs(cfg.Server.TrustedProxyCIDRs)
	if err != nil {
		return nil, fmt.Errorf("parsing trusted proxy CIDRs: %w", err)
	}

	proxyHandler := proxy.NewHandler(routeResolver, svcRegistry, breakers, policy, clients, tracker, events, log).
		WithClientIPTrust(cfg.Server.TrustProxyHeaders, trustedCIDRs)

	application := &Application{
		cfg:       cfg,
		logger:    log,
		registry:  svcRegistry,
		breakers:  breakers,
		checker:   checker,
		clients:   clients,
		resolver:  routeResolver,
		events:    events,
		proxy:     proxyHandler,
		tracker:   tracker,
		startTime: startTime,
	}

	application.routes = router.NewRouteRegistry(log)
	application.registerRoutes()

	mux := http.NewServeMux()
	application.routes.WireUp(mux)

	application.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return application, nil
}

// Start launches the health checker and begins serving HTTP. It returns
// once the listener is bound; serving happens in a background goroutine.
func (a *Application) Start(ctx context.Context) error {
	a.checker.Start(ctx)

	listener, err := net.Listen("tcp", a.server.Addr)
	if err != nil {
		return fmt.Errorf("binding %s: %w", a.server.Addr, err)
	}

	a.logger.Info("Gateway listening", "addr", a.server.Addr)

	go func() {
		if err := a.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			a.logger.Error("HTTP server stopped unexpectedly", "error", err)
		}
	}()

	a.startDispatchObserver(ctx)

	return nil
}

// startDispatchObserver subscribes to dispatch outcomes and logs them,
// keeping request-path logging decoupled from the hot dispatch loop.
func (a *Application) startDispatchObserver(ctx context.Context) {
	subCtx, cancel := context.WithCancel(ctx)
	a.dispatchStopC = cancel
	a.dispatchDone = make(chan struct{})

	events, _ := a.events.Subscribe(subCtx)

	go func() {
		defer close(a.dispatchDone)
		for {
			// The bus never closes a subscriber's channel, so cancellation
			// of subCtx is what ends this loop.
			var event proxy.DispatchEvent
			var ok bool
			select {
			case <-subCtx.Done():
				return
			case event, ok = <-events:
				if !ok {
					return
				}
			}
			if event.Success {
				a.logger.InfoWithEndpoint("Dispatched", event.Endpoint,
					"service", event.Service, "status", event.StatusCode, "duration", event.Duration)
			} else {
				a.logger.WarnWithEndpoint("Dispatch failed", event.Endpoint,
					"service", event.Service, "status", event.StatusCode, "duration", event.Duration)
			}
		}
	}()
}

// Stop shuts the HTTP server down within ShutdownTimeout, then stops the
// health checker, the dispatch observer and the event bus.
func (a *Application) Stop(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()

	err := a.server.Shutdown(shutdownCtx)
	a.checker.Stop()
	if a.dispatchStopC != nil {
		a.dispatchStopC()
		<-a.dispatchDone
	}
	a.events.Shutdown()
	return err
}
