package health

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/dushu/gateway/internal/core/domain"
	"github.com/dushu/gateway/internal/core/ports"
	"github.com/dushu/gateway/internal/logger"
)

const (
	// DefaultInterval is how often the checker sweeps every registered
	// service.
	DefaultInterval = 50 * time.Second
	// DefaultWorkerCount bounds how many probes run concurrently.
	DefaultWorkerCount = 10
	// DefaultProbeTimeout bounds a single probe's round trip.
	DefaultProbeTimeout = 5 * time.Second
	// ProbePath is the well-known path probed on each replica.
	ProbePath = "/health"
)

type probeJob struct {
	service string
	replica *domain.Replica
}

// Checker periodically probes every replica known to the registry on a
// worker pool distinct from the request-serving goroutines, feeding each
// outcome to that service's circuit breaker and the replica's healthy
// flag. A probe panic or error is caught and counted as a failure; it
// never stops the checker.
type Checker struct {
	registry ports.ServiceRegistry
	breakers ports.BreakerRegistry
	client   *http.Client
	logger   *logger.StyledLogger

	interval    time.Duration
	workerCount int

	jobCh  chan probeJob
	stopCh chan struct{}
	wg     sync.WaitGroup

	mu      sync.Mutex
	running bool
}

func NewChecker(registry ports.ServiceRegistry, breakers ports.BreakerRegistry, log *logger.StyledLogger) *Checker {
	return &Checker{
		registry: registry,
		breakers: breakers,
		client:   &http.Client{Timeout: DefaultProbeTimeout},
		logger:   log,

		interval:    DefaultInterval,
		workerCount: DefaultWorkerCount,
	}
}

func (c *Checker) SetInterval(interval time.Duration) {
	if interval > 0 {
		c.interval = interval
	}
}

// Start launches the worker pool and the sweep loop. It returns
// immediately; probing happens in background goroutines until ctx is
// cancelled or Stop is called.
func (c *Checker) Start(ctx context.Context) {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return
	}
	c.running = true
	c.jobCh = make(chan probeJob, c.workerCount*4)
	c.stopCh = make(chan struct{})
	c.mu.Unlock()

	for i := 0; i < c.workerCount; i++ {
		c.wg.Add(1)
		go c.worker()
	}

	c.wg.Add(1)
	go c.sweepLoop(ctx)

	if c.logger != nil {
		c.logger.Info("Health checker started", "interval", c.interval, "workers", c.workerCount)
	}
}

func (c *Checker) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	close(c.stopCh)
	c.mu.Unlock()

	c.wg.Wait()
}

func (c *Checker) sweepLoop(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.sweep()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.sweep()
		}
	}
}

func (c *Checker) sweep() {
	for service, replicas := range c.registry.Snapshot() {
		for _, replica := range replicas {
			job := probeJob{service: service, replica: replica}
			select {
			case c.jobCh <- job:
			default:
				if c.logger != nil {
					c.logger.Warn("Health check queue full, dropping probe", "service", service)
				}
			}
		}
	}
}

func (c *Checker) worker() {
	defer c.wg.Done()

	for {
		select {
		case <-c.stopCh:
			return
		case job := <-c.jobCh:
			c.runProbe(job)
		}
	}
}

func (c *Checker) runProbe(job probeJob) {
	healthy := c.probe(job.replica)

	c.registry.SetHealthy(job.service, job.replica.Endpoint(), healthy)
	c.breakers.Get(job.service).Record(healthy)

	if c.logger != nil {
		c.logger.InfoHealthStatus("Replica health probe", job.replica.Name, healthy, "service", job.service)
	}
}

// probe issues a GET against the replica's well-known health path and
// recovers from a panicking transport rather than crashing the checker.
func (c *Checker) probe(replica *domain.Replica) (healthy bool) {
	defer func() {
		if r := recover(); r != nil {
			healthy = false
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), DefaultProbeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, replica.Endpoint()+ProbePath, nil)
	if err != nil {
		return false
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return false
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	return resp.StatusCode >= 200 && resp.StatusCode < 300
}
