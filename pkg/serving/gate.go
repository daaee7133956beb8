package serving

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"github.com/YounessBoumeshouli/MLOps/pkg/loop"
	kreg "github.com/YounessBoumeshouli/MLOps/pkg/registry"
)

// Gate answers health checks from local state only: the cache and the
// result of the last background registry probe. No health call ever
// waits on the network.
type Gate struct {
	cache    *Cache
	registry kreg.Registry
	interval time.Duration
	logger   *log.Logger

	registryOK atomic.Bool
}

func NewGate(cache *Cache, registry kreg.Registry, probeInterval time.Duration, logger *log.Logger) *Gate {
	if logger == nil {
		logger = log.Default()
	}
	g := &Gate{
		cache:    cache,
		registry: registry,
		interval: probeInterval,
		logger:   logger,
	}
	// optimistic until the first probe answers
	g.registryOK.Store(true)
	return g
}

// HealthSnapshot is the state of the service at one health check.
type HealthSnapshot struct {
	ModelLoaded       bool
	RegistryConnected bool

	// served version, "" while no model is loaded.
	ModelVersion string

	CheckedAt time.Time
}

// Ready is the single bit load balancers act on: predictions are
// possible. Registry trouble alone never turns it off.
func (s HealthSnapshot) Ready() bool {
	return s.ModelLoaded
}

// Report takes the current health snapshot.
func (g *Gate) Report() HealthSnapshot {
	s := HealthSnapshot{
		RegistryConnected: g.registryOK.Load(),
		CheckedAt:         time.Now(),
	}
	if h, ok := g.cache.Get(); ok {
		s.ModelLoaded = true
		s.ModelVersion = h.Version()
	}
	return s
}

// Run probes registry reachability on the gate's cadence until ctx
// ends. Run it in its own goroutine; Report picks the result up.
func (g *Gate) Run(ctx context.Context) error {
	if g.interval <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	_, err := loop.Start(
		ctx, struct{}{},
		func(ctx context.Context, _ struct{}) (struct{}, loop.Next) {
			g.probe(ctx)
			return struct{}{}, loop.Continue(g.interval)
		},
		loop.WithTimeout(g.interval),
	)
	return err
}

func (g *Gate) probe(ctx context.Context) {
	err := g.registry.Ping(ctx)
	ok := err == nil

	if was := g.registryOK.Swap(ok); was && !ok {
		g.logger.Printf("model registry went unreachable: %s", err)
	} else if !was && ok {
		g.logger.Printf("model registry is reachable again")
	}
}
