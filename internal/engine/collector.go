package engine

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/vetlink-group/intel-cli/internal/detector"
	"github.com/vetlink-group/intel-cli/internal/model"
)

func nowUTC() time.Time { return time.Now().UTC() }

// CollectorConfig tunes the fan-out behavior.
type CollectorConfig struct {
	// FetchTimeout bounds each engine fetch. A slow engine is skipped,
	// matching the optional-and-omitted contract. Default 5s.
	FetchTimeout time.Duration

	// RatePerSecond caps total fetches per second across engines.
	// Zero disables rate limiting.
	RatePerSecond float64

	// BreakerThreshold is the consecutive-failure count that opens a
	// per-engine circuit. Default 3.
	BreakerThreshold int

	// BreakerReset is how long a tripped engine stays skipped. Default 30s.
	BreakerReset time.Duration
}

// Collector fans a snapshot fetch out to every requested engine and joins
// with best-effort semantics: failures, timeouts, and open circuits
// produce a partial snapshot set, never an error.
type Collector struct {
	registry *Registry
	cfg      CollectorConfig
	limiter  *rate.Limiter

	mu       sync.Mutex
	breakers map[model.EngineID]*Breaker
}

// NewCollector creates a collector over the given engine registry.
func NewCollector(registry *Registry, cfg CollectorConfig) *Collector {
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 5 * time.Second
	}
	var limiter *rate.Limiter
	if cfg.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), int(cfg.RatePerSecond)+1)
	}
	return &Collector{
		registry: registry,
		cfg:      cfg,
		limiter:  limiter,
		breakers: make(map[model.EngineID]*Breaker),
	}
}

func (c *Collector) breaker(id model.EngineID) *Breaker {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.breakers[id]
	if !ok {
		b = NewBreaker(c.cfg.BreakerThreshold, c.cfg.BreakerReset)
		c.breakers[id] = b
	}
	return b
}

// Collect fetches snapshots for the requested engines (nil or empty =
// all registered) in parallel. The returned set contains only the
// engines that answered in time.
func (c *Collector) Collect(ctx context.Context, subjectID string, ids []model.EngineID) detector.Snapshots {
	if len(ids) == 0 {
		ids = c.registry.IDs()
	}

	snaps := make(detector.Snapshots, len(ids))
	var snapsMu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for _, id := range ids {
		eng, ok := c.registry.Get(id)
		if !ok {
			zap.L().Debug("engine: not registered", zap.String("engine", string(id)))
			continue
		}

		b := c.breaker(id)
		if !b.Allow() {
			zap.L().Warn("engine: circuit open, skipping",
				zap.String("engine", string(id)),
			)
			continue
		}

		g.Go(func() error {
			if c.limiter != nil {
				if err := c.limiter.Wait(gctx); err != nil {
					b.Failure()
					return nil
				}
			}

			fetchCtx, cancel := context.WithTimeout(gctx, c.cfg.FetchTimeout)
			defer cancel()

			snap, err := eng.Fetch(fetchCtx, subjectID)
			if err != nil {
				b.Failure()
				zap.L().Warn("engine: fetch failed, omitting",
					zap.String("engine", string(id)),
					zap.String("subject", subjectID),
					zap.Error(err),
				)
				return nil
			}

			b.Success()
			snapsMu.Lock()
			snaps[id] = snap
			snapsMu.Unlock()
			return nil
		})
	}

	// Workers only ever return nil; the group is used for the join.
	_ = g.Wait()
	return snaps
}
