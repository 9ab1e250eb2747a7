package cli

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aretw0/transit"
	"github.com/aretw0/transit/internal/config"
	"github.com/aretw0/transit/internal/presentation/tui"
	"github.com/aretw0/transit/pkg/adapters/memory"
	redisAdapter "github.com/aretw0/transit/pkg/adapters/redis"
	"github.com/aretw0/transit/pkg/domain"
	"github.com/aretw0/transit/pkg/gate"
	"github.com/aretw0/transit/pkg/ports"
	"github.com/aretw0/transit/pkg/progress"
	"github.com/prometheus/client_golang/prometheus"
	backend "github.com/redis/go-redis/v9"
)

// Simulation tunes the in-memory collaborators the CLI drives.
type Simulation struct {
	Steps     int
	StepDelay time.Duration
	Initial   []string
}

// Stack is everything a CLI command wires around the orchestrator.
type Stack struct {
	Orchestrator *transit.Orchestrator
	Loader       *memory.Loader
	Gates        *gate.Registry[domain.GateID]
	Registry     *prometheus.Registry
	Redis        *backend.Client
	Bridge       *redisAdapter.GateBridge
}

// Close releases the Redis client, if any.
func (s *Stack) Close() error {
	if s.Redis == nil {
		return nil
	}
	return s.Redis.Close()
}

// createStack initializes an orchestrator with standard CLI conventions:
// in-memory content, terminal presentation on out, Redis cache and gate
// bridge when the config names a Redis address.
func createStack(cfg config.Config, sim Simulation, out io.Writer, logger *slog.Logger, debug bool) (*Stack, error) {
	s := &Stack{
		Loader:   memory.NewLoader(memory.WithSteps(sim.Steps), memory.WithStepDelay(sim.StepDelay)),
		Gates:    gate.NewRegistry[domain.GateID](),
		Registry: prometheus.NewRegistry(),
	}

	var cache ports.ContentCache = memory.NewCache()
	if cfg.Redis.Addr != "" {
		s.Redis = backend.NewClient(&backend.Options{Addr: cfg.Redis.Addr})
		var cacheOpts []redisAdapter.CacheOption
		if cfg.Redis.Prefix != "" {
			cacheOpts = append(cacheOpts, redisAdapter.WithPrefix(cfg.Redis.Prefix))
		}
		if cfg.Redis.MaxIdle > 0 {
			cacheOpts = append(cacheOpts, redisAdapter.WithMaxIdle(cfg.Redis.MaxIdle))
		}
		cache = redisAdapter.NewCache(s.Redis, cacheOpts...)

		bridgeOpts := []redisAdapter.BridgeOption{redisAdapter.WithBridgeLogger(logger)}
		if cfg.Redis.Channel != "" {
			bridgeOpts = append(bridgeOpts, redisAdapter.WithChannel(cfg.Redis.Channel))
		}
		s.Bridge = redisAdapter.NewGateBridge(s.Redis, s.Gates, bridgeOpts...)
	}

	opts := []transit.Option{
		transit.WithLogger(logger),
		transit.WithMetrics(s.Registry),
		transit.WithCache(cache),
		transit.WithGates(s.Gates),
		transit.WithProgressHub(progress.NewHub(cfg.HubOptions(logger)...)),
		transit.WithInputBlocker(&memory.InputBlocker{}),
		transit.WithFader(tui.NewFader(out)),
		transit.WithSpillContainer(memory.NewSpill(0)),
		transit.WithPresenter("terminal", tui.NewPresenter(out)),
		transit.WithInitialContent(s.Loader.Preload(sim.Initial...)...),
	}
	if debug {
		opts = append(opts, transit.WithLifecycleHooks(createDebugHooks(logger)))
	}

	orch, err := transit.New(s.Loader, opts...)
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("error initializing orchestrator: %w", err)
	}
	s.Orchestrator = orch
	return s, nil
}
