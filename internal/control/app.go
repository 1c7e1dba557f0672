package control

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/innovinitylabs/onchain-rug-sub004/internal/core/config"
	"github.com/innovinitylabs/onchain-rug-sub004/internal/core/cursor"
	"github.com/innovinitylabs/onchain-rug-sub004/internal/core/domain"
	"github.com/innovinitylabs/onchain-rug-sub004/internal/core/worker"
	"github.com/innovinitylabs/onchain-rug-sub004/internal/events"
	"github.com/innovinitylabs/onchain-rug-sub004/internal/fetch"
	"github.com/innovinitylabs/onchain-rug-sub004/internal/infra/chain/evm"
	redisclient "github.com/innovinitylabs/onchain-rug-sub004/internal/infra/redis"
	"github.com/innovinitylabs/onchain-rug-sub004/internal/infra/rpc"
	"github.com/innovinitylabs/onchain-rug-sub004/internal/infra/storage/postgres"
	"github.com/innovinitylabs/onchain-rug-sub004/internal/ratelimit"
	"github.com/innovinitylabs/onchain-rug-sub004/internal/refresh"
	"github.com/innovinitylabs/onchain-rug-sub004/internal/serve"
)

// App owns the wired service graph and its lifecycle.
type App struct {
	cfg    *config.AppConfig
	redis  *redisclient.Client
	db     *postgres.DB
	server *serve.Server
	pruner *worker.Pruner
	cancel context.CancelFunc
	log    *slog.Logger
}

// NewApp wires the full pipeline for the first configured chain.
func NewApp(cfg *config.AppConfig) (*App, error) {
	if len(cfg.Chains) == 0 {
		return nil, fmt.Errorf("no chains configured")
	}
	chainCfg := cfg.Chains[0]
	contract := domain.NewContractRef(chainCfg.ChainID, chainCfg.Contract)
	log := slog.Default().With("component", "app")

	rdb, err := redisclient.NewClient(cfg.Redis, redisclient.TTLConfig{
		Static:   cfg.Cache.StaticTTL,
		Dynamic:  cfg.Cache.DynamicTTL,
		TokenURI: cfg.Cache.TokenURITTL,
		Page:     cfg.Cache.PageTTL,
		Inflight: cfg.Cache.InflightTTL,
		Lease:    cfg.Refresh.LeaseTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}

	providers := make([]rpc.Provider, 0, len(chainCfg.Providers))
	for _, p := range chainCfg.Providers {
		providers = append(providers, rpc.NewHTTPProvider(p.Name, p.URL, p.Timeout))
	}
	rpcClient := rpc.NewClient(chainCfg.ChainID, providers)
	reader := evm.NewReader(contract, rpcClient)
	fetcher := fetch.NewFetcher(reader)

	refresher := refresh.NewRefresher(fetcher, rdb)
	trigger := refresh.NewTrigger(refresher, rdb, contract, cfg.Refresh.FetchTimeout)
	cursorMgr := cursor.NewManager(contract, rdb, cfg.Refresh.TokensPerRun)

	// Run history is optional: no database URL means summaries are
	// returned to the caller but not persisted.
	var db *postgres.DB
	var history refresh.RunHistory
	if cfg.Database.URL != "" {
		db, err = postgres.NewDB(context.Background(), cfg.Database)
		if err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("postgres: %w", err)
		}
		if err := db.Migrate(context.Background()); err != nil {
			_ = db.Close()
			_ = rdb.Close()
			return nil, fmt.Errorf("migrations: %w", err)
		}
		history = postgres.NewRunRepo(db)
	} else {
		log.Warn("run history disabled, no database configured")
	}

	scheduler := refresh.NewScheduler(contract, cursorMgr, refresher, fetcher, rdb, history, cfg.Refresh.Concurrency)
	invalidator := events.NewInvalidator(contract, refresher, rdb)

	var limiter ratelimit.Limiter
	var pruner *worker.Pruner
	if cfg.RateLimit.Store == "memory" {
		mem := ratelimit.NewMemoryLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window)
		pruner = worker.NewPruner(cfg.RateLimit.Window, mem)
		limiter = mem
	} else {
		limiter = ratelimit.NewRedisLimiter(rdb.Universal(), cfg.RateLimit.Requests, cfg.RateLimit.Window)
	}

	metadata := serve.NewMetadataService(contract, rdb, trigger)
	collection := serve.NewCollectionService(contract, rdb, refresher, fetcher, cfg.Refresh.Concurrency)

	server := serve.NewServer(cfg.Server.Port, serve.Deps{
		Metadata:    metadata,
		Collection:  collection,
		Refresher:   refresher,
		Scheduler:   scheduler,
		Invalidator: invalidator,
		Limiter:     limiter,
		Health:      health{redis: rdb, db: db},
		CronSecret:  cfg.Server.CronSecret,
	})

	return &App{
		cfg:    cfg,
		redis:  rdb,
		db:     db,
		server: server,
		pruner: pruner,
		log:    log,
	}, nil
}

// Start brings up background workers and the HTTP server.
func (a *App) Start(ctx context.Context) error {
	ctx, a.cancel = context.WithCancel(ctx)

	if a.db != nil {
		a.db.StartMetricsCollector(ctx)
	}
	if a.pruner != nil {
		go a.pruner.Start(ctx)
	}

	go func() {
		if err := a.server.Start(); err != nil {
			a.log.Error("http server failed", "error", err)
		}
	}()

	a.log.Info("listening", "port", a.cfg.Server.Port)
	return nil
}

// Stop shuts everything down gracefully.
func (a *App) Stop(ctx context.Context) error {
	if a.cancel != nil {
		a.cancel()
	}
	if err := a.server.Stop(ctx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.Warn("database close failed", "error", err)
		}
	}
	if err := a.redis.Close(); err != nil {
		a.log.Warn("redis close failed", "error", err)
	}
	return nil
}

// health aggregates dependency liveness for the health endpoint.
type health struct {
	redis *redisclient.Client
	db    *postgres.DB
}

func (h health) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := h.redis.Ping(ctx); err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	if h.db != nil {
		if err := h.db.Health(ctx); err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
	}
	return nil
}
