package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/emperorhan/priority-fee-monitor/internal/admin"
	"github.com/emperorhan/priority-fee-monitor/internal/alert"
	"github.com/emperorhan/priority-fee-monitor/internal/chain/evm/rpc"
	"github.com/emperorhan/priority-fee-monitor/internal/chain/ratelimit"
	"github.com/emperorhan/priority-fee-monitor/internal/circuitbreaker"
	"github.com/emperorhan/priority-fee-monitor/internal/config"
	"github.com/emperorhan/priority-fee-monitor/internal/domain/model"
	"github.com/emperorhan/priority-fee-monitor/internal/forecast"
	"github.com/emperorhan/priority-fee-monitor/internal/metrics"
	"github.com/emperorhan/priority-fee-monitor/internal/pipeline"
	"github.com/emperorhan/priority-fee-monitor/internal/pipeline/coordinator"
	"github.com/emperorhan/priority-fee-monitor/internal/pipeline/feed"
	"github.com/emperorhan/priority-fee-monitor/internal/pipeline/reorgdetector"
	"github.com/emperorhan/priority-fee-monitor/internal/pipeline/retention"
	"github.com/emperorhan/priority-fee-monitor/internal/pipeline/retry"
	"github.com/emperorhan/priority-fee-monitor/internal/store"
	"github.com/emperorhan/priority-fee-monitor/internal/store/memory"
	"github.com/emperorhan/priority-fee-monitor/internal/store/postgres"
	redispkg "github.com/emperorhan/priority-fee-monitor/internal/store/redis"
	"github.com/emperorhan/priority-fee-monitor/internal/tracing"
)

const (
	serviceName            = "priority-fee-monitor"
	dbPoolStatsInterval    = 15 * time.Second
	serverShutdownTimeout  = 5 * time.Second
	chainDetectMaxAttempts = 5
)

// runtimeTarget is the chain the process monitors, resolved from config or
// from the node itself.
type runtimeTarget struct {
	chainID   int64
	chain     model.Chain
	network   model.Network
	protocols config.Protocols
}

type chainIDReader interface {
	ChainID(ctx context.Context) (int64, error)
}

// resolveTarget picks the chain from CHAIN_ID or eth_chainId and selects its
// protocol table. Unknown and disabled chains are refused.
func resolveTarget(ctx context.Context, configured int64, client chainIDReader, table config.ProtocolTable, policy retry.Policy) (runtimeTarget, error) {
	id := configured
	if id == 0 {
		err := retry.Do(ctx, policy, func(ctx context.Context) error {
			var err error
			id, err = client.ChainID(ctx)
			return err
		})
		if err != nil {
			return runtimeTarget{}, fmt.Errorf("detect chain id: %w", err)
		}
	}

	chain, network, ok := model.ChainFromID(id)
	if !ok {
		return runtimeTarget{}, fmt.Errorf("unsupported chain id %d", id)
	}
	protocols, ok := table.For(chain)
	if !ok {
		return runtimeTarget{}, fmt.Errorf("chain %s (id %d) is disabled; enable it in the protocols file", chain, id)
	}
	return runtimeTarget{chainID: id, chain: chain, network: network, protocols: protocols}, nil
}

// openHistory builds the configured stores. cleanup releases every
// connection opened, including on error.
func openHistory(ctx context.Context, cfg *config.Config, logger *slog.Logger) (history store.History, db *postgres.DB, cleanup func(), err error) {
	var closers []func() error
	cleanup = func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				logger.Warn("close store failed", "error", err)
			}
		}
	}
	defer func() {
		if err != nil {
			cleanup()
		}
	}()

	switch cfg.DB.Backend {
	case config.BackendPostgres:
		db, err = postgres.New(ctx, postgres.Config{
			URL:             cfg.DB.URL,
			MaxOpenConns:    cfg.DB.MaxOpenConns,
			MaxIdleConns:    cfg.DB.MaxIdleConns,
			ConnMaxLifetime: cfg.DB.ConnMaxLifetime,
			MigrationsDir:   cfg.DB.MigrationsDir,
		}, logger)
		if err != nil {
			return store.History{}, nil, cleanup, fmt.Errorf("connect postgres: %w", err)
		}
		closers = append(closers, db.Close)
		if err = db.RunMigrations(ctx, cfg.DB.MigrationsDir); err != nil {
			return store.History{}, nil, cleanup, fmt.Errorf("run migrations: %w", err)
		}
		history = store.History{
			Blocks:       postgres.NewBlockRepo(db),
			Transactions: postgres.NewTransactionRepo(db),
			Forecasts:    postgres.NewForecastRepo(db),
		}
		logger.Info("connected to database")
	default:
		history = memory.NewHistory()
	}

	if cfg.Forecast.Store == config.BackendRedis {
		rs, rerr := redispkg.NewForecastStore(ctx, cfg.Redis.URL)
		if rerr != nil {
			err = fmt.Errorf("connect redis: %w", rerr)
			return store.History{}, nil, cleanup, err
		}
		closers = append(closers, rs.Close)
		history.Forecasts = rs
		logger.Info("forecasts stored in redis")
	}
	return history, db, cleanup, nil
}

// buildForecaster returns the configured model, guarded by a circuit breaker
// when it is remote.
func buildForecaster(cfg *config.Config, logger *slog.Logger) (forecast.Forecaster, func(), error) {
	if cfg.Forecast.Backend != config.ForecasterSidecar {
		return forecast.NewBaseline(), func() {}, nil
	}
	client, err := forecast.NewSidecarClient(forecast.SidecarConfig{
		Addr:    cfg.Forecast.SidecarAddr,
		Timeout: cfg.Forecast.Timeout,
	}, logger)
	if err != nil {
		return nil, nil, err
	}
	guarded := forecast.NewGuarded(client, config.ForecasterSidecar, circuitbreaker.Config{
		OnStateChange: func(from, to circuitbreaker.State) {
			logger.Warn("forecast sidecar breaker state changed", "from", from.String(), "to", to.String())
		},
	})
	closeFn := func() {
		if err := client.Close(); err != nil {
			logger.Warn("close forecast sidecar failed", "error", err)
		}
	}
	return guarded, closeFn, nil
}

// buildAlerter fans findings out to the log and every configured sink.
func buildAlerter(cfg *config.Config, logger *slog.Logger) (alert.Alerter, func(), error) {
	sinks := []alert.Alerter{alert.NewLogAlerter(logger)}
	cleanup := func() {}

	if cfg.Alert.SlackWebhookURL != "" {
		sinks = append(sinks, alert.NewSlackAlerter(cfg.Alert.SlackWebhookURL))
	}
	if cfg.Alert.WebhookURL != "" {
		sinks = append(sinks, alert.NewWebhookAlerter(cfg.Alert.WebhookURL))
	}
	if len(cfg.Alert.KafkaBrokers) > 0 {
		k, err := alert.NewKafkaAlerter(cfg.Alert.KafkaBrokers, cfg.Alert.KafkaTopic)
		if err != nil {
			return nil, nil, fmt.Errorf("kafka alerter: %w", err)
		}
		sinks = append(sinks, k)
		cleanup = func() {
			if err := k.Close(); err != nil {
				logger.Warn("close kafka producer failed", "error", err)
			}
		}
	}
	return alert.NewMultiAlerter(cfg.Alert.Cooldown, logger, sinks...), cleanup, nil
}

type dbStatsProvider interface {
	Stats() sql.DBStats
}

type dbPoolStatsGauges struct {
	open  prometheus.Gauge
	inUse prometheus.Gauge
	idle  prometheus.Gauge
}

func collectDBPoolStats(db dbStatsProvider, gauges dbPoolStatsGauges) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("db pool stats collection panicked: %v", r)
		}
	}()
	if db == nil {
		return fmt.Errorf("db stats provider is nil")
	}

	stats := db.Stats()
	gauges.open.Set(float64(stats.OpenConnections))
	gauges.inUse.Set(float64(stats.InUse))
	gauges.idle.Set(float64(stats.Idle))
	return nil
}

func runDBPoolStatsPump(ctx context.Context, db dbStatsProvider, interval time.Duration, logger *slog.Logger) error {
	gauges := dbPoolStatsGauges{
		open:  metrics.DBPoolOpen,
		inUse: metrics.DBPoolInUse,
		idle:  metrics.DBPoolIdle,
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	if err := collectDBPoolStats(db, gauges); err != nil {
		logger.Warn("failed to collect initial db pool stats", "error", err)
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := collectDBPoolStats(db, gauges); err != nil {
				logger.Warn("failed to collect db pool stats", "error", err)
			}
		}
	}
}

func healthHandler(logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("ok")); err != nil {
			logger.Warn("failed to write health response", "error", err)
		}
	})
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func adminHandler(srv *admin.Server, rps float64, logger *slog.Logger) (http.Handler, func()) {
	rl := admin.NewRateLimitMiddleware(rps, logger)
	return admin.AuditMiddleware(logger, rl.Wrap(srv.Handler())), rl.Stop
}

// serveHTTP runs an HTTP server until ctx is done.
func serveHTTP(ctx context.Context, name string, port int, handler http.Handler, logger *slog.Logger) error {
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), serverShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("server shutdown error", "server", name, "error", err)
		}
	}()

	logger.Info("server started", "server", name, "port", port)
	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("%s server: %w", name, err)
	}
	return nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("monitor exited with error", "error", err)
		os.Exit(1)
	}
	logger.Info("monitor shut down gracefully")
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tracingEndpoint := ""
	if cfg.Tracing.Enabled {
		tracingEndpoint = cfg.Tracing.Endpoint
	}
	shutdownTracing, err := tracing.Init(ctx, serviceName, tracingEndpoint, cfg.Tracing.Insecure, cfg.Tracing.SampleRatio)
	if err != nil {
		return fmt.Errorf("initialize tracing: %w", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Warn("tracing shutdown error", "error", err)
		}
	}()

	table, err := config.LoadProtocols(cfg.ProtocolsFile)
	if err != nil {
		return err
	}

	client := rpc.NewClient(cfg.Chain.RPCURL, logger)
	target, err := resolveTarget(ctx, cfg.Chain.ChainID, client, table, retry.Policy{MaxAttempts: chainDetectMaxAttempts})
	if err != nil {
		return err
	}
	client.SetChainLabel(target.chain.String())
	client.SetRateLimiter(ratelimit.NewLimiter(cfg.Chain.RPCRPS, cfg.Chain.RPCBurst, target.chain.String()))

	logger.Info("starting "+serviceName,
		"chain", target.chain,
		"network", target.network,
		"chain_id", target.chainID,
		"rpc", cfg.Chain.RPCURL,
		"protocols", target.protocols.Names(),
		"store_backend", cfg.DB.Backend,
		"forecast_store", cfg.Forecast.Store,
		"forecast_backend", cfg.Forecast.Backend,
		"retention_blocks", cfg.Monitor.RetentionBlocks,
		"win_streak_limit", cfg.Monitor.WinStreakLimit,
	)

	history, db, closeHistory, err := openHistory(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeHistory()

	forecaster, closeForecaster, err := buildForecaster(cfg, logger)
	if err != nil {
		return err
	}
	defer closeForecaster()

	alerter, closeAlerter, err := buildAlerter(cfg, logger)
	if err != nil {
		return err
	}
	defer closeAlerter()

	filler := forecast.NewFiller(forecast.FillerConfig{
		Chain:    target.chain,
		Network:  target.network,
		Horizon:  cfg.Forecast.HorizonHours,
		Timeout:  cfg.Forecast.Timeout,
		MemoSize: cfg.Forecast.CacheSize,
	}, history.Transactions, history.Forecasts, forecaster, logger)

	sweeper := retention.NewSweeper(retention.Config{
		Chain:           target.chain,
		Network:         target.network,
		RetentionBlocks: cfg.Monitor.RetentionBlocks,
		IntervalBlocks:  cfg.Monitor.SweepIntervalBlocks,
	}, history.Blocks, history.Transactions, logger)

	detector := reorgdetector.New(target.chain, target.network, logger).WithAlerter(alerter)

	coord := coordinator.New(coordinator.Config{
		Chain:                  target.chain,
		Network:                target.network,
		Protocols:              target.protocols,
		WinStreakLimit:         cfg.Monitor.WinStreakLimit,
		MinForecastCapacity:    cfg.Monitor.MinForecastCapacity,
		Policy:                 cfg.Policy(),
		ObserveAllTransactions: cfg.Monitor.ObserveAllTransactions,
	}, history, filler, sweeper, detector, logger)

	source := feed.New(feed.Config{
		Chain:        target.chain,
		Network:      target.network,
		PollInterval: cfg.Chain.PollInterval,
		StartBlock:   cfg.Chain.StartBlock,
	}, client, logger)

	p := pipeline.New(pipeline.Config{
		Chain:   target.chain,
		Network: target.network,
	}, source, coord, alerter, logger)

	registry := pipeline.NewRegistry()
	registry.Register(p)

	adminSrv := admin.NewServer(registry, logger, admin.WithForecastRepo(history.Forecasts))
	adminHTTP, stopRateLimit := adminHandler(adminSrv, cfg.Server.AdminRPS, logger)
	defer stopRateLimit()

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return serveHTTP(gCtx, "health", cfg.Server.HealthPort, healthHandler(logger), logger)
	})
	g.Go(func() error {
		return serveHTTP(gCtx, "admin", cfg.Server.AdminPort, adminHTTP, logger)
	})
	if db != nil {
		g.Go(func() error {
			return runDBPoolStatsPump(gCtx, db.DB, dbPoolStatsInterval, logger)
		})
	}
	g.Go(func() error {
		return p.Run(gCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
