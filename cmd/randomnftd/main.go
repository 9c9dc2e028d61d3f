package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"randomnft/config"
	"randomnft/core/events"
	"randomnft/core/state"
	"randomnft/integrations/indexer"
	"randomnft/integrations/webhooks"
	"randomnft/native/randomnft"
	"randomnft/observability"
	"randomnft/observability/logging"
	telemetry "randomnft/observability/otel"
	"randomnft/rpc"
	"randomnft/rpc/middleware"
	"randomnft/storage"
)

const serviceName = "randomnftd"

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.SetupWithFile(serviceName, cfg.Logging.Env, logging.FileOptions{
		Path:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("randomnftd stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	shutdownTelemetry, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName: serviceName,
		Environment: cfg.Logging.Env,
		Endpoint:    cfg.Telemetry.Endpoint,
		Insecure:    cfg.Telemetry.Insecure,
		Headers:     telemetry.ParseHeaders(cfg.Telemetry.Headers),
		Metrics:     cfg.Telemetry.Metrics,
		Traces:      cfg.Telemetry.Traces,
		SampleRatio: cfg.Telemetry.SampleRatio,
	})
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown", slog.Any("error", err))
		}
	}()

	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	coord, err := buildCoordinator(cfg, logger)
	if err != nil {
		return err
	}
	params, err := cfg.LedgerParams(coord.address)
	if err != nil {
		return err
	}
	engine, err := randomnft.NewEngine(params)
	if err != nil {
		return err
	}
	engine.SetState(state.NewManager(db))
	engine.SetCoordinator(coord.coordinator, coord.settings)

	eventLog := events.NewLog()
	ledgerMetrics := observability.Ledger()
	emitters := events.MultiEmitter{eventLog, ledgerMetrics}
	if strings.TrimSpace(cfg.Notify.URL) != "" {
		dispatcher, err := buildDispatcher(cfg, logger)
		if err != nil {
			return err
		}
		defer dispatcher.Close()
		emitters = append(emitters, dispatcher)
	}
	engine.SetEmitter(emitters)
	if err := seedMetrics(engine, ledgerMetrics); err != nil {
		return err
	}

	consumer := randomnft.NewOracleConsumer(engine, logger, ledgerMetrics)
	if coord.mock != nil {
		coord.mock.SetConsumer(consumer)
		requeued, err := engine.ResubmitPending(ctx)
		if err != nil {
			return fmt.Errorf("requeue pending requests: %w", err)
		}
		if requeued > 0 {
			logger.Info("pending requests requeued", "count", requeued)
		}
		go func() {
			if err := coord.mock.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("mock coordinator stopped", slog.Any("error", err))
			}
		}()
	}

	if cfg.Indexer.Driver != "" {
		idx, err := startIndexer(ctx, cfg, eventLog, logger)
		if err != nil {
			return err
		}
		logger.Info("indexer started", "driver", cfg.Indexer.Driver, "cursor", idx.Cursor())
	}

	secret, err := cfg.JWTSecret()
	if err != nil {
		return err
	}
	auth := middleware.NewAuthenticator(middleware.AuthConfig{
		HMACSecret: secret,
		Issuer:     cfg.Auth.Issuer,
		Audience:   cfg.Auth.Audience,
		ClockSkew:  time.Minute,
	}, logger)
	limiter := middleware.NewRateLimiter(middleware.RateLimit{
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		Burst:             cfg.RateLimit.Burst,
	})
	go sweepLimiter(ctx, limiter)

	faucet, err := cfg.FaucetAmount()
	if err != nil {
		return err
	}
	server, err := rpc.New(rpc.Config{
		Ledger:      engine,
		Consumer:    consumer,
		Events:      eventLog,
		Auth:        auth,
		RateLimiter: limiter,
		Logger:      logger,
		Faucet:      faucet,
		ServiceName: serviceName,
	})
	if err != nil {
		return err
	}
	logger.Info("randomnft ledger ready",
		"network", cfg.Network,
		"oracleMode", cfg.Oracle.Mode,
		"coordinator", coord.address.Hex(),
		"owner", cfg.Mint.Owner,
		"categories", engine.Categories(),
		logging.MaskEndpoint("notifyUrl", cfg.Notify.URL),
		logging.MaskEndpoint("oracleWebhook", cfg.Oracle.WebhookURL),
		logging.MaskField("webhookToken", cfg.Oracle.WebhookToken),
	)
	return server.ListenAndServe(ctx, cfg.ListenAddress)
}

func openDatabase(cfg *config.Config) (storage.Database, error) {
	backend := strings.ToLower(cfg.DBBackend)
	if backend == storage.BackendMemory {
		return storage.NewMemDB(), nil
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("prepare data dir: %w", err)
	}
	path := cfg.DataDir
	if backend == storage.BackendBolt {
		path = filepath.Join(cfg.DataDir, "randomnft.db")
	}
	db, err := storage.Open(backend, path)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", backend, err)
	}
	return db, nil
}

func seedMetrics(engine *randomnft.Engine, metrics *observability.LedgerMetrics) error {
	requests, err := engine.RequestCounter()
	if err != nil {
		return err
	}
	assets, err := engine.AssetCounter()
	if err != nil {
		return err
	}
	treasury, err := engine.TreasuryBalance()
	if err != nil {
		return err
	}
	var pending uint64
	if requests > assets {
		pending = requests - assets
	}
	metrics.Seed(pending, treasury)
	return nil
}

func startIndexer(ctx context.Context, cfg *config.Config, source indexer.Source, logger *slog.Logger) (*indexer.Indexer, error) {
	db, err := indexer.Open(cfg.Indexer.Driver, cfg.Indexer.DSN)
	if err != nil {
		return nil, err
	}
	idx, err := indexer.New(indexer.Config{DB: db, Source: source, Logger: logger})
	if err != nil {
		return nil, err
	}
	go func() {
		if err := idx.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("indexer stopped", slog.Any("error", err))
		}
	}()
	return idx, nil
}

func buildDispatcher(cfg *config.Config, logger *slog.Logger) (*webhooks.Dispatcher, error) {
	secret, err := cfg.NotifySecret()
	if err != nil {
		return nil, err
	}
	opts := []webhooks.Option{webhooks.WithLogger(logger)}
	if cfg.Notify.MaxAttempts > 0 {
		opts = append(opts, webhooks.WithRetryPolicy(cfg.Notify.MaxAttempts, 0, 0))
	}
	return webhooks.NewDispatcher(cfg.Notify.URL, secret, opts...)
}

func sweepLimiter(ctx context.Context, limiter *middleware.RateLimiter) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			limiter.Sweep(10 * time.Minute)
		}
	}
}
