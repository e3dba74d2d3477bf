package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"fxledger/internal/amqp"
	"fxledger/internal/auth"
	"fxledger/internal/backend"
	"fxledger/internal/cache"
	"fxledger/internal/cli"
	"fxledger/internal/config"
	apphttp "fxledger/internal/http"
	"fxledger/internal/log"
	"fxledger/internal/metrics"
	"fxledger/internal/middleware/idempotency"
	"fxledger/internal/rates"
	"fxledger/internal/services"
)

const (
	shutdownTimeout      = 30 * time.Second
	cacheCleanupInterval = 5 * time.Minute
	idempotencyEntries   = 10000
)

func main() {
	cli.LoadEnvFile()
	cfg := config.Load()
	logger := cli.SetupLogger(cfg, log.ComponentApp)
	cfg = cli.LoadAndValidateConfig(logger, nil)

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	m := metrics.New()

	storeCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(nil).CreateStore(ctx, storeCfg)
	if err != nil {
		logger.Error("Failed to initialize store", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	ratesClient := rates.NewClient(rates.Config{
		BaseURL:     cfg.RatesAPIURL,
		APIKey:      cfg.RatesAPIKey,
		DefaultBase: cfg.RatesDefaultBase,
		Timeout:     cfg.RatesTimeout,
	}, m)

	opts := []services.Option{services.WithMetrics(m)}

	// Events are optional: without a broker the ledger still serves requests.
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without events", log.FieldError, err)
		} else {
			opts = append(opts, services.WithEvents(amqpClient))
			logger.Info("Initialized AMQP client", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	ledger := services.NewLedgerService(res.Store, ratesClient, cfg.RatesDefaultBase, opts...)

	checks := map[string]apphttp.Pinger{"store": res.Store}
	cacheManager := cache.NewManager()

	var idemStore idempotency.Store
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		redisStore := idempotency.NewRedisStore(rdb, cfg.IdempotencyTTL)
		idemStore = redisStore
		checks["redis"] = redisStore
		logger.Info("Idempotency keys stored in Redis", "addr", cfg.RedisAddr)
	} else {
		memStore := idempotency.NewCacheStore(idempotencyEntries, cfg.IdempotencyTTL)
		for _, c := range memStore.Cleaners() {
			cacheManager.Register(c)
		}
		cacheManager.StartCleanup(cacheCleanupInterval)
		idemStore = memStore
		logger.Info("Idempotency keys stored in process")
	}

	srv := apphttp.NewServer(apphttp.Options{
		Addr:               ":" + cfg.Port,
		Ledger:             ledger,
		Verifier:           auth.NewVerifier(cfg.JWTSecret, cfg.JWTIssuer),
		Metrics:            m,
		Logger:             log.Component(log.ComponentHTTP),
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Idempotency:        idemStore,
		ReadyChecks:        checks,
		AllowedOrigins:     cfg.CORSAllowedOrigins,
		TrustedProxies:     cfg.TrustedProxies,
	})

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting fxledger server",
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			"default_base", cfg.RatesDefaultBase)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	exitCode := 0
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
			exitCode = 1
		}
	}

	cli.GracefulShutdown(logger, shutdownTimeout,
		srv.Shutdown,
		func(context.Context) error {
			cacheManager.Stop()
			return nil
		},
		func(context.Context) error {
			if amqpClient == nil {
				return nil
			}
			return amqpClient.Close()
		},
		func(context.Context) error {
			if rdb == nil {
				return nil
			}
			return rdb.Close()
		},
		func(context.Context) error { return res.Cleanup() },
	)
	cancel()
	os.Exit(exitCode)
}
