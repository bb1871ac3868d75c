// main wires high-level dependencies, exposes the HTTP router, and supervises
// the server and slot clock lifecycles. Business logic lives in the internal
// service packages.
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

	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	bankhandler "devbank/internal/bank/handler"
	bankmetrics "devbank/internal/bank/metrics"
	bankservice "devbank/internal/bank/service"
	"devbank/internal/bank/store"
	"devbank/internal/chain"
	"devbank/internal/events"
	"devbank/internal/faucet"
	faucethandler "devbank/internal/faucet/handler"
	faucetmetrics "devbank/internal/faucet/metrics"
	"devbank/internal/faucet/ratelimit"
	jwttoken "devbank/internal/jwt_token"
	"devbank/internal/platform/config"
	"devbank/internal/platform/httpserver"
	"devbank/internal/platform/logger"
	"devbank/internal/platform/metrics"
	"devbank/internal/platform/redis"
	httptransport "devbank/internal/transport/http"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.FromEnv()
	log := logger.New()
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	health := map[string]httptransport.HealthChecker{}

	// Ledger store: Postgres when configured, otherwise in-memory.
	var ledger store.Store
	if dsn := cfg.Postgres.DSN; dsn != "" {
		db, err := sql.Open("postgres", dsn)
		if err != nil {
			return fmt.Errorf("open postgres: %w", err)
		}
		defer db.Close()
		pg := store.NewPostgres(db)
		if err := pg.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate ledger schema: %w", err)
		}
		ledger = pg
		health["postgres"] = db.PingContext
		log.Info("ledger store ready", "backend", "postgres")
	} else {
		ledger = store.NewInMemory()
		log.Info("ledger store ready", "backend", "memory")
	}

	// Rate limiter: Redis when configured, otherwise in-memory.
	var limiter ratelimit.Store = ratelimit.NewInMemory()
	redisClient, err := redis.New(cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
		limiter = ratelimit.NewFallback(ratelimit.NewRedis(redisClient.Client), log)
		health["redis"] = redisClient.Health
		log.Info("rate limiter ready", "backend", "redis")
	}

	// Event publisher: Kafka when brokers are configured, otherwise a noop.
	var publisher bankservice.EventPublisher = events.NoopPublisher{}
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaPub, err := events.NewPublisher(ctx, cfg.Kafka.Brokers,
			events.WithLogger(log),
			events.WithTopic(cfg.Kafka.Topic),
		)
		if err != nil {
			return fmt.Errorf("connect kafka: %w", err)
		}
		defer kafkaPub.Close()
		publisher = kafkaPub
		log.Info("event publisher ready", "brokers", cfg.Kafka.Brokers)
	}

	clock := chain.New(chain.WithInterval(cfg.Chain.SlotInterval))

	bankSvc, err := bankservice.New(ledger, clock,
		bankservice.WithLogger(log),
		bankservice.WithEvents(publisher),
		bankservice.WithMetrics(bankmetrics.New()),
	)
	if err != nil {
		return fmt.Errorf("build bank service: %w", err)
	}

	faucetSvc, err := faucet.New(faucet.Config{
		MaxDrip:    cfg.Faucet.MaxDrip,
		DripLimit:  cfg.Faucet.DripLimit,
		DripWindow: cfg.Faucet.DripWindow,
	}, ledger, clock, limiter,
		faucet.WithLogger(log),
		faucet.WithEvents(publisher),
		faucet.WithMetrics(faucetmetrics.New()),
	)
	if err != nil {
		return fmt.Errorf("build faucet service: %w", err)
	}

	jwtSvc := jwttoken.NewJWTService(cfg.JWTSigningKey, "devbank", "devbank-admin")

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:            log,
		Metrics:           metrics.New(),
		Bank:              bankhandler.New(bankSvc, log),
		Faucet:            faucethandler.New(faucetSvc, clock, log),
		OperatorValidator: jwttoken.NewJWTServiceAdapter(jwtSvc),
		Health:            health,
	})

	srv := httpserver.New(cfg.Addr, router)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return clock.Run(groupCtx)
	})
	group.Go(func() error {
		log.Info("starting devbank", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		log.Info("shutting down")
		return httpserver.Shutdown(srv)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
