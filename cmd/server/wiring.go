package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	chandler "barangay/internal/credential/handler"
	cmetrics "barangay/internal/credential/metrics"
	cservice "barangay/internal/credential/service"
	cstore "barangay/internal/credential/store"
	jwttoken "barangay/internal/jwt_token"
	"barangay/internal/platform/config"
	"barangay/internal/platform/database"
	"barangay/internal/platform/health"
	"barangay/internal/platform/kafka/producer"
	"barangay/internal/platform/redis"
	"barangay/internal/platform/tracer"
	vhandler "barangay/internal/verification/handler"
	vmetrics "barangay/internal/verification/metrics"
	vservice "barangay/internal/verification/service"
	vstore "barangay/internal/verification/store"
	"barangay/pkg/platform/circuit"
	"barangay/pkg/platform/outbox"
	outboxmetrics "barangay/pkg/platform/outbox/metrics"
	outboxpostgres "barangay/pkg/platform/outbox/postgres"
	"barangay/pkg/platform/outbox/worker"
	txcontext "barangay/pkg/platform/tx"
)

// tokenTTL applies to issued tokens only. The server never issues any.
const tokenTTL = time.Hour

type app struct {
	health      *health.Handler
	tokens      *jwttoken.ActorTokenAdapter
	residents   *vhandler.Handler
	credentials *chandler.Handler
	worker      *worker.Worker
	redis       *redis.Client
	closers     []func() error
	log         *slog.Logger
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Error("close failed", "error", err)
		}
	}
}

type residentStore interface {
	vservice.ResidentStore
	cservice.ResidentReader
}

type storage struct {
	residents   residentStore
	audit       vservice.AuditStore
	credentials cservice.Store
	outbox      outbox.Store
	tx          txcontext.Runner
	pool        *database.Pool
}

func buildApp(ctx context.Context, cfg config.Server, log *slog.Logger, reg prometheus.Registerer) (*app, error) {
	a := &app{log: log}

	st, backend, err := buildStorage(ctx, cfg, reg, a)
	if err != nil {
		a.close()
		return nil, err
	}
	a.health = health.New(backend)
	if st.pool != nil {
		a.health.RegisterCheck("postgres", st.pool.Health)
	}

	tr := tracer.NewOTel()

	credentialOpts := []cservice.Option{
		cservice.WithLogger(log),
		cservice.WithMetrics(cmetrics.New(reg)),
		cservice.WithTracer(tr),
		cservice.WithOutbox(st.outbox),
	}
	a.redis, err = redis.New(ctx, cfg.Redis, reg)
	if err != nil {
		a.close()
		return nil, err
	}
	if a.redis != nil {
		a.closers = append(a.closers, a.redis.Close)
		a.health.RegisterCheck("redis", a.redis.Health)
		cache := cstore.NewResilientActiveCache(
			cstore.NewRedisActiveCache(a.redis.Client, cfg.Redis.CacheTTL),
			circuit.New("active_credential_cache"),
			log,
		)
		credentialOpts = append(credentialOpts, cservice.WithActiveCache(cache))
	}

	credentials := cservice.New(st.credentials, st.tx, st.residents, cservice.Config{
		ValidityWindow:   cfg.Credential.ValidityWindow,
		RefreshThreshold: cfg.Credential.RefreshThreshold,
		ChecksumKey:      []byte(cfg.Credential.ChecksumKey),
	}, credentialOpts...)

	verification := vservice.New(st.residents, st.audit, st.tx,
		vservice.WithLogger(log),
		vservice.WithMetrics(vmetrics.New(reg)),
		vservice.WithTracer(tr),
		vservice.WithCredentialIssuer(credentials),
		vservice.WithOutbox(st.outbox),
	)

	publisher, err := buildPublisher(cfg, log, a)
	if err != nil {
		a.close()
		return nil, err
	}
	a.worker = worker.New(st.outbox, st.tx, publisher,
		worker.WithTopic(cfg.Kafka.Topic),
		worker.WithBatchSize(cfg.Outbox.BatchSize),
		worker.WithPollInterval(cfg.Outbox.PollInterval),
		worker.WithMetrics(outboxmetrics.New(reg)),
		worker.WithLogger(log),
	)

	a.tokens = jwttoken.NewActorTokenAdapter(
		jwttoken.NewActorTokenService(cfg.ActorTokenSecret, cfg.ActorTokenIssuer, tokenTTL))
	a.residents = vhandler.New(verification, log)
	a.credentials = chandler.New(credentials, log)

	return a, nil
}

// buildStorage picks Postgres when DATABASE_URL is set and in-memory stores
// otherwise. Both variants share one tx runner across services.
func buildStorage(ctx context.Context, cfg config.Server, reg prometheus.Registerer, a *app) (*storage, string, error) {
	if cfg.DatabaseURL == "" {
		a.log.Info("using in-memory storage")
		return &storage{
			residents:   vstore.NewInMemoryResidentStore(),
			audit:       vstore.NewInMemoryAuditStore(),
			credentials: cstore.NewInMemoryStore(),
			outbox:      outbox.NewInMemoryStore(),
			tx:          txcontext.NewInMemory(cfg.TxTimeout),
		}, "memory", nil
	}

	dbCfg := database.DefaultConfig()
	dbCfg.URL = cfg.DatabaseURL
	pool, err := database.New(ctx, dbCfg)
	if err != nil {
		return nil, "", fmt.Errorf("connect postgres: %w", err)
	}
	a.closers = append(a.closers, pool.Close)
	if err := pool.RegisterMetrics(reg); err != nil {
		return nil, "", fmt.Errorf("register db metrics: %w", err)
	}

	db := pool.DB()
	a.log.Info("using postgres storage")
	return &storage{
		residents:   vstore.NewPostgresResidentStore(db),
		audit:       vstore.NewPostgresAuditStore(db),
		credentials: cstore.NewPostgresStore(db),
		outbox:      outboxpostgres.New(db),
		tx:          txcontext.NewPostgres(db, cfg.TxTimeout),
		pool:        pool,
	}, "postgres", nil
}

// buildPublisher returns the Kafka producer, or a no-op publisher when no
// brokers are configured.
func buildPublisher(cfg config.Server, log *slog.Logger, a *app) (worker.Publisher, error) {
	if len(cfg.Kafka.Brokers) == 0 {
		log.Info("kafka not configured, outbox events are marked processed without publishing")
		return producer.NewNoopProducer(), nil
	}
	p, err := producer.New(producer.DefaultConfig(cfg.Kafka.Brokers), log)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	a.closers = append(a.closers, p.Close)
	a.health.RegisterCheck("kafka", p.Health)
	return p, nil
}
