package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"condo/internal/adapter"
	"condo/internal/audit"
	"condo/internal/condominium/metrics"
	"condo/internal/events"
	"condo/internal/host"
	jwttoken "condo/internal/jwt_token"
	"condo/internal/platform/config"
	"condo/internal/platform/httpserver"
	httpmetrics "condo/internal/platform/metrics"
	"condo/internal/platform/postgres"
	"condo/internal/platform/redis"
	"condo/internal/ratelimit"
	httptransport "condo/internal/transport/http"
	id "condo/pkg/domain"
	"condo/pkg/platform/circuit"
	"condo/pkg/platform/middleware/auth"
)

const shutdownTimeout = 10 * time.Second

func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := configFrom(cmd.Context())
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, commonRun(cfg))
		},
	}
}

// infra holds the optional backing services.
type infra struct {
	db    *sql.DB
	redis *redis.Client
}

func openInfra(ctx context.Context, cfg config.Config, log *slog.Logger) (*infra, func(), error) {
	db, err := postgres.New(ctx, cfg.Postgres)
	if err != nil {
		return nil, nil, err
	}
	if db != nil {
		if err := postgres.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, nil, err
		}
		log.Info("postgres connected")
	}
	rdb, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		if db != nil {
			db.Close()
		}
		return nil, nil, err
	}
	if rdb != nil {
		log.Info("redis connected")
	}
	closeAll := func() {
		if rdb != nil {
			rdb.Close()
		}
		if db != nil {
			db.Close()
		}
	}
	return &infra{db: db, redis: rdb}, closeAll, nil
}

func newHost(cfg config.Config, in *infra, log *slog.Logger, m *metrics.Metrics) (*host.Host, error) {
	return host.New(
		host.WithLogger(log),
		host.WithMetrics(m),
		host.WithPostgres(in.db),
		host.WithLayout(cfg.Condominium.Layout()),
		host.WithMonthlyQuota(cfg.Condominium.MonthlyQuota),
		host.WithQuotaPeriod(cfg.Condominium.QuotaPeriod),
		host.WithQuorumPolicy(cfg.Condominium.Quorum()),
	)
}

func serve(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	if cfg.Condominium.Owner == "" {
		return errors.New("CONDO_OWNER must be set to serve")
	}
	owner, err := id.ParseParticipantID(cfg.Condominium.Owner)
	if err != nil {
		return err
	}
	if cfg.Server.UsingDevSigningKey() {
		log.Warn("using the development JWT signing key; set CONDO_JWT_SIGNING_KEY")
	}

	in, closeInfra, err := openInfra(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeInfra()

	h, err := newHost(cfg, in, log, metrics.New(prometheus.DefaultRegisterer))
	if err != nil {
		return err
	}
	if err := h.Load(ctx); err != nil {
		return err
	}

	var journalStore audit.Store = audit.NewInMemory()
	if in.db != nil {
		journalStore = audit.NewPostgres(in.db)
	}
	journal := audit.NewJournal(journalStore, log)

	bus := events.NewBus()
	publishers := events.Fanout{bus, journal}
	var pointers adapter.PointerStore = &adapter.MemoryPointer{}
	var revocations auth.TokenRevocationChecker = jwttoken.NewMemoryRevocations()
	var limits ratelimit.Store = ratelimit.NewInMemory()
	if in.redis != nil {
		limits = ratelimit.NewRedis(in.redis.Client)
		publishers = append(publishers, events.NewRedisPublisher(in.redis.Client, events.DefaultRedisChannel))
		pointers = adapter.NewRedisPointer(in.redis.Client, adapter.DefaultPointerKey(owner))
		revocations = jwttoken.NewRedisRevocations(in.redis.Client)
	}
	if len(cfg.Kafka.Brokers) > 0 {
		kp, err := events.NewKafkaPublisher(ctx, cfg.Kafka.Brokers, cfg.Kafka.Topic,
			events.WithKafkaLogger(log),
			events.WithKafkaBreaker(circuit.New("kafka")))
		if err != nil {
			return err
		}
		defer kp.Close()
		publishers = append(publishers, kp)
	}

	a, err := adapter.New(ctx, owner, h,
		adapter.WithLogger(log),
		adapter.WithMetrics(adapter.NewMetrics(prometheus.DefaultRegisterer)),
		adapter.WithPublisher(publishers),
		adapter.WithPointerStore(pointers))
	if err != nil {
		return err
	}
	if a.GetImplAddress() == "" && cfg.Condominium.AutoDeploy {
		backend, err := h.Deploy(ctx, owner)
		if err != nil {
			return err
		}
		if err := a.Upgrade(ctx, owner, backend.Address()); err != nil {
			return err
		}
	}

	limiter := ratelimit.New(limits, cfg.Server.RateLimit, cfg.Server.RateLimitWindow,
		ratelimit.WithLogger(log), ratelimit.WithRegisterer(prometheus.DefaultRegisterer))
	router := httptransport.NewRouter(httptransport.RouterConfig{
		Handler:     httptransport.NewHandler(a, log, httptransport.WithHistory(journal)),
		Validator:   jwttoken.NewJWTService(cfg.Server.JWTSigningKey, tokenIssuer, tokenAudience),
		Revocations: revocations,
		RateLimit:   limiter,
		Logger:      log,
		Metrics:     httpmetrics.New(prometheus.DefaultRegisterer),
	})
	srv := httpserver.New(cfg.Server.Addr, router)

	observed, cancel := bus.Subscribe(256)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting condo", "addr", cfg.Server.Addr, "backend", a.GetImplAddress())
		return httpserver.Run(gctx, srv, shutdownTimeout)
	})
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case e := <-observed:
				log.DebugContext(gctx, "event", "type", e.Type, "backend", e.Backend, "id", e.ID)
			}
		}
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	if dropped := bus.Dropped(); dropped > 0 {
		log.Warn("observer dropped events", "count", dropped)
	}
	return nil
}
