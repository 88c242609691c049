package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/twmb/franz-go/pkg/kgo"
	"golang.org/x/sync/errgroup"

	"checkpoint/internal/checkin/classify"
	"checkpoint/internal/checkin/device"
	"checkpoint/internal/checkin/directory"
	"checkpoint/internal/checkin/gate"
	"checkpoint/internal/checkin/handler"
	checkinmetrics "checkpoint/internal/checkin/metrics"
	"checkpoint/internal/checkin/models"
	"checkpoint/internal/checkin/ports"
	"checkpoint/internal/checkin/service"
	"checkpoint/internal/checkin/store/fallback"
	checkinmemory "checkpoint/internal/checkin/store/memory"
	checkinpg "checkpoint/internal/checkin/store/postgres"
	"checkpoint/internal/checkin/store/replica"
	"checkpoint/internal/checkin/token"
	"checkpoint/internal/platform/config"
	"checkpoint/internal/platform/httpserver"
	"checkpoint/internal/platform/kafka"
	"checkpoint/internal/platform/logger"
	platformmetrics "checkpoint/internal/platform/metrics"
	"checkpoint/internal/platform/postgres"
	"checkpoint/internal/platform/redis"
	rlmetrics "checkpoint/internal/ratelimit/metrics"
	rlmw "checkpoint/internal/ratelimit/middleware"
	rlmemory "checkpoint/internal/ratelimit/store/memory"
	rlredis "checkpoint/internal/ratelimit/store/redis"
	httptransport "checkpoint/internal/transport/http"
	audit "checkpoint/pkg/platform/audit"
	"checkpoint/pkg/platform/audit/outbox"
	auditpublisher "checkpoint/pkg/platform/audit/publisher"
	auditkafka "checkpoint/pkg/platform/audit/store/kafka"
	auditmemory "checkpoint/pkg/platform/audit/store/memory"
	auditpg "checkpoint/pkg/platform/audit/store/postgres"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal service packages.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(log)

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

// infra holds the optional backing services. Nil fields are not configured.
type infra struct {
	pool    *pgxpool.Pool
	replica *replica.Store
	redis   *redis.Client
	kafka   *kgo.Client
}

func (i *infra) close() {
	if i.kafka != nil {
		i.kafka.Close()
	}
	if i.redis != nil {
		_ = i.redis.Close()
	}
	_ = i.replica.Close()
	if i.pool != nil {
		i.pool.Close()
	}
}

func connect(ctx context.Context, cfg *config.Config, log *slog.Logger) (*infra, error) {
	in := &infra{}
	if cfg.DatabaseURL != "" {
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, cfg.DatabaseMaxConns)
		if err != nil {
			return in, err
		}
		in.pool = pool
		if err := checkinpg.Migrate(ctx, pool); err != nil {
			return in, err
		}
	} else {
		log.Warn("no database configured, using in-memory check-in store")
	}

	db, err := postgres.OpenReplica(ctx, cfg.ReplicaDatabaseURL)
	if err != nil {
		return in, err
	}
	in.replica = replica.New(db)

	in.redis, err = redis.New(ctx, redis.Config{URL: cfg.RedisURL, PoolSize: cfg.RedisPoolSize})
	if err != nil {
		return in, err
	}

	if brokers := cfg.KafkaBrokerList(); len(brokers) > 0 {
		cl, err := kafka.NewClient(ctx, brokers, cfg.KafkaAuditTopic)
		if err != nil {
			return in, err
		}
		in.kafka = cl
		if err := kafka.EnsureTopic(ctx, cl, cfg.KafkaAuditTopic, 3, 1); err != nil {
			return in, err
		}
	}
	return in, nil
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	in, err := connect(ctx, cfg, log)
	defer in.close()
	if err != nil {
		return err
	}

	hasher := device.NewService(cfg.HashSalt)

	// Audit events go to the outbox when Postgres is available so the relay
	// is the single writer to Kafka.
	var auditStore audit.Store
	var outboxStore *auditpg.Store
	switch {
	case in.pool != nil:
		outboxStore = auditpg.New(in.pool)
		auditStore = outboxStore
	case in.kafka != nil:
		auditStore = auditkafka.New(in.kafka, cfg.KafkaAuditTopic)
	default:
		auditStore = auditmemory.NewInMemoryStore()
	}
	auditor := auditpublisher.NewPublisher(auditStore,
		auditpublisher.WithAsyncBuffer(cfg.AuditBufferSize),
		auditpublisher.WithLogger(log),
		auditpublisher.WithMetrics(auditpublisher.NewMetrics(prometheus.DefaultRegisterer)),
	)
	defer auditor.Close()

	var (
		meetings ports.MeetingReader
		members  ports.MemberDirectory
		advisory ports.AdvisoryReader
		recorder ports.Recorder
		probe    ports.ConflictProbe
	)
	if in.pool != nil {
		pg := checkinpg.New(in.pool, checkinpg.WithOutbox(outboxStore))
		meetings, members, advisory, recorder, probe = pg, pg, pg, pg, pg
	} else {
		mem := checkinmemory.New()
		meetings, members, advisory, recorder, probe = mem, mem, mem, mem, mem
	}
	if in.replica != nil {
		members, advisory = in.replica, in.replica
	}
	if cfg.HasFallbackMeeting() {
		meetings = fallback.New(meetings, models.Meeting{
			ID:      cfg.FallbackMeetingID,
			Name:    cfg.FallbackMeetingID,
			Center:  models.Point{Lat: cfg.FallbackMeetingLat, Lng: cfg.FallbackMeetingLng},
			RadiusM: cfg.FallbackMeetingRadiusM,
			Active:  true,
			Strict:  true,
		})
		log.Info("fallback meeting configured", "meeting_id", cfg.FallbackMeetingID)
	}

	meetingGate, err := gate.New(meetings,
		gate.WithMaxAccuracy(cfg.MaxAccuracyM),
		gate.WithBuffer(cfg.GeofenceBufferM),
		gate.WithWindowEnforcement(cfg.EnforceMeetingWindow),
	)
	if err != nil {
		return fmt.Errorf("meeting gate: %w", err)
	}
	resolver, err := directory.New(members)
	if err != nil {
		return fmt.Errorf("identity resolver: %w", err)
	}

	opts := []service.Option{
		service.WithAuditor(auditor),
		service.WithDevice(hasher),
		service.WithMetrics(checkinmetrics.New()),
		service.WithLogger(log),
		service.WithChromebookBypass(cfg.AllowChromebookBypass),
		service.WithCommitTimeout(cfg.CommitTimeout()),
	}
	if cfg.PrecheckEnabled {
		opts = append(opts, service.WithAdvisoryReader(advisory))
	}
	svc, err := service.New(
		token.NewVerifier(cfg.QRCodeSecret, token.WithIATSkew(cfg.IATSkew())),
		meetingGate,
		resolver,
		recorder,
		classify.New(probe),
		opts...,
	)
	if err != nil {
		return fmt.Errorf("check-in service: %w", err)
	}

	checkinHandler, err := handler.New(svc, log, cfg.ShortIDPattern, cfg.MaxReportedAccuracyM)
	if err != nil {
		return fmt.Errorf("check-in handler: %w", err)
	}

	var primaryLimit rlmw.Store = rlmemory.New()
	limitOpts := []rlmw.Option{
		rlmw.WithDisabled(cfg.RateLimitDisabled),
		rlmw.WithMetrics(rlmetrics.New()),
		rlmw.WithAuditor(auditor),
		rlmw.WithHasher(hasher),
	}
	if in.redis != nil {
		primaryLimit = rlredis.New(in.redis.Client)
		limitOpts = append(limitOpts, rlmw.WithFallback(rlmemory.New()))
	}
	limiter := rlmw.New(primaryLimit, cfg.RateLimitPerMin, log, limitOpts...)

	checks := map[string]httptransport.CheckFunc{}
	if in.pool != nil {
		checks["postgres"] = in.pool.Ping
	}
	if in.redis != nil {
		checks["redis"] = in.redis.Health
	}

	router := httptransport.NewRouter(httptransport.Deps{
		Checkin:           checkinHandler,
		Limiter:           limiter,
		Metrics:           platformmetrics.New(),
		Checks:            checks,
		TrustProxyHeaders: cfg.TrustProxyHeaders,
		Logger:            log,
	})
	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting checkpoint", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	if outboxStore != nil && in.kafka != nil {
		relay := outbox.New(outboxStore, auditkafka.New(in.kafka, cfg.KafkaAuditTopic), log, time.Second)
		g.Go(func() error { return relay.Run(gctx) })
	}
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
