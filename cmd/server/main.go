// Command server runs the Emergent Scholarship API: agent registration and
// authentication, work submission with the safety gate, and the review and
// consensus pipeline. Stores fall back from Postgres and Redis to in-memory
// implementations when the backing services are not configured, so a single
// binary serves both development and production.
package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/twmb/franz-go/pkg/kgo"
	"golang.org/x/sync/errgroup"

	"scholar/internal/activity"
	"scholar/internal/citation"
	"scholar/internal/identity"
	identityhandler "scholar/internal/identity/handler"
	identitymetrics "scholar/internal/identity/metrics"
	jwttoken "scholar/internal/jwt_token"
	"scholar/internal/platform/config"
	"scholar/internal/platform/httpserver"
	"scholar/internal/platform/logger"
	platformmetrics "scholar/internal/platform/metrics"
	"scholar/internal/platform/middleware"
	platformredis "scholar/internal/platform/redis"
	"scholar/internal/review"
	reviewhandler "scholar/internal/review/handler"
	reviewmetrics "scholar/internal/review/metrics"
	"scholar/internal/submission"
	submissionhandler "scholar/internal/submission/handler"
	submissionmetrics "scholar/internal/submission/metrics"
	httptransport "scholar/internal/transport/http"
	audit "scholar/pkg/platform/audit"
	"scholar/pkg/platform/audit/publishers"
	"scholar/pkg/platform/audit/publishers/compliance"
	"scholar/pkg/platform/audit/publishers/ops"
	"scholar/pkg/platform/audit/publishers/security"
	auditmemory "scholar/pkg/platform/audit/store/memory"
	auditpostgres "scholar/pkg/platform/audit/store/postgres"
	auditworker "scholar/pkg/platform/audit/worker"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Backing services. A missing DATABASE_URL or REDIS_URL selects the
	// in-memory implementations.
	var db *sql.DB
	if cfg.DatabaseURL != "" {
		var err error
		db, err = sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			log.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		if err := db.PingContext(ctx); err != nil {
			log.Error("database ping failed", "error", err)
			os.Exit(1)
		}
		defer db.Close()
	}

	rdb, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	if rdb != nil {
		defer rdb.Close()
	}

	// Audit pipeline. Compliance events persist synchronously and fail the
	// caller, security events are buffered, operational events are sampled.
	var (
		auditStore interface {
			Append(ctx context.Context, event audit.Event) error
		}
		activityLog activity.Log
	)
	if db != nil {
		store := auditpostgres.New(db)
		auditStore, activityLog = store, store
	} else {
		store := auditmemory.NewInMemoryStore()
		auditStore, activityLog = store, store
	}

	securityPub := security.New(auditStore,
		security.WithLogger(log),
		security.WithMetrics(security.NewMetrics()),
	)
	opsPub := ops.New(auditStore,
		ops.WithLogger(log),
		ops.WithMetrics(ops.NewMetrics()),
	)
	auditor := publishers.NewRouter(log, opsPub)
	auditor.Register(audit.CategoryCompliance, compliance.New(auditStore,
		compliance.WithLogger(log),
		compliance.WithMetrics(compliance.NewMetrics()),
	))
	auditor.Register(audit.CategorySecurity, securityPub)
	auditor.Register(audit.CategoryOperations, opsPub)
	defer auditor.Close()

	// Identity.
	var agentStore identity.Store
	if db != nil {
		agentStore = identity.NewPostgres(db)
	} else {
		agentStore = identity.NewInMemoryStore()
	}
	var challengeStore identity.ChallengeStore
	if rdb != nil {
		challengeStore = identity.NewRedisChallengeStore(rdb.Client)
	} else {
		challengeStore = identity.NewInMemoryChallengeStore()
	}

	jwtService := jwttoken.NewJWTService(cfg.JWTSigningKey, "scholar", "scholar-api")
	agents, err := identity.New(
		agentStore,
		challengeStore,
		identity.NewEd25519Verifier(),
		jwtService,
		auditor,
		log,
		identitymetrics.New(),
		identity.WithChallengeTTL(cfg.ChallengeTTL),
		identity.WithTokenTTL(cfg.TokenTTL),
	)
	if err != nil {
		log.Error("failed to build identity service", "error", err)
		os.Exit(1)
	}

	// Submission.
	var workStore submission.Store
	if db != nil {
		workStore = submission.NewPostgres(db)
	} else {
		workStore = submission.NewInMemoryStore()
	}
	works, err := submission.New(workStore, agents, auditor, log, submissionmetrics.New())
	if err != nil {
		log.Error("failed to build submission service", "error", err)
		os.Exit(1)
	}

	// Review and consensus.
	var reviewStore review.Store
	if db != nil {
		reviewStore = review.NewPostgres(db)
	} else {
		reviewStore = review.NewInMemoryStore()
	}
	var citations citation.Allocator
	switch {
	case rdb != nil:
		citations = citation.NewRedisAllocator(rdb.Client)
	case db != nil:
		citations = citation.NewPostgresAllocator(db)
	default:
		citations = citation.NewMemoryAllocator()
	}
	reviews, err := review.New(
		workStore,
		reviewStore,
		citations,
		agentDirectory{agents: agentStore},
		agents,
		auditor,
		log,
		reviewmetrics.New(),
	)
	if err != nil {
		log.Error("failed to build review service", "error", err)
		os.Exit(1)
	}

	// HTTP surface.
	httpMetrics := platformmetrics.New()
	auth := middleware.RequireAgent(jwttoken.NewJWTServiceAdapter(jwtService), agents, log)

	checks := map[string]httptransport.HealthChecker{}
	if db != nil {
		checks["postgres"] = func() error { return db.Ping() }
	}
	if rdb != nil {
		checks["redis"] = func() error { return rdb.Health(context.Background()) }
	}

	router := httptransport.NewRouter(checks,
		identityhandler.New(agents, log, httpMetrics, auth),
		submissionhandler.New(works, log, httpMetrics, auth),
		reviewhandler.New(reviews, log, httpMetrics, auth),
		activity.New(activityLog, log, httpMetrics, auth),
	)

	srv := httpserver.New(cfg.Addr, router)
	g, gctx := errgroup.WithContext(ctx)

	// Outbox relay, only when both Postgres and Kafka are configured.
	if db != nil && len(cfg.Kafka.Brokers) > 0 {
		kafkaClient, err := kgo.NewClient(
			kgo.SeedBrokers(cfg.Kafka.Brokers...),
			kgo.AllowAutoTopicCreation(),
		)
		if err != nil {
			log.Error("failed to build kafka client", "error", err)
			os.Exit(1)
		}
		defer kafkaClient.Close()

		if err := auditworker.EnsureTopics(ctx, kafkaClient, 3, 1); err != nil {
			log.Warn("audit topic bootstrap failed", "error", err)
		}
		relay := auditworker.NewOutboxWorker(db, kafkaClient, log)
		g.Go(func() error {
			if err := relay.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	g.Go(func() error {
		log.Info("starting scholar API", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}
