package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"feedlog/internal/feeds/events"
	feedshandler "feedlog/internal/feeds/handler"
	feedsmetrics "feedlog/internal/feeds/metrics"
	feedsservice "feedlog/internal/feeds/service"
	feedsstore "feedlog/internal/feeds/store"
	"feedlog/internal/keyregistry"
	nshandler "feedlog/internal/namespace/handler"
	nsmetrics "feedlog/internal/namespace/metrics"
	nsservice "feedlog/internal/namespace/service"
	nsstore "feedlog/internal/namespace/store"
	"feedlog/internal/platform/config"
	"feedlog/internal/platform/httpserver"
	"feedlog/internal/platform/kafka"
	"feedlog/internal/platform/logger"
	"feedlog/internal/platform/metrics"
	"feedlog/internal/platform/middleware"
	"feedlog/internal/platform/postgres"
	"feedlog/internal/platform/redis"
	"feedlog/internal/verifier"
	"feedlog/pkg/platform/httputil"
	"feedlog/pkg/platform/middleware/metadata"
	"feedlog/pkg/platform/middleware/requesttime"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("feedlog stopped", "error", err)
		os.Exit(1)
	}
}

// keyRegistry is what the server needs from a registry: the read side for
// verification and the write side for KEY_MANIFEST imports at boot.
type keyRegistry interface {
	keyregistry.Reader
	keyregistry.Writer
}

// backends bundles the storage selected by configuration.
type backends struct {
	db         *sql.DB
	redis      *redis.Client
	namespaces nsservice.Store
	keys       keyRegistry
	feeds      feedsservice.Store
	feedTx     feedsservice.FeedStoreTx
}

func (b *backends) close() {
	if b.redis != nil {
		_ = b.redis.Close()
	}
	if b.db != nil {
		_ = b.db.Close()
	}
}

func openBackends(ctx context.Context, cfg config.Server, log *slog.Logger) (*backends, error) {
	b := &backends{}

	if cfg.DatabaseURL != "" {
		db, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		b.db = db
		if err := postgres.Migrate(ctx, db); err != nil {
			b.close()
			return nil, err
		}
		feedStore := feedsstore.NewPostgres(db)
		b.namespaces = nsstore.NewPostgres(db)
		b.keys = keyregistry.NewPostgres(db)
		b.feeds = feedStore
		b.feedTx = newFeedPostgresTx(db, feedStore, cfg.TxTimeout)
		log.Info("using postgres storage")
	} else {
		feedStore := feedsstore.NewInMemory()
		b.namespaces = nsstore.NewInMemory()
		b.keys = keyregistry.NewInMemory()
		b.feeds = feedStore
		b.feedTx = feedsservice.NewShardedTx(feedStore, cfg.TxTimeout)
		log.Warn("DATABASE_URL not set, using in-memory storage")
	}

	rc, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		b.close()
		return nil, err
	}
	if rc != nil {
		b.redis = rc
		b.namespaces = nsstore.NewRedisCache(b.namespaces, rc.Client, cfg.Redis.CacheTTL,
			nsstore.WithCacheLogger(log),
		)
		log.Info("namespace cache enabled", "ttl", cfg.Redis.CacheTTL.String())
	}
	return b, nil
}

func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	clockTrust, err := verifier.ParseClockTrust(cfg.Verifier.ClockTrust)
	if err != nil {
		return err
	}

	b, err := openBackends(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer b.close()

	if cfg.KeyManifest != "" {
		sets, err := keyregistry.LoadManifest(cfg.KeyManifest)
		if err != nil {
			return err
		}
		if err := keyregistry.Import(ctx, b.keys, sets); err != nil {
			return fmt.Errorf("import key manifest: %w", err)
		}
		log.Info("signing keys imported", "manifest", cfg.KeyManifest, "issuers", len(sets))
	}

	var publisher feedsservice.EventPublisher = events.NewLogPublisher(log)
	kc, err := kafka.New(cfg.Kafka)
	if err != nil {
		return err
	}
	if kc != nil {
		defer kc.Close()
		if err := kafka.EnsureTopic(ctx, kc, cfg.Kafka); err != nil {
			return err
		}
		publisher = events.NewKafkaPublisher(kc, cfg.Kafka.Topic)
		log.Info("publishing item events to kafka", "topic", cfg.Kafka.Topic)
	}

	reg := prometheus.DefaultRegisterer
	namespaces := nsservice.New(b.namespaces,
		nsservice.WithLogger(log),
		nsservice.WithMetrics(nsmetrics.New(reg)),
	)
	v := verifier.New(b.keys,
		verifier.WithClockTrust(clockTrust, cfg.Verifier.Leeway),
		verifier.WithLogger(log),
	)
	feeds := feedsservice.New(b.feeds, namespaces, v,
		feedsservice.WithLogger(log),
		feedsservice.WithMetrics(feedsmetrics.New(reg)),
		feedsservice.WithPublisher(publisher),
		feedsservice.WithStoreEnvelope(cfg.Feeds.StoreEnvelope),
		feedsservice.WithTx(b.feedTx),
	)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	r.Use(middleware.Recover(log))
	r.Use(middleware.AccessLog(log))
	r.Use(middleware.Latency(metrics.New(reg)))

	r.Get("/healthz", healthHandler(b))
	r.Handle("/metrics", promhttp.Handler())
	nshandler.New(namespaces, log, cfg.RegistrationToken).Register(r)
	feedshandler.New(feeds, log).Register(r)

	return httpserver.New(cfg.HTTP, r, log).Run(ctx)
}

func healthHandler(b *backends) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := map[string]string{"status": "ok"}
		code := http.StatusOK
		if b.db != nil {
			if err := b.db.PingContext(ctx); err != nil {
				status["database"] = "unavailable"
				code = http.StatusServiceUnavailable
			}
		}
		if b.redis != nil {
			h, err := b.redis.Health(ctx)
			if err != nil {
				// the namespace cache falls back to the database
				status["redis"] = "degraded"
			} else {
				status["redis"] = fmt.Sprintf("ok (%s, %d/%d idle)", h.Latency.Round(time.Microsecond), h.IdleConns, h.TotalConns)
			}
		}
		if code != http.StatusOK {
			status["status"] = "unavailable"
		}
		httputil.WriteJSON(w, code, status)
	}
}
