package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/golang-migrate/migrate/v4"
	pgmigrate "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/oksasatya/bar-occupancy/config"
	"github.com/oksasatya/bar-occupancy/internal/container"
	"github.com/oksasatya/bar-occupancy/internal/domain/repository"
	"github.com/oksasatya/bar-occupancy/internal/infrastructure/memory"
	pginfra "github.com/oksasatya/bar-occupancy/internal/infrastructure/postgres"
	"github.com/oksasatya/bar-occupancy/internal/infrastructure/seed"
	"github.com/oksasatya/bar-occupancy/internal/infrastructure/session"
	"github.com/oksasatya/bar-occupancy/internal/router"
	"github.com/oksasatya/bar-occupancy/pkg/helpers"
)

func main() {
	_ = godotenv.Load() // load .env if present

	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName, cfg.Env)
	gin.SetMode(cfg.GinMode)

	ctx := context.Background()
	var infra container.Infra

	// Entity store
	if cfg.UsePostgres() {
		pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), pginfra.PoolOptionsFrom(cfg))
		if err != nil {
			log.Fatalf("failed to connect to postgres: %v", err)
		}
		defer pool.Close()

		if err := runMigrations(cfg.PostgresDSN(), cfg.MigrationsDir, logger); err != nil {
			log.Fatalf("migration failed: %v", err)
		}
		infra.Store = pginfra.NewStore(pool)
	} else {
		infra.Store = memory.NewStore()
	}
	if cfg.SeedOnStart {
		seedStore(ctx, infra.Store, logger)
	}

	// Sessions
	if cfg.UseRedisSessions() {
		rdb := helpers.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		defer func() { _ = rdb.Close() }()
		if err := helpers.PingRedis(ctx, rdb); err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		infra.Redis = rdb
		infra.Sessions = session.NewRedisStore(rdb)
	} else {
		mem := session.NewMemoryStore()
		go sweepSessions(mem, time.Minute, logger)
		infra.Sessions = mem
	}

	// Count-update events
	if cfg.EventsEnabled {
		pub, err := helpers.NewRabbitPublisher(cfg.RabbitMQURL, cfg.RabbitMQEventsQueue)
		if err != nil {
			helpers.LogError(logger, "rabbitmq unavailable, events disabled", err, nil)
		} else {
			defer pub.Close()
			infra.Events = pub
		}
	}

	// Search
	if cfg.SearchEnabled {
		es, err := helpers.NewESClient(cfg.ESAddrs(), cfg.ElasticsearchUser, cfg.ElasticsearchPass)
		if err != nil {
			helpers.LogError(logger, "elasticsearch unavailable, search falls back to store", err, nil)
		} else {
			infra.ES = es
		}
	}

	// Occupancy archive
	if cfg.SnapshotsEnabled() {
		gcs, err := helpers.NewGCSClient(ctx, cfg.GCSCredentialsJSONPath)
		if err != nil {
			helpers.LogError(logger, "gcs unavailable, snapshots disabled", err, logrus.Fields{"bucket": cfg.GCSBucket})
		} else {
			defer func() { _ = gcs.Close() }()
			infra.Archive = helpers.GCSUploader{Client: gcs, Bucket: cfg.GCSBucket}
		}
	}

	c := container.New(cfg, logger, infra)
	if infra.ES != nil {
		if err := helpers.EnsureIndex(ctx, infra.ES, cfg.ESBarsIndex); err != nil {
			helpers.LogError(logger, "ensure search index failed", err, logrus.Fields{"index": cfg.ESBarsIndex})
		}
		if n, err := c.Search.Reindex(ctx); err != nil {
			helpers.LogError(logger, "initial reindex failed", err, nil)
		} else {
			helpers.LogInfo(logger, "bars indexed", logrus.Fields{"count": n})
		}
	}

	runCtx, stopBackground := context.WithCancel(ctx)
	defer stopBackground()
	if c.Snapshots != nil {
		go c.Snapshots.Run(runCtx, cfg.SnapshotInterval, logger)
		helpers.LogInfo(logger, "snapshot archive enabled", logrus.Fields{"bucket": cfg.GCSBucket, "every": cfg.SnapshotInterval.String()})
	}

	r := router.NewEngine(c)

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		logger.WithFields(logrus.Fields{"store": cfg.StoreBackend, "sessions": cfg.SessionBackend}).Infof("server starting on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("listen: %s\n", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")
	stopBackground()

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		logger.Fatalf("server forced to shutdown: %v", err)
	}
	logger.Info("server exited properly")
}

func seedStore(ctx context.Context, store repository.Storage, logger *logrus.Logger) {
	res, err := seed.Apply(ctx, store, helpers.HashPassword)
	if err != nil {
		log.Fatalf("seed failed: %v", err)
	}
	helpers.LogInfo(logger, "store seeded", logrus.Fields{"bars_created": res.BarsCreated, "users_created": res.UsersCreated})
}

func sweepSessions(store *session.MemoryStore, every time.Duration, logger *logrus.Logger) {
	t := time.NewTicker(every)
	defer t.Stop()
	for range t.C {
		if n := store.Sweep(); n > 0 {
			logger.WithField("removed", n).Debug("expired sessions swept")
		}
	}
}

func runMigrations(dsn string, migrationsDir string, logger *logrus.Logger) error {
	// Open sql DB via pgx stdlib
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	driver, err := pgmigrate.WithInstance(db, &pgmigrate.Config{})
	if err != nil {
		return err
	}
	m, err := migrate.NewWithDatabaseInstance(fmt.Sprintf("file://%s", migrationsDir), "postgres", driver)
	if err != nil {
		return err
	}
	logger.Info("running migrations...")
	err = m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		logger.Info("no migrations to run")
		return nil
	}
	return err
}
