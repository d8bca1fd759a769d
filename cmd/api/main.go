package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"backend-twitter/internal/config"
	"backend-twitter/internal/db"
	"backend-twitter/internal/events"
	"backend-twitter/internal/server"
	"backend-twitter/internal/storage"
	"backend-twitter/internal/telemetry"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

var mainDepsProvider = defaultDeps
var mainRunner = realMain

var shutdownFn = func(app *fiber.App, ctx context.Context) error {
	return app.ShutdownWithContext(ctx)
}

var openBlobFn = openBlob

func main() {
	mainRunner(mainDepsProvider())
}

type mainDeps struct {
	loadConfig      func() config.Config
	setupTelemetry  func(ctx context.Context, serviceName, endpoint string) (func(context.Context) error, error)
	connectPostgres func(config.Config) (*pgxpool.Pool, error)
	ensureSchema    func(context.Context, db.Querier) error
	connectRedis    func(config.Config) *redis.Client
	notify          func(chan<- os.Signal, ...os.Signal)
	run             func(context.Context, config.Config, *pgxpool.Pool, *redis.Client, <-chan os.Signal, ListenFunc) error
}

func defaultDeps() mainDeps {
	return mainDeps{
		loadConfig:      config.Load,
		setupTelemetry:  telemetry.Setup,
		connectPostgres: db.ConnectPostgres,
		ensureSchema:    db.EnsureSchema,
		connectRedis:    db.ConnectRedis,
		notify:          signal.Notify,
		run:             Run,
	}
}

func realMain(deps mainDeps) {
	ctx := context.Background()
	cfg := deps.loadConfig()

	shutdownTracing, err := deps.setupTelemetry(ctx, cfg.ServiceName, cfg.OTELEndpoint)
	if err != nil {
		slog.Warn("tracing disabled", "error", err)
	}
	defer func() {
		if shutdownTracing != nil {
			_ = shutdownTracing(context.Background())
		}
	}()

	pg, err := deps.connectPostgres(cfg)
	if err != nil {
		slog.Error("postgres connection failed", "error", err)
	} else if err := deps.ensureSchema(ctx, pg); err != nil {
		slog.Error("schema bootstrap failed", "error", err)
	}

	rdb := deps.connectRedis(cfg)

	signals := make(chan os.Signal, 1)
	deps.notify(signals, syscall.SIGINT, syscall.SIGTERM)

	if err := deps.run(ctx, cfg, pg, rdb, signals, nil); err != nil {
		slog.Error("server exited with error", "error", err)
	}
}

type ListenFunc func(app *fiber.App, addr string) error

var defaultListen ListenFunc = func(app *fiber.App, addr string) error {
	return app.Listen(addr)
}

// openBlob builds the configured blob backend. The returned close func is
// never nil.
func openBlob(ctx context.Context, cfg config.Config, logger *slog.Logger) (storage.Blob, func() error, error) {
	noop := func() error { return nil }
	switch cfg.BlobBackend() {
	case "s3":
		s3, err := storage.NewS3(storage.S3Config{
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Bucket:    cfg.S3Bucket,
			UseSSL:    cfg.S3UseSSL,
			PublicURL: cfg.S3PublicURL,
		})
		if err != nil {
			return nil, noop, err
		}
		if err := s3.EnsureBucket(ctx); err != nil {
			return nil, noop, err
		}
		return s3, noop, nil
	case "gcs":
		g, err := storage.NewGCS(ctx, cfg.GCSBucket, cfg.GCSEndpoint, logger)
		if err != nil {
			return nil, noop, err
		}
		return g, g.Close, nil
	default:
		return storage.NewMemory("/storage/objects"), noop, nil
	}
}

// Run starts the HTTP server and waits for termination signals.
func Run(ctx context.Context, cfg config.Config, pg *pgxpool.Pool, rdb *redis.Client, signals <-chan os.Signal, listen ListenFunc) error {
	logger := slog.Default()

	blob, closeBlob, err := openBlobFn(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeBlob(); err != nil {
			logger.Warn("close blob storage", "error", err)
		}
	}()

	deps := server.Deps{Redis: rdb, Blob: blob, Logger: logger}
	if pg != nil {
		deps.DB = pg
	}
	brokers := cfg.Brokers()
	if len(brokers) > 0 {
		deps.Publisher = events.NewKafkaPublisher(brokers, cfg.KafkaTopic, logger)
	}
	srv := server.NewServer(cfg, deps)

	consumeCtx, stopConsumer := context.WithCancel(ctx)
	defer stopConsumer()
	consumerDone := make(chan struct{})
	if len(brokers) > 0 {
		consumer := events.NewConsumer(brokers, cfg.KafkaGroupID, cfg.KafkaTopic, srv.Notifications.HandleCommentEvent, logger)
		go func() {
			defer close(consumerDone)
			if err := consumer.Run(consumeCtx); err != nil {
				logger.Error("comment event consumer", "error", err)
			}
		}()
	} else {
		close(consumerDone)
	}

	if listen == nil {
		listen = defaultListen
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- listen(srv.App, cfg.ServerPort)
	}()

	select {
	case <-signals:
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			stopConsumer()
			<-consumerDone
			return errors.Join(err, srv.Publisher.Close())
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := shutdownFn(srv.App, shutdownCtx); err != nil {
		return err
	}
	stopConsumer()
	<-consumerDone
	if err := srv.Publisher.Close(); err != nil {
		logger.Warn("close event publisher", "error", err)
	}
	if pg != nil {
		pg.Close()
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	return nil
}
