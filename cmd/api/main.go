package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"brief-backend/internal/config"
	"brief-backend/internal/db"
	"brief-backend/internal/logger"
	"brief-backend/internal/media"
	"brief-backend/internal/push"
	"brief-backend/internal/reminder"
	"brief-backend/internal/server"

	"github.com/getsentry/sentry-go"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

var mainDepsProvider = defaultDeps
var mainRunner = realMain

func main() {
	mainRunner(mainDepsProvider())
}

type mainDeps struct {
	loadConfig      func() config.Config
	connectPostgres func(config.Config) (*pgxpool.Pool, error)
	connectRedis    func(config.Config) *redis.Client
	migrate         func(*pgxpool.Pool) error
	integrations    func(context.Context, config.Config) server.Deps
	notify          func(chan<- os.Signal, ...os.Signal)
	run             func(context.Context, config.Config, *pgxpool.Pool, *redis.Client, server.Deps, <-chan os.Signal, ListenFunc) error
}

func defaultDeps() mainDeps {
	return mainDeps{
		loadConfig:      config.Load,
		connectPostgres: db.ConnectPostgres,
		connectRedis:    db.ConnectRedis,
		migrate:         db.Migrate,
		integrations:    integrations,
		notify:          signal.Notify,
		run:             Run,
	}
}

func realMain(deps mainDeps) {
	cfg := deps.loadConfig()
	logger.Init(cfg.IsDev(), cfg.SentryDSN)
	defer sentry.Flush(2 * time.Second)

	pg, err := deps.connectPostgres(cfg)
	if err != nil {
		slog.Error("postgres connection failed", "error", err)
	} else if err := deps.migrate(pg); err != nil {
		slog.Error("migrations failed", "error", err)
	}

	rdb := deps.connectRedis(cfg)

	signals := make(chan os.Signal, 1)
	deps.notify(signals, syscall.SIGINT, syscall.SIGTERM)

	ctx := context.Background()
	if err := deps.run(ctx, cfg, pg, rdb, deps.integrations(ctx, cfg), signals, nil); err != nil {
		slog.Error("server exited with error", "error", err)
	}
}

// integrations connects push delivery and object storage when they are
// configured.
func integrations(ctx context.Context, cfg config.Config) server.Deps {
	var deps server.Deps

	if cfg.FirebaseCredentialsPath != "" {
		sender, err := push.NewFirebaseSender(ctx, cfg.FirebaseCredentialsPath)
		if err != nil {
			slog.Error("firebase init failed, push disabled", "error", err)
		} else {
			deps.Push = sender
		}
	}

	if cfg.S3Bucket != "" {
		store, err := media.NewS3Store(ctx, media.S3Config{
			Region:        cfg.S3Region,
			Bucket:        cfg.S3Bucket,
			AccessKey:     cfg.S3AccessKey,
			SecretKey:     cfg.S3SecretKey,
			Endpoint:      cfg.S3Endpoint,
			PresignExpiry: cfg.S3PresignExpiry,
		})
		if err != nil {
			slog.Error("s3 init failed, using memory store", "error", err)
		} else {
			deps.Media = store
		}
	}
	return deps
}

type ListenFunc func(app *fiber.App, addr string) error

var defaultListen ListenFunc = func(app *fiber.App, addr string) error {
	return app.Listen(addr)
}

var shutdownFn = func(app *fiber.App, ctx context.Context) error {
	return app.ShutdownWithContext(ctx)
}

// Run starts the HTTP server and the reminder schedule, then waits for
// termination signals.
func Run(ctx context.Context, cfg config.Config, pg *pgxpool.Pool, rdb *redis.Client, deps server.Deps, signals <-chan os.Signal, listen ListenFunc) error {
	srv := server.NewServer(cfg, pg, rdb, deps)

	if listen == nil {
		listen = defaultListen
	}

	if pg != nil && cfg.ReminderSchedule != "" {
		job := reminder.NewJob(pg, srv.Notifications, cfg.RecencyWindow)
		scheduler, err := reminder.Schedule(ctx, job, cfg.ReminderSchedule)
		if err != nil {
			slog.Error("reminder disabled", "error", err)
		} else {
			scheduler.Start()
			defer scheduler.Stop()
		}
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
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := shutdownFn(srv.App, shutdownCtx); err != nil {
		return err
	}
	_ = srv.Stream.Close()
	if pg != nil {
		pg.Close()
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	return nil
}
