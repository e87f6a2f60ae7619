// Command reminder runs one reminder round and exits. It is meant for
// schedulers that start a process per run.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"brief-backend/internal/config"
	"brief-backend/internal/db"
	"brief-backend/internal/logger"
	"brief-backend/internal/notification"
	"brief-backend/internal/push"
	"brief-backend/internal/reminder"

	"github.com/getsentry/sentry-go"
)

func main() {
	if err := run(context.Background(), config.Load()); err != nil {
		slog.Error("reminder failed", "error", err)
		sentry.Flush(2 * time.Second)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config) error {
	logger.Init(cfg.IsDev(), cfg.SentryDSN)
	defer sentry.Flush(2 * time.Second)

	pool, err := db.ConnectPostgres(cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	var sender push.Sender = push.Noop{}
	if cfg.FirebaseCredentialsPath != "" {
		fs, err := push.NewFirebaseSender(ctx, cfg.FirebaseCredentialsPath)
		if err != nil {
			return err
		}
		sender = fs
	}

	notifications := notification.NewService(pool, sender, nil)
	n, err := reminder.NewJob(pool, notifications, cfg.RecencyWindow).Run(ctx)
	if err != nil {
		return err
	}
	slog.Info("reminder finished", "reminded", n)
	return nil
}
