package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	config "github.com/taskhive/taskhive/internal/config/notifier"
	"github.com/taskhive/taskhive/internal/obs"
	kafkax "github.com/taskhive/taskhive/internal/repository/kafka"
	pg "github.com/taskhive/taskhive/internal/repository/postgres"
	"github.com/taskhive/taskhive/internal/services/notifier"
)

func main() {
	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatal(err)
	}

	l, err := obs.NewLogger(&obs.LogConfig{Level: cfg.LogLevel, App: "taskhive/notifier"})
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = l.Sync() }()
	l.Info("starting notifier",
		zap.Any("kafka_in", cfg.In),
		zap.String("metrics_addr", cfg.Server.MetricsAddr),
		zap.String("smtp_addr", cfg.SMTP.Addr),
	)

	otelCloser, err := obs.SetupOTel(rootCtx, cfg.OTEL.AsOTELConfig())
	if err != nil {
		l.Warn("otel init", zap.Error(err))
	}
	defer func() { _ = otelCloser.Shutdown(context.Background()) }()

	db, err := pg.NewDB(rootCtx, cfg.DB)
	if err != nil {
		l.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()

	ms := obs.BootstrapMetricsServer(cfg.Server.MetricsAddr, func(ctx context.Context) error {
		hctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
		defer cancel()
		return db.Pool.Ping(hctx)
	}, l)

	cons := kafkax.BootstrapConsumer(rootCtx, cfg.In.AsConsumerConfig(), l).WithLogger(l)
	defer func() { _ = cons.Close() }()

	// wiring
	notifs := pg.NewNotificationRepo(db)
	users := pg.NewUserRepo(db)
	mailer := notifier.NewMailer(cfg.SMTP, l)
	push := notifier.NewWebhookPush(cfg.Push.Endpoint, cfg.Push.Timeout, l)

	h := notifier.NewHandler(l, notifs, users, mailer, push)
	runner := notifier.NewRunner(l, cons, h)

	errCh := make(chan error, 1)
	go func() { errCh <- runner.Run(rootCtx) }()

	l.Info("notifier started")

	select {
	case <-rootCtx.Done():
		l.Info("shutdown signal")
	case err = <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			l.Error("runner error", zap.Error(err))
		}
	}

	shCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_ = ms.Shutdown(shCtx)
	l.Info("bye")
}
