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

	config "github.com/taskhive/taskhive/internal/config/reminder"
	"github.com/taskhive/taskhive/internal/obs"
	kafkax "github.com/taskhive/taskhive/internal/repository/kafka"
	pg "github.com/taskhive/taskhive/internal/repository/postgres"
	notifsvc "github.com/taskhive/taskhive/internal/services/notification"
	"github.com/taskhive/taskhive/internal/services/reminder"
)

func main() {
	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatal(err)
	}

	l, err := obs.NewLogger(&obs.LogConfig{Level: cfg.LogLevel, App: "taskhive/reminder"})
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = l.Sync() }()
	l.Info("starting reminder",
		zap.Duration("tick", cfg.Sched.Tick),
		zap.Duration("backstop", cfg.Sched.Backstop),
		zap.String("metrics_addr", cfg.Sched.MetricsAddr),
	)

	otelCloser, err := obs.SetupOTel(rootCtx, cfg.OTEL.AsOTELConfig())
	if err != nil {
		l.Fatal("otel init", zap.Error(err))
	}
	defer func() { _ = otelCloser.Shutdown(context.Background()) }()

	db, err := pg.NewDB(rootCtx, cfg.DB)
	if err != nil {
		l.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()

	prod := kafkax.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	defer func() { _ = prod.Close() }()
	delivery := kafkax.NewDeliveryEventsKafka(prod)

	ms := obs.BootstrapMetricsServer(cfg.Sched.MetricsAddr, func(ctx context.Context) error {
		hctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
		defer cancel()
		return db.Pool.Ping(hctx)
	}, l)

	// wiring
	notifs := pg.NewNotificationRepo(db)
	users := pg.NewUserRepo(db)
	tasks := pg.NewTaskRepo(db)
	projects := pg.NewProjectRepo(db)

	// No realtime hub in this process: in-app reminders land durably and
	// surface to clients through the API's unread count.
	svc := notifsvc.NewService(
		l,
		notifs,
		notifsvc.NewPreferenceFilter(users),
		nil,
		delivery,
		users,
		tasks,
		projects,
	)

	scanner := reminder.NewScanner(l, tasks, svc, reminder.AlwaysRemind, nil)
	materializer := reminder.NewMaterializer(l, tasks, nil)

	scanGuard := reminder.NewGuard()
	tick := reminder.NewRunner(l, "due_scan", cfg.Sched.Tick, scanGuard, scanner.Run)
	backstop := reminder.NewRunner(l, "due_scan_backstop", cfg.Sched.Backstop, scanGuard, scanner.Run)
	daily := reminder.NewDailyRunner(l, "recurring_materialize", reminder.NewGuard(), materializer.Run)

	errCh := make(chan error, 3)
	go func() { errCh <- tick.Run(rootCtx) }()
	go func() { errCh <- backstop.Run(rootCtx) }()
	go func() { errCh <- daily.Run(rootCtx) }()

	l.Info("reminder started")

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
