package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/taskhive/taskhive/internal/api"
	config "github.com/taskhive/taskhive/internal/config/server"
	"github.com/taskhive/taskhive/internal/obs"
	kafkax "github.com/taskhive/taskhive/internal/repository/kafka"
	pg "github.com/taskhive/taskhive/internal/repository/postgres"
	notifsvc "github.com/taskhive/taskhive/internal/services/notification"
	"github.com/taskhive/taskhive/internal/services/realtime"
)

func main() {
	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatal(err)
	}

	l, err := obs.NewLogger(cfg.Log.AsLoggerConfig())
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = l.Sync() }()
	l.Info("starting server",
		zap.String("env", cfg.App.Env),
		zap.String("http_addr", cfg.Server.HTTPAddr),
		zap.String("metrics_addr", cfg.Server.MetricsAddr),
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

	ms := obs.BootstrapMetricsServer(cfg.Server.MetricsAddr, func(ctx context.Context) error {
		hctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
		defer cancel()
		return db.Pool.Ping(hctx)
	}, l)

	// wiring
	notifs := pg.NewNotificationRepo(db)
	users := pg.NewUserRepo(db)
	tasks := pg.NewTaskRepo(db)
	projects := pg.NewProjectRepo(db)

	hub := realtime.NewHub(l)
	svc := notifsvc.NewService(
		l,
		notifs,
		notifsvc.NewPreferenceFilter(users),
		hub,
		delivery,
		users,
		tasks,
		projects,
	)

	router := api.NewRouter(svc, users, hub, []byte(cfg.Auth.JWTSecret), l)
	httpSrv := &http.Server{
		Addr:         cfg.Server.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- httpSrv.ListenAndServe() }()

	l.Info("server started")

	var runErr error
	select {
	case <-rootCtx.Done():
		l.Info("shutdown signal")
	case runErr = <-errCh:
		if runErr != nil && !errors.Is(runErr, http.ErrServerClosed) {
			l.Error("http serve", zap.Error(runErr))
		}
	}

	shCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()
	_ = httpSrv.Shutdown(shCtx)
	_ = ms.Shutdown(shCtx)
	l.Info("bye")
}
