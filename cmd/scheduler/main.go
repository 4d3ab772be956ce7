// Package main запускает планировщик: истечение подписок и напоминания об окончании.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"

	"github.com/magabrotheeeer/fitcoach/internal/cache"
	"github.com/magabrotheeeer/fitcoach/internal/config"
	"github.com/magabrotheeeer/fitcoach/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/fitcoach/internal/lib/sl"
	"github.com/magabrotheeeer/fitcoach/internal/metrics"
	"github.com/magabrotheeeer/fitcoach/internal/services/scheduler"
	"github.com/magabrotheeeer/fitcoach/internal/services/subscription"
	"github.com/magabrotheeeer/fitcoach/internal/storage"
)

func waitForDB(ctx context.Context, db *storage.Storage) error {
	var err error
	for range 10 {
		if err = db.Ping(ctx); err == nil {
			return nil
		}
		time.Sleep(3 * time.Second)
	}
	return err
}

func main() {
	cfg := config.MustLoad()
	logger := sl.New(cfg.Env, os.Stdout)
	logger.Info("starting scheduler", slog.String("env", cfg.Env), slog.String("spec", cfg.Spec))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := storage.New(cfg.StorageConnectionString)
	if err != nil {
		logger.Error("failed to connect to storage", sl.Err(err))
		os.Exit(1)
	}
	defer func() {
		_ = db.Close()
	}()
	if err = waitForDB(ctx, db); err != nil {
		logger.Error("database is not ready", sl.Err(err))
		os.Exit(1)
	}

	c, err := cache.New(ctx, cfg)
	if err != nil {
		logger.Error("failed to init cache", sl.Err(err))
		os.Exit(1)
	}
	defer func() {
		_ = c.Close()
	}()

	conn, err := rabbitmq.Connect(cfg.RabbitMQ.URL, cfg.Retries, cfg.RetryDelay)
	if err != nil {
		logger.Error("failed to connect to RabbitMQ", sl.Err(err))
		os.Exit(1)
	}
	defer func() {
		_ = conn.Close()
	}()
	ch, err := rabbitmq.SetupChannel(conn, cfg.Exchange, rabbitmq.GetNotificationQueues())
	if err != nil {
		logger.Error("failed to setup RabbitMQ channel", sl.Err(err))
		os.Exit(1)
	}
	defer func() {
		_ = ch.Close()
	}()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	metricsServer := &http.Server{
		Addr:              cfg.MetricsAddress,
		Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", sl.Err(err))
		}
	}()

	subscriptions := subscription.New(logger, db, c, cfg.Cache.TTL)
	svc := scheduler.New(logger, db, rabbitmq.NewPublisher(ch, cfg.Exchange), subscriptions, m, cfg.ExpiringWithin)

	cr := cron.New()
	if err := svc.Schedule(ctx, cr, cfg.Spec); err != nil {
		logger.Error("invalid schedule", sl.Err(err))
		os.Exit(1)
	}
	cr.Start()
	svc.RunOnce(ctx)

	<-ctx.Done()
	logger.Info("stopping scheduler")
	<-cr.Stop().Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = metricsServer.Shutdown(shutdownCtx)
	logger.Info("scheduler stopped")
}
