// Package main запускает рассылку писем администраторам по событиям из RabbitMQ.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/magabrotheeeer/fitcoach/internal/config"
	"github.com/magabrotheeeer/fitcoach/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/fitcoach/internal/lib/sl"
	"github.com/magabrotheeeer/fitcoach/internal/lib/smtp"
	"github.com/magabrotheeeer/fitcoach/internal/services/notifier"
	"github.com/magabrotheeeer/fitcoach/internal/storage"
)

func main() {
	cfg := config.MustLoad()
	logger := sl.New(cfg.Env, os.Stdout)
	logger.Info("starting notifier", slog.String("env", cfg.Env))

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
	if err := rabbitmq.SetPrefetch(ch, cfg.Workers); err != nil {
		logger.Error("failed to set prefetch", sl.Err(err))
		os.Exit(1)
	}

	svc := notifier.New(logger, smtp.NewTransport(cfg.SMTP), db)
	consumers := map[string]rabbitmq.Handler{
		rabbitmq.QueuePayment:              svc.Payment,
		rabbitmq.QueueSubscriptionExpiring: svc.SubscriptionExpiring,
		rabbitmq.QueueSubscriptionExpired:  svc.SubscriptionExpired,
	}

	var done []<-chan struct{}
	for queue, handler := range consumers {
		d, err := rabbitmq.ConsumeMessages(ctx, ch, queue, cfg.Workers, logger, handler)
		if err != nil {
			logger.Error("failed to start consumer", slog.String("queue", queue), sl.Err(err))
			os.Exit(1)
		}
		done = append(done, d)
	}

	<-ctx.Done()
	logger.Info("stopping notifier")
	for _, d := range done {
		<-d
	}
	logger.Info("notifier stopped")
}
