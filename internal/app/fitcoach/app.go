// Package fitcoach собирает HTTP-приложение сервиса: хранилище, кеш, сервисы,
// guard-ы и маршруты.
package fitcoach

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/fitcoach/internal/cache"
	"github.com/magabrotheeeer/fitcoach/internal/config"
	"github.com/magabrotheeeer/fitcoach/internal/http/handlers/account"
	"github.com/magabrotheeeer/fitcoach/internal/http/handlers/admins"
	carthandler "github.com/magabrotheeeer/fitcoach/internal/http/handlers/cart"
	cataloghandler "github.com/magabrotheeeer/fitcoach/internal/http/handlers/catalog"
	"github.com/magabrotheeeer/fitcoach/internal/http/handlers/gymphoto"
	"github.com/magabrotheeeer/fitcoach/internal/http/handlers/health"
	"github.com/magabrotheeeer/fitcoach/internal/http/handlers/kiwifywebhook"
	mediahandler "github.com/magabrotheeeer/fitcoach/internal/http/handlers/media"
	"github.com/magabrotheeeer/fitcoach/internal/http/handlers/orders"
	subhandler "github.com/magabrotheeeer/fitcoach/internal/http/handlers/subscription"
	"github.com/magabrotheeeer/fitcoach/internal/http/middlewarectx"
	"github.com/magabrotheeeer/fitcoach/internal/lib/jwt"
	"github.com/magabrotheeeer/fitcoach/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/fitcoach/internal/lib/sl"
	"github.com/magabrotheeeer/fitcoach/internal/media"
	"github.com/magabrotheeeer/fitcoach/internal/metrics"
	"github.com/magabrotheeeer/fitcoach/internal/migrations"
	adminservice "github.com/magabrotheeeer/fitcoach/internal/services/admin"
	cartservice "github.com/magabrotheeeer/fitcoach/internal/services/cart"
	catalogservice "github.com/magabrotheeeer/fitcoach/internal/services/catalog"
	"github.com/magabrotheeeer/fitcoach/internal/services/equipment"
	orderservice "github.com/magabrotheeeer/fitcoach/internal/services/order"
	"github.com/magabrotheeeer/fitcoach/internal/services/payment"
	"github.com/magabrotheeeer/fitcoach/internal/services/permission"
	"github.com/magabrotheeeer/fitcoach/internal/services/profile"
	"github.com/magabrotheeeer/fitcoach/internal/services/role"
	subservice "github.com/magabrotheeeer/fitcoach/internal/services/subscription"
	"github.com/magabrotheeeer/fitcoach/internal/session"
	"github.com/magabrotheeeer/fitcoach/internal/storage"
)

// tokenTTL используется только при выпуске токенов в локальной разработке.
const tokenTTL = 24 * time.Hour

// App — HTTP-приложение со всеми зависимостями.
type App struct {
	server   *http.Server
	logger   *slog.Logger
	db       *storage.Storage
	cache    cache.Cache
	resolver *session.Resolver
	conn     *amqp.Connection
	ch       *amqp.Channel
}

// New подключает хранилище, кеш и брокер, накатывает миграции и собирает маршруты.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := storage.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		_ = db.Close()
		return nil, err
	}

	c, err := cache.New(ctx, cfg)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	app := &App{logger: logger, db: db, cache: c}

	var publisher interface {
		Publish(ctx context.Context, routingKey string, message any) error
	} = rabbitmq.NopPublisher{}
	if cfg.RabbitMQ.URL != "" {
		app.conn, err = rabbitmq.Connect(cfg.RabbitMQ.URL, cfg.Retries, cfg.RetryDelay)
		if err != nil {
			app.close()
			return nil, err
		}
		app.ch, err = rabbitmq.SetupChannel(app.conn, cfg.Exchange, rabbitmq.GetNotificationQueues())
		if err != nil {
			app.close()
			return nil, err
		}
		publisher = rabbitmq.NewPublisher(app.ch, cfg.Exchange)
	} else {
		logger.Warn("rabbitmq url is empty, events are not published")
	}

	s3Client, err := media.NewS3Client(ctx, cfg.Media)
	if err != nil {
		app.close()
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	roles := role.New(logger, db, c, cfg.Cache.TTL)
	permissions := permission.New(logger, db, c, cfg.Cache.TTL)
	subscriptions := subservice.New(logger, db, c, cfg.Cache.TTL)
	catalog := catalogservice.New(logger, db, c, cfg.Cache.TTL)
	carts := cartservice.New(logger, catalog, db, c)
	admin := adminservice.New(logger, db, permissions, roles, subscriptions)
	payments := payment.New(logger, db, publisher, subscriptions)

	app.resolver = session.New(logger, roles, permissions, subscriptions, cfg.ResolveWait, cfg.FetchTimeout)
	guards := middlewarectx.NewGuards(logger, app.resolver, m)
	parser := jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.Issuer, tokenTTL)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, cfg, parser, guards, m, Handlers{
		Health:       health.New(logger, db),
		Metrics:      promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
		Webhook:      kiwifywebhook.New(logger, payments, m),
		Media:        mediahandler.New(logger, media.New(s3Client, cfg.Media), cfg.MaxSizeBytes),
		Catalog:      cataloghandler.New(logger, catalog),
		Cart:         carthandler.New(logger, carts),
		Orders:       orders.New(logger, orderservice.New(logger, db)),
		Account:      account.New(logger, profile.New(logger, db)),
		Subscription: subhandler.New(logger, subscriptions),
		Admins:       admins.New(logger, admin),
		GymPhotos:    gymphoto.New(logger, equipment.Unavailable{}, equipment.Unavailable{}),
	})

	app.server = &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return app, nil
}

// Run запускает сервер и останавливает его при отмене ctx.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		a.close()
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		a.close()
		if err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}

func (a *App) close() {
	if a.resolver != nil {
		a.resolver.Close()
	}
	if a.ch != nil {
		if err := a.ch.Close(); err != nil {
			a.logger.Error("failed to close rabbitmq channel", sl.Err(err))
		}
	}
	if a.conn != nil {
		if err := a.conn.Close(); err != nil {
			a.logger.Error("failed to close rabbitmq connection", sl.Err(err))
		}
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Error("failed to close cache", sl.Err(err))
		}
	}
	if err := a.db.Close(); err != nil {
		a.logger.Error("failed to close database", sl.Err(err))
	}
}
