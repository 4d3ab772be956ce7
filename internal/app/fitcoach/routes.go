package fitcoach

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/fitcoach/internal/config"
	"github.com/magabrotheeeer/fitcoach/internal/http/handlers/account"
	"github.com/magabrotheeeer/fitcoach/internal/http/handlers/admins"
	"github.com/magabrotheeeer/fitcoach/internal/http/handlers/cart"
	"github.com/magabrotheeeer/fitcoach/internal/http/handlers/catalog"
	"github.com/magabrotheeeer/fitcoach/internal/http/handlers/gymphoto"
	"github.com/magabrotheeeer/fitcoach/internal/http/handlers/media"
	"github.com/magabrotheeeer/fitcoach/internal/http/handlers/orders"
	"github.com/magabrotheeeer/fitcoach/internal/http/handlers/subscription"
	"github.com/magabrotheeeer/fitcoach/internal/http/middlewarectx"
	"github.com/magabrotheeeer/fitcoach/internal/metrics"
	"github.com/magabrotheeeer/fitcoach/internal/models"
)

// Handlers — обработчики всех маршрутов приложения.
type Handlers struct {
	Health       http.Handler
	Metrics      http.Handler
	Webhook      http.Handler
	Media        http.Handler
	Catalog      *catalog.Handler
	Cart         *cart.Handler
	Orders       *orders.Handler
	Account      *account.Handler
	Subscription *subscription.Handler
	Admins       *admins.Handler
	GymPhotos    *gymphoto.Handler
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, cfg *config.Config, parser middlewarectx.TokenParser,
	guards *middlewarectx.Guards, m *metrics.Metrics, h Handlers) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
		m.Middleware,
	)

	// Вебхук сам отвечает на OPTIONS и неверные методы и пишет свои заголовки CORS,
	// поэтому стоит вне общих CORS и аутентификации.
	r.Handle("/kiwify-webhook", h.Webhook)

	r.Group(func(r chi.Router) {
		r.Use(
			middlewarectx.CORS(cfg.AllowedOrigins),
			middlewarectx.Authenticate(logger, parser),
		)
		registerAPI(r, logger, cfg, guards, h)
	})
}

func registerAPI(r chi.Router, logger *slog.Logger, cfg *config.Config, guards *middlewarectx.Guards, h Handlers) {
	r.Handle("/health", h.Health)
	r.Handle("/metrics", h.Metrics)

	r.Route("/api/v1", func(r chi.Router) {
		// Открытые конечные точки
		r.Get("/categories", h.Catalog.Categories)
		r.Get("/workouts", h.Catalog.Workouts)
		r.Get("/workouts/{id}", h.Catalog.Workout)
		r.Get("/products", h.Catalog.Products)
		r.Get("/products/{id}", h.Catalog.Product)
		r.Get("/subscription-plans", h.Subscription.Plans)

		// Группа для вошедших пользователей
		r.Group(func(r chi.Router) {
			r.Use(guards.Route(false))
			r.Use(middlewarectx.RateLimit(logger, cfg.RPS, cfg.Burst))

			r.Get("/me", h.Account.Get)
			r.Put("/me/profile", h.Account.UpdateProfile)

			r.Get("/cart", h.Cart.Get)
			r.Delete("/cart", h.Cart.Clear)
			r.Put("/cart/items/{product_id}", h.Cart.SetItem)
			r.Delete("/cart/items/{product_id}", h.Cart.RemoveItem)
			r.Post("/cart/checkout", h.Cart.Checkout)

			r.Get("/orders", h.Orders.Mine)

			r.Post("/gym-photos", h.GymPhotos.Upload)
			r.Post("/gym-photos/analyze", h.GymPhotos.Analyze)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(guards.Route(true))
			r.Use(middlewarectx.RateLimit(logger, cfg.RPS, cfg.Burst))

			r.Get("/subscription", h.Subscription.Current)
			r.Post("/subscription", h.Subscription.Start)
			r.Delete("/subscription", h.Subscription.Cancel)

			r.Get("/pix-key", h.Admins.PixKey)
			r.Put("/pix-key", h.Admins.SetPixKey)

			// Изменения каталога требуют права и активной подписки.
			writes := func(p models.Permission) chi.Router {
				return r.With(guards.RequirePermission(p), guards.RequireActiveSubscription(""))
			}

			categories := writes(models.PermissionManageCategories)
			categories.Post("/categories", h.Catalog.CreateCategory)
			categories.Put("/categories/{id}", h.Catalog.UpdateCategory)
			categories.Delete("/categories/{id}", h.Catalog.DeleteCategory)

			r.With(guards.RequirePermission(models.PermissionManageWorkouts)).Get("/workouts", h.Catalog.AdminWorkouts)
			r.With(guards.RequirePermission(models.PermissionManageWorkouts)).Get("/workouts/{id}", h.Catalog.AdminWorkout)
			workouts := writes(models.PermissionManageWorkouts)
			workouts.Post("/workouts", h.Catalog.CreateWorkout)
			workouts.Put("/workouts/{id}", h.Catalog.UpdateWorkout)
			workouts.Delete("/workouts/{id}", h.Catalog.DeleteWorkout)

			exercises := writes(models.PermissionManageExercises)
			exercises.Post("/workouts/{id}/exercises", h.Catalog.CreateExercise)
			exercises.Put("/exercises/{id}", h.Catalog.UpdateExercise)
			exercises.Delete("/exercises/{id}", h.Catalog.DeleteExercise)

			products := writes(models.PermissionManageProducts)
			products.Post("/products", h.Catalog.CreateProduct)
			products.Put("/products/{id}", h.Catalog.UpdateProduct)
			products.Delete("/products/{id}", h.Catalog.DeleteProduct)

			r.With(
				guards.RequirePermissionFunc(media.Permission),
				guards.RequireActiveSubscription(""),
			).Post("/media/{kind}", h.Media.ServeHTTP)

			r.With(guards.RequirePermission(models.PermissionManageOrders)).Get("/orders", h.Orders.All)
			r.With(guards.RequirePermission(models.PermissionManageOrders)).Put("/orders/{id}/status", h.Orders.UpdateStatus)

			r.With(guards.RequirePermission(models.PermissionManageUsers)).Get("/users", h.Admins.Users)

			r.With(guards.RequirePermission(models.PermissionManageSubscriptions)).Get("/subscriptions", h.Subscription.List)

			r.Group(func(r chi.Router) {
				r.Use(guards.RequireSuperAdmin)
				r.Get("/admins", h.Admins.Admins)
				r.Post("/admins", h.Admins.Promote)
				r.Put("/admins/{id}/permissions", h.Admins.SetPermissions)
				r.Post("/admins/{id}/permissions/{permission}", h.Admins.GrantPermission)
				r.Delete("/admins/{id}/permissions/{permission}", h.Admins.RevokePermission)
				r.Delete("/admins/{id}", h.Admins.Demote)
			})
		})
	})
}
