package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/dishdash-backend/api/controllers"
	cartcontrollers "github.com/angelmondragon/dishdash-backend/api/controllers/cart"
	ordercontrollers "github.com/angelmondragon/dishdash-backend/api/controllers/orders"
	"github.com/angelmondragon/dishdash-backend/api/middleware"
	"github.com/angelmondragon/dishdash-backend/internal/auth"
	"github.com/angelmondragon/dishdash-backend/internal/cart"
	"github.com/angelmondragon/dishdash-backend/internal/checkout"
	"github.com/angelmondragon/dishdash-backend/internal/orders"
	"github.com/angelmondragon/dishdash-backend/internal/realtime"
	"github.com/angelmondragon/dishdash-backend/internal/restaurants"
	"github.com/angelmondragon/dishdash-backend/internal/stats"
	"github.com/angelmondragon/dishdash-backend/internal/users"
	"github.com/angelmondragon/dishdash-backend/pkg/auth/session"
	"github.com/angelmondragon/dishdash-backend/pkg/config"
	"github.com/angelmondragon/dishdash-backend/pkg/enums"
	"github.com/angelmondragon/dishdash-backend/pkg/logger"
	"github.com/angelmondragon/dishdash-backend/pkg/metrics"
	"github.com/angelmondragon/dishdash-backend/pkg/redis"
)

// RealtimeSubscriber opens per-connection order change subscriptions.
type RealtimeSubscriber interface {
	Subscribe(ctx context.Context, targets ...realtime.Target) (*realtime.Subscription, error)
}

// Params collects everything the HTTP surface is wired to.
type Params struct {
	Config         *config.Config
	Logger         *logger.Logger
	DB             redis.Pinger
	Redis          *redis.Client
	Sessions       session.AccessSessionChecker
	HTTPMetrics    *metrics.HTTPMetrics
	MetricsHandler http.Handler
	Auth           auth.Service
	Users          users.Service
	Restaurants    restaurants.Service
	Cart           cart.Service
	Checkout       checkout.Service
	Orders         orders.Service
	Stats          stats.Service
	Realtime       RealtimeSubscriber
}

func NewRouter(p Params) http.Handler {
	cfg := p.Config
	logg := p.Logger

	// a typed nil *redis.Client must not leak into the interface-typed stores
	var (
		idempotencyStore redis.IdempotencyStore
		rateLimitStore   middleware.RateLimitStore
		redisPinger      redis.Pinger
	)
	if p.Redis != nil {
		idempotencyStore = p.Redis
		rateLimitStore = p.Redis
		redisPinger = p.Redis
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.CORS(cfg.App.CORSOrigins),
		middleware.Logging(logg),
		middleware.Metrics(p.HTTPMetrics),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]redis.Pinger{
			"db":    p.DB,
			"redis": redisPinger,
		}))
	})

	if p.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", p.MetricsHandler)
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, rateLimitStore, logg)).Post("/login", controllers.AuthLogin(p.Auth, logg))
		r.With(middleware.AuthRateLimit(registerPolicy, rateLimitStore, logg)).Post("/register", controllers.AuthRegister(p.Auth, logg))
		r.Post("/logout", controllers.AuthLogout(p.Auth, cfg.JWT, logg))
		r.Post("/refresh", controllers.AuthRefresh(p.Auth, logg))
	})

	r.Route("/api/v1/restaurants", func(r chi.Router) {
		r.Get("/", controllers.RestaurantList(p.Restaurants, logg))
		r.Get("/{restaurantId}", controllers.RestaurantDetail(p.Restaurants, logg))
		r.Get("/{restaurantId}/dishes", controllers.RestaurantDishes(p.Restaurants, logg))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, p.Sessions, logg))
		r.Use(middleware.Idempotency(idempotencyStore, logg))

		r.Get("/v1/me", controllers.Me(p.Users, logg))

		r.Route("/v1/cart", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.UserRoleCustomer))
			r.Get("/", cartcontrollers.CartFetch(p.Cart, logg))
			r.Delete("/", cartcontrollers.CartClear(p.Cart, logg))
			r.Post("/items", cartcontrollers.CartAddItem(p.Cart, logg))
			r.Patch("/items/{dishId}", cartcontrollers.CartUpdateQuantity(p.Cart, logg))
			r.Delete("/items/{dishId}", cartcontrollers.CartRemoveItem(p.Cart, logg))
		})

		r.Route("/v1/orders", func(r chi.Router) {
			r.Get("/", ordercontrollers.List(p.Orders, logg))
			r.Get("/stream", ordercontrollers.Stream(p.Realtime, p.Restaurants, cfg.Realtime.Heartbeat, logg))
			r.Get("/{orderId}", ordercontrollers.Detail(p.Orders, logg))
			r.Patch("/{orderId}/status", ordercontrollers.UpdateStatus(p.Orders, logg))
			r.With(middleware.RequireRole(logg, enums.UserRoleCustomer)).
				Post("/", ordercontrollers.Submit(p.Checkout, logg))
			r.With(middleware.RequireRole(logg, enums.UserRoleRestaurant, enums.UserRoleAdmin)).
				Post("/{orderId}/assign", ordercontrollers.Assign(p.Orders, logg))
		})

		r.With(middleware.RequireRole(logg, enums.UserRoleRestaurant, enums.UserRoleAdmin)).
			Get("/v1/delivery-agents", controllers.DeliveryAgents(p.Users, logg))

		r.Route("/v1/restaurant", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.UserRoleRestaurant))
			r.Get("/restaurants", controllers.OwnedRestaurants(p.Restaurants, logg))
			r.Get("/stats", controllers.RestaurantStats(p.Stats, logg))
		})

		r.Route("/v1/agent", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.UserRoleDelivery))
			r.Get("/orders/available", ordercontrollers.AvailableForPickup(p.Orders, logg))
		})

		r.Route("/admin/v1", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.UserRoleAdmin))
			r.Get("/stats", controllers.AdminStats(p.Stats, logg))
		})
	})

	return r
}
