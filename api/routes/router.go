package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mvalverde/agrolink-backend/api/controllers"
	analyticscontrollers "github.com/mvalverde/agrolink-backend/api/controllers/analytics"
	"github.com/mvalverde/agrolink-backend/api/middleware"
	"github.com/mvalverde/agrolink-backend/internal/analytics"
	"github.com/mvalverde/agrolink-backend/internal/auth"
	"github.com/mvalverde/agrolink-backend/internal/chat"
	"github.com/mvalverde/agrolink-backend/internal/chat/fanout"
	"github.com/mvalverde/agrolink-backend/internal/crops"
	"github.com/mvalverde/agrolink-backend/internal/media"
	"github.com/mvalverde/agrolink-backend/internal/orders"
	"github.com/mvalverde/agrolink-backend/internal/requests"
	"github.com/mvalverde/agrolink-backend/pkg/auth/session"
	"github.com/mvalverde/agrolink-backend/pkg/config"
	"github.com/mvalverde/agrolink-backend/pkg/db"
	"github.com/mvalverde/agrolink-backend/pkg/enums"
	"github.com/mvalverde/agrolink-backend/pkg/logger"
	"github.com/mvalverde/agrolink-backend/pkg/pubsub"
	"github.com/mvalverde/agrolink-backend/pkg/redis"
	"github.com/mvalverde/agrolink-backend/pkg/storage/gcs"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	pubsubClient *pubsub.Client,
	gcsClient gcs.Pinger,
	sessionChecker session.AccessSessionChecker,
	analyticsService analytics.Service,
	authService auth.Service,
	registerService auth.RegisterService,
	cropsService crops.Service,
	mediaService media.Service,
	requestsService requests.Service,
	ordersService orders.Service,
	chatService chat.Service,
	chatBroker *fanout.Broker,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
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
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient, pubsubClient, gcsClient))
	})

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
		r.Post("/validate", controllers.RegistrationPreflight(logg))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, redisClient, logg)).Post("/login", controllers.AuthLogin(authService, logg))
		r.With(middleware.AuthRateLimit(registerPolicy, redisClient, logg)).Post("/register", controllers.AuthRegister(registerService, authService, logg))
		r.Post("/refresh", controllers.AuthRefresh(authService, logg))
		r.Post("/logout", controllers.AuthLogout(authService, cfg.JWT, logg))
	})

	r.Route("/api/admin/v1/auth", func(r chi.Router) {
		if !cfg.App.IsProd() {
			r.Post("/register", controllers.AdminAuthRegister(registerService, authService, cfg, logg))
		}
		r.With(middleware.AuthRateLimit(loginPolicy, redisClient, logg)).Post("/login", controllers.AuthLogin(authService, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessionChecker, logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Get("/ping", controllers.PrivatePing())
		r.Get("/crops", controllers.CropList(cropsService, logg))

		r.Route("/chat", func(r chi.Router) {
			r.Post("/rooms", controllers.ChatResolveRoom(chatService, logg))
			r.Route("/rooms/{roomId}", func(r chi.Router) {
				r.Get("/messages", controllers.ChatListMessages(chatService, logg))
				r.Post("/messages", controllers.ChatSendMessage(chatService, logg))
				r.Get("/stream", controllers.ChatStream(chatService, chatBroker, logg))
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(enums.UserRoleFarmer, logg))
			r.Post("/media/presign", controllers.MediaPresign(mediaService, logg))
			r.Route("/farmer/requests", func(r chi.Router) {
				r.Post("/", controllers.FarmerCreateRequest(requestsService, logg))
				r.Get("/", controllers.FarmerListRequests(requestsService, logg))
			})
		})

		r.Route("/buyer/orders", func(r chi.Router) {
			r.Use(middleware.RequireRole(enums.UserRoleBuyer, logg))
			r.Post("/", controllers.BuyerPlaceOrder(ordersService, logg))
			r.Get("/", controllers.BuyerListOrders(ordersService, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessionChecker, logg))
		r.Use(middleware.RequireRole(enums.UserRoleAdmin, logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Get("/ping", controllers.AdminPing())
		r.Route("/requests", func(r chi.Router) {
			r.Get("/", controllers.AdminListRequests(requestsService, logg))
			r.Post("/{requestId}/approve", controllers.AdminApproveRequest(requestsService, logg))
		})
		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.AdminListOrders(ordersService, logg))
			r.Post("/{orderId}/approve", controllers.AdminApproveOrder(ordersService, logg))
		})
		r.Get("/analytics/marketplace", analyticscontrollers.MarketplaceAnalytics(analyticsService, logg))
	})

	return r
}
