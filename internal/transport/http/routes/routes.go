package routes

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/FairHead/checktodo-server/internal/infra/config"
	"github.com/FairHead/checktodo-server/internal/transport/http/handlers"
	"github.com/FairHead/checktodo-server/internal/transport/http/middleware"
	"github.com/FairHead/checktodo-server/internal/usecase"
)

// ServiceSet groups the services the HTTP layer depends on.
type ServiceSet struct {
	Auth         *usecase.AuthService
	Registration *usecase.RegistrationService
	Verification *usecase.VerificationService
	Profile      *usecase.ProfileService
	Lists        *usecase.ListService
	Items        *usecase.ItemService
	Invitations  *usecase.InvitationService
}

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config      *config.AppConfig
	Logger      *zap.Logger
	RateLimiter *middleware.RateLimiter
	Metrics     *middleware.HTTPMetrics
	Services    ServiceSet
	Database    DatabaseChecker
	Cache       CacheChecker
}

// DatabaseChecker exposes readiness behaviour for database connections.
type DatabaseChecker interface {
	Ping(ctx context.Context) error
}

// CacheChecker exposes readiness behaviour for cache backends.
type CacheChecker interface {
	HealthCheck(ctx context.Context) error
}

// Register configures the Gin engine with routes and middleware.
func Register(deps Dependencies) *gin.Engine {
	if deps.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.EnrichContext())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.CORS(deps.Config.App.CORSOrigins))
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Handler())
	}

	authMiddleware := middleware.RequireAuth(deps.Services.Auth)

	healthOptions := make([]handlers.HealthHandlerOption, 0, 2)

	if deps.Database != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("database", deps.Database.Ping))
	}

	if deps.Cache != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("redis", deps.Cache.HealthCheck))
	}

	healthHandler := handlers.NewHealthHandler(healthOptions...)

	r.GET("/healthz", healthHandler.Status)
	r.GET("/readyz", healthHandler.Readiness)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if deps.Config.Storage.PublicBaseURL != "" && deps.Config.Storage.PictureDir != "" {
		r.Static(deps.Config.Storage.PublicBaseURL, deps.Config.Storage.PictureDir)
	}

	api := r.Group("/api/v1")
	{
		authGroup := api.Group("/auth")
		authHandler := handlers.NewAuthHandler(deps.Services.Auth)
		authHandler.RegisterRoutes(authGroup, buildRateLimitMiddlewares(deps, "sign_in_ip", deps.Config.RateLimit.LoginMaxAttempts)...)

		registrationGroup := api.Group("/registration")
		registrationHandler := handlers.NewRegistrationHandler(deps.Services.Registration)
		registrationHandler.RegisterRoutes(registrationGroup, buildRateLimitMiddlewares(deps, "register_ip", deps.Config.RateLimit.RegisterMaxAttempts)...)

		verificationGroup := api.Group("/verification")
		verificationHandler := handlers.NewVerificationHandler(deps.Services.Auth, deps.Services.Verification)
		verificationHandler.RegisterRoutes(verificationGroup, buildRateLimitMiddlewares(deps, "code_dispatch_ip", deps.Config.RateLimit.CodeDispatchMaxAttempts)...)

		profileGroup := api.Group("/profile")
		profileHandler := handlers.NewProfileHandler(deps.Services.Auth, deps.Services.Profile,
			handlers.WithMaxPictureBytes(deps.Config.Storage.MaxUploadBytes))
		profileHandler.RegisterRoutes(profileGroup)

		listGroup := api.Group("/lists")
		listGroup.Use(authMiddleware)
		handlers.NewListHandler(deps.Services.Lists).RegisterRoutes(listGroup)
		handlers.NewItemHandler(deps.Services.Items).RegisterRoutes(listGroup)

		invitationGroup := api.Group("/invitations")
		invitationGroup.Use(authMiddleware)
		handlers.NewInvitationHandler(deps.Services.Invitations).RegisterRoutes(invitationGroup)
	}

	return r
}

func buildRateLimitMiddlewares(deps Dependencies, name string, limit int) []gin.HandlerFunc {
	if deps.RateLimiter == nil || deps.Config == nil {
		return nil
	}
	if limit <= 0 {
		return nil
	}

	window := deps.Config.RateLimit.WindowDuration
	if window <= 0 {
		window = time.Minute
	}

	rule := middleware.RateLimitRule{
		Name:       name,
		Limit:      limit,
		Window:     window,
		Identifier: middleware.ClientIPIdentifier(),
	}

	return []gin.HandlerFunc{deps.RateLimiter.RateLimit(rule)}
}
