package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/FairHead/checktodo-server/internal/core/port"
	"github.com/FairHead/checktodo-server/internal/infra/config"
	"github.com/FairHead/checktodo-server/internal/infra/database"
	kafkainfra "github.com/FairHead/checktodo-server/internal/infra/kafka"
	"github.com/FairHead/checktodo-server/internal/infra/logger"
	"github.com/FairHead/checktodo-server/internal/infra/notify"
	redisinfra "github.com/FairHead/checktodo-server/internal/infra/redis"
	"github.com/FairHead/checktodo-server/internal/infra/security"
	"github.com/FairHead/checktodo-server/internal/infra/storage"
	postgresrepo "github.com/FairHead/checktodo-server/internal/repository/postgres"
	redisrepo "github.com/FairHead/checktodo-server/internal/repository/redis"
	"github.com/FairHead/checktodo-server/internal/transport/http/middleware"
	"github.com/FairHead/checktodo-server/internal/transport/http/routes"
	"github.com/FairHead/checktodo-server/internal/usecase"
)

type Application struct {
	cfg    *config.AppConfig
	engine *gin.Engine
	logger *zap.Logger
	pool   *pgxpool.Pool
	redis  *redisinfra.Client
	broker *usecase.SessionBroker
}

func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}

	argonCfg := security.Argon2Config{
		Memory:      cfg.Argon2.Memory,
		Iterations:  cfg.Argon2.Iterations,
		Parallelism: cfg.Argon2.Parallelism,
		SaltLength:  cfg.Argon2.SaltLength,
		KeyLength:   cfg.Argon2.KeyLength,
	}
	if err := security.ConfigureArgon2(argonCfg); err != nil {
		return nil, fmt.Errorf("configure argon2: %w", err)
	}

	tokenManager, err := security.NewTokenManager(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.AccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("init token manager: %w", err)
	}

	redisClient, err := redisinfra.NewClient(cfg.Redis, log)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init redis: %w", err)
	}

	repos := postgresrepo.NewRepositories(pool)

	verificationStore := redisrepo.NewVerificationRepository(redisClient.Client(), cfg.Redis.VerificationPrefix)

	pictureStore, err := storage.NewPictureStore(cfg.Storage)
	if err != nil {
		pool.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("init picture store: %w", err)
	}

	var eventPublisher port.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaProducer, err := kafkainfra.NewProducer(cfg.Kafka, log)
		if err != nil {
			log.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
			eventPublisher = kafkainfra.NewStubPublisher(log)
		} else {
			eventPublisher = kafkainfra.NewEventPublisher(kafkaProducer, cfg.App, log)
			log.Info("kafka event publisher initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
		}
	} else {
		log.Info("kafka brokers not configured, using stub publisher")
		eventPublisher = kafkainfra.NewStubPublisher(log)
	}

	smsSender := notify.NewLogSMSSender(log)
	emailSender := notify.NewLogEmailSender(log)

	passwordPolicy := security.DefaultPasswordPolicy()
	sessionBroker := usecase.NewSessionBroker()

	rateLimitWindow := cfg.RateLimit.WindowDuration
	if rateLimitWindow <= 0 {
		rateLimitWindow = time.Minute
	}
	rateLimitStore := redisrepo.NewRateLimitRepository(redisClient.Client(), redisrepo.SlidingWindowConfig{
		KeyPrefix: "checktodo:rate-limit",
		TTL:       rateLimitWindow * 2,
	})
	rateLimiter := middleware.NewRateLimiter(rateLimitStore, log)

	metrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{})
	if err != nil {
		pool.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("init http metrics: %w", err)
	}

	authService := usecase.NewAuthService(repos.Users, repos.Tokens, emailSender, eventPublisher,
		tokenManager, passwordPolicy, sessionBroker, cfg.Verification, log)
	verificationService := usecase.NewVerificationService(repos.Users, repos.Tokens, verificationStore,
		smsSender, emailSender, eventPublisher, cfg.Verification, log)
	registrationService := usecase.NewRegistrationService(repos.Users, repos.Tokens, verificationStore,
		emailSender, eventPublisher, passwordPolicy, cfg.Verification, log)
	profileService := usecase.NewProfileService(repos.Users, pictureStore, log)
	listService := usecase.NewListService(repos.Lists, repos.Users, eventPublisher, log)
	itemService := usecase.NewItemService(repos.Items, repos.Lists, eventPublisher, log)
	invitationService := usecase.NewInvitationService(repos.Invitations, repos.Lists, repos.Users, eventPublisher, log)

	engine := routes.Register(routes.Dependencies{
		Config:      cfg,
		Logger:      log,
		RateLimiter: rateLimiter,
		Metrics:     metrics,
		Database:    pool,
		Cache:       redisClient,
		Services: routes.ServiceSet{
			Auth:         authService,
			Registration: registrationService,
			Verification: verificationService,
			Profile:      profileService,
			Lists:        listService,
			Items:        itemService,
			Invitations:  invitationService,
		},
	})

	return &Application{
		cfg:    cfg,
		engine: engine,
		logger: log,
		pool:   pool,
		redis:  redisClient,
		broker: sessionBroker,
	}, nil
}

func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()
	defer func() {
		if a.broker != nil {
			a.broker.Close()
		}
	}()
	defer func() {
		if a.pool != nil {
			a.pool.Close()
		}
	}()
	defer func() {
		if a.redis != nil {
			_ = a.redis.Close()
		}
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting checktodo API",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-serverErrCh:
		return err
	}
}
