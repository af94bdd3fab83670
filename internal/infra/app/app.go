package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/yessinemaalej/armeniancoin-auth/internal/core/port"
	"github.com/yessinemaalej/armeniancoin-auth/internal/infra/config"
	"github.com/yessinemaalej/armeniancoin-auth/internal/infra/database"
	kafkainfra "github.com/yessinemaalej/armeniancoin-auth/internal/infra/kafka"
	"github.com/yessinemaalej/armeniancoin-auth/internal/infra/logger"
	"github.com/yessinemaalej/armeniancoin-auth/internal/infra/mail"
	redisinfra "github.com/yessinemaalej/armeniancoin-auth/internal/infra/redis"
	"github.com/yessinemaalej/armeniancoin-auth/internal/infra/security"
	"github.com/yessinemaalej/armeniancoin-auth/internal/infra/telemetry"
	postgresrepo "github.com/yessinemaalej/armeniancoin-auth/internal/repository/postgres"
	redisrepo "github.com/yessinemaalej/armeniancoin-auth/internal/repository/redis"
	"github.com/yessinemaalej/armeniancoin-auth/internal/transport/http/middleware"
	"github.com/yessinemaalej/armeniancoin-auth/internal/transport/http/routeguard"
	"github.com/yessinemaalej/armeniancoin-auth/internal/transport/http/routes"
	"github.com/yessinemaalej/armeniancoin-auth/internal/usecase"
)

type Application struct {
	cfg    *config.AppConfig
	engine *gin.Engine
	logger *zap.Logger
	pool   *pgxpool.Pool
	redis  *redisinfra.Client
	kafka  *kafkainfra.Producer
}

func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	provider, err := telemetry.Attach(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}

	redisClient, err := redisinfra.NewClient(cfg.Redis, log)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init redis: %w", err)
	}

	codec, err := security.NewSessionCodec(cfg.Session.Secret, cfg.Session.Issuer, cfg.Session.TTL)
	if err != nil {
		pool.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("init session codec: %w", err)
	}

	hasher, err := security.NewArgon2Hasher(security.Argon2Config{
		Memory:      cfg.Argon2.Memory,
		Iterations:  cfg.Argon2.Iterations,
		Parallelism: cfg.Argon2.Parallelism,
		SaltLength:  cfg.Argon2.SaltLength,
		KeyLength:   cfg.Argon2.KeyLength,
	})
	if err != nil {
		pool.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("init password hasher: %w", err)
	}

	repos := postgresrepo.NewRepositories(pool)

	var kafkaProducer *kafkainfra.Producer
	var eventPublisher port.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := kafkainfra.NewProducer(cfg.Kafka, log)
		if err != nil {
			log.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
			eventPublisher = kafkainfra.NewStubPublisher(log)
		} else {
			kafkaProducer = producer
			eventPublisher = kafkainfra.NewEventPublisher(producer, cfg.App, log)
			log.Info("kafka event publisher initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
		}
	} else {
		log.Info("kafka brokers not configured, using stub publisher")
		eventPublisher = kafkainfra.NewStubPublisher(log)
	}

	var mailSender port.MailSender
	if cfg.SMTP.Host == "" {
		log.Info("smtp host not configured, logging outbound mail")
		mailSender = mail.NewLoggingSender(log)
	} else {
		mailSender = mail.NewSMTPSender(cfg.SMTP, log)
	}

	rateLimitWindow := cfg.RateLimit.WindowDuration
	if rateLimitWindow <= 0 {
		rateLimitWindow = time.Hour
	}
	rateLimitStore := redisrepo.NewRateLimitRepository(redisClient.Client(), redisrepo.SlidingWindowConfig{
		KeyPrefix: cfg.Redis.RateLimitPrefix,
		TTL:       rateLimitWindow * 2,
	})

	rateLimiter := middleware.NewRateLimiter(rateLimitStore, log)

	passwordValidator := security.DefaultPasswordValidator()

	oneTimeTokens := usecase.NewOneTimeTokenService(repos.OneTimeTokens, cfg.Tokens, log).
		WithTelemetry(provider)
	twoFactorService := usecase.NewTwoFactorService(repos.Identities, repos.SecondFactors, oneTimeTokens, mailSender, eventPublisher, cfg.TwoFactor, log).
		WithTelemetry(provider)
	sessionService := usecase.NewSessionService(codec, repos.Identities, repos.LoginHistory, hasher, twoFactorService, eventPublisher, log).
		WithTelemetry(provider)
	passwordResetService := usecase.NewPasswordResetService(cfg, repos.Identities, oneTimeTokens, rateLimitStore, mailSender, eventPublisher, hasher, passwordValidator, log)
	verificationService := usecase.NewVerificationService(cfg, repos.Identities, oneTimeTokens, rateLimitStore, mailSender, eventPublisher, log)

	guard := routeguard.New(routeguard.Config{
		ProtectedPrefixes: cfg.Routes.ProtectedPrefixes,
		AuthPrefixes:      cfg.Routes.AuthPrefixes,
		Locales:           cfg.Routes.Locales,
		SignInPath:        cfg.Routes.SignInPath,
		DashboardPath:     cfg.Routes.DashboardPath,
	})

	httpMetrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{})
	if err != nil {
		pool.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("init http metrics: %w", err)
	}

	engine := routes.Register(routes.Dependencies{
		Config:      cfg,
		Logger:      log,
		RateLimiter: rateLimiter,
		Codec:       codec,
		Guard:       guard,
		Metrics:     httpMetrics,
		Database:    pool,
		Cache:       redisClient,
		Services: routes.ServiceSet{
			Sessions:      sessionService,
			TwoFactor:     twoFactorService,
			PasswordReset: passwordResetService,
			Verification:  verificationService,
		},
	})

	return &Application{
		cfg:    cfg,
		engine: engine,
		logger: log,
		pool:   pool,
		redis:  redisClient,
		kafka:  kafkaProducer,
	}, nil
}

func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
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
	defer func() {
		if a.kafka != nil {
			if err := a.kafka.Close(); err != nil {
				a.logger.Warn("close kafka producer", zap.Error(err))
			}
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

	a.logger.Info("starting auth API",
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
