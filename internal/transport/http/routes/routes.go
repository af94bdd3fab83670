package routes

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/yessinemaalej/armeniancoin-auth/internal/infra/config"
	"github.com/yessinemaalej/armeniancoin-auth/internal/infra/security"
	"github.com/yessinemaalej/armeniancoin-auth/internal/transport/http/handlers"
	"github.com/yessinemaalej/armeniancoin-auth/internal/transport/http/middleware"
	"github.com/yessinemaalej/armeniancoin-auth/internal/transport/http/routeguard"
	"github.com/yessinemaalej/armeniancoin-auth/internal/usecase"
)

// ServiceSet groups the services the HTTP layer depends on.
type ServiceSet struct {
	Sessions      *usecase.SessionService
	TwoFactor     *usecase.TwoFactorService
	PasswordReset *usecase.PasswordResetService
	Verification  *usecase.VerificationService
}

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config      *config.AppConfig
	Logger      *zap.Logger
	RateLimiter *middleware.RateLimiter
	Services    ServiceSet
	Codec       *security.SessionCodec
	Guard       *routeguard.Guard
	Metrics     *middleware.HTTPMetrics
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
	r.Use(middleware.CORS(deps.Config.App.CORSOrigins))
	r.Use(middleware.EnrichContext())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger))
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Handler())
	}

	authMiddleware := middleware.RequireAuth(deps.Codec)

	checks := map[string]handlers.DependencyCheck{}
	if deps.Database != nil {
		checks["database"] = deps.Database.Ping
	}
	if deps.Cache != nil {
		checks["redis"] = deps.Cache.HealthCheck
	}

	healthHandler := handlers.NewHealthHandler(checks)

	r.GET("/healthz", healthHandler.Status)
	r.GET("/readyz", healthHandler.Readiness)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if deps.Guard != nil {
		guardHandler := handlers.NewGuardHandler(deps.Guard, deps.Codec)
		r.GET("/guard/decision", guardHandler.Decide)

		// Routes registered above this point stay outside the guard chain.
		r.Use(middleware.Guard(deps.Guard, deps.Codec))
	}

	api := r.Group("/api/v1")
	{
		authGroup := api.Group("/auth")

		authHandler := handlers.NewAuthHandler(deps.Services.Sessions)
		loginMiddlewares := buildLoginMiddlewares(deps)

		signInHandlers := append([]gin.HandlerFunc{}, loginMiddlewares...)
		authGroup.POST("/signin", append(signInHandlers, authHandler.SignIn)...)

		walletHandlers := append([]gin.HandlerFunc{}, loginMiddlewares...)
		authGroup.POST("/signin/wallet", append(walletHandlers, authHandler.SignInWallet)...)

		twoFactorHandler := handlers.NewTwoFactorHandler(deps.Services.TwoFactor)
		twoFactorGroup := authGroup.Group("/2fa")
		twoFactorGroup.Use(authMiddleware)
		twoFactorGroup.POST("/setup", twoFactorHandler.Setup)
		twoFactorGroup.POST("/enable", twoFactorHandler.Enable)
		twoFactorGroup.POST("/disable", twoFactorHandler.Disable)
		twoFactorGroup.POST("/email", twoFactorHandler.SendEmailCode)
		twoFactorGroup.POST("/email/verify", twoFactorHandler.VerifyEmailCode)

		passwordHandler := handlers.NewPasswordHandler(deps.Services.PasswordReset)

		resetMiddlewares := buildPasswordResetMiddlewares(deps)
		forgotHandlers := append([]gin.HandlerFunc{}, resetMiddlewares...)
		authGroup.POST("/forgot-password", append(forgotHandlers, passwordHandler.Forgot)...)

		authGroup.POST("/validate-reset-token", passwordHandler.ValidateResetToken)
		authGroup.POST("/reset-password", passwordHandler.Reset)

		verificationHandler := handlers.NewVerificationHandler(deps.Services.Verification)
		authGroup.POST("/verify-email", verificationHandler.Verify)

		resendMiddlewares := buildResendMiddlewares(deps)
		resendHandlers := append([]gin.HandlerFunc{}, resendMiddlewares...)
		authGroup.POST("/resend-verification", append(resendHandlers, verificationHandler.Resend)...)

		userGroup := api.Group("/user")
		userHandler := handlers.NewUserHandler(deps.Services.Verification)
		userGroup.POST("/add-email", authMiddleware, userHandler.AddEmail)
	}

	return r
}

func buildLoginMiddlewares(deps Dependencies) []gin.HandlerFunc {
	if deps.RateLimiter == nil || deps.Config == nil {
		return nil
	}

	limit := deps.Config.RateLimit.LoginMaxAttempts
	if limit <= 0 {
		return nil
	}

	window := deps.Config.RateLimit.WindowDuration
	if window <= 0 {
		window = time.Minute
	}

	rule := middleware.RateLimitRule{
		Name:       "auth_login_ip",
		Limit:      limit,
		Window:     window,
		Identifier: middleware.ClientIPIdentifier(),
	}

	return []gin.HandlerFunc{deps.RateLimiter.RateLimit(rule)}
}

func buildPasswordResetMiddlewares(deps Dependencies) []gin.HandlerFunc {
	if deps.RateLimiter == nil || deps.Config == nil {
		return nil
	}

	limit := deps.Config.RateLimit.PasswordResetMaxAttempts
	if limit <= 0 {
		return nil
	}

	window := deps.Config.RateLimit.WindowDuration
	if window <= 0 {
		window = time.Hour
	}

	rule := middleware.RateLimitRule{
		Name:       "password_reset_ip",
		Limit:      limit,
		Window:     window,
		Identifier: middleware.ClientIPIdentifier(),
	}

	return []gin.HandlerFunc{deps.RateLimiter.RateLimit(rule)}
}

func buildResendMiddlewares(deps Dependencies) []gin.HandlerFunc {
	if deps.RateLimiter == nil || deps.Config == nil {
		return nil
	}

	limit := deps.Config.RateLimit.ResendMaxAttempts
	if limit <= 0 {
		return nil
	}

	window := deps.Config.RateLimit.WindowDuration
	if window <= 0 {
		window = time.Hour
	}

	rule := middleware.RateLimitRule{
		Name:       "resend_verification_ip",
		Limit:      limit,
		Window:     window,
		Identifier: middleware.ClientIPIdentifier(),
	}

	return []gin.HandlerFunc{deps.RateLimiter.RateLimit(rule)}
}
