package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	redisStore "github.com/gin-contrib/sessions/redis"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/yukikurage/project-management-api/internal/config"
	"github.com/yukikurage/project-management-api/internal/constants"
	"github.com/yukikurage/project-management-api/internal/logger"
	"github.com/yukikurage/project-management-api/internal/middleware"
	"github.com/yukikurage/project-management-api/internal/security"
	"github.com/yukikurage/project-management-api/internal/server"
	"github.com/yukikurage/project-management-api/internal/services"
	"github.com/yukikurage/project-management-api/internal/validation"
)

const (
	redisPoolSize   = 10
	loginRateWindow = time.Minute
	shutdownTimeout = 10 * time.Second
)

func main() {
	// Load configuration
	cfg := config.Load()
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	if err := cfg.Validate(); err != nil {
		log.WithError(err).Fatal("Invalid configuration")
	}

	gin.SetMode(cfg.GinMode)
	validation.Register()

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.SentryDSN,
			Environment: cfg.AppEnv,
			Release:     server.Version,
		}); err != nil {
			log.WithError(err).Warn("Failed to initialize Sentry")
		}
		defer sentry.Flush(2 * time.Second)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to storage and prepare the schema
	repos, closeStorage, err := server.OpenRepositories(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to open storage")
	}
	defer closeStorage()

	// Sessions live in Redis when enabled, otherwise in signed cookies
	var store sessions.Store
	var limiter middleware.Limiter
	if cfg.RedisEnabled {
		store, err = redisStore.NewStore(redisPoolSize, "tcp", cfg.RedisAddr(), cfg.RedisPassword, []byte(cfg.SessionSecret))
		if err != nil {
			log.WithError(err).Fatal("Failed to create Redis session store")
		}

		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr(),
			Password: cfg.RedisPassword,
		})
		defer client.Close()

		if cfg.LoginRateLimit > 0 {
			limiter = middleware.NewRedisLimiter(client, "login", cfg.LoginRateLimit, loginRateWindow)
		}
	} else {
		log.Warn("Redis disabled; using cookie sessions and no login rate limit")
		store = cookie.NewStore([]byte(cfg.SessionSecret))
	}

	// AI task drafting is optional
	aiService := services.NewAIService(cfg.OpenAIAPIKey)
	if aiService == nil {
		log.Info("OPENAI_API_KEY not set; task generation disabled")
	}

	engine := server.New(server.Dependencies{
		Config:   cfg,
		Logger:   log,
		Repos:    repos,
		Tokens:   security.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL),
		Hasher:   security.NewBcryptHasher(constants.BcryptCost),
		Sessions: store,
		Limiter:  limiter,
		AI:       aiService,
	})

	// Repair partially applied multi-record writes in the background
	reconciler := services.NewReconciler(repos, log, nil)
	go reconciler.Run(ctx, cfg.ReconcileInterval)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithField("port", cfg.Port).Info("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Server forced to shutdown")
	}
}
