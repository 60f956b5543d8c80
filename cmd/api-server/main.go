package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/arena-session-api/api/swagger"
	"github.com/noah-isme/arena-session-api/internal/handler"
	internalmiddleware "github.com/noah-isme/arena-session-api/internal/middleware"
	"github.com/noah-isme/arena-session-api/internal/repository"
	"github.com/noah-isme/arena-session-api/internal/service"
	"github.com/noah-isme/arena-session-api/pkg/cache"
	"github.com/noah-isme/arena-session-api/pkg/config"
	"github.com/noah-isme/arena-session-api/pkg/cookie"
	"github.com/noah-isme/arena-session-api/pkg/database"
	"github.com/noah-isme/arena-session-api/pkg/jobs"
	"github.com/noah-isme/arena-session-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/arena-session-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/arena-session-api/pkg/middleware/requestid"
	"github.com/noah-isme/arena-session-api/pkg/storage"
)

// @title Arena Session API
// @version 1.0.0
// @description Session and token authentication for the arena game
// @BasePath /v1
// @schemes http https

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	var metrics *service.MetricsService
	if cfg.Metrics.Enabled {
		metrics = service.NewMetricsService()
	}

	checks := []handler.ReadinessCheck{{Name: "postgres", Check: db.PingContext}}
	sessionStore, redisClient, err := newSessionStore(ctx, cfg, db, logr)
	if err != nil {
		logr.Sugar().Fatalw("failed to init session store", "store", cfg.Session.Store, "error", err)
	}
	if redisClient != nil {
		defer redisClient.Close() //nolint:errcheck
		checks = append(checks, handler.ReadinessCheck{Name: "redis", Check: func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}})
	}

	files, err := storage.NewLocalStorage(cfg.GameLogs.Dir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init game log storage", "dir", cfg.GameLogs.Dir, "error", err)
	}

	users := service.NewUserService(repository.NewUserRepository(db), nil, logr, cfg.Password.Cost)
	tokens := service.NewTokenService(service.TokenConfig{
		Secret:     cfg.JWT.Secret,
		AccessTTL:  cfg.JWT.Expiration,
		RefreshTTL: cfg.JWT.RefreshExpiration,
	})
	sessions := service.NewSessionService(sessionStore, cfg.JWT.RefreshExpiration, metrics, logr)
	gameLogs := service.NewGameLogService(files, metrics, logr, jobs.QueueConfig{
		Workers:    cfg.GameLogs.Workers,
		MaxRetries: cfg.GameLogs.MaxRetries,
		Logger:     logr,
	})
	gameSettings := service.NewGameSettingsService(repository.NewGameSettingsRepository(db), users, gameLogs, nil, logr)

	pipeline := internalmiddleware.NewAuthPipeline(tokens, sessions, cookie.NewSigner(cfg.Cookie.Secret), internalmiddleware.AuthPipelineConfig{
		Cookie:           cfg.Cookie,
		BindRefreshToken: cfg.JWT.BindRefreshToken,
	}, metrics, logr)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins, internalmiddleware.XSRFTokenHeader))
	if metrics != nil {
		r.Use(internalmiddleware.Metrics(metrics))
	}

	metricsHandler := handler.NewMetricsHandler(metrics, checks...)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	if metrics != nil {
		r.GET("/metrics", metricsHandler.Prometheus)
	}
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handler.Register(r.Group(cfg.APIPrefix), handler.Routes{
		Auth:     handler.NewAuthHandler(users, metrics, logr),
		Users:    handler.NewUserHandler(users),
		Game:     handler.NewGameHandler(gameSettings, gameLogs, logr),
		Pipeline: pipeline,
	})

	gameLogs.Start(ctx)
	defer gameLogs.Stop()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "session_store", cfg.Session.Store)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Errorw("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}

func newSessionStore(ctx context.Context, cfg *config.Config, db *sqlx.DB, logr *zap.Logger) (service.SessionStore, *redis.Client, error) {
	switch cfg.Session.Store {
	case config.SessionStoreRedis:
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		return repository.NewRedisSessionRepository(client, logr), client, nil
	case config.SessionStoreMemory:
		logr.Warn("sessions are kept in memory and are lost on restart")
		return repository.NewMemorySessionRepository(), nil, nil
	default:
		return repository.NewSessionRepository(db), nil, nil
	}
}
