package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-feedback-api/api/swagger"
	"github.com/noah-isme/sma-feedback-api/internal/handler"
	"github.com/noah-isme/sma-feedback-api/internal/middleware"
	"github.com/noah-isme/sma-feedback-api/internal/repository"
	"github.com/noah-isme/sma-feedback-api/internal/service"
	"github.com/noah-isme/sma-feedback-api/pkg/cache"
	"github.com/noah-isme/sma-feedback-api/pkg/config"
	"github.com/noah-isme/sma-feedback-api/pkg/database"
	"github.com/noah-isme/sma-feedback-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-feedback-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-feedback-api/pkg/middleware/requestid"
)

// @title SMA Feedback API
// @version 1.0.0
// @description Feedback moderation, account lifecycle and recycle bin service
// @BasePath /
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics := service.NewMetricsService()

	kv, closeStore, err := openBackend(ctx, cfg)
	if err != nil {
		logr.Fatal("failed to open store", zap.String("backend", cfg.Store.Backend), zap.Error(err))
	}
	defer func() {
		if err := closeStore(); err != nil {
			logr.Warn("failed to close store", zap.Error(err))
		}
	}()
	store := repository.NewStore(kv, logr.Named("store"), repository.WithStoreObserver(metrics))

	validate := validator.New()
	lifecycleOpts := []service.LifecycleOption{
		service.WithLifecycleMetrics(metrics),
		service.WithDeletionGracePeriod(cfg.Lifecycle.DeletionGracePeriod),
		service.WithRecycleRetention(cfg.Lifecycle.RecycleRetention),
	}

	accounts := service.NewAccountService(store, validate, logr, lifecycleOpts...)
	feedback := service.NewFeedbackService(store, validate, logr, lifecycleOpts...)
	recycle := service.NewRecycleBinService(store, logr, lifecycleOpts...)
	deletion := service.NewDeletionQueueService(store, logr, lifecycleOpts...)
	configuration := service.NewConfigurationService(store, validate, logr, lifecycleOpts...)
	audit := service.NewAuditService(store, logr, lifecycleOpts...)
	batch := service.NewBatchService(accounts, feedback, audit, validate, logr, service.WithBatchMetrics(metrics))

	sweeper := service.NewSweeper(deletion, recycle, logr.Named("sweeper"), service.SweeperConfig{
		Interval:     cfg.Sweeper.Interval,
		RunTimeout:   cfg.Sweeper.RunTimeout,
		MaxRetries:   cfg.Sweeper.WorkerRetries,
		RetryBackoff: cfg.Sweeper.RetryBackoff,
	})

	authOpts := []service.AuthServiceOption{service.WithAuthLifecycle(lifecycleOpts...)}
	if cfg.Sweeper.OnStaffLogin {
		authOpts = append(authOpts, service.WithStaffLoginSweep(sweeper))
	}
	auth := service.NewAuthService(store, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	}, authOpts...)

	if cfg.Bootstrap.AdminUsername != "" {
		created, err := accounts.BootstrapAdmin(ctx, cfg.Bootstrap.AdminUsername, cfg.Bootstrap.AdminPassword)
		if err != nil {
			logr.Fatal("failed to bootstrap admin", zap.Error(err))
		}
		if !created {
			logr.Info("staff accounts present, bootstrap admin skipped")
		}
	}

	if cfg.Sweeper.StartupEnabled {
		if err := sweeper.RunOnce(ctx); err != nil {
			logr.Warn("startup sweep failed", zap.Error(err))
		}
	}
	sweeper.Start(ctx)
	defer sweeper.Stop()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS))
	r.Use(middleware.Metrics(metrics))

	metricsHandler := handler.NewMetricsHandler(metrics, func(ctx context.Context) error {
		return store.View(ctx, func(tx *repository.Tx) error {
			_, err := tx.Configuration()
			return err
		})
	})
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Swagger.Enabled {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handler.RegisterRoutes(r.Group(cfg.APIPrefix), handler.Handlers{
		Auth:          handler.NewAuthHandler(auth, accounts),
		Accounts:      handler.NewAccountHandler(accounts),
		Feedback:      handler.NewFeedbackHandler(feedback),
		RecycleBin:    handler.NewRecycleBinHandler(recycle),
		DeletionQueue: handler.NewDeletionQueueHandler(deletion, sweeper),
		Configuration: handler.NewConfigurationHandler(configuration),
		Audit:         handler.NewAuditHandler(audit),
		Batch:         handler.NewBatchHandler(batch),
	}, auth)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "store", cfg.Store.Backend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("graceful shutdown failed", zap.Error(err))
	}
}

func openBackend(ctx context.Context, cfg *config.Config) (repository.KeyValueStore, func() error, error) {
	switch cfg.Store.Backend {
	case config.StoreBackendMemory:
		return repository.NewMemoryStore(), func() error { return nil }, nil
	case config.StoreBackendPostgres:
		db, err := database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		kv := repository.NewSQLStore(db)
		return kv, kv.Close, nil
	case config.StoreBackendRedis:
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		kv := repository.NewRedisStore(client, cfg.Redis.KeyPrefix)
		return kv, kv.Close, nil
	default:
		db, err := database.NewSQLite(ctx, cfg.SQLite)
		if err != nil {
			return nil, nil, err
		}
		kv := repository.NewSQLStore(db)
		return kv, kv.Close, nil
	}
}
