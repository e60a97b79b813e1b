package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vintagebeauty/storefront-backend/config"
	"github.com/vintagebeauty/storefront-backend/internal/app/controller"
	"github.com/vintagebeauty/storefront-backend/internal/app/repository"
	"github.com/vintagebeauty/storefront-backend/internal/app/service"
	"github.com/vintagebeauty/storefront-backend/internal/db"
	"github.com/vintagebeauty/storefront-backend/internal/middleware"
	"github.com/vintagebeauty/storefront-backend/internal/router"
	"github.com/vintagebeauty/storefront-backend/internal/scheduler"
	"github.com/vintagebeauty/storefront-backend/internal/storage"
	"github.com/vintagebeauty/storefront-backend/pkg/logger"
	"github.com/vintagebeauty/storefront-backend/pkg/redis"
	"github.com/vintagebeauty/storefront-backend/pkg/tracing"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}

	// Initialize logger
	logLevel := cfg.Server.LogLevel
	if logLevel == "" {
		logLevel = "info"
		if cfg.Server.Environment == "development" {
			logLevel = "debug"
		}
	}
	logger.Initialize(logger.Config{
		Level:       logLevel,
		Format:      cfg.Server.LogFormat,
		EnableColor: cfg.Server.Environment == "development",
	})

	logger.Info("Starting Vintage Beauty API", map[string]interface{}{
		"environment": cfg.Server.Environment,
		"port":        cfg.Server.Port,
		"log_level":   logLevel,
	})

	ctx := context.Background()

	tp, err := tracing.InitTracer(ctx, cfg.Tracing)
	if err != nil {
		logger.Fatal("Failed to initialize tracing", err)
	}

	// Initialize database
	if err := db.Initialize(&cfg.Database); err != nil {
		logger.Fatal("Failed to initialize database", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database connection", err)
		}
	}()

	// Run migrations
	if err := db.Migrate(); err != nil {
		logger.Fatal("Failed to run migrations", err)
	}

	if err := db.Seed(db.GetDB(), cfg.Admin); err != nil {
		logger.Warn("Failed to seed database", map[string]interface{}{
			"error": err.Error(),
		})
	}

	// Redis backs the product cache and token blacklist; both degrade to no-ops without it.
	if cfg.Redis.Enabled() {
		if err := redis.Init(&cfg.Redis); err != nil {
			logger.Warn("Continuing without Redis", map[string]interface{}{
				"error": err.Error(),
			})
		}
		defer redis.Close()
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(db.GetDB())
	productRepo := repository.NewProductRepository(db.GetDB())
	categoryRepo := repository.NewCategoryRepository(db.GetDB())
	heroSlideRepo := repository.NewHeroSlideRepository(db.GetDB())
	orderRepo := repository.NewOrderRepository(db.GetDB())

	// Initialize services
	productCache := service.NewProductCache(cfg.Catalog.ProductCacheTTL)
	authService := service.NewAuthService(
		userRepo,
		cfg.JWT.Secret,
		cfg.JWT.AccessTokenExpiry,
		cfg.JWT.RefreshTokenExpiry,
	)
	productService := service.NewProductService(productRepo, categoryRepo, productCache, cfg.Catalog.DefaultBrandName)
	catalogIOService := service.NewCatalogIOService(productService, productRepo, categoryRepo)
	categoryService := service.NewCategoryService(categoryRepo)
	heroSlideService := service.NewHeroSlideService(heroSlideRepo)
	orderService := service.NewOrderService(orderRepo, productRepo, productCache, db.GetDB())

	// Initialize controllers
	authController := controller.NewAuthController(authService)
	productController := controller.NewProductController(productService, catalogIOService, cfg.Catalog.MaxImportFileBytes)
	categoryController := controller.NewCategoryController(categoryService)
	heroSlideController := controller.NewHeroSlideController(heroSlideService)
	orderController := controller.NewOrderController(orderService)
	uploadController := controller.NewUploadController(storage.NewS3Storage(ctx, &cfg.S3))

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret)

	// Setup router
	r := router.NewRouter(
		authController,
		productController,
		categoryController,
		heroSlideController,
		orderController,
		uploadController,
		authMiddleware,
		cfg,
	)
	engine := r.Setup()

	auditScheduler := scheduler.NewGiftSetAuditScheduler(productService, cfg.Catalog.GiftSetAuditCron)
	if err := auditScheduler.Start(); err != nil {
		logger.Fatal("Failed to start gift set audit scheduler", err)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           otelhttp.NewHandler(engine, "http.server"),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Server started successfully", map[string]interface{}{
			"address": srv.Addr,
			"pid":     os.Getpid(),
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server gracefully...")
	auditScheduler.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", err)
	}
	if err := tracing.Shutdown(shutdownCtx, tp); err != nil {
		logger.Error("Failed to flush traces", err)
	}

	logger.Info("Server stopped successfully")
}
