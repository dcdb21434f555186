package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"buy01/internal/client"
	"buy01/internal/media/handler"
	"buy01/internal/media/model"
	"buy01/internal/media/service"
	"buy01/internal/media/storage"
	"buy01/internal/media/store"
	"buy01/pkg/config"
	"buy01/pkg/database"
	"buy01/pkg/eventbus"
	"buy01/pkg/jwtutil"
	"buy01/pkg/logger"
	"buy01/pkg/metrics"
	mid "buy01/pkg/middleware"
	"buy01/pkg/validation"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	appConfig, err := config.Load("media-service")
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	if err := logger.InitLogger(&logger.LogConfig{
		Level:       appConfig.Log.Level,
		Environment: appConfig.Server.Env,
		ServiceName: appConfig.ServiceName,
	}); err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	log := logger.GetLogger()
	defer log.Sync()

	log.Info("Starting media-service", appConfig.LogConfig()...)

	// Initialize Prometheus metrics
	httpMetrics := metrics.NewHTTPMetrics(appConfig.ServiceName)
	metrics.RegisterEventMetrics()

	// Initialize database
	db, err := database.InitDB(&appConfig.DB)
	if err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	if err := database.MigrateModels(&model.Media{}); err != nil {
		log.Fatal("Failed to run migrations", zap.Error(err))
	}
	log.Info("Database connection established")

	// File storage
	files, err := storage.NewDiskStore(appConfig.Upload.Dir)
	if err != nil {
		log.Fatal("Failed to initialize file storage", zap.Error(err))
	}

	// Event channel subscriber for the deletion cascades
	wmLogger := eventbus.NewLoggerAdapter(log)
	subscriber, err := eventbus.NewNATSSubscriber(&appConfig.NATS, appConfig.Event.Group, wmLogger)
	if err != nil {
		log.Fatal("Failed to create event subscriber", zap.Error(err))
	}
	defer subscriber.Close()

	// Service core
	productClient := client.NewProductClient(appConfig.Service.ProductURL, appConfig.Service.CallTimeout, log)
	mediaStore := store.NewGormStore(db)
	media := service.NewMediaService(mediaStore, files, productClient, appConfig.Upload.PublicURL, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Cascade consumers run concurrently with each other and the HTTP
	// handlers; correctness relies on idempotent id-scoped deletes
	userDeletedConsumer := eventbus.NewConsumer(subscriber, eventbus.TopicUserDeleted,
		media.HandleUserDeleted, appConfig.Event.MaxRetries, appConfig.Event.RetryWait, log)
	productDeletedConsumer := eventbus.NewConsumer(subscriber, eventbus.TopicProductDeleted,
		media.HandleProductDeleted, appConfig.Event.MaxRetries, appConfig.Event.RetryWait, log)
	go func() {
		if err := userDeletedConsumer.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error("user.deleted consumer stopped", zap.Error(err))
		}
	}()
	go func() {
		if err := productDeletedConsumer.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error("product.deleted consumer stopped", zap.Error(err))
		}
	}()

	// JWT utility
	jwtUtil := jwtutil.NewJWTUtil(&appConfig.JWT)

	// Handlers
	mediaHandler := handler.NewMediaHandler(media, appConfig.Upload.MaxBytes)

	// Initialize Echo instance
	e := echo.New()
	e.HideBanner = true
	e.Validator = validation.NewRequestValidator()

	// Middleware
	e.Use(middleware.Recover())
	e.Use(mid.RequestIDMiddleware())
	e.Use(httpMetrics.Middleware())

	// Metrics and health endpoints
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok", "service": appConfig.ServiceName})
	})

	// Public routes: byte serving and the reconciler's existence probe
	e.GET("/api/media/images/:id", mediaHandler.Serve)
	e.HEAD("/api/media/images/:id", mediaHandler.Exists)

	// Authenticated routes
	authAPI := e.Group("/api/media/images", mid.JWTAuth(jwtUtil))
	authAPI.GET("", mediaHandler.List, mid.RequireRole("SELLER"))
	authAPI.POST("", mediaHandler.Upload, mid.RequireRole("SELLER", "CLIENT"))
	authAPI.DELETE("/:id", mediaHandler.Delete, mid.RequireRole("SELLER"))

	// Internal service-to-service route: back-link stamp from the product service
	e.PUT("/api/media/images/:id/product/:productId", mediaHandler.AssociateProduct)

	// Start server
	go func() {
		if err := e.Start(":" + appConfig.Server.Port); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server error", zap.Error(err))
		}
	}()
	log.Info("Server started", zap.String("port", appConfig.Server.Port))

	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown error", zap.Error(err))
	}
}
