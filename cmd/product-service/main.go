package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"buy01/internal/client"
	"buy01/internal/product/handler"
	"buy01/internal/product/model"
	"buy01/internal/product/service"
	"buy01/internal/product/store"
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
	appConfig, err := config.Load("product-service")
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

	log.Info("Starting product-service", appConfig.LogConfig()...)

	// Initialize Prometheus metrics
	httpMetrics := metrics.NewHTTPMetrics(appConfig.ServiceName)
	metrics.RegisterEventMetrics()

	// Initialize database
	db, err := database.InitDB(&appConfig.DB)
	if err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	if err := database.MigrateModels(&model.Product{}); err != nil {
		log.Fatal("Failed to run migrations", zap.Error(err))
	}
	log.Info("Database connection established")

	// Event channel: publisher for product.deleted, subscriber for user.deleted
	wmLogger := eventbus.NewLoggerAdapter(log)
	publisher, err := eventbus.NewNATSPublisher(&appConfig.NATS, wmLogger)
	if err != nil {
		log.Fatal("Failed to connect to the event channel", zap.Error(err))
	}
	defer publisher.Close()

	subscriber, err := eventbus.NewNATSSubscriber(&appConfig.NATS, appConfig.Event.Group, wmLogger)
	if err != nil {
		log.Fatal("Failed to create event subscriber", zap.Error(err))
	}
	defer subscriber.Close()

	// Service core
	mediaClient := client.NewMediaClient(appConfig.Service.MediaURL, appConfig.Service.CallTimeout, log)
	productStore := store.NewGormStore(db)
	products := service.NewProductService(productStore, publisher, mediaClient, log)
	reconciler := service.NewReconciler(productStore, mediaClient, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Consume user.deleted for the product cascade
	userDeletedConsumer := eventbus.NewConsumer(subscriber, eventbus.TopicUserDeleted,
		products.HandleUserDeleted, appConfig.Event.MaxRetries, appConfig.Event.RetryWait, log)
	go func() {
		if err := userDeletedConsumer.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error("user.deleted consumer stopped", zap.Error(err))
		}
	}()

	// JWT utility
	jwtUtil := jwtutil.NewJWTUtil(&appConfig.JWT)

	// Handlers
	productHandler := handler.NewProductHandler(products, reconciler)

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

	// Public product routes
	e.GET("/api/products", productHandler.List)
	e.GET("/api/products/:id", productHandler.Get)

	// Seller routes
	sellerAPI := e.Group("/api/products", mid.JWTAuth(jwtUtil), mid.RequireRole("SELLER"))
	sellerAPI.POST("", productHandler.Create)
	sellerAPI.PUT("/:id", productHandler.Update)
	sellerAPI.DELETE("/:id", productHandler.Delete)
	sellerAPI.POST("/:productId/media/:mediaId", productHandler.AssociateMedia)

	// Internal service-to-service routes
	e.DELETE("/api/products/:productId/remove-media/:mediaId", productHandler.RemoveMedia)
	e.POST("/api/products/cleanup-orphaned-media", productHandler.CleanupOrphanedMedia)

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
