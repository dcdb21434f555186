package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"buy01/internal/user/handler"
	"buy01/internal/user/model"
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
	appConfig, err := config.Load("user-service")
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

	log.Info("Starting user-service", appConfig.LogConfig()...)

	// Initialize Prometheus metrics
	httpMetrics := metrics.NewHTTPMetrics(appConfig.ServiceName)
	metrics.RegisterEventMetrics()

	// Initialize database
	db, err := database.InitDB(&appConfig.DB)
	if err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	if err := database.MigrateModels(&model.User{}); err != nil {
		log.Fatal("Failed to run migrations", zap.Error(err))
	}
	log.Info("Database connection established")

	// Initialize the event channel publisher
	publisher, err := eventbus.NewNATSPublisher(&appConfig.NATS, eventbus.NewLoggerAdapter(log))
	if err != nil {
		log.Fatal("Failed to connect to the event channel", zap.Error(err))
	}
	defer publisher.Close()

	// Initialize JWT utility
	jwtUtil := jwtutil.NewJWTUtil(&appConfig.JWT)

	// Handlers
	authHandler := handler.NewAuthHandler(db, jwtUtil)
	userHandler := handler.NewUserHandler(db, publisher)

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

	// Auth routes
	e.POST("/api/auth/register", authHandler.Register)
	e.POST("/api/auth/login", authHandler.Login)

	// User routes
	e.GET("/api/users/:id", userHandler.GetByID)
	me := e.Group("/api/users/me", mid.JWTAuth(jwtUtil))
	me.GET("", userHandler.Me)
	me.PUT("", userHandler.UpdateMe)
	me.DELETE("", userHandler.DeleteMe)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

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
