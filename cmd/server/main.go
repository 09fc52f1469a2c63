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

	"github.com/gin-gonic/gin"
	"github.com/stwalsh4118/bizsearch/internal/config"
	"github.com/stwalsh4118/bizsearch/internal/crawler"
	"github.com/stwalsh4118/bizsearch/internal/database"
	"github.com/stwalsh4118/bizsearch/internal/handlers"
	"github.com/stwalsh4118/bizsearch/internal/logger"
	"github.com/stwalsh4118/bizsearch/internal/middleware"
	"github.com/stwalsh4118/bizsearch/internal/repository"
	"github.com/stwalsh4118/bizsearch/internal/services"
	"github.com/stwalsh4118/bizsearch/internal/telemetry"
)

const (
	shutdownTimeout = 30 * time.Second
)

func main() {
	// Load configuration from environment variables
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Server.Env, cfg.Server.LogLevel)
	log.Info("Starting Florida Business Search API", map[string]interface{}{
		"version":        handlers.APIVersion,
		"environment":    cfg.Server.Env,
		"port":           cfg.Server.Port,
		"crawler_engine": cfg.Crawler.Engine,
	})

	ctx := context.Background()

	shutdownTelemetry, err := telemetry.Setup(ctx, cfg.Telemetry, handlers.APIVersion)
	if err != nil {
		log.Fatal("Failed to set up telemetry", err, map[string]interface{}{
			"endpoint": cfg.Telemetry.Endpoint,
		})
	}

	db, err := database.NewPostgresPool(ctx, cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", err, map[string]interface{}{
			"host": cfg.Database.Host,
			"port": cfg.Database.Port,
			"name": cfg.Database.Name,
		})
	}
	defer db.Close()

	log.Info("Database connection established", map[string]interface{}{
		"host":     cfg.Database.Host,
		"port":     cfg.Database.Port,
		"database": cfg.Database.Name,
		"pool_min": cfg.Database.PoolMin,
		"pool_max": cfg.Database.PoolMax,
	})

	if cfg.Database.AutoMigrate {
		if err := db.Migrate(ctx); err != nil {
			log.Fatal("Failed to apply database schema", err, nil)
		}
		log.Info("Database schema applied", nil)
	}

	registry, err := crawler.FromConfig(cfg.Crawler, log)
	if err != nil {
		log.Fatal("Failed to create crawler", err, map[string]interface{}{
			"engine": cfg.Crawler.Engine,
		})
	}

	// Setup Gin router
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Add middleware in order: RequestID -> Logger -> Recovery -> CORS
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(log, "/health", "/health/ready"))
	router.Use(middleware.Recovery(log))
	router.Use(middleware.CORS(cfg.CORS.Origins))

	healthHandler := handlers.NewHealthHandler(db, cfg.Server.Env, registry.Engine())
	router.GET("/", healthHandler.Root)
	router.GET("/health", healthHandler.Health)
	router.GET("/health/ready", healthHandler.Ready)

	businessRepo := repository.NewBusinessRepository(db)
	businessService := services.NewBusinessService(businessRepo, registry, log.WithComponent("business_service"))
	businessHandler := handlers.NewBusinessHandler(businessService)

	// Register API v1 routes
	v1 := router.Group("/api/v1")
	{
		v1.GET("/info", healthHandler.Info)
		v1.GET("/search/:name", businessHandler.Search)
		v1.GET("/businesses/:id", businessHandler.Get)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("Server listening", map[string]interface{}{
			"port": cfg.Server.Port,
			"addr": srv.Addr,
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed to start", err, nil)
		}
	}()

	// Wait for interrupt signal (SIGINT or SIGTERM)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// In-flight searches finish (and release their browser) before this returns.
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", err, map[string]interface{}{
			"timeout": shutdownTimeout.String(),
		})
	}
	if err := shutdownTelemetry(shutdownCtx); err != nil {
		log.Error("Failed to flush traces", err, nil)
	}

	log.Info("Server exited", nil)
}
