package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"memorybox/config"
	"memorybox/database"
	"memorybox/routes"
	"memorybox/websocket"
	"memorybox/workers"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	// Initialize configuration
	cfg := config.Load()

	// Set Gin mode
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize logger
	setupLogger(cfg)

	// Messaging configuration; a misconfigured channel logs loudly but the
	// server still starts so the other channels keep working
	messagingCfg := config.LoadMessagingConfig(cfg.BaseURL)
	for _, err := range messagingCfg.Validate() {
		logrus.Warn("Messaging configuration: ", err)
	}

	// Initialize database
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		logrus.Fatal("Failed to connect to database: ", err)
	}
	defer database.Disconnect()

	if err := database.RunMigrations(db); err != nil {
		logrus.Fatal("Failed to run migrations: ", err)
	}

	if cfg.Environment == "development" {
		if err := database.RunSeeders(db); err != nil {
			logrus.Warn("Failed to seed database: ", err)
		}
	}

	// Initialize Redis
	redis := config.InitRedis(cfg)
	defer redis.Close()

	// Initialize WebSocket hub for realtime in-app delivery
	hub := websocket.NewHub()
	go hub.Run()

	// Initialize workers
	cleanupWorker := workers.StartCleanupWorker(db)
	defer cleanupWorker.Stop()

	// Setup routes
	router := routes.SetupRoutes(cfg, messagingCfg, db, redis, hub)

	// Create HTTP server
	server := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        router,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	// Start server in goroutine
	go func() {
		logrus.Info("Memory Box notification engine starting on port ", cfg.Port)
		logrus.Info("WebSocket endpoint: /ws")
		logrus.Info("Health check: /health")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatal("Failed to start server: ", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logrus.Fatal("Server forced to shutdown: ", err)
	}

	hub.Shutdown()

	logrus.Info("Server shutdown complete")
}

func setupLogger(cfg *config.Config) {
	logrus.SetFormatter(&logrus.JSONFormatter{})

	if cfg.Environment == "development" {
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
			ForceColors:   true,
		})
		logrus.SetLevel(logrus.DebugLevel)
	} else {
		logrus.SetLevel(logrus.InfoLevel)
	}
}
