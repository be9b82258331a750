package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/kotahealth/healthbot/internal/adapter/classifier"
	"github.com/kotahealth/healthbot/internal/adapter/messenger"
	"github.com/kotahealth/healthbot/internal/config"
	"github.com/kotahealth/healthbot/internal/media"
	"github.com/kotahealth/healthbot/internal/scheduler"
	"github.com/kotahealth/healthbot/internal/service"
	"github.com/kotahealth/healthbot/internal/store"
	handler "github.com/kotahealth/healthbot/internal/transport/http"
	"github.com/kotahealth/healthbot/policy"
)

func main() {
	// Load .env when present; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()

	log.Printf("Starting healthbot...")
	log.Printf("HTTP Port: %d", cfg.HTTPPort)
	log.Printf("Database: %s", cfg.DatabaseURL)
	log.Printf("Classifier: %s (%s)", cfg.ClassifierModel, cfg.ClassifierBaseURL)

	// Initialize store
	db, err := store.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer db.Close()

	// Initialize messaging client
	msgClient := messenger.NewClient(cfg.MessagingAPIURL, cfg.ChannelAccessToken)

	// Initialize classifier chain
	chain, responder := classifier.NewChain(classifier.Options{
		BaseURL: cfg.ClassifierBaseURL,
		APIKey:  cfg.ClassifierAPIKey,
		Model:   cfg.ClassifierModel,
		Timeout: cfg.ClassifierTimeout,
	})

	// Initialize mode gate
	ctx := context.Background()
	gate, err := policy.NewEngine(ctx, policy.DefaultPolicy)
	if err != nil {
		log.Fatalf("Failed to initialize policy engine: %v", err)
	}

	// Initialize media storage
	uploader := media.NewUploader(
		media.NewDiskStore(cfg.MediaDir),
		media.NewDiskStore(cfg.MediaFallbackDir),
		cfg.MediaMaxDim,
	)

	// Initialize service
	svc := service.New(db, msgClient, chain, responder, gate, uploader, cfg)

	// Initialize handler
	h := handler.NewHandler(svc, cfg.ChannelSecret)

	// Create Echo server
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	// Register routes
	h.RegisterRoutes(e)

	// Start reminder scheduler
	sched, err := scheduler.Start(svc)
	if err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}

	// Start server
	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	log.Printf("Healthbot started on port %d", cfg.HTTPPort)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down healthbot...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := sched.Shutdown(); err != nil {
		log.Printf("Failed to shutdown scheduler gracefully: %v", err)
	}
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("Failed to shutdown server gracefully: %v", err)
	}

	log.Println("Healthbot stopped")
}
