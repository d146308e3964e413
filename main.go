package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"

	"github.com/ThinkModa/pbr-mvp-sub002/config"
	"github.com/ThinkModa/pbr-mvp-sub002/middleware"
	"github.com/ThinkModa/pbr-mvp-sub002/repositories"
	"github.com/ThinkModa/pbr-mvp-sub002/routes"
	"github.com/ThinkModa/pbr-mvp-sub002/services"
	"github.com/ThinkModa/pbr-mvp-sub002/websocket"
)

// CustomValidator wraps go-playground/validator for echo
type CustomValidator struct {
	validator *validator.Validate
}

// Validate validates the given struct
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config.InitFirebase()
	redisClient := config.ConnectRedis()
	defer config.CloseRedis()

	db := config.ConnectDB()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := db.Disconnect(ctx); err != nil {
			log.Printf("Error disconnecting from MongoDB: %v", err)
		}
	}()

	hub := websocket.NewHub()
	go hub.Run()

	notificationRepo := repositories.NewNotificationRepository(db)
	tokenRepo := repositories.NewTokenRepository(db)
	resolver := services.NewAudienceResolver(db)

	var gateway services.PushGateway
	fcm, err := services.NewFCMGateway(context.Background())
	if err != nil {
		log.Printf("FCM gateway unavailable, push delivery deferred: %v", err)
	} else {
		gateway = fcm
	}

	svc := services.NewNotificationService(notificationRepo, tokenRepo, resolver, gateway, redisClient)

	sweeper := services.NewSweeper(db, svc)
	sweeper.Start()
	defer sweeper.Stop()

	watcher := services.NewNotificationWatcher(db, hub)
	if err := watcher.Start(); err != nil {
		log.Printf("Notification watcher unavailable (change streams need a replica set): %v", err)
	} else {
		defer watcher.Stop()
	}

	e := echo.New()
	e.HideBanner = true
	e.Validator = &CustomValidator{validator: validator.New()}

	e.Use(echomiddleware.Logger())
	e.Use(echomiddleware.Recover())
	e.Use(middleware.GlobalCORS())
	e.Use(middleware.NewRateLimiter().RateLimit())
	e.Use(middleware.SecurityHeadersWithConfig(middleware.SecurityConfig{
		AllowedDomains: []string{"app.pbr.events", "admin.pbr.events"},
	}))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	routes.SetupRoutes(e, db, svc, hub)

	for _, dir := range []string{"uploads/events", "uploads/thumbnails"} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Printf("Error creating upload directory %s: %v", dir, err)
		}
	}
	e.Static("/uploads", "uploads")

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	go func() {
		if err := e.Start(":" + port); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}
}
