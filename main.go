package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"datapilot/internal/config"
	"datapilot/internal/container"
	"datapilot/ui"
	"datapilot/ui/middleware"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	gin.SetMode(appConfig.Server.GinMode)

	appContainer, err := container.New(appConfig)
	if err != nil {
		log.Fatalf("Failed to create application container: %v", err)
	}
	defer appContainer.Shutdown(context.Background())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go appContainer.Sessions.Run(ctx, appConfig.Session.SweepInterval)

	server, err := ui.NewServer(ui.Options{
		Sessions: appContainer.Sessions,
		Session: middleware.SessionOptions{
			CookieName: appConfig.Session.CookieName,
			MaxAge:     int(appConfig.Session.TTL.Seconds()),
			Secure:     appConfig.Session.Secure,
		},
	})
	if err != nil {
		log.Fatalf("Failed to initialize UI server: %v", err)
	}

	log.Printf("Backend mode: %s", appConfig.Backend.Mode)
	if err := server.Start(ctx, ":"+appConfig.Server.Port); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
	log.Println("Server stopped")
}
