package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/joho/godotenv"

	"github.com/nehalDIU/NestTask-V8.5-Depertment-sub001/config"
	"github.com/nehalDIU/NestTask-V8.5-Depertment-sub001/internal/api"
	"github.com/nehalDIU/NestTask-V8.5-Depertment-sub001/internal/db"
	"github.com/nehalDIU/NestTask-V8.5-Depertment-sub001/internal/dispatch"
	"github.com/nehalDIU/NestTask-V8.5-Depertment-sub001/internal/model"
	"github.com/nehalDIU/NestTask-V8.5-Depertment-sub001/internal/push"
	"github.com/nehalDIU/NestTask-V8.5-Depertment-sub001/internal/store"
	"github.com/nehalDIU/NestTask-V8.5-Depertment-sub001/internal/sweeper"
)

func main() {
	// Setup logger
	logger := log.New(os.Stdout, "nesttask-push ", log.LstdFlags)

	// Local development secrets live in .env; missing files are fine.
	if err := godotenv.Load(); err == nil {
		logger.Println(".env file loaded")
	}

	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}
	logger.Printf("configuration loaded successfully from %s", configPath)

	if cfg.Auth.JWTSecret == "" {
		logger.Fatalf("auth.jwt_secret must be configured")
	}

	// Initialize database
	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		logger.Fatalf("failed to initialize database: %v", err)
	}
	logger.Println("database initialized successfully")

	// Create a context that can be cancelled
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appStore := store.NewGormStore(gormDB)
	logger.Println("data store initialized")

	// Wire one push gateway per device class.
	sender := push.NewClassSender()
	if cfg.Push.FCMCredentialsFile != "" {
		fcm, err := push.NewFCMSender(ctx, cfg.Push.FCMCredentialsFile)
		if err != nil {
			logger.Fatalf("failed to initialize FCM: %v", err)
		}
		sender.Route(model.DeviceMobile, fcm)
		sender.Route(model.DeviceOther, fcm)
	} else {
		logger.Println("push.fcm_credentials_file not set; mobile sends will fail until configured")
	}
	if cfg.Push.VAPIDPublicKey != "" && cfg.Push.VAPIDPrivateKey != "" {
		sender.Route(model.DeviceDesktopWeb, push.NewWebPushSender(webpush.Options{
			VAPIDPublicKey:  cfg.Push.VAPIDPublicKey,
			VAPIDPrivateKey: cfg.Push.VAPIDPrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}))
	} else {
		logger.Println("VAPID keys not set; web push sends will fail until configured")
	}

	// Start the dispatcher worker pool.
	dispatcher := dispatch.NewDispatcher(appStore, sender, cfg.Dispatcher.Workers, cfg.Dispatcher.SendTimeout)
	dispatcher.Start(ctx)
	logger.Printf("dispatcher started with %d workers", cfg.Dispatcher.Workers)

	// Start the token retention sweeper in the background.
	sweep := sweeper.New(appStore, cfg.Tokens.RetentionWindow, cfg.Tokens.SweepInterval)
	go sweep.Run(ctx)

	// Initialize router
	handler := api.NewHandler(appStore, dispatcher, cfg.Push.VAPIDPublicKey, cfg.Tokens.FreshnessWindow)
	router := api.NewRouter(handler, cfg)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Start the server in a goroutine
	go func() {
		logger.Printf("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()

	// Setup signal handling for graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	// Block until a signal is received.
	<-stop
	logger.Println("Shutdown signal received, stopping services...")

	// Create a deadline to wait for.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("HTTP server Shutdown: %v", err)
	}

	logger.Println("Server gracefully stopped")
}
