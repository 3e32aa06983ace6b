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

	"github.com/go-notify-nosql/internal/application/channel"
	"github.com/go-notify-nosql/internal/application/listener"
	"github.com/go-notify-nosql/internal/config"
	"github.com/go-notify-nosql/internal/infrastructure/dynamo"
	"github.com/go-notify-nosql/internal/infrastructure/fcm"
	jwtinfra "github.com/go-notify-nosql/internal/infrastructure/jwt"
	redisfeed "github.com/go-notify-nosql/internal/infrastructure/redis"
	"github.com/go-notify-nosql/internal/infrastructure/smtp"
	"github.com/go-notify-nosql/internal/infrastructure/sns"
	transporthttp "github.com/go-notify-nosql/internal/transport/http"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()

	// Bootstrap DynamoDB tables (creates them if they don't exist).
	dynamoClient := dynamo.NewClient(cfg)
	dynamo.Bootstrap(context.Background(), dynamoClient, cfg.DynamoTables)

	userRepo := dynamo.NewUserRepo(dynamoClient, cfg.DynamoTables.Users)
	deviceRepo := dynamo.NewDeviceRepo(dynamoClient, cfg.DynamoTables.Devices)
	notificationRepo := dynamo.NewNotificationRepo(dynamoClient, cfg.DynamoTables.Notifications)
	preferenceRepo := dynamo.NewPreferenceRepo(dynamoClient, cfg.DynamoTables.Preferences)

	// JWT provider (optional — graceful fallback if the key is missing).
	var jwtProvider *jwtinfra.Provider
	if p, err := jwtinfra.NewProvider(cfg); err == nil {
		jwtProvider = p
	} else {
		log.Printf("WARN: JWT provider not available: %v", err)
	}

	// Delivery channels. Each is registered only when its provider is
	// configured; the registry treats missing channels as disabled.
	registry := channel.NewRegistry(preferenceRepo)

	if fcmClient, err := fcm.NewClient(context.Background(), cfg); err == nil {
		registry.Register(channel.NewPushChannel(deviceRepo, fcmClient))
	} else {
		log.Printf("WARN: FCM not available, push channel disabled: %v", err)
	}

	if cfg.SMTPHost != "" {
		registry.Register(channel.NewEmailChannel(userRepo, smtp.NewMailer(cfg)))
	} else {
		log.Println("WARN: SMTP not configured, email channel disabled")
	}

	if cfg.SNSRegion != "" {
		if sender, err := sns.NewSender(cfg); err == nil {
			registry.Register(channel.NewSMSChannel(userRepo, sender))
		} else {
			log.Printf("WARN: SNS sender not available, sms channel disabled: %v", err)
		}
	}

	// Change-feed listener over redis pub/sub.
	redisClient := redisfeed.NewClient(cfg)
	feed := redisfeed.NewFeed(redisClient, cfg.FeedTopic)
	feedListener := listener.New(feed, notificationRepo, registry)
	if err := feedListener.Start(); err != nil {
		log.Printf("WARN: change-feed listener not running: %v", err)
	}

	deps := &transporthttp.Deps{
		UserRepo:         userRepo,
		DeviceRepo:       deviceRepo,
		NotificationRepo: notificationRepo,
		PreferenceRepo:   preferenceRepo,
		Feed:             feed,
		Registry:         registry,
		Listener:         feedListener,
		JWTProvider:      jwtProvider,
	}

	router := transporthttp.NewRouter(cfg, deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s (env=%s)", cfg.AppPort, cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	feedListener.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}
	log.Println("Server stopped")
}
