package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/schoolstream/internal/application/notification"
	"github.com/schoolstream/internal/config"
	"github.com/schoolstream/internal/infrastructure/dynamo"
	jwtinfra "github.com/schoolstream/internal/infrastructure/jwt"
	s3infra "github.com/schoolstream/internal/infrastructure/s3"
	"github.com/schoolstream/internal/infrastructure/sns"
	"github.com/schoolstream/internal/logging"
	"github.com/schoolstream/internal/realtime"
	transporthttp "github.com/schoolstream/internal/transport/http"
)

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	jwtProvider, err := jwtinfra.NewProvider(cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("jwt provider init failed")
	}

	// Bootstrap DynamoDB tables (creates them if they don't exist).
	dynamoClient := dynamo.NewClient(cfg)
	dynamo.Bootstrap(context.Background(), dynamoClient, cfg.DynamoTables)

	userRepo := dynamo.NewUserRepo(dynamoClient, cfg.DynamoTables.Users)
	sessionRepo := dynamo.NewSessionRepo(dynamoClient, cfg.DynamoTables.Sessions)
	notificationRepo := dynamo.NewNotificationRepo(dynamoClient, cfg.DynamoTables.Notifications)
	announcementRepo := dynamo.NewAnnouncementRepo(dynamoClient, cfg.DynamoTables.Announcements)

	// S3 store for announcement attachments.
	s3Store := s3infra.NewStore(s3infra.NewClient(cfg), cfg.S3BucketName)

	// SNS relay for urgent notifications (optional).
	var relay sns.Publisher
	if cfg.SNSTopicARN != "" {
		relay, err = sns.NewPublisher(cfg)
		if err != nil {
			logging.Warn().Err(err).Msg("sns relay not available")
		}
	}

	hub := realtime.NewHub()
	emitter := realtime.NewEmitter(hub, notification.NewService(notificationRepo), relay)

	deps := &transporthttp.Deps{
		UserRepo:         userRepo,
		SessionRepo:      sessionRepo,
		NotificationRepo: notificationRepo,
		AnnouncementRepo: announcementRepo,
		AttachmentStore:  s3Store,
		JWTProvider:      jwtProvider,
		Hub:              hub,
		Emitter:          emitter,
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      transporthttp.NewRouter(cfg, deps),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logging.Info().Str("port", cfg.AppPort).Str("env", cfg.AppEnv).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logging.Info().Msg("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logging.Error().Err(err).Msg("forced shutdown")
	}
	hub.CloseAll()
	emitter.Flush()
	logging.Info().Msg("server stopped")
}
