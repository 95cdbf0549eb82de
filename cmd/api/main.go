package main

import (
	"context"
	"log"
	"time"

	"lookstudioapi/config"
	"lookstudioapi/controllers"
	"lookstudioapi/dbhelper"
	"lookstudioapi/services"
	"lookstudioapi/studio"

	"github.com/getsentry/sentry-go"
	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/hibiken/asynq"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET environment variable is not set!")
	}
	err = sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.SentryDSN,
		Environment:      cfg.Env,
		Release:          "lookstudioapi@1.0.0",
		Debug:            false,
		TracesSampleRate: 1.0,
	})
	if err != nil {
		log.Fatalf("sentry.Init: %s", err)
	}
	defer sentry.Recover()
	defer sentry.Flush(2 * time.Second)

	imageModel, ok := services.ParseLLMModelName(cfg.ImageModel)
	if !ok {
		log.Fatalf("unknown IMAGE_MODEL %q", cfg.ImageModel)
	}
	textModel, ok := services.ParseLLMModelName(cfg.TextModel)
	if !ok {
		log.Fatalf("unknown TEXT_MODEL %q", cfg.TextModel)
	}
	generator, err := services.NewGeminiStudioClient(context.Background(), cfg.GoogleAPIKey, imageModel, textModel, cfg.GenerationInterval)
	if err != nil {
		log.Fatalf("failed to create generation client: %v", err)
	}

	db := dbhelper.SetupDB()
	store := services.NewGormStudioStore(db)

	awsService := &services.AWSService{
		AccountID:       cfg.R2AccountID,
		AccessKeyID:     cfg.R2AccessKeyID,
		AccessKeySecret: cfg.R2AccessKeySecret,
	}
	if err := awsService.InitPresignClient(context.Background()); err != nil {
		log.Fatalf("Failed to initialize AWS provider: S3: %v", err)
	}
	urlCache, err := services.NewURLCacheService(awsService, cfg.R2BucketName)
	if err != nil {
		log.Fatal("Failed to initialize URL cache service")
	}

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.BrokerAddress})
	defer asynqClient.Close()

	registry := studio.NewRegistry(cfg.SessionTTL, generator, store)

	e := controllers.SetupServer(cfg, registry, store, awsService, urlCache, asynqClient)
	e.Debug = cfg.Env == "local"
	e.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(rate.Limit(5))))
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(sentryecho.New(sentryecho.Options{Repanic: true}))
	e.Logger.Fatal(e.Start(":" + cfg.Port))
}
