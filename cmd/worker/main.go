package main

import (
	"context"
	"log"
	"time"

	"lookstudioapi/config"
	"lookstudioapi/dbhelper"
	"lookstudioapi/services"
	"lookstudioapi/tasks"

	"github.com/getsentry/sentry-go"
	"github.com/hibiken/asynq"
)

func runScheduler(cfg *config.Config) {
	scheduler := asynq.NewScheduler(asynq.RedisClientOpt{Addr: cfg.BrokerAddress}, &asynq.SchedulerOpts{
		LogLevel: asynq.InfoLevel,
	})

	pruneTask, err := tasks.NewPruneGenerationsTask(cfg.AuditRetentionDays)
	if err != nil {
		log.Fatalf("Failed to build prune task: %v", err)
	}

	scheduled := []struct {
		cron string
		task *asynq.Task
		desc string
	}{
		{
			cron: "30 3 * * *", // 03:30 daily
			task: pruneTask,
			desc: "Generation audit pruning",
		},
	}

	for _, t := range scheduled {
		entryID, err := scheduler.Register(t.cron, t.task, asynq.Queue("maintenance"))
		if err != nil {
			log.Fatalf("Failed to register task '%s': %v", t.desc, err)
		}
		log.Printf("Registered task '%s' with ID: %s, cron: %s", t.desc, entryID, t.cron)
	}

	log.Println("Starting scheduler...")
	if err := scheduler.Run(); err != nil {
		log.Fatalf("Scheduler failed: %v", err)
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	err = sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.SentryDSN,
		Environment: cfg.Env,
		Release:     "lookstudioworker@1.0.0",
	})
	if err != nil {
		log.Fatalf("sentry.Init: %s", err)
	}
	defer sentry.Flush(2 * time.Second)

	srv := asynq.NewServer(
		asynq.RedisClientOpt{Addr: cfg.BrokerAddress},
		asynq.Config{Concurrency: 4, Queues: map[string]int{
			"maintenance": 1,
		}},
	)
	awsService := &services.AWSService{
		AccountID:       cfg.R2AccountID,
		AccessKeyID:     cfg.R2AccessKeyID,
		AccessKeySecret: cfg.R2AccessKeySecret,
	}
	if err := awsService.InitPresignClient(context.Background()); err != nil {
		log.Fatalf("[Queue] Failed to initialize AWS provider: S3: %v", err)
	}
	urlCache, err := services.NewURLCacheService(awsService, cfg.R2BucketName)
	if err != nil {
		log.Fatal("[Queue] Failed to initialize URL cache service")
	}
	store := services.NewGormStudioStore(dbhelper.SetupDB())

	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeExpireExport, func(ctx context.Context, t *asynq.Task) error {
		return tasks.HandleExpireExportTask(ctx, t, store, awsService, urlCache, cfg.R2BucketName)
	})
	mux.HandleFunc(tasks.TypePruneGenerations, func(ctx context.Context, t *asynq.Task) error {
		return tasks.HandlePruneGenerationsTask(ctx, t, store)
	})

	go runScheduler(cfg)
	if err := srv.Run(mux); err != nil {
		log.Fatal(err)
	}
}
