package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/juju/errors"

	"schoolattend/internal/attendance"
	"schoolattend/internal/config"
	"schoolattend/internal/logger"
	"schoolattend/internal/notify"
	"schoolattend/internal/queue"
	"schoolattend/internal/store"
)

// Worker consumes notification jobs from Redis and delivers them to Telegram.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, errors.ErrorStack(err))
		os.Exit(1)
	}
	log := logger.New(logger.Config{File: cfg.LogFile, Level: cfg.LogLevel})

	if cfg.QueueBackend != "redis" {
		log.Fatal("worker needs QUEUE_BACKEND=redis; with the memory backend the API runs the worker itself")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loc, err := cfg.Location()
	if err != nil {
		log.Fatal(errors.ErrorStack(err))
	}

	db, err := store.NewDB(cfg.DatabaseURL, cfg.StoreTimeout())
	if err != nil {
		log.WithError(err).Fatal("db connect failed")
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg.RedisOptions())
	defer redisClient.Close()
	if !redisClient.Healthy(ctx) {
		log.WithField("addr", cfg.RedisAddr).Warn("redis not reachable, retrying in the background")
	}

	svc := attendance.NewService(attendance.NewRepository(db.Client, log), attendance.Options{
		Log:      log,
		Location: loc,
		Timeout:  cfg.StoreTimeout(),
	})
	sender := notify.NewSender(cfg.TelegramAPIURL, cfg.TelegramBotToken, cfg.TelegramChatID, cfg.NotifyTimeout(), log)
	worker := notify.NewWorker(queue.NewRedisQueue(redisClient.Client, queue.DefaultKey, log), sender, svc, cfg.NotifyTimeout(), log)

	if err := worker.Run(ctx); err != nil {
		log.Fatal(errors.ErrorStack(err))
	}
}
