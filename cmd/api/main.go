package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/juju/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"schoolattend/internal/api"
	"schoolattend/internal/attendance"
	"schoolattend/internal/auth"
	"schoolattend/internal/config"
	"schoolattend/internal/live"
	"schoolattend/internal/logger"
	"schoolattend/internal/notify"
	"schoolattend/internal/queue"
	"schoolattend/internal/report"
	"schoolattend/internal/roster"
	"schoolattend/internal/store"
)

const migrateRetry = 5 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, errors.ErrorStack(err))
		os.Exit(1)
	}
	log := logger.New(logger.Config{File: cfg.LogFile, Level: cfg.LogLevel})

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal(errors.ErrorStack(err))
	}
}

func run(ctx context.Context, cfg config.App, log *logrus.Logger) error {
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	db, err := store.NewDB(cfg.DatabaseURL, cfg.StoreTimeout())
	if db == nil {
		return err
	}
	defer db.Close()
	dbReady := err == nil
	if !dbReady {
		log.WithError(err).Warn("database not reachable, migrating once it answers")
	} else if err := store.Migrate(ctx, db.Client, log); err != nil {
		return err
	}

	health := map[string]api.HealthCheck{"db": db.Healthy}

	var q queue.Queue
	if cfg.QueueBackend == "redis" {
		redisClient := store.NewRedis(cfg.RedisOptions())
		defer redisClient.Close()
		health["redis"] = redisClient.Healthy
		q = queue.NewRedisQueue(redisClient.Client, queue.DefaultKey, log)
	} else {
		q = queue.NewInMemory(64)
	}

	repo := attendance.NewRepository(db.Client, log)
	svc := attendance.NewService(repo, attendance.Options{
		Log:      log,
		Location: loc,
		Timeout:  cfg.StoreTimeout(),
	})

	hub := live.NewHub(log)
	defer hub.Close()

	tokens := auth.NewTokens(cfg.JWTIssuer, cfg.JWTSigningKey, cfg.AccessTTL(), cfg.RefreshTTL())
	if cfg.AdminPasswordHash == "" {
		log.Warn("ADMIN_PASSWORD_HASH not set, admin login is disabled")
	}

	router := api.NewRouter(api.Deps{
		Service:         svc,
		Aggregator:      report.NewAggregator(log),
		Roster:          roster.NewProvider(cfg.RosterFile, svc, log),
		Notifier:        notify.NewDispatcher(q, cfg.NotifyTimeout()),
		Live:            hub,
		Tokens:          tokens,
		Credentials:     auth.NewCredentials(cfg.AdminUser, cfg.AdminPasswordHash),
		Health:          health,
		Log:             log,
		ExportTitle:     cfg.ExportTitle,
		NotifyOnScan:    cfg.NotifyOnScan,
		RateLimitPerMin: cfg.RateLimitPerMin,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.WithField("addr", srv.Addr).Info("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return errors.Annotate(err, "http server")
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return errors.Annotate(srv.Shutdown(shutdownCtx), "shutdown")
	})
	if !dbReady {
		g.Go(func() error { return store.MigrateWhenReady(ctx, db, migrateRetry, log) })
	}
	if cfg.QueueBackend == "memory" {
		worker := notify.NewWorker(q, notify.NewSender(cfg.TelegramAPIURL, cfg.TelegramBotToken, cfg.TelegramChatID, cfg.NotifyTimeout(), log), svc, cfg.NotifyTimeout(), log)
		g.Go(func() error { return worker.Run(ctx) })
	}

	err = g.Wait()
	log.Info("server exited")
	return err
}
