package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/remindmex/RemindMeBot/internal/config"
	"github.com/remindmex/RemindMeBot/internal/infrastructure/xapi"
	"github.com/remindmex/RemindMeBot/internal/repository/postgres"
	"github.com/remindmex/RemindMeBot/internal/timeparse"
	"github.com/remindmex/RemindMeBot/internal/usecase"
	"github.com/remindmex/RemindMeBot/transport/httpapi"
	"github.com/remindmex/RemindMeBot/transport/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}
	log := newLogger(cfg)
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	ctx := context.Background()
	if err := postgres.RunMigrations(cfg.DatabaseURL); err != nil {
		log.Error("migrations failed", "err", err)
		os.Exit(1)
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("connect to db", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	reminderRepo := postgres.NewReminderRepository(pool)
	processedRepo := postgres.NewProcessedEventRepository(pool)
	stateRepo := postgres.NewStateRepository(pool)

	client := xapi.NewClient(xapi.Config{
		APIKey:            cfg.XAPIKey,
		APISecret:         cfg.XAPISecret,
		AccessToken:       cfg.XAccessToken,
		AccessTokenSecret: cfg.XAccessTokenSecret,
		BearerToken:       cfg.XBearerToken,
	})
	_, handle, err := client.Me(ctx)
	if err != nil {
		log.Error("could not authenticate with X API", "err", err)
		os.Exit(1)
	}
	log.Info("bot authenticated", "handle", handle)

	now := func() time.Time { return time.Now().UTC() }
	parser := timeparse.New()
	intake := usecase.NewIntake(client, client, reminderRepo, processedRepo, stateRepo,
		parser, handle, now, log)
	delivery := usecase.NewDelivery(client, reminderRepo, now, log)

	w := worker.New(log,
		worker.Job{Name: "check_mentions", Interval: cfg.MentionInterval(), Run: intake.Run},
		worker.Job{Name: "process_reminders", Interval: cfg.ReminderInterval(), Run: delivery.Run},
	)
	w.Start(ctx)

	srv := httpapi.NewServer(fmt.Sprintf(":%d", cfg.Port), reminderRepo, w, handle, log)
	srv.Start()
	log.Info("bot started", "handle", handle, "port", cfg.Port,
		"mention_interval", cfg.MentionInterval(), "reminder_interval", cfg.ReminderInterval())

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info("shutting down")
	w.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown", "err", err)
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}
