// Package main contains the entrypoint for the TaskTG Telegram bot.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ivolkov/tasktg/internal/bot"
	"github.com/ivolkov/tasktg/internal/bot/tasks"
	"github.com/ivolkov/tasktg/internal/config"
	"github.com/ivolkov/tasktg/internal/logger"
	"github.com/ivolkov/tasktg/internal/session"
	"github.com/ivolkov/tasktg/internal/storage"
	"github.com/ivolkov/tasktg/internal/telegram"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := run(ctx)
	stop()
	os.Exit(exitCode)
}

// run initializes and starts all application components (config, logger,
// database, transport, conversation engine, scheduler), handles graceful
// shutdown, and returns an exit code.
func run(ctx context.Context) int {
	configPath := flag.String("config", "./config.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "path", *configPath, "error", err)
		return 1
	}

	log := logger.New(cfg.Log.Level, cfg.Log.JSON)
	log.Info("Logger initialized", "level", cfg.Log.Level, "json", cfg.Log.JSON)

	db, err := storage.NewDB(cfg.Database.Path)
	if err != nil {
		log.Error("Failed to connect to database", "path", cfg.Database.Path, "error", err)
		return 1
	}
	defer storage.CloseDB(db)
	store := storage.NewStore(db, log)

	tg, err := telegram.New(cfg.Telegram.Token, cfg.Telegram.RequestTimeout, log)
	if err != nil {
		log.Error("Failed to create Telegram client", "error", err)
		return 1
	}
	log.Info("Telegram client ready", "bot_username", tg.Username())

	deps := bot.Deps{
		Logger:    log,
		Config:    cfg,
		Store:     store,
		Transport: tg,
		Sessions:  session.NewStore(),
	}

	dispatcher := bot.NewDispatcher(deps)
	resolver := bot.NewResolver(deps)
	runner := bot.NewStateRunner(deps, dispatcher)
	poller := bot.NewPoller(deps, resolver, runner)

	tDeps := tasks.TaskDeps{
		Logger:   log,
		Store:    store,
		Sessions: deps.Sessions,
		Config:   cfg,
	}
	sched, err := bot.NewScheduler(log, &cfg.Scheduler, tasks.RegisterAllTasks(tDeps))
	if err != nil {
		log.Error("Failed to create scheduler", "error", err)
		return 1
	}

	app := bot.New(log, poller, sched)

	log.Info("Starting bot...")
	runErr := app.Run(ctx)
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("Bot stopped due to error", "error", runErr)
		return 1
	}

	log.Info("Bot stopped gracefully.")
	return 0
}
