package bot

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// Bot orchestrates the polling loop and the scheduler, managing their
// lifecycle under one context.
type Bot struct {
	logger    *slog.Logger
	poller    *Poller
	scheduler *Scheduler
}

// New creates the bot orchestrator.
func New(logger *slog.Logger, poller *Poller, scheduler *Scheduler) *Bot {
	return &Bot{
		logger:    logger.With("component", "bot_orchestrator"),
		poller:    poller,
		scheduler: scheduler,
	}
}

// Run starts the bot's components and blocks until ctx is cancelled or a
// component fails.
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Info("Starting bot orchestrator...")

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := b.poller.Run(gCtx)
		if err != nil && !errors.Is(err, context.Canceled) {
			b.logger.Error("Polling loop stopped unexpectedly", "error", err)
			return err
		}
		b.logger.Info("Polling loop stopped.")
		return nil
	})

	g.Go(func() error {
		if err := b.scheduler.Start(); err != nil {
			b.logger.Error("Failed to start scheduler", "error", err)
			return err
		}

		<-gCtx.Done()
		b.logger.Info("Shutdown signal received, stopping scheduler...")

		if err := b.scheduler.Stop(); err != nil {
			b.logger.Error("Error stopping scheduler", "error", err)
		}
		return nil
	})

	err := g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		b.logger.Error("Bot orchestrator stopped due to error", "error", err)
		return err
	}

	b.logger.Info("Bot orchestrator stopped gracefully.")
	return nil
}
