package bot

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/ivolkov/tasktg/internal/telegram"
)

// Fetch retry backoff bounds. Repeated transport failures back off
// exponentially so a down endpoint is not hot-looped.
const (
	initialFetchBackoff = time.Second
	maxFetchBackoff     = 30 * time.Second
)

// Poller drives the update loop: long-poll fetch, offset advance, and
// sequential per-message processing. Messages are processed in arrival
// order, one at a time.
type Poller struct {
	logger      *slog.Logger
	transport   Transport
	resolver    *Resolver
	runner      *StateRunner
	pollTimeout time.Duration
}

// NewPoller creates the polling loop over the resolver and state runner.
func NewPoller(deps Deps, resolver *Resolver, runner *StateRunner) *Poller {
	return &Poller{
		logger:      deps.Logger.With("component", "poller"),
		transport:   deps.Transport,
		resolver:    resolver,
		runner:      runner,
		pollTimeout: deps.Config.Telegram.PollTimeout,
	}
}

// Run polls until ctx is cancelled. The offset starts at 0 on every process
// start: updates delivered before a crash may be redelivered (at-least-once).
// The offset is advanced past an update before the update is processed, so a
// crash mid-processing loses at most that one message instead of
// redelivering it forever.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.Info("Starting update polling loop", "poll_timeout", p.pollTimeout)

	offset := 0
	backoff := initialFetchBackoff
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		updates, err := p.transport.FetchUpdates(ctx, offset, int(p.pollTimeout.Seconds()))
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return ctx.Err()
			}
			p.logger.ErrorContext(ctx, "Failed to fetch updates", "error", err, "retry_in", backoff)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, maxFetchBackoff)
			continue
		}
		backoff = initialFetchBackoff

		for _, update := range updates {
			offset = update.ID + 1

			if update.Message == nil {
				continue
			}
			if err := p.handle(ctx, *update.Message); err != nil {
				// The offset has already moved past this update; log and
				// continue with the next one.
				p.logger.ErrorContext(ctx, "Failed to process message",
					"update_id", update.ID, "chat_id", update.Message.ChatID, "error", err)
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
		}
	}
}

func (p *Poller) handle(ctx context.Context, msg telegram.Message) error {
	state, err := p.resolver.Resolve(ctx, msg)
	if err != nil {
		return err
	}
	return p.runner.Run(ctx, state)
}
