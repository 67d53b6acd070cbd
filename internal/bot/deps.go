// Package bot implements the conversation engine: per-message state
// resolution, the user lifecycle states, the command dispatcher with its
// goal-creation dialog, and the update polling loop.
package bot

import (
	"context"
	"log/slog"

	"github.com/ivolkov/tasktg/internal/config"
	"github.com/ivolkov/tasktg/internal/session"
	"github.com/ivolkov/tasktg/internal/storage"
	"github.com/ivolkov/tasktg/internal/telegram"
)

// Transport is the messaging surface the bot core sends and fetches through.
// *telegram.Client implements it; tests substitute a fake.
type Transport interface {
	FetchUpdates(ctx context.Context, offset, timeout int) ([]telegram.Update, error)
	SendText(ctx context.Context, chatID int64, text string) error
	SendPhoto(ctx context.Context, chatID int64, fileID string) error
}

// Deps provides dependencies for the conversation engine components.
type Deps struct {
	Logger    *slog.Logger
	Config    *config.Config
	Store     storage.Store
	Transport Transport
	Sessions  *session.Store
}
