package bot

import (
	"context"
	"fmt"
	"log/slog"
)

// Linker is the account-linking surface the web side calls when a user
// submits a verification code. It is the only place linked_account is ever
// set; the bot itself never links.
type Linker struct {
	logger    *slog.Logger
	deps      Deps
	transport Transport
}

// NewLinker creates an account linker.
func NewLinker(deps Deps) *Linker {
	return &Linker{
		logger:    deps.Logger.With("component", "linker"),
		deps:      deps,
		transport: deps.Transport,
	}
}

// Link resolves the chat user holding code, links it to accountID, and
// sends the confirmation message to the chat. An unknown code surfaces
// storage.ErrCodeNotFound; a chat already linked surfaces
// storage.ErrAlreadyLinked.
func (l *Linker) Link(ctx context.Context, code string, accountID int64) error {
	user, err := l.deps.Store.LinkAccount(ctx, code, accountID)
	if err != nil {
		return fmt.Errorf("failed to link account %d: %w", accountID, err)
	}

	l.logger.InfoContext(ctx, "Account linked", "account_id", accountID, "chat_id", user.ChatID)

	if err := l.transport.SendText(ctx, user.ChatID, l.deps.Config.Bot.Messages.Linked); err != nil {
		return fmt.Errorf("failed to send link confirmation to chat %d: %w", user.ChatID, err)
	}
	return nil
}
