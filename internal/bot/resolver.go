package bot

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ivolkov/tasktg/internal/storage"
	"github.com/ivolkov/tasktg/internal/telegram"
)

// StateKind tags the lifecycle state resolved for an inbound message.
type StateKind int

const (
	// StateNew is a chat contacting the bot for the first time.
	StateNew StateKind = iota
	// StateUnverified is a known chat not yet linked to an account.
	StateUnverified
	// StateVerified is a chat linked to an account; its messages go to the
	// command dispatcher.
	StateVerified
)

func (k StateKind) String() string {
	switch k {
	case StateNew:
		return "new"
	case StateUnverified:
		return "unverified"
	case StateVerified:
		return "verified"
	default:
		return "unknown"
	}
}

// ConversationState is the resolved state for one inbound message. It lives
// only for the duration of that message's processing.
type ConversationState struct {
	Kind    StateKind
	User    *storage.ChatUser
	Message telegram.Message
}

// Resolver classifies inbound messages into lifecycle states.
type Resolver struct {
	logger *slog.Logger
	store  storage.Store
}

// NewResolver creates a resolver backed by the chat-user registry.
func NewResolver(deps Deps) *Resolver {
	return &Resolver{
		logger: deps.Logger.With("component", "resolver"),
		store:  deps.Store,
	}
}

// Resolve looks up (or creates) the chat-user record for the message and
// tags the result: a freshly created record is New, an unlinked record is
// Unverified, a linked record is Verified. The get-or-create is the only
// side effect.
func (r *Resolver) Resolve(ctx context.Context, msg telegram.Message) (ConversationState, error) {
	user, created, err := r.store.GetOrCreateChatUser(ctx, msg.ChatID, msg.SenderID)
	if err != nil {
		return ConversationState{}, fmt.Errorf("failed to resolve chat %d: %w", msg.ChatID, err)
	}

	state := ConversationState{User: user, Message: msg}
	switch {
	case created:
		state.Kind = StateNew
	case !user.Linked():
		state.Kind = StateUnverified
	default:
		state.Kind = StateVerified
	}

	r.logger.DebugContext(ctx, "Resolved conversation state",
		"chat_id", msg.ChatID, "state", state.Kind.String())
	return state, nil
}
