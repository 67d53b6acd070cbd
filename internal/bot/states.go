package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// StateRunner executes the behavior bound to a resolved conversation state.
// New and Unverified chats get a verification prompt with a fresh code;
// Verified chats are handed to the command dispatcher.
type StateRunner struct {
	logger     *slog.Logger
	deps       Deps
	dispatcher *Dispatcher
}

// NewStateRunner creates a state runner that delegates verified traffic to
// the dispatcher.
func NewStateRunner(deps Deps, dispatcher *Dispatcher) *StateRunner {
	return &StateRunner{
		logger:     deps.Logger.With("component", "states"),
		deps:       deps,
		dispatcher: dispatcher,
	}
}

// Run executes the resolved state. An unknown state tag is a programming
// error: control flow must never reach a reply without a resolved state.
func (s *StateRunner) Run(ctx context.Context, state ConversationState) error {
	switch state.Kind {
	case StateNew:
		return s.sendVerifyPrompt(ctx, state, true)
	case StateUnverified:
		// Every message from an unverified chat is treated as a fresh
		// verification prompt, rotating the code each time.
		return s.sendVerifyPrompt(ctx, state, false)
	case StateVerified:
		return s.dispatcher.Dispatch(ctx, state.User, state.Message)
	default:
		return fmt.Errorf("no active state for message in chat %d (kind %d)", state.Message.ChatID, state.Kind)
	}
}

func (s *StateRunner) sendVerifyPrompt(ctx context.Context, state ConversationState, withWelcome bool) error {
	code, err := s.deps.Store.RotateVerificationCode(ctx, state.User.ID)
	if err != nil {
		return fmt.Errorf("failed to rotate verification code for chat %d: %w", state.User.ChatID, err)
	}

	msgs := s.deps.Config.Bot.Messages
	prompt := strings.NewReplacer(
		"{signup_url}", s.deps.Config.Bot.SignupURL,
		"{login_url}", s.deps.Config.Bot.LoginURL,
		"{code}", code,
	).Replace(msgs.VerifyPrompt)

	if withWelcome {
		prompt = msgs.Welcome + "\n\n" + prompt
	}

	s.logger.InfoContext(ctx, "Sending verification prompt",
		"chat_id", state.User.ChatID, "new_user", withWelcome)
	return s.deps.Transport.SendText(ctx, state.User.ChatID, prompt)
}
