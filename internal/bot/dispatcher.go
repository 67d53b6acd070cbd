package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ivolkov/tasktg/internal/session"
	"github.com/ivolkov/tasktg/internal/storage"
	"github.com/ivolkov/tasktg/internal/telegram"
)

// Dispatcher runs the verified-state command machine: slash commands plus
// the two-step category-pick / title-entry goal-creation dialog.
type Dispatcher struct {
	logger    *slog.Logger
	deps      Deps
	sessions  *session.Store
	transport Transport
	store     storage.Store
}

// NewDispatcher creates a command dispatcher.
func NewDispatcher(deps Deps) *Dispatcher {
	return &Dispatcher{
		logger:    deps.Logger.With("component", "dispatcher"),
		deps:      deps,
		sessions:  deps.Sessions,
		transport: deps.Transport,
		store:     deps.Store,
	}
}

// Dispatch processes one message from a verified chat. A slash command
// always wins over an in-progress title entry; free text either completes a
// pending goal creation or is rejected.
func (d *Dispatcher) Dispatch(ctx context.Context, user *storage.ChatUser, msg telegram.Message) error {
	if !user.Linked() {
		return fmt.Errorf("dispatch reached for unlinked chat %d", user.ChatID)
	}
	accountID := user.AccountID.Int64

	if strings.HasPrefix(msg.Text, "/") {
		return d.runCommand(ctx, accountID, msg)
	}

	if sess := d.sessions.Get(accountID); sess.Phase == session.PhaseAwaitingTitle {
		return d.createGoal(ctx, accountID, msg, sess)
	}

	return d.transport.SendText(ctx, msg.ChatID, d.deps.Config.Bot.Messages.MustStartSlash)
}

func (d *Dispatcher) runCommand(ctx context.Context, accountID int64, msg telegram.Message) error {
	// The category list is always the live one: a category deleted between
	// the /create offer and the pick is simply unmatched.
	categories, err := d.store.ListCategoriesForAccount(ctx, accountID)
	if err != nil {
		return fmt.Errorf("failed to fetch categories for account %d: %w", accountID, err)
	}

	d.logger.InfoContext(ctx, "Executing command",
		"account_id", accountID, "chat_id", msg.ChatID, "command", msg.Text)

	switch msg.Text {
	case "/goals":
		return d.listGoals(ctx, accountID, msg.ChatID)
	case "/create":
		return d.offerCategories(ctx, accountID, msg.ChatID, categories)
	case "/cancel":
		// No-op when nothing is pending.
		d.sessions.Clear(accountID)
		return nil
	default:
		if cat, ok := matchCategory(categories, msg.Text); ok {
			return d.selectCategory(ctx, accountID, msg.ChatID, cat)
		}
		return d.unknownCommand(ctx, msg)
	}
}

func (d *Dispatcher) listGoals(ctx context.Context, accountID, chatID int64) error {
	titles, err := d.store.ListGoalTitlesForAccount(ctx, accountID)
	if err != nil {
		return fmt.Errorf("failed to list goals for account %d: %w", accountID, err)
	}

	if len(titles) == 0 {
		return d.transport.SendText(ctx, chatID, d.deps.Config.Bot.Messages.NoGoals)
	}

	escaped := make([]string, 0, len(titles))
	for _, title := range titles {
		escaped = append(escaped, telegram.EscapeHTML(title))
	}
	return d.transport.SendText(ctx, chatID, strings.Join(escaped, "\n\n"))
}

func (d *Dispatcher) offerCategories(ctx context.Context, accountID, chatID int64, categories []storage.Category) error {
	if len(categories) == 0 {
		// A stale pending dialog must not swallow the next free-text message.
		d.sessions.Clear(accountID)
		return d.transport.SendText(ctx, chatID, d.deps.Config.Bot.Messages.NoCategories)
	}

	d.sessions.Put(accountID, session.Session{Phase: session.PhaseChoosingCategory})

	if err := d.transport.SendText(ctx, chatID, d.deps.Config.Bot.Messages.ChooseCategory); err != nil {
		return err
	}

	commands := make([]string, 0, len(categories))
	for _, cat := range categories {
		commands = append(commands, "/"+telegram.EscapeHTML(cat.Title))
	}
	return d.transport.SendText(ctx, chatID, strings.Join(commands, "\n\n"))
}

func (d *Dispatcher) selectCategory(ctx context.Context, accountID, chatID int64, cat storage.Category) error {
	d.sessions.Put(accountID, session.Session{
		Phase:         session.PhaseAwaitingTitle,
		CategoryID:    cat.ID,
		CategoryTitle: cat.Title,
	})
	return d.transport.SendText(ctx, chatID, d.deps.Config.Bot.Messages.EnterTitle)
}

func (d *Dispatcher) createGoal(ctx context.Context, accountID int64, msg telegram.Message, sess session.Session) error {
	goalID, err := d.store.CreateGoal(ctx, accountID, sess.CategoryID, msg.Text)
	if err != nil {
		return fmt.Errorf("failed to create goal in category %d: %w", sess.CategoryID, err)
	}
	d.sessions.Clear(accountID)

	d.logger.InfoContext(ctx, "Goal created",
		"account_id", accountID, "goal_id", goalID, "category_id", sess.CategoryID)

	confirmation := strings.NewReplacer(
		"{goal}", telegram.EscapeHTML(msg.Text),
		"{category}", telegram.EscapeHTML(sess.CategoryTitle),
	).Replace(d.deps.Config.Bot.Messages.GoalCreated)
	return d.transport.SendText(ctx, msg.ChatID, confirmation)
}

// unknownCommand replies with the fixed three-message sequence: the unknown
// command notice, the echoed text, and the command summary.
func (d *Dispatcher) unknownCommand(ctx context.Context, msg telegram.Message) error {
	msgs := d.deps.Config.Bot.Messages
	if err := d.transport.SendText(ctx, msg.ChatID, msgs.UnknownCommand); err != nil {
		return err
	}
	if err := d.transport.SendText(ctx, msg.ChatID, telegram.EscapeHTML(msg.Text)); err != nil {
		return err
	}
	return d.transport.SendText(ctx, msg.ChatID, msgs.CommandSummary)
}

// matchCategory matches a /<title> command against the live category list
// by exact title equality.
func matchCategory(categories []storage.Category, text string) (storage.Category, bool) {
	for _, cat := range categories {
		if text == "/"+cat.Title {
			return cat, true
		}
	}
	return storage.Category{}, false
}
