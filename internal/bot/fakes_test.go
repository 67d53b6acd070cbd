package bot_test

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/ivolkov/tasktg/internal/bot"
	"github.com/ivolkov/tasktg/internal/config"
	"github.com/ivolkov/tasktg/internal/session"
	"github.com/ivolkov/tasktg/internal/storage"
	"github.com/ivolkov/tasktg/internal/telegram"
)

// fakeStore is an in-memory storage.Store for conversation-engine tests.
type fakeStore struct {
	mu sync.Mutex

	nextID     int64
	chatUsers  map[int64]*storage.ChatUser // keyed by chat ID
	categories []storage.Category
	goals      []storage.Goal

	codeSeq int // deterministic verification codes

	listCategoriesErr error
	createGoalErr     error
}

func newFakeStore() *fakeStore {
	return &fakeStore{chatUsers: make(map[int64]*storage.ChatUser)}
}

func (f *fakeStore) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *fakeStore) Ping(context.Context) error { return nil }

func (f *fakeStore) GetOrCreateChatUser(_ context.Context, chatID, senderID int64) (*storage.ChatUser, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if user, ok := f.chatUsers[chatID]; ok {
		copied := *user
		return &copied, false, nil
	}
	user := &storage.ChatUser{ID: f.id(), ChatID: chatID, SenderID: senderID}
	f.chatUsers[chatID] = user
	copied := *user
	return &copied, true, nil
}

func (f *fakeStore) RotateVerificationCode(_ context.Context, chatUserID int64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, user := range f.chatUsers {
		if user.ID == chatUserID {
			f.codeSeq++
			code := fmt.Sprintf("%010x", f.codeSeq)
			user.VerificationCode = sql.NullString{String: code, Valid: true}
			return code, nil
		}
	}
	return "", fmt.Errorf("chat user %d not found", chatUserID)
}

func (f *fakeStore) LinkAccount(_ context.Context, code string, accountID int64) (*storage.ChatUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, user := range f.chatUsers {
		if user.VerificationCode.Valid && user.VerificationCode.String == code {
			if user.Linked() {
				return nil, storage.ErrAlreadyLinked
			}
			user.AccountID = sql.NullInt64{Int64: accountID, Valid: true}
			copied := *user
			return &copied, nil
		}
	}
	return nil, storage.ErrCodeNotFound
}

func (f *fakeStore) CreateAccount(_ context.Context, username string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.id(), nil
}

func (f *fakeStore) CreateBoard(_ context.Context, _ string, _ int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.id(), nil
}

func (f *fakeStore) AddBoardParticipant(context.Context, int64, int64, string) error { return nil }

func (f *fakeStore) CreateCategory(context.Context, int64, int64, string) (int64, error) {
	return 0, fmt.Errorf("not used by conversation-engine tests")
}

func (f *fakeStore) SoftDeleteCategory(_ context.Context, categoryID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.categories {
		if f.categories[i].ID == categoryID {
			f.categories[i].IsDeleted = true
		}
	}
	return nil
}

func (f *fakeStore) ListCategoriesForAccount(_ context.Context, accountID int64) ([]storage.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.listCategoriesErr != nil {
		return nil, f.listCategoriesErr
	}
	var out []storage.Category
	for _, cat := range f.categories {
		if cat.AccountID == accountID && !cat.IsDeleted {
			out = append(out, cat)
		}
	}
	return out, nil
}

func (f *fakeStore) ListGoalTitlesForAccount(_ context.Context, accountID int64) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var titles []string
	for _, goal := range f.goals {
		if goal.AccountID == accountID && goal.Status != storage.GoalStatusArchived {
			titles = append(titles, goal.Title)
		}
	}
	return titles, nil
}

func (f *fakeStore) CreateGoal(_ context.Context, accountID, categoryID int64, title string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.createGoalErr != nil {
		return 0, f.createGoalErr
	}
	goal := storage.Goal{
		ID:         f.id(),
		AccountID:  accountID,
		CategoryID: categoryID,
		Title:      title,
		Status:     storage.GoalStatusTodo,
	}
	f.goals = append(f.goals, goal)
	return goal.ID, nil
}

func (f *fakeStore) UpdateGoalStatus(_ context.Context, goalID int64, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.goals {
		if f.goals[i].ID == goalID {
			f.goals[i].Status = status
			return nil
		}
	}
	return fmt.Errorf("goal %d not found", goalID)
}

func (f *fakeStore) RunMaintenance(context.Context) error { return nil }

// addCategory registers a live category visible to the account.
func (f *fakeStore) addCategory(accountID int64, title string) storage.Category {
	f.mu.Lock()
	defer f.mu.Unlock()
	cat := storage.Category{ID: f.id(), AccountID: accountID, Title: title}
	f.categories = append(f.categories, cat)
	return cat
}

// addLinkedChatUser registers a chat already linked to an account.
func (f *fakeStore) addLinkedChatUser(chatID, accountID int64) *storage.ChatUser {
	f.mu.Lock()
	defer f.mu.Unlock()
	user := &storage.ChatUser{
		ID:        f.id(),
		ChatID:    chatID,
		SenderID:  chatID,
		AccountID: sql.NullInt64{Int64: accountID, Valid: true},
	}
	f.chatUsers[chatID] = user
	copied := *user
	return &copied
}

func (f *fakeStore) goalsSnapshot() []storage.Goal {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]storage.Goal, len(f.goals))
	copy(out, f.goals)
	return out
}

type sentMessage struct {
	ChatID int64
	Text   string
}

// fakeTransport records sends and replays queued update batches. When the
// batches run out it cancels the poller's context so Run returns.
type fakeTransport struct {
	mu sync.Mutex

	sent    []sentMessage
	sendErr error

	batches []fetchBatch
	offsets []int
	cancel  context.CancelFunc
}

type fetchBatch struct {
	updates []telegram.Update
	err     error
}

func (f *fakeTransport) FetchUpdates(ctx context.Context, offset, _ int) ([]telegram.Update, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.offsets = append(f.offsets, offset)
	if len(f.batches) == 0 {
		if f.cancel != nil {
			f.cancel()
		}
		return nil, ctx.Err()
	}
	batch := f.batches[0]
	f.batches = f.batches[1:]
	return batch.updates, batch.err
}

func (f *fakeTransport) SendText(_ context.Context, chatID int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, sentMessage{ChatID: chatID, Text: text})
	return nil
}

func (f *fakeTransport) SendPhoto(_ context.Context, chatID int64, fileID string) error {
	return f.SendText(nil, chatID, "photo:"+fileID)
}

func (f *fakeTransport) sentTexts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.sent))
	for _, m := range f.sent {
		out = append(out, m.Text)
	}
	return out
}

// newTestDeps builds a Deps wired with fakes and default messages.
func newTestDeps(store *fakeStore, transport *fakeTransport) bot.Deps {
	cfg := &config.Config{}
	cfg.Bot.SignupURL = "https://tasktg.example/signup"
	cfg.Bot.LoginURL = "https://tasktg.example/login"
	cfg.Bot.Messages = config.DefaultMessages

	return bot.Deps{
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		Config:    cfg,
		Store:     store,
		Transport: transport,
		Sessions:  session.NewStore(),
	}
}
