package storage

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
)

// Sentinel errors surfaced at the registry boundary.
var (
	// ErrCodeNotFound is returned when a verification code does not match any chat user.
	ErrCodeNotFound = errors.New("verification code not found")

	// ErrAlreadyLinked is returned when the chat user behind a code is already linked to an account.
	ErrAlreadyLinked = errors.New("chat user already linked to an account")
)

// Store defines the interface for goals-registry database operations.
// Methods accept context.Context for cancellation and timeouts.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// GetOrCreateChatUser looks up the chat user for chatID, creating a record
	// seeded with senderID when none exists. The second return value reports
	// whether a new record was created.
	GetOrCreateChatUser(ctx context.Context, chatID, senderID int64) (*ChatUser, bool, error)

	// RotateVerificationCode generates, persists, and returns a fresh
	// verification code for the chat user.
	RotateVerificationCode(ctx context.Context, chatUserID int64) (string, error)

	// LinkAccount links the chat user holding the verification code to the
	// account. A chat user is linked at most once; re-linking returns
	// ErrAlreadyLinked and an unknown code returns ErrCodeNotFound.
	LinkAccount(ctx context.Context, code string, accountID int64) (*ChatUser, error)

	// CreateAccount inserts a new account and returns its ID.
	CreateAccount(ctx context.Context, username string) (int64, error)

	// CreateBoard inserts a new board and registers ownerID as its owner participant.
	CreateBoard(ctx context.Context, title string, ownerID int64) (int64, error)

	// AddBoardParticipant attaches an account to a board with the given role.
	AddBoardParticipant(ctx context.Context, boardID, accountID int64, role string) error

	// CreateCategory inserts a new category on a board.
	CreateCategory(ctx context.Context, boardID, accountID int64, title string) (int64, error)

	// SoftDeleteCategory marks a category as deleted without removing rows.
	SoftDeleteCategory(ctx context.Context, categoryID int64) error

	// ListCategoriesForAccount returns the non-deleted categories across all
	// boards the account participates in.
	ListCategoriesForAccount(ctx context.Context, accountID int64) ([]Category, error)

	// ListGoalTitlesForAccount returns titles of the account's goals that are
	// not archived and whose category is not deleted.
	ListGoalTitlesForAccount(ctx context.Context, accountID int64) ([]string, error)

	// CreateGoal inserts a new goal owned by the account in the category.
	// Duplicate titles are allowed.
	CreateGoal(ctx context.Context, accountID, categoryID int64, title string) (int64, error)

	// UpdateGoalStatus sets the status of a goal.
	UpdateGoalStatus(ctx context.Context, goalID int64, status string) error

	// RunMaintenance performs database maintenance tasks like VACUUM.
	RunMaintenance(ctx context.Context) error
}

// sqlxStore provides an implementation of the Store interface using sqlx.
type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a new Store implementation backed by sqlx.
// It requires a connected sqlx.DB instance and a logger.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "store"),
	}
}

// Ping checks the database connection.
func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *sqlxStore) GetOrCreateChatUser(ctx context.Context, chatID, senderID int64) (*ChatUser, bool, error) {
	now := time.Now().UTC()

	// Upsert keeps the get-or-create atomic: concurrent first contacts for
	// the same chat cannot produce duplicate records.
	res, err := s.db.ExecContext(ctx, `
        INSERT INTO chat_users (chat_id, sender_id, created_at, updated_at)
        VALUES (?, ?, ?, ?)
        ON CONFLICT (chat_id) DO NOTHING;
    `, chatID, senderID, now, now)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error upserting chat user", "chat_id", chatID, "error", err)
		return nil, false, fmt.Errorf("failed to upsert chat user (chat %d): %w", chatID, err)
	}

	inserted, err := res.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("failed to read rows affected for chat user upsert: %w", err)
	}

	var user ChatUser
	if err := s.db.GetContext(ctx, &user, `SELECT * FROM chat_users WHERE chat_id = ?;`, chatID); err != nil {
		s.logger.ErrorContext(ctx, "Error fetching chat user after upsert", "chat_id", chatID, "error", err)
		return nil, false, fmt.Errorf("failed to fetch chat user (chat %d): %w", chatID, err)
	}

	return &user, inserted > 0, nil
}

func (s *sqlxStore) RotateVerificationCode(ctx context.Context, chatUserID int64) (string, error) {
	code, err := generateVerificationCode()
	if err != nil {
		return "", fmt.Errorf("failed to generate verification code: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
        UPDATE chat_users SET verification_code = ?, updated_at = ? WHERE id = ?;
    `, code, time.Now().UTC(), chatUserID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error storing verification code", "chat_user_id", chatUserID, "error", err)
		return "", fmt.Errorf("failed to store verification code (chat user %d): %w", chatUserID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return "", fmt.Errorf("chat user %d not found", chatUserID)
	}

	return code, nil
}

func (s *sqlxStore) LinkAccount(ctx context.Context, code string, accountID int64) (*ChatUser, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
			s.logger.WarnContext(ctx, "Error rolling back transaction", "error", rollbackErr)
		}
	}()

	var user ChatUser
	err = tx.GetContext(ctx, &user, `SELECT * FROM chat_users WHERE verification_code = ?;`, code)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCodeNotFound
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "Error looking up verification code", "error", err)
		return nil, fmt.Errorf("failed to look up verification code: %w", err)
	}
	if user.Linked() {
		return nil, ErrAlreadyLinked
	}

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx, `
        UPDATE chat_users SET account_id = ?, updated_at = ? WHERE id = ?;
    `, accountID, now, user.ID); err != nil {
		s.logger.ErrorContext(ctx, "Error linking account", "chat_user_id", user.ID, "account_id", accountID, "error", err)
		return nil, fmt.Errorf("failed to link account %d to chat user %d: %w", accountID, user.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit account link: %w", err)
	}

	user.AccountID = sql.NullInt64{Int64: accountID, Valid: true}
	user.UpdatedAt = now
	s.logger.InfoContext(ctx, "Linked chat user to account", "chat_user_id", user.ID, "account_id", accountID)
	return &user, nil
}

func (s *sqlxStore) CreateAccount(ctx context.Context, username string) (int64, error) {
	if username == "" {
		return 0, fmt.Errorf("account must have a non-empty username")
	}

	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
        INSERT INTO accounts (username, created_at, updated_at) VALUES (?, ?, ?);
    `, username, now, now)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error creating account", "username", username, "error", err)
		return 0, fmt.Errorf("failed to create account %q: %w", username, err)
	}

	return res.LastInsertId()
}

func (s *sqlxStore) CreateBoard(ctx context.Context, title string, ownerID int64) (int64, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
			s.logger.WarnContext(ctx, "Error rolling back transaction", "error", rollbackErr)
		}
	}()

	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx, `
        INSERT INTO boards (title, is_deleted, created_at, updated_at) VALUES (?, 0, ?, ?);
    `, title, now, now)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error creating board", "title", title, "error", err)
		return 0, fmt.Errorf("failed to create board %q: %w", title, err)
	}

	boardID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read board id: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
        INSERT INTO board_participants (board_id, account_id, role, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?);
    `, boardID, ownerID, RoleOwner, now, now); err != nil {
		s.logger.ErrorContext(ctx, "Error adding board owner", "board_id", boardID, "account_id", ownerID, "error", err)
		return 0, fmt.Errorf("failed to add owner to board %d: %w", boardID, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit board creation: %w", err)
	}

	return boardID, nil
}

func (s *sqlxStore) AddBoardParticipant(ctx context.Context, boardID, accountID int64, role string) error {
	now := time.Now().UTC()
	if _, err := s.db.ExecContext(ctx, `
        INSERT INTO board_participants (board_id, account_id, role, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?);
    `, boardID, accountID, role, now, now); err != nil {
		s.logger.ErrorContext(ctx, "Error adding board participant",
			"board_id", boardID, "account_id", accountID, "role", role, "error", err)
		return fmt.Errorf("failed to add participant %d to board %d: %w", accountID, boardID, err)
	}
	return nil
}

func (s *sqlxStore) CreateCategory(ctx context.Context, boardID, accountID int64, title string) (int64, error) {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
        INSERT INTO categories (board_id, account_id, title, is_deleted, created_at, updated_at)
        VALUES (?, ?, ?, 0, ?, ?);
    `, boardID, accountID, title, now, now)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error creating category", "board_id", boardID, "title", title, "error", err)
		return 0, fmt.Errorf("failed to create category %q on board %d: %w", title, boardID, err)
	}

	return res.LastInsertId()
}

func (s *sqlxStore) SoftDeleteCategory(ctx context.Context, categoryID int64) error {
	if _, err := s.db.ExecContext(ctx, `
        UPDATE categories SET is_deleted = 1, updated_at = ? WHERE id = ?;
    `, time.Now().UTC(), categoryID); err != nil {
		s.logger.ErrorContext(ctx, "Error soft-deleting category", "category_id", categoryID, "error", err)
		return fmt.Errorf("failed to soft-delete category %d: %w", categoryID, err)
	}
	return nil
}

func (s *sqlxStore) ListCategoriesForAccount(ctx context.Context, accountID int64) ([]Category, error) {
	var categories []Category
	err := s.db.SelectContext(ctx, &categories, `
        SELECT c.*
        FROM categories c
        JOIN board_participants bp ON bp.board_id = c.board_id
        WHERE bp.account_id = ? AND c.is_deleted = 0
        ORDER BY c.id;
    `, accountID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error listing categories", "account_id", accountID, "error", err)
		return nil, fmt.Errorf("failed to list categories for account %d: %w", accountID, err)
	}

	return categories, nil
}

func (s *sqlxStore) ListGoalTitlesForAccount(ctx context.Context, accountID int64) ([]string, error) {
	var titles []string
	err := s.db.SelectContext(ctx, &titles, `
        SELECT g.title
        FROM goals g
        JOIN categories c ON c.id = g.category_id
        WHERE g.account_id = ? AND g.status != ? AND c.is_deleted = 0
        ORDER BY g.id;
    `, accountID, GoalStatusArchived)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error listing goals", "account_id", accountID, "error", err)
		return nil, fmt.Errorf("failed to list goals for account %d: %w", accountID, err)
	}

	return titles, nil
}

func (s *sqlxStore) CreateGoal(ctx context.Context, accountID, categoryID int64, title string) (int64, error) {
	if title == "" {
		return 0, fmt.Errorf("goal must have a non-empty title")
	}

	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
        INSERT INTO goals (category_id, account_id, title, status, priority, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?);
    `, categoryID, accountID, title, GoalStatusTodo, GoalPriorityMedium, now, now)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error creating goal",
			"account_id", accountID, "category_id", categoryID, "error", err)
		return 0, fmt.Errorf("failed to create goal in category %d: %w", categoryID, err)
	}

	return res.LastInsertId()
}

func (s *sqlxStore) UpdateGoalStatus(ctx context.Context, goalID int64, status string) error {
	res, err := s.db.ExecContext(ctx, `
        UPDATE goals SET status = ?, updated_at = ? WHERE id = ?;
    `, status, time.Now().UTC(), goalID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error updating goal status", "goal_id", goalID, "status", status, "error", err)
		return fmt.Errorf("failed to update status of goal %d: %w", goalID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("goal %d not found", goalID)
	}
	return nil
}

// RunMaintenance performs database maintenance (VACUUM and ANALYZE).
func (s *sqlxStore) RunMaintenance(ctx context.Context) error {
	s.logger.InfoContext(ctx, "Running database maintenance")

	if _, err := s.db.ExecContext(ctx, "VACUUM;"); err != nil {
		return fmt.Errorf("failed to vacuum database: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "ANALYZE;"); err != nil {
		return fmt.Errorf("failed to analyze database: %w", err)
	}

	return nil
}

// generateVerificationCode returns 5 random bytes as 10 lowercase hex characters.
func generateVerificationCode() (string, error) {
	buf := make([]byte, 5)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
