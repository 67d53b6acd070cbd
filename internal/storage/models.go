package storage

import (
	"database/sql"
	"time"
)

// Goal status values. Archived goals are hidden from bot listings.
const (
	GoalStatusTodo       = "todo"
	GoalStatusInProgress = "in_progress"
	GoalStatusDone       = "done"
	GoalStatusArchived   = "archived"
)

// Goal priority values.
const (
	GoalPriorityLow      = "low"
	GoalPriorityMedium   = "medium"
	GoalPriorityHigh     = "high"
	GoalPriorityCritical = "critical"
)

// Board participant roles.
const (
	RoleOwner  = "owner"
	RoleWriter = "writer"
	RoleReader = "reader"
)

// Account is the authenticated user entity in the goals registry,
// distinct from a chat identity until linked.
type Account struct {
	ID        int64     `db:"id"`
	Username  string    `db:"username"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// ChatUser is the persistent record for a Telegram chat that has contacted
// the bot. AccountID stays NULL until the verification code is entered on
// the account side; once set it is never changed by the bot.
type ChatUser struct {
	ID        int64     `db:"id"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`

	ChatID           int64          `db:"chat_id"`
	SenderID         int64          `db:"sender_id"`
	VerificationCode sql.NullString `db:"verification_code"`
	AccountID        sql.NullInt64  `db:"account_id"`
}

// Linked reports whether the chat identity has been linked to an account.
func (u *ChatUser) Linked() bool {
	return u.AccountID.Valid
}

// Board groups categories and is shared with participants by role.
type Board struct {
	ID        int64     `db:"id"`
	Title     string    `db:"title"`
	IsDeleted bool      `db:"is_deleted"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// BoardParticipant attaches an account to a board with a role.
type BoardParticipant struct {
	ID        int64     `db:"id"`
	BoardID   int64     `db:"board_id"`
	AccountID int64     `db:"account_id"`
	Role      string    `db:"role"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Category belongs to a board and is soft-deleted, never removed.
type Category struct {
	ID        int64     `db:"id"`
	BoardID   int64     `db:"board_id"`
	AccountID int64     `db:"account_id"`
	Title     string    `db:"title"`
	IsDeleted bool      `db:"is_deleted"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Goal belongs to a category and is owned by an account. The bot only ever
// sets title and category; the remaining fields belong to the wider registry.
type Goal struct {
	ID        int64     `db:"id"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`

	CategoryID  int64        `db:"category_id"`
	AccountID   int64        `db:"account_id"`
	Title       string       `db:"title"`
	Description string       `db:"description"`
	Status      string       `db:"status"`
	Priority    string       `db:"priority"`
	DueDate     sql.NullTime `db:"due_date"`
}
