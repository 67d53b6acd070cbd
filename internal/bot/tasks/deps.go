// Package tasks implements scheduled background tasks for the TaskTG bot:
// goal-creation session expiry and database maintenance.
package tasks

import (
	"log/slog"

	"github.com/ivolkov/tasktg/internal/config"
	"github.com/ivolkov/tasktg/internal/session"
	"github.com/ivolkov/tasktg/internal/storage"
)

// TaskDeps contains all dependencies required by scheduled tasks.
type TaskDeps struct {
	Logger   *slog.Logger
	Store    storage.Store
	Sessions *session.Store
	Config   *config.Config
}
