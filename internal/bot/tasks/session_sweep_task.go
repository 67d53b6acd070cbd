package tasks

import (
	"context"
)

// newSessionSweepTask creates the scheduled task that evicts goal-creation
// sessions abandoned for longer than the configured TTL. Without the sweep,
// a user who picks a category and never sends a title would pin a session
// forever.
func newSessionSweepTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "session_sweep")
	ttl := deps.Config.Bot.SessionTTL

	return func(ctx context.Context) error {
		evicted := deps.Sessions.Sweep(ttl)
		if evicted > 0 {
			log.InfoContext(ctx, "Evicted stale goal-creation sessions",
				"evicted", evicted, "ttl", ttl)
		}
		return nil
	}
}
