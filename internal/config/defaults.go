package config

import (
	"time"

	"github.com/spf13/viper"
)

// Task names recognized by the scheduler registry.
const (
	TaskSessionSweep  = "session_sweep"
	TaskDBMaintenance = "db_maintenance"
)

// Default values for optional configuration parameters.
const (
	DefaultLogLevel = "info"

	DefaultPollTimeout    = 60 * time.Second
	DefaultRequestTimeout = 10 * time.Second

	DefaultDBPath = "tasktg.db"

	DefaultSessionTTL = 24 * time.Hour

	DefaultSessionSweepInterval  = 10 * time.Minute
	DefaultDBMaintenanceInterval = 24 * time.Hour
)

// DefaultMessages are the stock reply texts. The three-message unknown
// command sequence (UnknownCommand, the echoed text, CommandSummary) is
// relied on by clients and must stay a sequence of separate messages.
var DefaultMessages = Messages{
	Welcome: "Welcome to the TaskTG bot!",
	VerifyPrompt: `If you are not registered yet, <a href="{signup_url}">sign up</a>` + "\n" +
		`or <a href="{login_url}">log in</a> and confirm your account.` + "\n" +
		"Enter this code to confirm:\n{code}",
	Linked:         "Account linked successfully!\n\nAvailable commands:\n/goals — list your goals\n/create — create a new goal",
	MustStartSlash: `Commands must start with "/"`,
	UnknownCommand: "Unknown command",
	CommandSummary: "Available commands:\n\n/goals — list your goals\n/create — create a new goal",
	NoGoals:        "You have no goals yet",
	NoCategories:   "You have no categories to create goals in",
	ChooseCategory: "Choose a category for the new goal",
	EnterTitle:     "Enter the goal title\nSend /cancel to abort",
	GoalCreated:    "You created goal - {goal}\nin category - {category}",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.json", true)

	// Registered empty so BOT_* environment overrides bind without a file.
	v.SetDefault("telegram.token", "")
	v.SetDefault("bot.signup_url", "")
	v.SetDefault("bot.login_url", "")

	v.SetDefault("telegram.poll_timeout", DefaultPollTimeout)
	v.SetDefault("telegram.request_timeout", DefaultRequestTimeout)

	v.SetDefault("database.path", DefaultDBPath)

	v.SetDefault("bot.session_ttl", DefaultSessionTTL)

	v.SetDefault("bot.messages.welcome", DefaultMessages.Welcome)
	v.SetDefault("bot.messages.verify_prompt", DefaultMessages.VerifyPrompt)
	v.SetDefault("bot.messages.linked", DefaultMessages.Linked)
	v.SetDefault("bot.messages.must_start_slash", DefaultMessages.MustStartSlash)
	v.SetDefault("bot.messages.unknown_command", DefaultMessages.UnknownCommand)
	v.SetDefault("bot.messages.command_summary", DefaultMessages.CommandSummary)
	v.SetDefault("bot.messages.no_goals", DefaultMessages.NoGoals)
	v.SetDefault("bot.messages.no_categories", DefaultMessages.NoCategories)
	v.SetDefault("bot.messages.choose_category", DefaultMessages.ChooseCategory)
	v.SetDefault("bot.messages.enter_title", DefaultMessages.EnterTitle)
	v.SetDefault("bot.messages.goal_created", DefaultMessages.GoalCreated)

	v.SetDefault("scheduler.tasks."+TaskSessionSweep+".enabled", true)
	v.SetDefault("scheduler.tasks."+TaskSessionSweep+".interval", DefaultSessionSweepInterval)
	v.SetDefault("scheduler.tasks."+TaskDBMaintenance+".enabled", true)
	v.SetDefault("scheduler.tasks."+TaskDBMaintenance+".interval", DefaultDBMaintenanceInterval)
}
