// Package config provides configuration loading, validation, and management
// for the TaskTG bot. It handles defaults, an optional YAML file, and
// BOT_-prefixed environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config defines the application configuration parameters for all
// components of the bot: logging, the Telegram transport, the goals
// registry database, dialog behavior, and scheduled tasks.
type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Bot       BotConfig       `mapstructure:"bot"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

// LogConfig controls structured logging output.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// TelegramConfig holds transport settings.
type TelegramConfig struct {
	Token          string        `mapstructure:"token"           validate:"required"`
	PollTimeout    time.Duration `mapstructure:"poll_timeout"    validate:"min=1s,max=5m"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" validate:"min=1s,max=1m"`
}

// DatabaseConfig holds SQLite settings.
type DatabaseConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// BotConfig holds dialog behavior and user-facing reply texts.
type BotConfig struct {
	SignupURL  string        `mapstructure:"signup_url"  validate:"required,url"`
	LoginURL   string        `mapstructure:"login_url"   validate:"required,url"`
	SessionTTL time.Duration `mapstructure:"session_ttl" validate:"min=1m"`

	Messages Messages `mapstructure:"messages"`
}

// Messages are the bot's reply texts. The verify prompt supports the
// {signup_url}, {login_url}, and {code} placeholders; goal confirmation
// supports {goal} and {category}.
type Messages struct {
	Welcome        string `mapstructure:"welcome"          validate:"required"`
	VerifyPrompt   string `mapstructure:"verify_prompt"    validate:"required"`
	Linked         string `mapstructure:"linked"           validate:"required"`
	MustStartSlash string `mapstructure:"must_start_slash" validate:"required"`
	UnknownCommand string `mapstructure:"unknown_command"  validate:"required"`
	CommandSummary string `mapstructure:"command_summary"  validate:"required"`
	NoGoals        string `mapstructure:"no_goals"         validate:"required"`
	NoCategories   string `mapstructure:"no_categories"    validate:"required"`
	ChooseCategory string `mapstructure:"choose_category"  validate:"required"`
	EnterTitle     string `mapstructure:"enter_title"      validate:"required"`
	GoalCreated    string `mapstructure:"goal_created"     validate:"required"`
}

// SchedulerConfig holds settings for background tasks keyed by task name.
type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks"`
}

// TaskConfig enables a scheduled task and sets its run interval.
type TaskConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval" validate:"omitempty,min=1m"`
}

// Load loads and validates configuration from:
//  1. Default values
//  2. The YAML file at path (missing file is not an error)
//  3. BOT_* environment variables
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetEnvPrefix("BOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		// Config file not found is okay, defaults and env cover it.
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}
