package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config is the full taskbridge configuration, loaded from a YAML file
// and environment variables.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Jira     JiraConfig     `mapstructure:"jira"`
	Model    ModelConfig    `mapstructure:"model"`
	Calendar CalendarConfig `mapstructure:"calendar"`
	History  HistoryConfig  `mapstructure:"history"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// JiraConfig contains Jira Cloud connection settings.
type JiraConfig struct {
	BaseURL        string  `mapstructure:"base_url"`
	Email          string  `mapstructure:"email"`
	APIToken       string  `mapstructure:"api_token"`
	DefaultProject string  `mapstructure:"default_project"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
	RPS            float64 `mapstructure:"rps"`
}

// ModelConfig contains Anthropic API settings.
type ModelConfig struct {
	APIKey string `mapstructure:"api_key"`
	Name   string `mapstructure:"name"`
}

// CalendarConfig contains Google Calendar settings for the transcript
// action flow.
type CalendarConfig struct {
	CredentialsFile string `mapstructure:"credentials_file"`
	TokenFile       string `mapstructure:"token_file"`
	CalendarID      string `mapstructure:"calendar_id"`
	Timezone        string `mapstructure:"timezone"`
}

// HistoryConfig contains the creation-history database settings.
type HistoryConfig struct {
	Path string `mapstructure:"path"`
}

// envAliases maps config keys to the bare environment variables the
// service has always honored, alongside the TASKBRIDGE_-prefixed forms.
var envAliases = map[string]string{
	"server.host":    "APP_HOST",
	"server.port":    "APP_PORT",
	"jira.base_url":  "JIRA_BASE_URL",
	"jira.email":     "JIRA_EMAIL",
	"jira.api_token": "JIRA_API_TOKEN",
	"model.api_key":  "ANTHROPIC_API_KEY",
	"model.name":     "ANTHROPIC_MODEL",
}

// Load unmarshals the configuration viper has accumulated from the
// config file, flags, and environment, then fills in defaults.
func Load() (*Config, error) {
	for key, env := range envAliases {
		if err := viper.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	applyDefaults(cfg)
	return cfg, nil
}

// applyDefaults sets default values for unset fields.
func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8000
	}

	if cfg.Jira.DefaultProject == "" {
		cfg.Jira.DefaultProject = "PROJ"
	}
	if cfg.Jira.TimeoutSeconds == 0 {
		cfg.Jira.TimeoutSeconds = 30
	}
	if cfg.Jira.RPS == 0 {
		cfg.Jira.RPS = 5
	}

	if cfg.Calendar.CredentialsFile == "" {
		cfg.Calendar.CredentialsFile = "credentials.json"
	}
	if cfg.Calendar.TokenFile == "" {
		cfg.Calendar.TokenFile = "token.json"
	}
	if cfg.Calendar.CalendarID == "" {
		cfg.Calendar.CalendarID = "primary"
	}
	if cfg.Calendar.Timezone == "" {
		cfg.Calendar.Timezone = "Asia/Almaty"
	}

	if cfg.History.Path == "" {
		cfg.History.Path = "taskbridge.db"
	}
}

// Validate checks settings every command depends on.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Jira.TimeoutSeconds < 1 {
		return fmt.Errorf("invalid jira timeout: %d", c.Jira.TimeoutSeconds)
	}
	if c.Jira.RPS <= 0 {
		return fmt.Errorf("invalid jira rps: %v", c.Jira.RPS)
	}
	return nil
}

// ValidateForJira performs the additional validation required before
// talking to Jira.
func (c *Config) ValidateForJira() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Jira.BaseURL == "" {
		return fmt.Errorf("jira base URL is required (set JIRA_BASE_URL)")
	}
	if c.Jira.Email == "" {
		return fmt.Errorf("jira email is required (set JIRA_EMAIL)")
	}
	if c.Jira.APIToken == "" {
		return fmt.Errorf("jira API token is required (set JIRA_API_TOKEN)")
	}
	return nil
}

// ValidateForCalendar performs the additional validation required before
// inserting calendar events.
func (c *Config) ValidateForCalendar() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Calendar.CredentialsFile == "" {
		return fmt.Errorf("calendar credentials file is required")
	}
	if _, err := time.LoadLocation(c.Calendar.Timezone); err != nil {
		return fmt.Errorf("invalid calendar timezone %q: %w", c.Calendar.Timezone, err)
	}
	return nil
}

// JiraTimeout returns the Jira client timeout as a duration.
func (c *Config) JiraTimeout() time.Duration {
	return time.Duration(c.Jira.TimeoutSeconds) * time.Second
}
