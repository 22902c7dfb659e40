// Package config loads service settings from YAML with env-var overrides
// for secrets and deployment-specific values.
package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const configPathEnv = "DISPATCH_CONFIG"

// Config holds high-level settings required across the application.
type Config struct {
	Server        ServerConfig       `yaml:"server"`
	Database      DatabaseConfig     `yaml:"database"`
	Engine        EngineConfig       `yaml:"engine"`
	Agents        AgentConfig        `yaml:"agents"`
	Notifications NotificationConfig `yaml:"notifications"`
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr          string `yaml:"addr"`
	AllowedOrigin string `yaml:"allowedOrigin"`
}

// DatabaseConfig selects the SQL driver and connection string.
// Driver is "sqlite3" or "postgres".
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// EngineConfig carries the allocation-loop tunables. The delays are upper
// bounds: an enqueue wakes an idle engine early.
type EngineConfig struct {
	Disabled       bool     `yaml:"disabled"`
	IdlePoll       Duration `yaml:"idlePoll"`
	Cooldown       Duration `yaml:"cooldown"`
	Yield          Duration `yaml:"yield"`
	RequeuePenalty int      `yaml:"requeuePenalty"`
	SweepSchedule  string   `yaml:"sweepSchedule"`
}

// AgentConfig selects the classification backend. Provider is "mock" or
// "anthropic".
type AgentConfig struct {
	Provider        string `yaml:"provider"`
	Model           string `yaml:"model"`
	AnthropicAPIKey string `yaml:"anthropicApiKey"`
}

// NotificationConfig selects the push provider. Provider is "pushover",
// "slack", or "none".
type NotificationConfig struct {
	Provider string         `yaml:"provider"`
	Pushover PushoverConfig `yaml:"pushover"`
	Slack    SlackConfig    `yaml:"slack"`
}

// PushoverConfig wires the Pushover application token.
type PushoverConfig struct {
	Token string `yaml:"token"`
}

// SlackConfig wires the bot token and fallback channel.
type SlackConfig struct {
	Token   string `yaml:"token"`
	Channel string `yaml:"channel"`
}

// Duration wraps time.Duration so YAML values can be written as "500ms".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	d.Duration = parsed
	return nil
}

// Load reads the YAML config (path from DISPATCH_CONFIG, default
// config.yaml), applies env overrides, and fills defaults. A missing file
// is not an error; defaults apply.
func Load() Config {
	var cfg Config

	configPath := "config.yaml"
	if envPath := os.Getenv(configPathEnv); envPath != "" {
		configPath = envPath
	}
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			log.Fatalf("Error parsing %s: %v", configPath, err)
		}
		log.Printf("Loaded config from %s", configPath)
	}

	envOverride(&cfg.Server.Addr, "DISPATCH_ADDR")
	envOverride(&cfg.Server.AllowedOrigin, "DISPATCH_ALLOWED_ORIGIN")
	envOverride(&cfg.Database.Driver, "DATABASE_DRIVER")
	envOverride(&cfg.Database.DSN, "DATABASE_DSN")
	envOverride(&cfg.Agents.Provider, "AGENT_PROVIDER")
	envOverride(&cfg.Agents.Model, "AGENT_MODEL")
	envOverride(&cfg.Agents.AnthropicAPIKey, "ANTHROPIC_API_KEY")
	envOverride(&cfg.Notifications.Provider, "NOTIFY_PROVIDER")
	envOverride(&cfg.Notifications.Pushover.Token, "PUSHOVER_TOKEN")
	envOverride(&cfg.Notifications.Slack.Token, "SLACK_BOT_TOKEN")
	envOverride(&cfg.Notifications.Slack.Channel, "SLACK_CHANNEL_ID")

	applyDefaults(&cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Server.AllowedOrigin == "" {
		cfg.Server.AllowedOrigin = "http://localhost:4200"
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite3"
	}
	if cfg.Database.DSN == "" {
		cfg.Database.DSN = "data/hms.db"
	}
	if cfg.Engine.IdlePoll.Duration == 0 {
		cfg.Engine.IdlePoll.Duration = 500 * time.Millisecond
	}
	if cfg.Engine.Cooldown.Duration == 0 {
		cfg.Engine.Cooldown.Duration = 2 * time.Second
	}
	if cfg.Engine.Yield.Duration == 0 {
		cfg.Engine.Yield.Duration = 300 * time.Millisecond
	}
	if cfg.Engine.RequeuePenalty == 0 {
		cfg.Engine.RequeuePenalty = 5
	}
	if cfg.Engine.SweepSchedule == "" {
		cfg.Engine.SweepSchedule = "@every 1m"
	}
	if cfg.Agents.Provider == "" {
		cfg.Agents.Provider = "mock"
	}
	if cfg.Notifications.Provider == "" {
		cfg.Notifications.Provider = "none"
	}
}

func envOverride(target *string, key string) {
	if val := os.Getenv(key); val != "" {
		*target = val
	}
}
