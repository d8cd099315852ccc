// Package config loads the application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Telegram struct {
		BotToken   string `yaml:"bot_token"`
		ChatID     string `yaml:"chat_id"`
		ReportCron string `yaml:"report_cron"`
	} `yaml:"telegram"`
	Database struct {
		SQLitePath   string `yaml:"sqlite_path"`
		Recorder     string `yaml:"recorder"` // sqlite, postgres or none
		RecorderPath string `yaml:"recorder_path"`
		PostgresDSN  string `yaml:"postgres_dsn"`
	} `yaml:"database"`
	Redis struct {
		Addr     string        `yaml:"addr"`
		Password string        `yaml:"password"`
		DB       int           `yaml:"db"`
		TTL      time.Duration `yaml:"ttl"`
	} `yaml:"redis"`
	Agent struct {
		Tick               time.Duration `yaml:"tick"`
		Seed               uint64        `yaml:"seed"`
		StateFile          string        `yaml:"state_file"`
		CatalogFile        string        `yaml:"catalog_file"`
		TwoSideInteraction bool          `yaml:"two_side_interaction"`
		RunOnStart         bool          `yaml:"run_on_start"`
		Identity           struct {
			ID      uint32 `yaml:"id"`
			Account uint32 `yaml:"account"`
			Name    string `yaml:"name"`
		} `yaml:"identity"`
		Family           []uint32    `yaml:"family"`
		DisabledItems    []uint32    `yaml:"disabled_items"`
		PriceBands       []PriceBand `yaml:"price_bands"`
		SelectionRetries int         `yaml:"selection_retries"`
	} `yaml:"agent"`
	Segments map[string]yaml.Node `yaml:"segments"`
	Proxy    string               `yaml:"proxy"`
}

// PriceBand pins a list of items to a hand-tuned per-unit price range.
type PriceBand struct {
	Min   uint64   `yaml:"min"`
	Max   uint64   `yaml:"max"`
	Items []uint32 `yaml:"items"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		cfg.Database.PostgresDSN = v
		if cfg.Database.Recorder == "" {
			cfg.Database.Recorder = "postgres"
		}
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("AHBOT_TICK"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("AHBOT_TICK: %w", err)
		}
		cfg.Agent.Tick = d
	}
	if v := os.Getenv("AHBOT_SEED"); v != "" {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("AHBOT_SEED: %w", err)
		}
		cfg.Agent.Seed = seed
	}
	if os.Getenv("RUN_ON_START") == "true" {
		cfg.Agent.RunOnStart = true
	}

	// Defaults
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "data/ahbot.db"
	}
	if cfg.Database.Recorder == "" {
		cfg.Database.Recorder = "sqlite"
	}
	if cfg.Database.RecorderPath == "" {
		cfg.Database.RecorderPath = "data/ahbot_history.db"
	}
	if cfg.Redis.TTL == 0 {
		cfg.Redis.TTL = 7 * 24 * time.Hour
	}
	if cfg.Agent.Tick == 0 {
		cfg.Agent.Tick = time.Minute
	}
	if cfg.Agent.StateFile == "" {
		cfg.Agent.StateFile = "data/agent_state.json"
	}
	if cfg.Agent.Identity.Name == "" {
		cfg.Agent.Identity.Name = "AuctionHouseBot"
	}
	if cfg.Agent.SelectionRetries == 0 {
		cfg.Agent.SelectionRetries = 3
	}
	if cfg.Telegram.ReportCron == "" {
		cfg.Telegram.ReportCron = "0 0 9 * * *"
	}
	if len(cfg.Segments) == 0 {
		cfg.Segments = map[string]yaml.Node{}
		for _, name := range []string{"alliance", "horde", "neutral"} {
			cfg.Segments[name] = yaml.Node{}
		}
	}

	return cfg, nil
}

// TelegramEnabled reports whether both bot token and chat id are set.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	if c.Agent.Identity.ID == 0 {
		return fmt.Errorf("agent.identity.id is required")
	}
	if c.Agent.Tick < time.Second {
		return fmt.Errorf("agent.tick must be at least 1s, got %s", c.Agent.Tick)
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	switch c.Database.Recorder {
	case "sqlite", "none":
	case "postgres":
		if c.Database.PostgresDSN == "" {
			return fmt.Errorf("database.postgres_dsn is required for the postgres recorder")
		}
	default:
		return fmt.Errorf("unknown database.recorder %q", c.Database.Recorder)
	}
	for _, b := range c.Agent.PriceBands {
		if b.Min == 0 || b.Min > b.Max {
			return fmt.Errorf("price band %d-%d is invalid", b.Min, b.Max)
		}
	}
	for _, fid := range c.Agent.Family {
		if fid == c.Agent.Identity.ID {
			return fmt.Errorf("agent.family must not contain the agent's own id")
		}
	}
	for name := range c.Segments {
		if name != strings.ToLower(name) || strings.ContainsAny(name, " \t") {
			return fmt.Errorf("segment name %q must be lowercase without spaces", name)
		}
	}
	if _, err := c.MarketConfigs(); err != nil {
		return err
	}
	return nil
}
