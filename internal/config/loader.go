package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Load loads config from the default path (~/.tickbot/config.json).
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}
	return LoadFromFile(filepath.Join(home, ".tickbot", "config.json"))
}

// LoadFromFile loads config from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file %s: %w", path, err)
	}
	defer f.Close()
	return LoadFromReader(f)
}

// LoadFromReader loads config from an io.Reader, applying defaults and env overrides.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := DefaultConfig()

	if err := json.NewDecoder(r).Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyEnvOverrides(cfg)
	normalize(cfg)

	return cfg, nil
}

// applyEnvOverrides applies TICKBOT_-prefixed environment variable overrides.
func applyEnvOverrides(cfg *Config) {
	envMap := map[string]*string{
		"TICKBOT_PROVIDERS_ANTHROPIC_APIKEY": &cfg.Providers.Anthropic.APIKey,
		"TICKBOT_PROVIDERS_OPENAI_APIKEY":    &cfg.Providers.OpenAI.APIKey,
		"TICKBOT_PROVIDERS_DEEPSEEK_APIKEY":  &cfg.Providers.DeepSeek.APIKey,
		"TICKBOT_PROVIDERS_GROQ_APIKEY":      &cfg.Providers.Groq.APIKey,
		"TICKBOT_PROVIDERS_CUSTOM_APIKEY":    &cfg.Providers.Custom.APIKey,
		"TICKBOT_AGENT_MODEL":                &cfg.Agent.Model,
		"TICKBOT_TIMERS_POLL_INTERVAL":       &cfg.Timers.PollInterval,
		"TICKBOT_TIMERS_NOTIFY_CHANNEL":      &cfg.Timers.NotifyChannel,
		"TICKBOT_TIMERS_NOTIFY_CHAT":         &cfg.Timers.NotifyChat,
		"TICKBOT_DATA_DIR":                   &cfg.DataDir,
	}

	for env, ptr := range envMap {
		if val := os.Getenv(env); val != "" {
			*ptr = val
		}
	}
}

// normalize expands a leading ~ in DataDir and fills derived defaults.
func normalize(cfg *Config) {
	dir := cfg.DataDir
	if len(dir) >= 2 && dir[0] == '~' && dir[1] == '/' {
		home, err := os.UserHomeDir()
		if err == nil {
			dir = filepath.Join(home, dir[2:])
			cfg.DataDir = dir
		}
	}
	if cfg.Schedules.StorePath == "" {
		cfg.Schedules.StorePath = filepath.Join(cfg.DataDir, "schedules.json")
	}
}
