package config

import "time"

// Config is the top-level configuration
type Config struct {
	Providers ProvidersConfig `json:"providers"`
	Agent     AgentConfig     `json:"agent"`
	Timers    TimersConfig    `json:"timers"`
	Schedules SchedulesConfig `json:"schedules"`
	Tools     ToolsConfig     `json:"tools"`
	Channels  ChannelsConfig  `json:"channels"`
	DataDir   string          `json:"dataDir"` // sessions and schedule store
}

// ProvidersConfig holds API keys and settings for LLM providers
type ProvidersConfig struct {
	Anthropic ProviderConfig `json:"anthropic"`
	OpenAI    ProviderConfig `json:"openai"`
	DeepSeek  ProviderConfig `json:"deepseek"`
	Groq      ProviderConfig `json:"groq"`
	Ollama    ProviderConfig `json:"ollama"`
	Custom    ProviderConfig `json:"custom"`
}

type ProviderConfig struct {
	APIKey       string `json:"apiKey"`
	BaseURL      string `json:"baseUrl"`
	DefaultModel string `json:"defaultModel"`
}

// AgentConfig configures the LLM loop that answers chats and timer prompts.
type AgentConfig struct {
	Model             string  `json:"model"`
	MaxTokens         int     `json:"maxTokens"`
	Temperature       float64 `json:"temperature"`
	MaxToolIterations int     `json:"maxToolIterations"`
	SystemPromptFile  string  `json:"systemPromptFile"`
}

// TimersConfig configures the timer core and where its output lands.
type TimersConfig struct {
	PollInterval  string `json:"pollInterval"`  // Go duration, default "5s"
	NotifyChannel string `json:"notifyChannel"` // channel for timer notifications, default "console"
	NotifyChat    string `json:"notifyChat"`    // chat within that channel, may be empty
}

// PollDuration parses PollInterval, returning 0 (use the built-in default)
// when unset or invalid.
func (t TimersConfig) PollDuration() time.Duration {
	if t.PollInterval == "" {
		return 0
	}
	d, err := time.ParseDuration(t.PollInterval)
	if err != nil || d <= 0 {
		return 0
	}
	return d
}

// SchedulesConfig configures the standing-schedule service.
type SchedulesConfig struct {
	StorePath string `json:"storePath"` // defaults to <dataDir>/schedules.json
}

type ToolsConfig struct {
	Enabled  []string `json:"enabled"`
	Disabled []string `json:"disabled"`
}

type ChannelsConfig struct {
	Telegram TelegramConfig `json:"telegram"`
	Discord  DiscordConfig  `json:"discord"`
	Slack    SlackConfig    `json:"slack"`
	Console  ConsoleConfig  `json:"console"`
}

type TelegramConfig struct {
	Token        string   `json:"token"`
	DefaultChat  string   `json:"defaultChat"`
	AllowedUsers []string `json:"allowedUsers"`
}

type DiscordConfig struct {
	Token        string   `json:"token"`
	DefaultChat  string   `json:"defaultChat"`
	AllowedUsers []string `json:"allowedUsers"`
}

type SlackConfig struct {
	BotToken     string   `json:"botToken"`
	AppToken     string   `json:"appToken"`
	DefaultChat  string   `json:"defaultChat"`
	AllowedUsers []string `json:"allowedUsers"`
}

type ConsoleConfig struct {
	Interactive bool `json:"interactive"`
}

// DefaultConfig returns a Config with sensible defaults applied.
func DefaultConfig() *Config {
	return &Config{
		Agent: AgentConfig{
			Model:             "claude-sonnet-4-20250514",
			MaxTokens:         4096,
			Temperature:       0.7,
			MaxToolIterations: 40,
		},
		Timers: TimersConfig{
			PollInterval:  "5s",
			NotifyChannel: "console",
		},
		DataDir: "~/.tickbot",
	}
}
