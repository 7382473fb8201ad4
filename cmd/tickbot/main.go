package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/coopco/tickbot/internal/agent"
	"github.com/coopco/tickbot/internal/bus"
	"github.com/coopco/tickbot/internal/channels"
	"github.com/coopco/tickbot/internal/config"
	"github.com/coopco/tickbot/internal/providers"
	"github.com/coopco/tickbot/internal/schedule"
	"github.com/coopco/tickbot/internal/session"
	"github.com/coopco/tickbot/internal/timer"
	"github.com/coopco/tickbot/internal/tools"
)

var (
	configPath string
	verbose    bool
)

func main() {
	root := &cobra.Command{
		Use:   "tickbot",
		Short: "An LLM assistant with timers, reminders, and standing schedules",
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path (default ~/.tickbot/config.json)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(newRunCmd(), newChatCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFromFile(configPath)
	}
	return config.Load()
}

// buildProvider picks a provider from config, inferring it from the
// configured model name.
func buildProvider(cfg *config.Config) (providers.Provider, string, error) {
	model := cfg.Agent.Model
	spec := providers.FindByModel(model)
	if spec == nil {
		return nil, "", fmt.Errorf("cannot infer provider for model %q", model)
	}

	pc := providerConfigFor(cfg, spec.Name)
	p, err := providers.New(spec.Name, pc.APIKey, pc.BaseURL, pc.DefaultModel)
	if err != nil {
		return nil, "", err
	}
	return p, model, nil
}

func providerConfigFor(cfg *config.Config, name string) config.ProviderConfig {
	switch name {
	case "anthropic":
		return cfg.Providers.Anthropic
	case "openai":
		return cfg.Providers.OpenAI
	case "deepseek":
		return cfg.Providers.DeepSeek
	case "groq":
		return cfg.Providers.Groq
	case "ollama":
		return cfg.Providers.Ollama
	default:
		return cfg.Providers.Custom
	}
}

// buildCore wires the bus, sessions, tools, agent loop, and timer service.
func buildCore(cfg *config.Config) (*bus.MessageBus, *agent.AgentLoop, *timer.Service, *tools.Registry, error) {
	provider, model, err := buildProvider(cfg)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	msgBus := bus.NewMessageBus(100)
	sessions := session.NewManager(filepath.Join(cfg.DataDir, "sessions"))

	timerSvc := timer.NewService(timer.Config{PollInterval: cfg.Timers.PollDuration()})

	reg := tools.NewRegistry()
	reg.Register(tools.NewManageTimerTool(timerSvc))
	reg.Register(tools.NewSendMessageTool(msgBus))
	reg.Register(tools.NewRunShellTool())
	applyToolFilter(reg, cfg.Tools)

	systemPrompt := ""
	if cfg.Agent.SystemPromptFile != "" {
		data, err := os.ReadFile(cfg.Agent.SystemPromptFile)
		if err != nil {
			return nil, nil, nil, nil, fmt.Errorf("failed to read system prompt: %w", err)
		}
		systemPrompt = string(data)
	}

	loop := agent.NewAgentLoop(agent.AgentLoopConfig{
		Bus:           msgBus,
		Provider:      provider,
		Sessions:      sessions,
		Tools:         reg,
		Model:         model,
		MaxTokens:     cfg.Agent.MaxTokens,
		Temperature:   cfg.Agent.Temperature,
		MaxIterations: cfg.Agent.MaxToolIterations,
		SystemPrompt:  systemPrompt,
	})

	if err := timerSvc.AttachLanguageModel(agent.LanguageModel(loop)); err != nil {
		return nil, nil, nil, nil, err
	}
	if err := timerSvc.AttachToolInvoker(agent.ToolInvoker(reg)); err != nil {
		return nil, nil, nil, nil, err
	}
	if err := timerSvc.AttachDisplay(agent.BusDisplay(msgBus, cfg.Timers.NotifyChannel, cfg.Timers.NotifyChat)); err != nil {
		return nil, nil, nil, nil, err
	}

	return msgBus, loop, timerSvc, reg, nil
}

// applyToolFilter respects the enabled/disabled lists in config.
func applyToolFilter(reg *tools.Registry, tc config.ToolsConfig) {
	if len(tc.Enabled) == 0 && len(tc.Disabled) == 0 {
		return
	}
	enabled := make(map[string]bool, len(tc.Enabled))
	for _, n := range tc.Enabled {
		enabled[n] = true
	}
	disabled := make(map[string]bool, len(tc.Disabled))
	for _, n := range tc.Disabled {
		disabled[n] = true
	}
	for _, name := range reg.Names() {
		if disabled[name] || (len(enabled) > 0 && !enabled[name]) {
			reg.Unregister(name)
		}
	}
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the assistant with all configured channels",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			msgBus, loop, timerSvc, _, err := buildCore(cfg)
			if err != nil {
				return err
			}

			schedSvc := schedule.NewService(cfg.Schedules.StorePath, timerSvc)
			if err := schedSvc.LoadFromDisk(); err != nil {
				slog.Warn("failed to load schedules", "error", err)
			}

			mgr := channels.NewManager(msgBus)
			if err := addConfiguredChannels(mgr, cfg); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			timerSvc.Start(ctx)
			defer timerSvc.Stop()
			schedSvc.Start()
			defer schedSvc.Stop()

			if err := mgr.StartAll(ctx); err != nil {
				return err
			}
			defer mgr.StopAll() //nolint:errcheck

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				msgBus.DispatchOutbound(gctx)
				return nil
			})
			g.Go(func() error {
				return loop.Run(gctx)
			})

			slog.Info("tickbot running", "channels", channels.RegisteredNames(), "poll", cfg.Timers.PollInterval)

			err = g.Wait()
			if ctx.Err() != nil {
				slog.Info("shutting down")
				return nil
			}
			return err
		},
	}
}

// addConfiguredChannels registers every channel with usable config. The
// console channel is always added so timer notifications have a sink.
func addConfiguredChannels(mgr *channels.Manager, cfg *config.Config) error {
	add := func(name string, c any) error {
		raw, err := json.Marshal(c)
		if err != nil {
			return err
		}
		if err := mgr.AddChannel(name, raw); err != nil {
			return fmt.Errorf("channel %s: %w", name, err)
		}
		return nil
	}

	if err := add("console", cfg.Channels.Console); err != nil {
		return err
	}
	if cfg.Channels.Telegram.Token != "" {
		if err := add("telegram", cfg.Channels.Telegram); err != nil {
			return err
		}
	}
	if cfg.Channels.Discord.Token != "" {
		if err := add("discord", cfg.Channels.Discord); err != nil {
			return err
		}
	}
	if cfg.Channels.Slack.BotToken != "" {
		if err := add("slack", cfg.Channels.Slack); err != nil {
			return err
		}
	}
	return nil
}

func newChatCmd() *cobra.Command {
	var message string
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Send a single message to the assistant and print the reply",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(message) == "" {
				return fmt.Errorf("use -m to pass a message")
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			msgBus, loop, timerSvc, _, err := buildCore(cfg)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			// Timers created during the chat still fire while the reply is
			// being produced.
			timerSvc.Start(ctx)
			defer timerSvc.Stop()
			go msgBus.DispatchOutbound(ctx)

			reply, err := loop.ProcessDirect(ctx, message)
			if err != nil {
				return err
			}
			fmt.Println(reply)
			return nil
		},
	}
	cmd.Flags().StringVarP(&message, "message", "m", "", "message to send")
	return cmd
}
