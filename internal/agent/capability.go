package agent

import (
	"context"

	"github.com/coopco/tickbot/internal/bus"
	"github.com/coopco/tickbot/internal/timer"
	"github.com/coopco/tickbot/internal/tools"
)

// LanguageModel exposes the agent loop as the timer core's language model
// capability. Expiry prompts get the full tool loop, so a fired timer can
// itself invoke tools or create follow-up timers.
func LanguageModel(a *AgentLoop) timer.LanguageModel {
	return timer.LanguageModelFunc(a.Answer)
}

// ToolInvoker exposes the tool registry as the timer core's tool capability.
func ToolInvoker(reg *tools.Registry) timer.ToolInvoker {
	return timer.ToolInvokerFunc(reg.Invoke)
}

// BusDisplay publishes timer output as notification messages to a fixed
// channel and chat. An empty channel falls back to the console sink.
func BusDisplay(b *bus.MessageBus, channel, chatID string) timer.Display {
	if channel == "" {
		channel = "console"
	}
	return timer.DisplayFunc(func(_ context.Context, text string) error {
		b.PublishOutbound(bus.OutboundMessage{
			Channel:  channel,
			ChatID:   chatID,
			Content:  text,
			Kind:     bus.KindNotification,
			Metadata: map[string]string{"source": bus.SourceTimer},
		})
		return nil
	})
}
