package channels

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/coopco/tickbot/internal/bus"
)

func init() {
	Register("console", newConsoleChannel)
}

type consoleConfig struct {
	Interactive bool `json:"interactive"` // read lines from stdin as inbound messages
}

// ConsoleChannel writes outbound messages to stdout. It is the default
// display sink for timer notifications when no chat platform is configured.
// With interactive set, it also reads stdin lines as inbound messages.
type ConsoleChannel struct {
	bus         *bus.MessageBus
	out         io.Writer
	in          io.Reader
	interactive bool
	stopCh      chan struct{}
	stopOnce    sync.Once
}

func newConsoleChannel(cfg json.RawMessage, msgBus *bus.MessageBus) (Channel, error) {
	var ccfg consoleConfig
	if len(cfg) > 0 {
		if err := json.Unmarshal(cfg, &ccfg); err != nil {
			return nil, fmt.Errorf("failed to parse console config: %w", err)
		}
	}
	return &ConsoleChannel{
		bus:         msgBus,
		out:         os.Stdout,
		in:          os.Stdin,
		interactive: ccfg.Interactive,
		stopCh:      make(chan struct{}),
	}, nil
}

func (c *ConsoleChannel) Name() string { return "console" }

func (c *ConsoleChannel) Start(ctx context.Context) error {
	if !c.interactive {
		return nil
	}
	go func() {
		scanner := bufio.NewScanner(c.in)
		for scanner.Scan() {
			select {
			case <-ctx.Done():
				return
			case <-c.stopCh:
				return
			default:
			}
			line := scanner.Text()
			if line == "" {
				continue
			}
			c.bus.PublishInbound(bus.InboundMessage{
				Channel:  "console",
				SenderID: "local",
				ChatID:   "local",
				Content:  line,
			})
		}
	}()
	return nil
}

func (c *ConsoleChannel) Stop() error {
	c.stopOnce.Do(func() { close(c.stopCh) })
	return nil
}

func (c *ConsoleChannel) Send(msg bus.OutboundMessage) error {
	_, err := fmt.Fprintln(c.out, msg.Content)
	return err
}

func (c *ConsoleChannel) IsAllowed(_ string) bool { return true }
