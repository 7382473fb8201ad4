package agent

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/coopco/tickbot/internal/bus"
	"github.com/coopco/tickbot/internal/providers"
	"github.com/coopco/tickbot/internal/session"
	"github.com/coopco/tickbot/internal/timer"
	"github.com/coopco/tickbot/internal/tools"
)

// mockProvider replays a fixed sequence of ChatResponse values.
type mockProvider struct {
	responses []*providers.ChatResponse
	callIndex int
}

func (m *mockProvider) Chat(_ context.Context, _ providers.ChatRequest) (*providers.ChatResponse, error) {
	if m.callIndex >= len(m.responses) {
		return &providers.ChatResponse{Content: "no more responses"}, nil
	}
	resp := m.responses[m.callIndex]
	m.callIndex++
	return resp, nil
}

// echoTool echoes its "text" parameter back.
type echoTool struct{}

func (t *echoTool) Name() string        { return "echo" }
func (t *echoTool) Description() string { return "Echoes input" }
func (t *echoTool) Parameters() json.RawMessage {
	return json.RawMessage(`{"type":"object","properties":{"text":{"type":"string"}}}`)
}
func (t *echoTool) Execute(_ context.Context, params json.RawMessage) (string, error) {
	var p struct {
		Text string `json:"text"`
	}
	json.Unmarshal(params, &p) //nolint:errcheck
	return "echo: " + p.Text, nil
}

// newTestLoop builds an AgentLoop wired to a temp session dir.
func newTestLoop(t *testing.T, provider providers.Provider, maxIter int) *AgentLoop {
	t.Helper()
	reg := tools.NewRegistry()
	reg.Register(&echoTool{})

	mgr := session.NewManager(t.TempDir())
	mb := bus.NewMessageBus(10)

	return NewAgentLoop(AgentLoopConfig{
		Bus:           mb,
		Provider:      provider,
		Sessions:      mgr,
		Tools:         reg,
		Model:         "test-model",
		MaxTokens:     1024,
		Temperature:   0,
		MaxIterations: maxIter,
		SystemPrompt:  "",
	})
}

func TestProcessDirect_SimpleResponse(t *testing.T) {
	mock := &mockProvider{
		responses: []*providers.ChatResponse{
			{Content: "Hello!", StopReason: "stop"},
		},
	}
	loop := newTestLoop(t, mock, 10)

	got, err := loop.ProcessDirect(context.Background(), "hi")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Hello!" {
		t.Errorf("expected %q, got %q", "Hello!", got)
	}
}

func TestProcessDirect_WithToolCall(t *testing.T) {
	mock := &mockProvider{
		responses: []*providers.ChatResponse{
			{
				Content: "",
				ToolCalls: []providers.ToolCall{
					{ID: "tc1", Name: "echo", Arguments: `{"text":"world"}`},
				},
				StopReason: "tool_use",
			},
			{Content: "done", StopReason: "stop"},
		},
	}
	loop := newTestLoop(t, mock, 10)

	got, err := loop.ProcessDirect(context.Background(), "use echo")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "done" {
		t.Errorf("expected %q, got %q", "done", got)
	}
	if mock.callIndex != 2 {
		t.Errorf("expected 2 provider calls, got %d", mock.callIndex)
	}
}

func TestProcessDirect_MaxIterations(t *testing.T) {
	// Provider always returns a tool call; loop must stop at maxIter.
	infiniteResp := &providers.ChatResponse{
		Content: "thinking",
		ToolCalls: []providers.ToolCall{
			{ID: "tc1", Name: "echo", Arguments: `{"text":"loop"}`},
		},
		StopReason: "tool_use",
	}
	mock := &mockProvider{}
	for i := 0; i < 50; i++ {
		mock.responses = append(mock.responses, infiniteResp)
	}

	loop := newTestLoop(t, mock, 5)

	got, err := loop.ProcessDirect(context.Background(), "loop forever")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// After maxIter the loop returns the last assistant content ("thinking").
	if got != "thinking" {
		t.Errorf("expected %q after max iterations, got %q", "thinking", got)
	}
	if mock.callIndex != 5 {
		t.Errorf("expected exactly 5 provider calls (maxIter), got %d", mock.callIndex)
	}
}

func TestAnswer_NoSessionState(t *testing.T) {
	mock := &mockProvider{
		responses: []*providers.ChatResponse{
			{Content: "first", StopReason: "stop"},
			{Content: "second", StopReason: "stop"},
		},
	}
	loop := newTestLoop(t, mock, 10)

	got, err := loop.Answer(context.Background(), "one")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "first" {
		t.Errorf("expected %q, got %q", "first", got)
	}

	// A second Answer starts from a clean slate; nothing is persisted.
	if _, err := loop.Answer(context.Background(), "two"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if history := loop.sessions.GetOrCreate("direct").History(); len(history) != 0 {
		t.Errorf("Answer must not touch sessions, history has %d messages", len(history))
	}
}

func TestAnswer_RunsToolLoop(t *testing.T) {
	mock := &mockProvider{
		responses: []*providers.ChatResponse{
			{
				ToolCalls: []providers.ToolCall{
					{ID: "tc1", Name: "echo", Arguments: `{"text":"timer"}`},
				},
				StopReason: "tool_use",
			},
			{Content: "handled", StopReason: "stop"},
		},
	}
	loop := newTestLoop(t, mock, 10)

	got, err := loop.Answer(context.Background(), "an expired timer prompt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "handled" {
		t.Errorf("expected %q, got %q", "handled", got)
	}
	if mock.callIndex != 2 {
		t.Errorf("expected 2 provider calls, got %d", mock.callIndex)
	}
}

func TestRun_ProcessesMessages(t *testing.T) {
	mock := &mockProvider{
		responses: []*providers.ChatResponse{
			{Content: "pong", StopReason: "stop"},
		},
	}

	reg := tools.NewRegistry()
	mgr := session.NewManager(t.TempDir())
	mb := bus.NewMessageBus(10)

	loop := NewAgentLoop(AgentLoopConfig{
		Bus:           mb,
		Provider:      mock,
		Sessions:      mgr,
		Tools:         reg,
		Model:         "test-model",
		MaxTokens:     1024,
		MaxIterations: 10,
	})

	received := make(chan bus.OutboundMessage, 1)
	mb.Subscribe("test", func(msg bus.OutboundMessage) {
		received <- msg
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go mb.DispatchOutbound(ctx)
	go loop.Run(ctx) //nolint:errcheck

	mb.PublishInbound(bus.InboundMessage{
		Channel: "test",
		ChatID:  "chat1",
		Content: "ping",
	})

	select {
	case msg := <-received:
		if msg.Content != "pong" {
			t.Errorf("expected %q, got %q", "pong", msg.Content)
		}
		if msg.Kind != bus.KindText {
			t.Errorf("expected kind %q, got %q", bus.KindText, msg.Kind)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for outbound message")
	}
}

func TestRun_SmartTimerCarriesMessageReceivedAt(t *testing.T) {
	mock := &mockProvider{
		responses: []*providers.ChatResponse{
			{
				ToolCalls: []providers.ToolCall{
					{ID: "tc1", Name: "manage_timer", Arguments: `{"action":"create","name":"pizza","when":"2h","kind":"smart","request":"order pizza"}`},
				},
				StopReason: "tool_use",
			},
			{Content: "timer set", StopReason: "stop"},
		},
	}

	timerSvc := timer.NewService(timer.Config{})
	reg := tools.NewRegistry()
	reg.Register(tools.NewManageTimerTool(timerSvc))

	mb := bus.NewMessageBus(10)
	loop := NewAgentLoop(AgentLoopConfig{
		Bus:           mb,
		Provider:      mock,
		Sessions:      session.NewManager(t.TempDir()),
		Tools:         reg,
		Model:         "test-model",
		MaxTokens:     1024,
		MaxIterations: 10,
	})

	received := make(chan bus.OutboundMessage, 1)
	mb.Subscribe("test", func(msg bus.OutboundMessage) {
		received <- msg
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go mb.DispatchOutbound(ctx)
	go loop.Run(ctx) //nolint:errcheck

	receivedAt := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	mb.PublishInbound(bus.InboundMessage{
		Channel:    "test",
		ChatID:     "chat1",
		Content:    "order pizza in two hours",
		ReceivedAt: receivedAt,
	})

	select {
	case <-received:
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for reply")
	}

	created := timerSvc.ListTimersByName("pizza")
	if len(created) != 1 {
		t.Fatalf("expected 1 timer, got %d", len(created))
	}
	if !created[0].Action.RequestedAt.Equal(receivedAt) {
		t.Errorf("RequestedAt = %v, want %v", created[0].Action.RequestedAt, receivedAt)
	}
}

func TestBusDisplay_PublishesNotification(t *testing.T) {
	mb := bus.NewMessageBus(10)
	received := make(chan bus.OutboundMessage, 1)
	mb.Subscribe("telegram", func(msg bus.OutboundMessage) {
		received <- msg
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go mb.DispatchOutbound(ctx)

	display := BusDisplay(mb, "telegram", "chat42")
	if err := display.Show(context.Background(), "time for tea"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	select {
	case msg := <-received:
		if msg.Kind != bus.KindNotification {
			t.Errorf("expected kind %q, got %q", bus.KindNotification, msg.Kind)
		}
		if msg.ChatID != "chat42" || msg.Content != "time for tea" {
			t.Errorf("unexpected message: %+v", msg)
		}
		if msg.Metadata["source"] != bus.SourceTimer {
			t.Errorf("expected source %q, got %q", bus.SourceTimer, msg.Metadata["source"])
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for notification")
	}
}
