package bus

import (
	"fmt"
	"time"
)

// Message kinds carried on the outbound stream.
const (
	KindText         = "text"
	KindNotification = "notification" // timer and schedule output
	KindError        = "error"
)

// SourceTimer is the metadata source value tagging outbound messages that
// originate from the timer core rather than a chat reply.
const SourceTimer = "timer"

// InboundMessage is a message received from any channel.
type InboundMessage struct {
	Channel            string            // source channel name (e.g. "telegram", "console", "timer")
	SenderID           string            // sender identifier
	ChatID             string            // chat/conversation identifier
	Content            string            // text content
	ReceivedAt         time.Time         // when the message entered the bus
	SessionKeyOverride string            // optional override for session routing
	Metadata           map[string]string // arbitrary metadata
}

// SessionKey returns the routing key for session management.
// Uses SessionKeyOverride if set, otherwise "channel:chatID".
func (m InboundMessage) SessionKey() string {
	if m.SessionKeyOverride != "" {
		return m.SessionKeyOverride
	}
	return fmt.Sprintf("%s:%s", m.Channel, m.ChatID)
}

// OutboundMessage is a message to be delivered to a channel.
type OutboundMessage struct {
	Channel  string            // target channel
	ChatID   string            // target chat
	Content  string            // text content
	Kind     string            // KindText, KindNotification, KindError
	Metadata map[string]string // arbitrary metadata
}
