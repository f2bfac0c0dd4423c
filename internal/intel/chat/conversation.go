// Package chat holds assistant conversations. Each session owns an
// append-only conversation and allows one pending turn at a time.
package chat

import (
	"sync"
	"time"

	"github.com/nexpharm/pharmacy-intel/internal/intel/domain"
)

// Greeting opens every conversation
const Greeting = "👋 Hi! I’m your AI Pharmacy Assistant. Ask me about stock, expiry, wastage, or reorders."

// UnavailableMessage is appended when the assistant cannot be reached
const UnavailableMessage = "⚠️ AI service temporarily unavailable."

// Conversation is an append-only message sequence. Readers get copies.
type Conversation struct {
	mu       sync.RWMutex
	messages []domain.ChatMessage
}

// NewConversation starts a conversation with the bot greeting
func NewConversation(now time.Time) *Conversation {
	c := &Conversation{}
	c.Append(domain.ChatMessage{Sender: domain.SenderBot, Text: Greeting, Time: now})
	return c
}

// Append adds msg at the end. The alternatives slice is copied.
func (c *Conversation) Append(msg domain.ChatMessage) {
	msg.Alternatives = copyAlternatives(msg.Alternatives)

	c.mu.Lock()
	c.messages = append(c.messages, msg)
	c.mu.Unlock()
}

// Messages returns a copy of the conversation in append order
func (c *Conversation) Messages() []domain.ChatMessage {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]domain.ChatMessage, len(c.messages))
	for i, m := range c.messages {
		m.Alternatives = copyAlternatives(m.Alternatives)
		out[i] = m
	}
	return out
}

// Len returns the number of messages
func (c *Conversation) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.messages)
}

func copyAlternatives(in []domain.Alternative) []domain.Alternative {
	if len(in) == 0 {
		return nil
	}
	out := make([]domain.Alternative, len(in))
	copy(out, in)
	return out
}
