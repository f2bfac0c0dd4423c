package chat

import (
	"context"
	"sync"
	"time"

	"github.com/nexpharm/pharmacy-intel/internal/intel/domain"
	"github.com/nexpharm/pharmacy-intel/internal/intel/engine"
	apperrors "github.com/nexpharm/pharmacy-intel/pkg/errors"
	"github.com/nexpharm/pharmacy-intel/pkg/logger"
)

// Assistant answers the text of a chat turn
type Assistant interface {
	Query(ctx context.Context, query string) (*domain.AssistantReply, error)
}

// Session is one user's conversation with the assistant
type Session struct {
	ID        string
	CreatedAt time.Time

	conversation *Conversation
	assistant    Assistant
	logger       *logger.Logger
	now          func() time.Time

	mu         sync.Mutex
	busy       bool
	lastActive time.Time
}

// SessionView is the JSON form of a session
type SessionView struct {
	ID        string               `json:"id"`
	CreatedAt time.Time            `json:"created_at"`
	Pending   bool                 `json:"pending"`
	Messages  []domain.ChatMessage `json:"messages"`
}

func newSession(id string, assistant Assistant, now func() time.Time, log *logger.Logger) *Session {
	created := now()
	return &Session{
		ID:           id,
		CreatedAt:    created,
		conversation: NewConversation(created),
		assistant:    assistant,
		logger:       log.WithSessionID(id),
		now:          now,
		lastActive:   created,
	}
}

// Send runs one chat turn. Blank text is ignored and returns nil. The user
// message and the bot reply are appended in that order. An assistant
// failure appends UnavailableMessage instead of returning an error.
func (s *Session) Send(ctx context.Context, text string) (*domain.ChatMessage, error) {
	intent, ok := engine.Interpret(text)
	if !ok {
		return nil, nil
	}

	if !s.begin() {
		return nil, apperrors.Conflict("a message is already being answered in this session")
	}
	defer s.end()

	s.conversation.Append(domain.ChatMessage{
		Sender: domain.SenderUser,
		Text:   intent.Query,
		Time:   s.now(),
	})

	reply := domain.ChatMessage{Sender: domain.SenderBot}

	answer, err := s.assistant.Query(ctx, intent.Query)
	if err != nil || answer == nil {
		s.logger.Warn().Err(err).Str("intent", string(intent.Kind)).Msg("assistant query failed")
		reply.Text = UnavailableMessage
	} else {
		reply.Text = answer.Response
		reply.Alternatives = answer.Alternatives
	}
	reply.Time = s.now()

	s.conversation.Append(reply)
	s.logger.Debug().Str("intent", string(intent.Kind)).Msg("chat turn answered")

	reply.Alternatives = copyAlternatives(reply.Alternatives)
	return &reply, nil
}

// Messages returns a copy of the conversation
func (s *Session) Messages() []domain.ChatMessage {
	return s.conversation.Messages()
}

// Pending reports whether a turn is awaiting the assistant
func (s *Session) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

// View returns a snapshot of the session
func (s *Session) View() SessionView {
	return SessionView{
		ID:        s.ID,
		CreatedAt: s.CreatedAt,
		Pending:   s.Pending(),
		Messages:  s.Messages(),
	}
}

func (s *Session) begin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.busy {
		return false
	}
	s.busy = true
	s.lastActive = s.now()
	return true
}

func (s *Session) end() {
	s.mu.Lock()
	s.busy = false
	s.lastActive = s.now()
	s.mu.Unlock()
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastActive = s.now()
	s.mu.Unlock()
}

// idleSince reports whether the session has been idle since cutoff.
// Sessions with a pending turn are never idle.
func (s *Session) idleSince(cutoff time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.busy && s.lastActive.Before(cutoff)
}
