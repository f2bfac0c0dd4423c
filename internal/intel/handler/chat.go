package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/nexpharm/pharmacy-intel/internal/intel/chat"
	"github.com/nexpharm/pharmacy-intel/internal/intel/domain"
	"github.com/nexpharm/pharmacy-intel/internal/intel/engine"
	"github.com/nexpharm/pharmacy-intel/pkg/errors"
	"github.com/nexpharm/pharmacy-intel/pkg/httputil"
	"github.com/nexpharm/pharmacy-intel/pkg/logger"
)

// Assistant answers a single assistant query
type Assistant interface {
	Query(ctx context.Context, query string) (*domain.AssistantReply, error)
}

// ChatHandler serves chat sessions and the assistant-query endpoint
type ChatHandler struct {
	store     *chat.Store
	assistant Assistant
	logger    *logger.Logger
}

// NewChatHandler creates a new chat handler. assistant backs POST /chatbot
// and may be nil when the service does not host the assistant itself.
func NewChatHandler(store *chat.Store, assistant Assistant, log *logger.Logger) *ChatHandler {
	return &ChatHandler{
		store:     store,
		assistant: assistant,
		logger:    log,
	}
}

// SendMessageRequest is one chat turn. Blank text is accepted and ignored.
type SendMessageRequest struct {
	Text string `json:"text" validate:"max=2000"`
}

// AssistantQueryRequest is the body of the assistant-query endpoint
type AssistantQueryRequest struct {
	Query string `json:"query" validate:"required,notblank,max=2000"`
}

// CreateSession starts a conversation seeded with the greeting
func (h *ChatHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	session := h.store.Create()
	httputil.Created(w, session.View())
}

// GetSession returns a conversation
func (h *ChatHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.store.Get(chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, session.View())
}

// DeleteSession ends a conversation
func (h *ChatHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Delete(chi.URLParam(r, "id")); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.NoContent(w)
}

// SendMessage runs a chat turn and returns the updated conversation
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	session, err := h.store.Get(chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	var req SendMessageRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	if _, err := session.Send(r.Context(), req.Text); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, session.View())
}

// QuickActions lists the canned chat inputs
func (h *ChatHandler) QuickActions(w http.ResponseWriter, r *http.Request) {
	httputil.JSON(w, http.StatusOK, engine.QuickActions())
}

// Query answers one assistant query with the local responder
func (h *ChatHandler) Query(w http.ResponseWriter, r *http.Request) {
	if h.assistant == nil {
		httputil.Error(w, errors.NotFound("assistant"))
		return
	}

	var req AssistantQueryRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	reply, err := h.assistant.Query(r.Context(), req.Query)
	if err != nil {
		h.logger.WithRequestID(httputil.GetRequestID(r.Context())).Error().Err(err).Msg("assistant query failed")
		httputil.Error(w, errors.AssistantUnavailable(err))
		return
	}

	httputil.JSON(w, http.StatusOK, reply)
}
