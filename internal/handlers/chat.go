package handlers

import (
	"context"
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"aether-backend/internal/middleware"
	"aether-backend/internal/models"
)

type messageStore interface {
	Append(ctx context.Context, userID string, m *models.StoredMessage) error
	ListBySession(ctx context.Context, sessionID uuid.UUID, userID string) ([]models.StoredMessage, error)
}

type chatRunner interface {
	IntelligentChatMemory(ctx context.Context, req models.ChatRequest) (models.ChatResponse, error)
}

// ChatHandler is the persisted chat: each send stores the user's message,
// asks the chat flow with the session's earlier turns, then stores the reply.
type ChatHandler struct {
	sessions sessionStore
	messages messageStore
	chat     chatRunner
}

func NewChatHandler(sessions sessionStore, messages messageStore, chat chatRunner) *ChatHandler {
	return &ChatHandler{sessions: sessions, messages: messages, chat: chat}
}

func (h *ChatHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := parseSessionID(w, r)
	if !ok {
		return
	}
	userID := middleware.GetUserID(r.Context())

	if _, err := h.sessions.GetByID(r.Context(), sessionID, userID); err != nil {
		handleServiceError(w, r, err)
		return
	}

	messages, err := h.messages.ListBySession(r.Context(), sessionID, userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"messages": messages})
}

func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := parseSessionID(w, r)
	if !ok {
		return
	}
	userID := middleware.GetUserID(r.Context())

	var req models.SendMessageRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}

	if strings.TrimSpace(req.Content) == "" {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed",
			map[string]string{"content": "is required"}, r))
		return
	}
	if req.Mode != "" && !req.Mode.Valid() {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed",
			map[string]string{"mode": "unknown mode"}, r))
		return
	}

	// Ownership check; a foreign session is reported as missing.
	if _, err := h.sessions.GetByID(r.Context(), sessionID, userID); err != nil {
		handleServiceError(w, r, err)
		return
	}

	prior, err := h.messages.ListBySession(r.Context(), sessionID, userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	history := make([]models.ChatMessage, len(prior))
	for i, m := range prior {
		history[i] = m.AsChatMessage()
	}

	userMsg := &models.StoredMessage{SessionID: sessionID, Content: req.Content, IsUserMessage: true}
	if err := h.messages.Append(r.Context(), userID, userMsg); err != nil {
		handleServiceError(w, r, err)
		return
	}

	reply, err := h.chat.IntelligentChatMemory(r.Context(), models.ChatRequest{
		Message:     req.Content,
		ChatHistory: history,
		Mode:        req.Mode,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	assistantMsg := &models.StoredMessage{SessionID: sessionID, Content: reply.Response, IsUserMessage: false}
	if err := h.messages.Append(r.Context(), userID, assistantMsg); err != nil {
		log.Printf("Failed to store assistant reply for session %s: %v", sessionID, err)
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, models.SendMessageResponse{
		UserMessage:      *userMsg,
		AssistantMessage: *assistantMsg,
	})
}
