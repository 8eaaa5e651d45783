package handlers

import (
	"context"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"aether-backend/internal/middleware"
	"aether-backend/internal/models"
)

const maxSessionNameLength = 100

type sessionStore interface {
	Create(ctx context.Context, userID string) (*models.ChatSession, error)
	ListByUser(ctx context.Context, userID, filter, search string) ([]models.ChatSession, error)
	GetByID(ctx context.Context, id uuid.UUID, userID string) (*models.ChatSession, error)
	Rename(ctx context.Context, id uuid.UUID, userID, name string) (*models.ChatSession, error)
	ToggleStar(ctx context.Context, id uuid.UUID, userID string) (*models.ChatSession, error)
	ToggleArchive(ctx context.Context, id uuid.UUID, userID string) (*models.ChatSession, error)
	Delete(ctx context.Context, id uuid.UUID, userID string) error
}

type SessionHandler struct {
	sessions sessionStore
}

func NewSessionHandler(sessions sessionStore) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	filter := r.URL.Query().Get("filter")
	switch filter {
	case "":
		filter = models.SessionFilterRecent
	case models.SessionFilterRecent, models.SessionFilterStarred, models.SessionFilterArchived:
	default:
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "filter must be recent, starred, or archived", r))
		return
	}

	sessions, err := h.sessions.ListByUser(r.Context(), userID, filter, r.URL.Query().Get("q"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"sessions": sessions})
}

func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	session, err := h.sessions.Create(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{"session": session})
}

func (h *SessionHandler) Rename(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := parseSessionID(w, r)
	if !ok {
		return
	}

	var req models.RenameSessionRequest
	if !decodeJSON(w, r, &req, true) {
		return
	}

	name := strings.TrimSpace(req.SessionName)
	if name == "" || utf8.RuneCountInString(name) > maxSessionNameLength {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed",
			map[string]string{"sessionName": "Session name must be 1-100 characters"}, r))
		return
	}

	session, err := h.sessions.Rename(r.Context(), sessionID, middleware.GetUserID(r.Context()), name)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"session": session})
}

func (h *SessionHandler) ToggleStar(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, h.sessions.ToggleStar)
}

func (h *SessionHandler) ToggleArchive(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, h.sessions.ToggleArchive)
}

func (h *SessionHandler) toggle(w http.ResponseWriter, r *http.Request, fn func(context.Context, uuid.UUID, string) (*models.ChatSession, error)) {
	sessionID, ok := parseSessionID(w, r)
	if !ok {
		return
	}

	session, err := fn(r.Context(), sessionID, middleware.GetUserID(r.Context()))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"session": session})
}

func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := parseSessionID(w, r)
	if !ok {
		return
	}

	if err := h.sessions.Delete(r.Context(), sessionID, middleware.GetUserID(r.Context())); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"message": "Session deleted"})
}

func parseSessionID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	sessionID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid session ID", r))
		return uuid.Nil, false
	}
	return sessionID, true
}
