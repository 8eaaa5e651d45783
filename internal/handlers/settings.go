package handlers

import (
	"context"
	"net/http"
	"strings"

	"aether-backend/internal/middleware"
	"aether-backend/internal/models"
)

type settingsStore interface {
	Get(ctx context.Context, userID string) (*models.UserSettings, error)
	Upsert(ctx context.Context, s *models.UserSettings) error
}

var validThemes = map[string]bool{"light": true, "dark": true, "system": true}

type SettingsHandler struct {
	repo settingsStore
}

func NewSettingsHandler(repo settingsStore) *SettingsHandler {
	return &SettingsHandler{repo: repo}
}

func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	settings, err := h.repo.Get(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"settings": settings})
}

// Update applies the fields present in the body and keeps the rest.
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req struct {
		Theme         *string          `json:"theme"`
		Language      *string          `json:"language"`
		DefaultMode   *models.ChatMode `json:"defaultMode"`
		Notifications map[string]bool  `json:"notifications"`
	}
	if !decodeJSON(w, r, &req, true) {
		return
	}

	fields := map[string]string{}
	if req.Theme != nil && !validThemes[*req.Theme] {
		fields["theme"] = "must be light, dark, or system"
	}
	if req.Language != nil {
		if l := strings.TrimSpace(*req.Language); len(l) < 2 || len(l) > 10 {
			fields["language"] = "must be a 2-10 character language tag"
		}
	}
	if req.DefaultMode != nil && !req.DefaultMode.Valid() {
		fields["defaultMode"] = "unknown mode"
	}
	if len(fields) > 0 {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", fields, r))
		return
	}

	settings, err := h.repo.Get(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	if req.Theme != nil {
		settings.Theme = *req.Theme
	}
	if req.Language != nil {
		settings.Language = strings.TrimSpace(*req.Language)
	}
	if req.DefaultMode != nil {
		settings.DefaultMode = *req.DefaultMode
	}
	if settings.Notifications == nil {
		settings.Notifications = map[string]bool{}
	}
	for k, v := range req.Notifications {
		settings.Notifications[k] = v
	}

	if err := h.repo.Upsert(r.Context(), settings); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"settings": settings})
}
