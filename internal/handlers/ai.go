package handlers

import (
	"context"
	"net/http"

	"aether-backend/internal/models"
)

// flowRunner is implemented by *flows.Service.
type flowRunner interface {
	StudyAssistant(ctx context.Context, req models.StudyAssistantRequest) (models.StudyAssistantResult, error)
	IntelligentChatMemory(ctx context.Context, req models.ChatRequest) (models.ChatResponse, error)
	AutomateTask(ctx context.Context, req models.AutomationRequest) (models.AutomationResult, error)
	GenerateCodeSnippet(ctx context.Context, req models.CodeGenRequest) (models.CodeGenResult, error)
}

// AIHandler exposes the four tools. AI failures never surface here: the
// flows answer with a fallback instead, so only validation errors do.
type AIHandler struct {
	flows flowRunner
}

func NewAIHandler(flows flowRunner) *AIHandler {
	return &AIHandler{flows: flows}
}

func (h *AIHandler) Study(w http.ResponseWriter, r *http.Request) {
	var req models.StudyAssistantRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}

	result, err := h.flows.StudyAssistant(r.Context(), req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *AIHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}

	result, err := h.flows.IntelligentChatMemory(r.Context(), req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *AIHandler) Automate(w http.ResponseWriter, r *http.Request) {
	var req models.AutomationRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}

	result, err := h.flows.AutomateTask(r.Context(), req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *AIHandler) Code(w http.ResponseWriter, r *http.Request) {
	var req models.CodeGenRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}

	result, err := h.flows.GenerateCodeSnippet(r.Context(), req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
