package flows

import (
	"context"
	"fmt"
	"log"

	"aether-backend/internal/models"
	"aether-backend/internal/prompt"
	"aether-backend/internal/retry"
)

const chatFallbackResponse = "I'm having trouble connecting right now. Please try again in a moment. If the issue persists, try refreshing the page."

// IntelligentChatMemory replies to message using the caller-supplied history.
func (s *Service) IntelligentChatMemory(ctx context.Context, req models.ChatRequest) (models.ChatResponse, error) {
	v := validator{}
	v.required("message", req.Message)
	if req.Mode != "" && !req.Mode.Valid() {
		v["mode"] = fmt.Sprintf("unknown mode %q", req.Mode)
	}
	for i, m := range req.ChatHistory {
		if !m.Role.Valid() {
			v[fmt.Sprintf("chatHistory[%d].role", i)] = "must be user or assistant"
		}
	}
	if err := v.err(); err != nil {
		return models.ChatResponse{}, err
	}

	input := prompt.ChatInput{
		Message:     req.Message,
		ChatHistory: NormalizeHistory(req.ChatHistory),
		Mode:        string(req.Mode.OrDefault()),
	}

	out, err := invoke[prompt.ChatOutput](ctx, s, s.policy(FlowChat, retry.IsTransient), prompt.Chat, input)
	if err != nil {
		log.Printf("Chat response failed after retries: %v", err)
		return models.ChatResponse{Response: chatFallbackResponse}, nil
	}
	return models.ChatResponse{Response: out.Response}, nil
}

// NormalizeHistory converts role-tagged messages into the boolean form the
// chat template expects, keeping the caller's order.
func NormalizeHistory(history []models.ChatMessage) []prompt.HistoryEntry {
	entries := make([]prompt.HistoryEntry, len(history))
	for i, m := range history {
		entries[i] = prompt.HistoryEntry{Content: m.Content, IsUser: m.Role == models.RoleUser}
	}
	return entries
}
