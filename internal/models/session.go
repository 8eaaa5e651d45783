package models

import (
	"time"

	"github.com/google/uuid"
)

// ChatSession is a named conversation owned by one user.
type ChatSession struct {
	ID          uuid.UUID `json:"id"`
	UserID      string    `json:"-"`
	SessionName string    `json:"sessionName"`
	IsStarred   bool      `json:"isStarred"`
	IsArchived  bool      `json:"isArchived"`
	StartTime   time.Time `json:"startTime"`
}

// Session list filters, matching the sidebar tabs.
const (
	SessionFilterRecent   = "recent"
	SessionFilterStarred  = "starred"
	SessionFilterArchived = "archived"
)

// StoredMessage is a persisted chat turn; ordering is by CreatedAt.
type StoredMessage struct {
	ID            uuid.UUID `json:"id"`
	SessionID     uuid.UUID `json:"sessionId"`
	Content       string    `json:"content"`
	IsUserMessage bool      `json:"isUserMessage"`
	CreatedAt     time.Time `json:"createdAt"`
}

// AsChatMessage maps a stored message back to a flow history entry.
func (m StoredMessage) AsChatMessage() ChatMessage {
	role := RoleAssistant
	if m.IsUserMessage {
		role = RoleUser
	}
	return ChatMessage{Role: role, Content: m.Content}
}

type RenameSessionRequest struct {
	SessionName string `json:"sessionName"`
}

type SendMessageRequest struct {
	Content string   `json:"content"`
	Mode    ChatMode `json:"mode,omitempty"`
}

// SendMessageResponse returns both persisted turns.
type SendMessageResponse struct {
	UserMessage      StoredMessage `json:"userMessage"`
	AssistantMessage StoredMessage `json:"assistantMessage"`
}
