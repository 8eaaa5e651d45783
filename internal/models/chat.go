package models

// Role identifies the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// ChatMode steers the assistant's response style. It is forwarded to the
// prompt as text; no code path branches on it.
type ChatMode string

const (
	ModeGeneral   ChatMode = "general"
	ModeCoding    ChatMode = "coding"
	ModeCognitive ChatMode = "cognitive"
	ModeKnowledge ChatMode = "knowledge"
	ModeTask      ChatMode = "task"
)

var chatModes = []ChatMode{ModeGeneral, ModeCoding, ModeCognitive, ModeKnowledge, ModeTask}

func (m ChatMode) Valid() bool {
	for _, known := range chatModes {
		if m == known {
			return true
		}
	}
	return false
}

// OrDefault returns general for an unset mode.
func (m ChatMode) OrDefault() ChatMode {
	if m == "" {
		return ModeGeneral
	}
	return m
}

// ChatMessage represents a single message in a conversation.
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the payload for the chat-with-memory flow.
type ChatRequest struct {
	Message     string        `json:"message"`
	ChatHistory []ChatMessage `json:"chatHistory,omitempty"`
	Mode        ChatMode      `json:"mode,omitempty"`
}

// ChatResponse is the reply from the AI chat.
type ChatResponse struct {
	Response string `json:"response"`
}
