// Package prompt defines the named prompts used by the AI flows and the
// Gemini-backed invoker that executes them.
package prompt

import "context"

// Name identifies a registered prompt template.
type Name string

const (
	RequiresSummary Name = "requiresSummaryPrompt"
	Summary         Name = "summaryPrompt"
	Answer          Name = "answerPrompt"
	Chat            Name = "intelligentChatMemoryPrompt"
	Automation      Name = "automateTaskPrompt"
	CodeGeneration  Name = "voiceActivatedCodeGenerationPrompt"
)

// Invoker renders a named prompt with input, calls the model and decodes the
// structured reply into output (a pointer to the prompt's output type).
type Invoker interface {
	Invoke(ctx context.Context, name Name, input any, output any) error
}

// StudyInput feeds the classification and summary prompts.
type StudyInput struct {
	Query    string `json:"query"`
	Document string `json:"document"`
}

type RequiresSummaryOutput struct {
	RequiresSummary bool `json:"requiresSummary"`
}

type SummaryOutput struct {
	Summary string `json:"summary"`
}

// AnswerInput carries the optional summary produced by the second stage.
type AnswerInput struct {
	Query    string  `json:"query"`
	Document string  `json:"document"`
	Summary  *string `json:"summary,omitempty"`
}

type AnswerOutput struct {
	Answer string `json:"answer"`
}

// HistoryEntry is a chat turn as the template sees it.
type HistoryEntry struct {
	Content string `json:"content"`
	IsUser  bool   `json:"isUser"`
}

type ChatInput struct {
	Message     string         `json:"message"`
	ChatHistory []HistoryEntry `json:"chatHistory"`
	Mode        string         `json:"mode"`
}

type ChatOutput struct {
	Response string `json:"response"`
}

type AutomationInput struct {
	TaskDescription string `json:"taskDescription"`
}

type AutomationOutput struct {
	AutomationScript string `json:"automationScript"`
	Explanation      string `json:"explanation"`
}

type CodeGenInput struct {
	VoiceCommand string `json:"voiceCommand"`
}

type CodeGenOutput struct {
	CodeSnippet string `json:"codeSnippet"`
}
