package models

type StudyAssistantRequest struct {
	Query    string `json:"query"`
	Document string `json:"document"`
}

// StudyAssistantResult carries a summary only when the summary stage ran.
type StudyAssistantResult struct {
	Answer          string  `json:"answer"`
	RequiresSummary bool    `json:"requiresSummary"`
	Summary         *string `json:"summary,omitempty"`
}

type AutomationRequest struct {
	TaskDescription string `json:"taskDescription"`
}

type AutomationResult struct {
	AutomationScript string `json:"automationScript"`
	Explanation      string `json:"explanation"`
}

type CodeGenRequest struct {
	VoiceCommand string `json:"voiceCommand"`
}

type CodeGenResult struct {
	CodeSnippet string `json:"codeSnippet"`
}

type FetchURLRequest struct {
	URL string `json:"url"`
}

// ExtractedContent is returned by the ingestion endpoints.
type ExtractedContent struct {
	Content string `json:"content"`
	Title   string `json:"title,omitempty"`
	Source  string `json:"source"`
}
