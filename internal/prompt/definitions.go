package prompt

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/google/generative-ai-go/genai"
)

type field struct {
	name     string
	typ      genai.Type
	desc     string
	required bool
}

type definition struct {
	name     Name
	template *template.Template
	fields   []field
}

func (d definition) schema() *genai.Schema {
	s := &genai.Schema{
		Type:       genai.TypeObject,
		Properties: make(map[string]*genai.Schema, len(d.fields)),
	}
	for _, f := range d.fields {
		s.Properties[f.name] = &genai.Schema{Type: f.typ, Description: f.desc}
		if f.required {
			s.Required = append(s.Required, f.name)
		}
	}
	return s
}

func (d definition) requiredKeys() []string {
	var keys []string
	for _, f := range d.fields {
		if f.required {
			keys = append(keys, f.name)
		}
	}
	return keys
}

func (d definition) render(input any) (string, error) {
	var b strings.Builder
	if err := d.template.Execute(&b, input); err != nil {
		return "", fmt.Errorf("render %s: %w", d.name, err)
	}
	return strings.TrimSpace(b.String()), nil
}

func define(name Name, text string, fields ...field) definition {
	return definition{
		name:     name,
		template: template.Must(template.New(string(name)).Option("missingkey=error").Parse(text)),
		fields:   fields,
	}
}

var definitions = map[Name]definition{
	RequiresSummary: define(RequiresSummary,
		`You are an AI study assistant. Determine if the following question requires a summary of the document to answer it. Return true if a summary is required, false otherwise.

Question: {{.Query}}
Document: {{.Document}}`,
		// Absent means "no summary needed"; the flow must never block on it.
		field{name: "requiresSummary", typ: genai.TypeBoolean, desc: "Whether the question requires summarization of the document to answer."},
	),

	Summary: define(Summary,
		`You are an AI study assistant. Summarize the following document.

Document: {{.Document}}`,
		field{name: "summary", typ: genai.TypeString, desc: "A summary of the document.", required: true},
	),

	Answer: define(Answer,
		`You are an AI study assistant. Answer the following question using the provided document and summary if available.

Question: {{.Query}}
Document: {{.Document}}
Summary: {{if .Summary}}{{.Summary}}{{end}}`,
		field{name: "answer", typ: genai.TypeString, desc: "The answer to the question.", required: true},
	),

	Chat: define(Chat,
		`You are a helpful, intelligent AI assistant.
Use the chat history to maintain context.

Mode: {{.Mode}}

Behavior guidance:
- If Mode is 'coding': act as a coding assistant. Provide runnable code snippets, explain design decisions, and include tests or examples when helpful.
- If Mode is 'cognitive': focus on memory, summarization, and recalling prior details from the conversation.
- If Mode is 'knowledge': prioritize factual answers and provide sources or citations where possible.
- If Mode is 'task': provide step-by-step actionable plans, checklists, and commands the user can run to automate tasks.
- Otherwise, be general and concise.

Chat History:
{{range .ChatHistory}}{{if .IsUser}}User: {{.Content}}
{{else}}Assistant: {{.Content}}
{{end}}{{end}}
Current User Message:
{{.Message}}

Respond clearly and helpfully:`,
		field{name: "response", typ: genai.TypeString, desc: "The AI assistant's response.", required: true},
	),

	Automation: define(Automation,
		`You are an AI assistant specialized in automating repetitive tasks.

Based on the user's description of the task, generate an automation script and explain how the automation script works.

Task Description: {{.TaskDescription}}`,
		field{name: "automationScript", typ: genai.TypeString, desc: "The automation script generated for the task.", required: true},
		field{name: "explanation", typ: genai.TypeString, desc: "Explanation of how the automation script works.", required: true},
	),

	CodeGeneration: define(CodeGeneration,
		`You are an expert code generator. The user will provide a voice command which describes the code they want you to generate.

Voice Command: {{.VoiceCommand}}

Generate the code snippet that satisfies the voice command. Enclose code snippet with markdown code fences.`,
		field{name: "codeSnippet", typ: genai.TypeString, desc: "The generated code snippet.", required: true},
	),
}

func lookup(name Name) (definition, error) {
	d, ok := definitions[name]
	if !ok {
		return definition{}, fmt.Errorf("unknown prompt %q", name)
	}
	return d, nil
}

// Render returns the prompt text for name and input.
func Render(name Name, input any) (string, error) {
	d, err := lookup(name)
	if err != nil {
		return "", err
	}
	return d.render(input)
}
