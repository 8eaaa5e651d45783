// Package mcptools exposes the AI flows as Model Context Protocol tools so
// editors and agents can call them over stdio.
package mcptools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"aether-backend/internal/models"
)

// FlowRunner is implemented by *flows.Service.
type FlowRunner interface {
	StudyAssistant(ctx context.Context, req models.StudyAssistantRequest) (models.StudyAssistantResult, error)
	IntelligentChatMemory(ctx context.Context, req models.ChatRequest) (models.ChatResponse, error)
	AutomateTask(ctx context.Context, req models.AutomationRequest) (models.AutomationResult, error)
	GenerateCodeSnippet(ctx context.Context, req models.CodeGenRequest) (models.CodeGenResult, error)
}

// Tool names.
const (
	ToolStudy    = "study_assistant"
	ToolChat     = "chat"
	ToolAutomate = "automate_task"
	ToolCode     = "generate_code"
)

func NewServer(flows FlowRunner, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"aether",
		version,
		server.WithToolCapabilities(true),
		server.WithInstructions("Aether AI tools: document Q&A, chat, task automation scripts and code generation."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool(ToolStudy,
			mcp.WithDescription("Answer a question about a document, summarizing it first when the question needs it."),
			mcp.WithString("query", mcp.Description("Question about the document"), mcp.Required()),
			mcp.WithString("document", mcp.Description("Full document text"), mcp.Required()),
		),
		studyTool(flows),
	)

	s.AddTool(
		mcp.NewTool(ToolChat,
			mcp.WithDescription("Reply to a message, optionally continuing an earlier conversation."),
			mcp.WithString("message", mcp.Description("The new user message"), mcp.Required()),
			mcp.WithString("history", mcp.Description("JSON array of {role, content} messages, oldest first")),
			mcp.WithString("mode", mcp.Description("general, coding, cognitive, knowledge or task")),
		),
		chatTool(flows),
	)

	s.AddTool(
		mcp.NewTool(ToolAutomate,
			mcp.WithDescription("Write a script that automates a repetitive task, with an explanation."),
			mcp.WithString("task_description", mcp.Description("What should be automated"), mcp.Required()),
		),
		automateTool(flows),
	)

	s.AddTool(
		mcp.NewTool(ToolCode,
			mcp.WithDescription("Generate a code snippet from a spoken or written request."),
			mcp.WithString("voice_command", mcp.Description("Description of the code to write"), mcp.Required()),
		),
		codeTool(flows),
	)

	return s
}

func studyTool(flows FlowRunner) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return mcp.NewToolResultError("query is required"), nil
		}
		document, err := req.RequireString("document")
		if err != nil {
			return mcp.NewToolResultError("document is required"), nil
		}

		result, err := flows.StudyAssistant(ctx, models.StudyAssistantRequest{Query: query, Document: document})
		return jsonResult(result, err)
	}
}

func chatTool(flows FlowRunner) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		message, err := req.RequireString("message")
		if err != nil {
			return mcp.NewToolResultError("message is required"), nil
		}

		var history []models.ChatMessage
		if raw := req.GetString("history", ""); raw != "" {
			if err := json.Unmarshal([]byte(raw), &history); err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("history must be a JSON array of messages: %v", err)), nil
			}
		}

		result, err := flows.IntelligentChatMemory(ctx, models.ChatRequest{
			Message:     message,
			ChatHistory: history,
			Mode:        models.ChatMode(req.GetString("mode", "")),
		})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(result.Response), nil
	}
}

func automateTool(flows FlowRunner) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		task, err := req.RequireString("task_description")
		if err != nil {
			return mcp.NewToolResultError("task_description is required"), nil
		}

		result, err := flows.AutomateTask(ctx, models.AutomationRequest{TaskDescription: task})
		return jsonResult(result, err)
	}
}

func codeTool(flows FlowRunner) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		command, err := req.RequireString("voice_command")
		if err != nil {
			return mcp.NewToolResultError("voice_command is required"), nil
		}

		result, err := flows.GenerateCodeSnippet(ctx, models.CodeGenRequest{VoiceCommand: command})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(result.CodeSnippet), nil
	}
}

// jsonResult reports flow errors (validation only) as tool errors, not
// protocol errors, so the calling model can correct its arguments.
func jsonResult(v any, err error) (*mcp.CallToolResult, error) {
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
