package flows

import (
	"context"
	"fmt"
	"log"

	"aether-backend/internal/models"
	"aether-backend/internal/prompt"
	"aether-backend/internal/retry"
)

const automationFallbackExplanation = "I'm experiencing temporary connectivity issues. Please try again in a moment. If the problem persists, try simplifying your task description or breaking it into smaller parts."

// AutomateTask generates a script and explanation for a repetitive task.
func (s *Service) AutomateTask(ctx context.Context, req models.AutomationRequest) (models.AutomationResult, error) {
	v := validator{}
	v.required("taskDescription", req.TaskDescription)
	if err := v.err(); err != nil {
		return models.AutomationResult{}, err
	}

	out, err := invoke[prompt.AutomationOutput](ctx, s, s.policy(FlowAutomation, retry.IsTransient),
		prompt.Automation, prompt.AutomationInput{TaskDescription: req.TaskDescription})
	if err != nil {
		log.Printf("Task automation failed after retries: %v", err)
		return automationFallback(req.TaskDescription), nil
	}
	return models.AutomationResult{AutomationScript: out.AutomationScript, Explanation: out.Explanation}, nil
}

func automationFallback(task string) models.AutomationResult {
	script := fmt.Sprintf(`# Unable to generate automation script at this moment.
# Please try again in a few seconds.
#
# Your task: %s
#
# In the meantime, consider breaking down your task into smaller steps.`, task)
	return models.AutomationResult{AutomationScript: script, Explanation: automationFallbackExplanation}
}

// GenerateCodeSnippet turns a spoken description into code.
func (s *Service) GenerateCodeSnippet(ctx context.Context, req models.CodeGenRequest) (models.CodeGenResult, error) {
	v := validator{}
	v.required("voiceCommand", req.VoiceCommand)
	if err := v.err(); err != nil {
		return models.CodeGenResult{}, err
	}

	out, err := invoke[prompt.CodeGenOutput](ctx, s, s.policy(FlowCodeGeneration, retry.IsTransient),
		prompt.CodeGeneration, prompt.CodeGenInput{VoiceCommand: req.VoiceCommand})
	if err != nil {
		log.Printf("Code generation failed after retries: %v", err)
		return codeGenFallback(req.VoiceCommand), nil
	}
	return models.CodeGenResult{CodeSnippet: out.CodeSnippet}, nil
}

func codeGenFallback(command string) models.CodeGenResult {
	return models.CodeGenResult{CodeSnippet: fmt.Sprintf(`// Unable to generate code at this moment.
// Please try again in a few seconds.
//
// Your request: %s
//
// Tip: Try breaking down your request into smaller, more specific parts.`, command)}
}
