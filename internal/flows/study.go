package flows

import (
	"context"
	"log"

	"aether-backend/internal/models"
	"aether-backend/internal/prompt"
	"aether-backend/internal/retry"
)

const studyFallbackAnswer = "I'm having trouble processing your request right now. Please try again in a moment. If the issue persists, try with a shorter document or a more specific question."

// StudyAssistant answers a question about a document in up to three
// sequential stages: classify, summarize when the classifier asks for it,
// then answer. A failure in any stage after its retries yields the fallback,
// including a failed summary (fail-closed).
func (s *Service) StudyAssistant(ctx context.Context, req models.StudyAssistantRequest) (models.StudyAssistantResult, error) {
	v := validator{}
	v.required("query", req.Query)
	v.required("document", req.Document)
	if err := v.err(); err != nil {
		return models.StudyAssistantResult{}, err
	}

	result, err := s.runStudy(ctx, req)
	if err != nil {
		log.Printf("Study assistant failed after retries: %v", err)
		return models.StudyAssistantResult{
			Answer:          studyFallbackAnswer,
			RequiresSummary: false,
			Summary:         nil,
		}, nil
	}
	return result, nil
}

func (s *Service) runStudy(ctx context.Context, req models.StudyAssistantRequest) (models.StudyAssistantResult, error) {
	p := s.policy(FlowStudyAssistant, retry.IsOverloadOrRateLimit)
	input := prompt.StudyInput{Query: req.Query, Document: req.Document}

	classified, err := invoke[prompt.RequiresSummaryOutput](ctx, s, p, prompt.RequiresSummary, input)
	if err != nil {
		return models.StudyAssistantResult{}, err
	}
	requiresSummary := classified.RequiresSummary

	var summary *string
	if requiresSummary {
		out, err := invoke[prompt.SummaryOutput](ctx, s, p, prompt.Summary, input)
		if err != nil {
			return models.StudyAssistantResult{}, err
		}
		summary = &out.Summary
	}

	answered, err := invoke[prompt.AnswerOutput](ctx, s, p, prompt.Answer, prompt.AnswerInput{
		Query:    req.Query,
		Document: req.Document,
		Summary:  summary,
	})
	if err != nil {
		return models.StudyAssistantResult{}, err
	}

	return models.StudyAssistantResult{
		Answer:          answered.Answer,
		RequiresSummary: requiresSummary,
		Summary:         summary,
	}, nil
}
