package prompt

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const defaultModel = "gemini-2.5-flash"

// GeminiInvoker executes the registered prompts against a Gemini model.
type GeminiInvoker struct {
	client    *genai.Client
	modelName string
	rateChan  chan struct{} // Token bucket

	// generate is swapped out in tests.
	generate func(ctx context.Context, d definition, text string) (string, error)
}

func NewGeminiInvoker(apiKey, modelName string, concurrentReqs int) (*GeminiInvoker, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	if modelName == "" {
		modelName = defaultModel
	}

	g := newInvoker(concurrentReqs)
	g.client = client
	g.modelName = modelName
	g.generate = g.generateContent
	return g, nil
}

func newInvoker(concurrentReqs int) *GeminiInvoker {
	if concurrentReqs <= 0 {
		concurrentReqs = 1
	}
	rateChan := make(chan struct{}, concurrentReqs)
	for i := 0; i < concurrentReqs; i++ {
		rateChan <- struct{}{}
	}
	return &GeminiInvoker{rateChan: rateChan}
}

func (g *GeminiInvoker) Close() {
	if g.client != nil {
		g.client.Close()
	}
}

// acquireRate blocks until a rate slot is available
func (g *GeminiInvoker) acquireRate(ctx context.Context) error {
	select {
	case <-g.rateChan:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(2 * time.Minute):
		return fmt.Errorf("timeout waiting for Gemini rate slot")
	}
}

func (g *GeminiInvoker) releaseRate() {
	g.rateChan <- struct{}{}
}

func (g *GeminiInvoker) Invoke(ctx context.Context, name Name, input any, output any) error {
	d, err := lookup(name)
	if err != nil {
		return err
	}

	text, err := d.render(input)
	if err != nil {
		return err
	}

	if err := g.acquireRate(ctx); err != nil {
		return err
	}
	raw, err := g.generate(ctx, d, text)
	g.releaseRate()
	if err != nil {
		return err
	}

	if err := decodeStructured(raw, output, d.requiredKeys()); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

func (g *GeminiInvoker) generateContent(ctx context.Context, d definition, text string) (string, error) {
	model := g.client.GenerativeModel(g.modelName)
	model.SetTemperature(0.3)
	model.SetTopP(0.95)
	model.ResponseMIMEType = "application/json"
	model.ResponseSchema = d.schema()

	resp, err := model.GenerateContent(ctx, genai.Text(text))
	if err != nil {
		return "", fmt.Errorf("Gemini API error: %w", err)
	}

	for i, cand := range resp.Candidates {
		if cand.FinishReason != genai.FinishReasonStop {
			log.Printf("WARNING: Gemini candidate %d for %s stopped due to %s", i, d.name, cand.FinishReason)
		}
	}

	rawText := extractText(resp)
	if strings.TrimSpace(rawText) == "" {
		return "", fmt.Errorf("Gemini returned empty response for %s", d.name)
	}
	return rawText, nil
}

func extractText(resp *genai.GenerateContentResponse) string {
	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				if t, ok := part.(genai.Text); ok {
					text.WriteString(string(t))
				}
			}
		}
	}
	return text.String()
}

// decodeStructured strips markdown fences, unmarshals the JSON object into out
// and checks that every required key was present.
func decodeStructured(raw string, out any, required []string) error {
	rawText := strings.TrimSpace(raw)
	rawText = strings.TrimPrefix(rawText, "```json")
	rawText = strings.TrimPrefix(rawText, "```")
	rawText = strings.TrimSuffix(rawText, "```")
	rawText = strings.TrimSpace(rawText)

	if !strings.HasPrefix(rawText, "{") {
		start := strings.Index(rawText, "{")
		end := strings.LastIndex(rawText, "}")
		if start < 0 || end <= start {
			return fmt.Errorf("response is not a JSON object")
		}
		rawText = rawText[start : end+1]
	}

	var keys map[string]json.RawMessage
	if err := json.Unmarshal([]byte(rawText), &keys); err != nil {
		return fmt.Errorf("parse structured output: %w", err)
	}
	for _, k := range required {
		v, ok := keys[k]
		if !ok || string(v) == "null" {
			return fmt.Errorf("structured output missing %q", k)
		}
	}

	if err := json.Unmarshal([]byte(rawText), out); err != nil {
		return fmt.Errorf("decode structured output: %w", err)
	}
	return nil
}
