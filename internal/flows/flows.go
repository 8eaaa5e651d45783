// Package flows holds the four AI tool orchestrators. Each validates its
// request, calls named prompts through the retry policy and, when the call
// still fails, returns a typed fallback instead of an error.
package flows

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"aether-backend/internal/prompt"
	"aether-backend/internal/retry"
)

// Flow names, used in logs and retry notifications.
const (
	FlowStudyAssistant = "studyAssistant"
	FlowChat           = "intelligentChatMemory"
	FlowAutomation     = "automateTask"
	FlowCodeGeneration = "generateCodeSnippet"
)

// RetryObserver is told about every retry inside a flow.
type RetryObserver func(ctx context.Context, flow string, a retry.Attempt)

type Service struct {
	invoker     prompt.Invoker
	maxAttempts int
	baseDelay   time.Duration
	sleep       func(context.Context, time.Duration) error
	observer    RetryObserver
}

type Option func(*Service)

// WithMaxAttempts overrides the attempt budget per prompt call (defaults to 3).
func WithMaxAttempts(n int) Option {
	return func(s *Service) { s.maxAttempts = n }
}

// WithBaseDelay overrides the first backoff delay (defaults to 1s).
func WithBaseDelay(d time.Duration) Option {
	return func(s *Service) { s.baseDelay = d }
}

// WithSleeper overrides how backoff sleeps are performed (useful for tests).
func WithSleeper(sleep func(context.Context, time.Duration) error) Option {
	return func(s *Service) { s.sleep = sleep }
}

func WithRetryObserver(obs RetryObserver) Option {
	return func(s *Service) { s.observer = obs }
}

func NewService(invoker prompt.Invoker, opts ...Option) *Service {
	s := &Service{
		invoker:     invoker,
		maxAttempts: retry.DefaultMaxAttempts,
		baseDelay:   retry.DefaultBaseDelay,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) policy(flow string, retryable func(error) bool) retry.Policy {
	p := retry.Policy{
		MaxAttempts: s.maxAttempts,
		BaseDelay:   s.baseDelay,
		Retryable:   retryable,
		Sleep:       s.sleep,
	}
	if s.observer != nil {
		obs := s.observer
		p.OnRetry = func(ctx context.Context, a retry.Attempt) { obs(ctx, flow, a) }
	}
	return p
}

// invoke runs one prompt call under p and decodes into a fresh Out.
func invoke[Out any](ctx context.Context, s *Service, p retry.Policy, name prompt.Name, input any) (Out, error) {
	return retry.Do(ctx, p, func(ctx context.Context) (Out, error) {
		var out Out
		err := s.invoker.Invoke(ctx, name, input, &out)
		return out, err
	})
}

// ValidationError is returned before any prompt call when a request is malformed.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s: %s", k, e.Fields[k])
	}
	return "invalid request: " + strings.Join(parts, "; ")
}

type validator map[string]string

func (v validator) required(field, value string) {
	if strings.TrimSpace(value) == "" {
		v[field] = "is required"
	}
}

func (v validator) err() error {
	if len(v) == 0 {
		return nil
	}
	return &ValidationError{Fields: v}
}
