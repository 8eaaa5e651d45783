package main

import (
	"context"
	"fmt"
	"log"
	"sync"

	"aether-backend/internal/config"
	"aether-backend/internal/flows"
	"aether-backend/internal/mcptools"
	"aether-backend/internal/prompt"
	"aether-backend/internal/retry"
)

// flowFactory builds the flow runner and a cleanup func for it.
type flowFactory func() (mcptools.FlowRunner, func(), error)

type commandContext struct {
	newFlows flowFactory

	flowsOnce sync.Once
	flows     mcptools.FlowRunner
	closeFn   func()
	flowsErr  error
}

func newCommandContext(factory flowFactory) *commandContext {
	return &commandContext{newFlows: factory}
}

func (c *commandContext) ensureFlows() (mcptools.FlowRunner, error) {
	c.flowsOnce.Do(func() {
		c.flows, c.closeFn, c.flowsErr = c.newFlows()
	})
	return c.flows, c.flowsErr
}

func (c *commandContext) close() {
	if c.closeFn != nil {
		c.closeFn()
	}
}

func defaultFlowFactory() (mcptools.FlowRunner, func(), error) {
	cfg, err := loadAIConfig()
	if err != nil {
		return nil, nil, err
	}

	invoker, err := prompt.NewGeminiInvoker(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiConcurrentReqs)
	if err != nil {
		return nil, nil, fmt.Errorf("gemini client: %w", err)
	}

	service := flows.NewService(invoker,
		flows.WithMaxAttempts(cfg.MaxAttempts),
		flows.WithBaseDelay(cfg.BaseDelay),
		flows.WithRetryObserver(func(ctx context.Context, flow string, a retry.Attempt) {
			log.Printf("%s: attempt %d/%d failed, retrying in %s: %v", flow, a.Index+1, a.MaxAttempts, a.Delay, a.Err)
		}),
	)
	return service, invoker.Close, nil
}

// loadAIConfig turns the config package's missing-variable panic into an error.
func loadAIConfig() (cfg config.AIConfig, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()
	return config.LoadAI(), nil
}
