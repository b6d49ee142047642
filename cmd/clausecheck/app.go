package main

import (
	"fmt"

	"go.uber.org/zap"

	"clausecheck/internal/config"
	"clausecheck/internal/embedding"
	"clausecheck/internal/events"
	"clausecheck/internal/llm"
	"clausecheck/internal/pipeline"
	"clausecheck/internal/playbook"
	"clausecheck/internal/store"
)

// app bundles the wired collaborators shared by the CLI commands.
type app struct {
	store        *store.Store
	bus          *events.Bus
	orchestrator *pipeline.Orchestrator
	playbook     *playbook.Manager
}

func buildApp(cfg *config.Config, logger *zap.Logger) (*app, error) {
	var engine embedding.Engine
	if cfg.Embedding.Provider != "" {
		var err error
		engine, err = embedding.NewEngine(cfg.Embedding)
		if err != nil {
			return nil, fmt.Errorf("embedding engine: %w", err)
		}
		logger.Info("embedding engine ready", zap.String("engine", engine.Name()))
	} else {
		logger.Info("no embedding provider configured, retrieval uses keyword ranking")
	}

	st, err := store.Open(cfg.DatabasePath, engine, logger)
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}

	completer := llm.NewAnthropicClient(llm.AnthropicConfig{
		APIKey:  cfg.LLM.APIKey,
		BaseURL: cfg.LLM.BaseURL,
		Model:   cfg.LLM.Model,
		Timeout: cfg.LLMTimeout(),
	}, logger)
	if completer.Offline() {
		logger.Warn("no ANTHROPIC_API_KEY configured, completions use the offline heuristic")
	}

	bus := events.NewBus()
	orchestrator := pipeline.New(st, completer, pipeline.Options{
		Versions: st,
		Indexer:  st,
		Events:   bus,
		Rates:    &cfg.CostRates,
		Logger:   logger,
	})

	return &app{
		store:        st,
		bus:          bus,
		orchestrator: orchestrator,
		playbook:     playbook.NewManager(st, logger),
	}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}
