package main

import (
	"context"
	"fmt"
	"os"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	anyllmoai "github.com/mozilla-ai/any-llm-go/providers/openai"

	"github.com/fentz26/toolrouter/internal/agent"
	"github.com/fentz26/toolrouter/internal/agent/reactagent"
	"github.com/fentz26/toolrouter/internal/cache"
	"github.com/fentz26/toolrouter/internal/catalog"
	"github.com/fentz26/toolrouter/internal/config"
	"github.com/fentz26/toolrouter/internal/embedding"
	"github.com/fentz26/toolrouter/internal/embedding/hashembed"
	"github.com/fentz26/toolrouter/internal/embedding/openaiembed"
	"github.com/fentz26/toolrouter/internal/health"
	"github.com/fentz26/toolrouter/internal/logging"
	"github.com/fentz26/toolrouter/internal/metrics"
	"github.com/fentz26/toolrouter/internal/router"
	"github.com/fentz26/toolrouter/internal/transport"
	"github.com/fentz26/toolrouter/internal/transport/localexec"
	"github.com/fentz26/toolrouter/internal/transport/mcptransport"
)

// loadConfig resolves --config, falling back to ~/.toolrouter/config.yaml.
func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.Load(configPath)
	}
	return config.LoadFromHome()
}

// buildEmbeddingProvider constructs the embedding provider for cfg. An
// OPENAI_API_KEY in the environment selects the hosted adapter; otherwise
// the router falls back to the deterministic, dependency-free one so the
// CLI stays usable offline.
func buildEmbeddingProvider(cfg *config.Config) embedding.Provider {
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		p, err := openaiembed.New(key, cfg.EmbeddingModel)
		if err == nil {
			return p
		}
		logging.Warnf("bootstrap: openaiembed unavailable, falling back to hashembed: %v", err)
	}
	return hashembed.New()
}

// buildExecutor constructs the ReAct agent executor for cfg, backed by
// any-llm-go's OpenAI provider.
func buildExecutor(cfg *config.Config) (agent.Executor, error) {
	var opts []anyllmlib.Option
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		opts = append(opts, anyllmlib.WithAPIKey(key))
	}
	backend, err := anyllmoai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: constructing openai backend: %w", err)
	}
	return reactagent.New(backend, cfg.ExecutionModel), nil
}

// buildTransport constructs the Transport used to open new server bindings:
// the local-exec allowlist for catalog entries whose transport kind is
// "localexec", and real MCP servers for every other kind.
func buildTransport() transport.Transport {
	return multiTransport{
		mcp:   mcptransport.New("toolrouter", "0.1.0"),
		local: localexec.New(mustGetwd()),
	}
}

type multiTransport struct {
	mcp   *mcptransport.Transport
	local *localexec.Transport
}

func (m multiTransport) Open(ctx context.Context, spec transport.Spec) (transport.Binding, error) {
	if spec.Kind == "localexec" {
		return m.local.Open(ctx, spec)
	}
	return m.mcp.Open(ctx, spec)
}

func mustGetwd() string {
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return wd
}

// buildRouter wires every component into a ready-to-initialize SmartRouter.
func buildRouter(cfg *config.Config) (*router.SmartRouter, error) {
	if catalogPath == "" {
		return nil, fmt.Errorf("bootstrap: --catalog is required")
	}
	entries, err := catalog.LoadFile(catalogPath)
	if err != nil {
		return nil, err
	}

	registry := catalog.New(entries, buildEmbeddingProvider(cfg), cfg.SimilarityThreshold, cfg.RelativeScoreCutoff, cfg.SearchTopK)

	c, err := cache.New(cfg.MaxCacheSize)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: constructing cache: %w", err)
	}

	h := health.New(cfg.CooldownDuration())

	m, err := metrics.New(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: constructing metrics: %w", err)
	}

	executor, err := buildExecutor(cfg)
	if err != nil {
		return nil, err
	}

	return router.New(cfg, registry, c, h, m, executor, buildTransport()), nil
}
