// Package router implements the SmartRouter orchestrator: single-turn
// toolset assembly, agent execution, and the post-run bookkeeping that
// keeps the cache, health tracker, and usage metrics consistent with what
// actually happened during a turn.
package router

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fentz26/toolrouter/internal/agent"
	"github.com/fentz26/toolrouter/internal/cache"
	"github.com/fentz26/toolrouter/internal/catalog"
	"github.com/fentz26/toolrouter/internal/config"
	"github.com/fentz26/toolrouter/internal/health"
	"github.com/fentz26/toolrouter/internal/history"
	"github.com/fentz26/toolrouter/internal/logging"
	"github.com/fentz26/toolrouter/internal/metrics"
	"github.com/fentz26/toolrouter/internal/preload"
	"github.com/fentz26/toolrouter/internal/toolapi"
	"github.com/fentz26/toolrouter/internal/transport"
)

// SmartRouter wires together the catalog, cache, health tracker, metrics,
// per-session history, and an agent executor into single-turn processing.
type SmartRouter struct {
	cfg       *config.Config
	registry  *catalog.Registry
	cache     *cache.Cache
	health    *health.Tracker
	metrics   *metrics.Metrics
	executor  agent.Executor
	transport transport.Transport

	sessionsMu sync.Mutex
	sessions   map[string]*sessionState

	initOnce sync.Once
	initErr  error
}

type sessionState struct {
	mu      sync.Mutex
	history *history.History
}

// New constructs a SmartRouter. Initialize must be called before HandleTurn.
func New(cfg *config.Config, registry *catalog.Registry, c *cache.Cache, h *health.Tracker, m *metrics.Metrics, executor agent.Executor, tr transport.Transport) *SmartRouter {
	return &SmartRouter{
		cfg:       cfg,
		registry:  registry,
		cache:     c,
		health:    h,
		metrics:   m,
		executor:  executor,
		transport: tr,
		sessions:  make(map[string]*sessionState),
	}
}

// Initialize computes registry embeddings, loads usage metrics, and
// preloads the top-ranked bindings into the cache. Safe to call once per
// process.
func (r *SmartRouter) Initialize(ctx context.Context) error {
	r.initOnce.Do(func() {
		if err := r.registry.Initialize(ctx); err != nil {
			r.initErr = fmt.Errorf("%w: %v", ErrEmbeddingProvider, err)
			return
		}
		if err := r.metrics.Load(); err != nil {
			logging.Warnf("router: loading usage metrics: %v", err)
		}

		ranked := r.metrics.RankTop(r.cfg.PreloadCount)
		candidates := preload.CandidatesFromRanking(ranked, r.health)
		result := preload.Run(ctx, candidates, r.registry, r.transport, r.cache, r.cfg.PreloadConcurrency, r.cfg.PreloadCount)
		logging.Infof("router: preload opened %d of %d candidates", len(result.Opened), len(candidates))
	})
	return r.initErr
}

// Shutdown releases the cache and closes persistent files.
func (r *SmartRouter) Shutdown(_ context.Context) error {
	r.cache.ReleaseAll()
	return r.metrics.Close()
}

// CacheContents returns the current cached handles, MRU first.
func (r *SmartRouter) CacheContents() []toolapi.Handle {
	return r.cache.Contents()
}

// HealthSnapshot returns a read-only view of every tracked handle's health.
func (r *SmartRouter) HealthSnapshot() []health.Record {
	return r.health.Snapshot()
}

// RecentMetrics returns the n most recent usage events.
func (r *SmartRouter) RecentMetrics(n int) []metrics.Event {
	return r.metrics.Recent(n)
}

func (r *SmartRouter) sessionFor(sessionID string) *sessionState {
	r.sessionsMu.Lock()
	defer r.sessionsMu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok {
		s = &sessionState{history: history.New()}
		r.sessions[sessionID] = s
	}
	return s
}

// HandleTurn processes a single user turn end to end, following §4.6.1:
// assemble the toolset, optionally nudge discovery, run the agent, then
// apply success or selective-failure bookkeeping.
func (r *SmartRouter) HandleTurn(ctx context.Context, sessionID, userText string) (string, error) {
	if ctx.Err() == nil && r.cfg.TurnTimeoutSeconds > 0 {
		_, hasDeadline := ctx.Deadline()
		if !hasDeadline {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, r.cfg.TurnTimeout())
			defer cancel()
		}
	}

	sess := r.sessionFor(sessionID)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	h := sess.history
	pre := h.Checkpoint()
	h.Append(toolapi.RoleUser, userText)

	preHandles := toSet(r.cache.Contents())

	tools := r.assembleToolset(ctx)

	if category, queries, matched := matchNudge(userText, r.cfg.KeywordNudge); matched {
		if !r.cacheHasCategory(category) {
			logging.Debugf("router: eager nudge fired for category %q", category)
			r.runDiscovery(ctx, queries)
			tools = r.assembleToolset(ctx)
		}
	}

	result, err := r.executor.Run(ctx, h.Messages(), tools, r.cfg.MaxSteps)
	if err != nil {
		return "", r.bookkeepFailure(pre, h, preHandles, err)
	}

	r.bookkeepSuccess(h, result)
	return result.FinalText, nil
}

// HandleTurnStream is the streaming counterpart to HandleTurn: it runs the
// identical toolset-assembly and nudge logic, but calls onToken as the
// executor produces output, falling back transparently to the non-streaming
// path when the configured executor doesn't implement StreamingExecutor.
func (r *SmartRouter) HandleTurnStream(ctx context.Context, sessionID, userText string, onToken func(string)) error {
	streamer, ok := r.executor.(agent.StreamingExecutor)
	if !ok {
		text, err := r.HandleTurn(ctx, sessionID, userText)
		if err != nil {
			return err
		}
		if onToken != nil {
			onToken(text)
		}
		return nil
	}

	if ctx.Err() == nil && r.cfg.TurnTimeoutSeconds > 0 {
		_, hasDeadline := ctx.Deadline()
		if !hasDeadline {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, r.cfg.TurnTimeout())
			defer cancel()
		}
	}

	sess := r.sessionFor(sessionID)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	h := sess.history
	pre := h.Checkpoint()
	h.Append(toolapi.RoleUser, userText)

	preHandles := toSet(r.cache.Contents())

	tools := r.assembleToolset(ctx)

	if category, queries, matched := matchNudge(userText, r.cfg.KeywordNudge); matched {
		if !r.cacheHasCategory(category) {
			logging.Debugf("router: eager nudge fired for category %q", category)
			r.runDiscovery(ctx, queries)
			tools = r.assembleToolset(ctx)
		}
	}

	result, err := streamer.RunStream(ctx, h.Messages(), tools, r.cfg.MaxSteps, onToken)
	if err != nil {
		return r.bookkeepFailure(pre, h, preHandles, err)
	}

	r.bookkeepSuccess(h, result)
	return nil
}

func (r *SmartRouter) bookkeepSuccess(h *history.History, result agent.Result) {
	h.Append(toolapi.RoleAssistant, result.FinalText)
	h.Trim(r.cfg.MaxHistoryTurns)

	for _, handle := range result.TouchedHandles {
		r.cache.Touch(handle)
		r.health.MarkOK(handle)
		if err := r.metrics.Log(nowMillis(), handle, toolapi.OutcomeSuccess); err != nil {
			logging.Warnf("%v: %v", ErrMetricsWrite, err)
		}
	}
}

func (r *SmartRouter) bookkeepFailure(pre history.Marker, h *history.History, preHandles map[toolapi.Handle]bool, cause error) error {
	h.Rollback(pre)

	newHandles := diff(r.cache.Contents(), preHandles)
	for _, handle := range newHandles {
		r.cache.Evict(handle)
		r.health.MarkFail(handle)
		if err := r.metrics.Log(nowMillis(), handle, toolapi.OutcomeFailure); err != nil {
			logging.Warnf("%v: %v", ErrMetricsWrite, err)
		}
	}

	return newTurnError(cause, isRecoverable(cause))
}

// isRecoverable reports every agent-path failure as recoverable: step budget
// exhaustion, a cancelled or expired context, a transport error, and any
// other executor error alike. No agent-path error is classified as
// non-recoverable; ConfigError is raised at construction and never reaches
// this path.
func isRecoverable(_ error) bool {
	return true
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}

func toSet(handles []toolapi.Handle) map[toolapi.Handle]bool {
	set := make(map[toolapi.Handle]bool, len(handles))
	for _, h := range handles {
		set[h] = true
	}
	return set
}

func diff(current []toolapi.Handle, pre map[toolapi.Handle]bool) []toolapi.Handle {
	var out []toolapi.Handle
	for _, h := range current {
		if !pre[h] {
			out = append(out, h)
		}
	}
	return out
}

// assembleToolset gathers every active binding's tools plus the
// discover_tools meta-tool. Bindings are fetched LRU first, so the MRU
// promotion each Get performs leaves the cache's recency order unchanged.
func (r *SmartRouter) assembleToolset(_ context.Context) []toolapi.ToolSpec {
	handles := r.cache.Contents()
	perHandle := make([][]toolapi.ToolSpec, len(handles))
	for i := len(handles) - 1; i >= 0; i-- {
		binding, ok := r.cache.Get(handles[i])
		if !ok {
			continue
		}
		perHandle[i] = binding.Tools()
	}
	var tools []toolapi.ToolSpec
	for _, ts := range perHandle {
		tools = append(tools, ts...)
	}
	tools = append(tools, newDiscoverTool(r, r.cfg.DiscoverBindingK))
	return tools
}

// cacheHasCategory reports whether any currently cached handle belongs to
// category. Used by the eager nudge to avoid a redundant discovery call.
func (r *SmartRouter) cacheHasCategory(category string) bool {
	for _, h := range r.cache.Contents() {
		entry, ok := r.registry.Get(h)
		if ok && entry.Category == category {
			return true
		}
	}
	return false
}

// runDiscovery performs the eager-nudge discovery call synchronously,
// mirroring what the discover_tools meta-tool does when the agent calls it
// itself, so the tools it opens are present before the first agent step.
func (r *SmartRouter) runDiscovery(ctx context.Context, queries []string) {
	results, err := r.search(ctx, queries)
	if err != nil {
		logging.Warnf("router: eager nudge search failed: %v", err)
		return
	}
	k := r.cfg.DiscoverBindingK
	if k <= 0 {
		k = 1
	}
	opened := 0
	for _, res := range results {
		if opened >= k {
			break
		}
		if err := r.tryOpenAndCache(ctx, res.Handle); err != nil {
			logging.Warnf("router: eager nudge open %s failed: %v", res.Handle, err)
			r.markFailed(res.Handle)
			continue
		}
		opened++
	}
}

// --- discoveryPort implementation, shared by the meta-tool and the eager nudge ---

func (r *SmartRouter) search(ctx context.Context, queries []string) ([]toolapi.SearchResult, error) {
	excluded := toSet(r.cache.Contents())
	return r.registry.Search(ctx, queries, excluded, r.health.IsHealthy)
}

func (r *SmartRouter) tryOpenAndCache(ctx context.Context, h toolapi.Handle) error {
	entry, ok := r.registry.Get(h)
	if !ok {
		return fmt.Errorf("%w: handle %q not in catalog", ErrTransportOpen, h)
	}
	binding, err := r.transport.Open(ctx, transport.Spec{
		Handle:  h,
		Kind:    entry.TransportSpec.Kind,
		Command: entry.TransportSpec.Command,
		Args:    entry.TransportSpec.Args,
		Env:     entry.TransportSpec.Env,
		URL:     entry.TransportSpec.URL,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransportOpen, err)
	}
	r.cache.Insert(h, binding)
	return nil
}

func (r *SmartRouter) markFailed(h toolapi.Handle) {
	r.health.MarkFail(h)
}

var _ discoveryPort = (*SmartRouter)(nil)
