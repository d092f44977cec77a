package router

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fentz26/toolrouter/internal/agent"
	"github.com/fentz26/toolrouter/internal/agent/mockagent"
	"github.com/fentz26/toolrouter/internal/cache"
	"github.com/fentz26/toolrouter/internal/catalog"
	"github.com/fentz26/toolrouter/internal/config"
	"github.com/fentz26/toolrouter/internal/embedding/hashembed"
	"github.com/fentz26/toolrouter/internal/health"
	"github.com/fentz26/toolrouter/internal/metrics"
	"github.com/fentz26/toolrouter/internal/toolapi"
	"github.com/fentz26/toolrouter/internal/transport"
)

type fakeBinding struct {
	name   string
	closed bool
}

func (b *fakeBinding) Tools() []toolapi.ToolSpec {
	return []toolapi.ToolSpec{{
		Name: b.name + ".run",
		Invoke: func(_ context.Context, _ string) (string, error) {
			return "ok", nil
		},
	}}
}

func (b *fakeBinding) Close() error {
	b.closed = true
	return nil
}

type fakeTransport struct {
	failHandles map[toolapi.Handle]bool
}

func (f *fakeTransport) Open(_ context.Context, spec transport.Spec) (transport.Binding, error) {
	if f.failHandles[toolapi.Handle(spec.Command)] {
		return nil, errors.New("connection refused")
	}
	return &fakeBinding{name: spec.Command}, nil
}

func testCatalog() []catalog.ServerEntry {
	return []catalog.ServerEntry{
		{Handle: "fin-quotes", DisplayName: "Fin Quotes", Category: "finance", Description: "stock quotes", Keywords: []string{"stock", "price"}, TransportSpec: catalog.TransportSpec{Kind: "stdio", Command: "fin-quotes"}},
		{Handle: "news-wire", DisplayName: "News Wire", Category: "news", Description: "breaking news", Keywords: []string{"news", "headline"}, TransportSpec: catalog.TransportSpec{Kind: "stdio", Command: "news-wire"}},
	}
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.MaxCacheSize = 10
	cfg.PreloadCount = 0
	cfg.MaxSteps = 4
	cfg.DiscoverBindingK = 1
	cfg.TurnTimeoutSeconds = 0
	return cfg
}

func newTestRouter(t *testing.T, a agent.Executor, tr transport.Transport) *SmartRouter {
	t.Helper()
	reg := catalog.New(testCatalog(), hashembed.New(), 0, 0, 0)
	c, err := cache.New(10)
	if err != nil {
		t.Fatalf("cache.New() error = %v", err)
	}
	h := health.New(10 * time.Second)
	m, err := metrics.New(t.TempDir())
	if err != nil {
		t.Fatalf("metrics.New() error = %v", err)
	}
	r := New(testConfig(), reg, c, h, m, a, tr)
	if err := r.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	return r
}

func TestHandleTurn_SuccessRecordsUsageAndTouchesCache(t *testing.T) {
	tr := &fakeTransport{}
	mock := &mockagent.Agent{
		Invoke: func(tools []toolapi.ToolSpec) (agent.Result, error) {
			return agent.Result{FinalText: "done", TouchedHandles: []toolapi.Handle{"fin-quotes"}}, nil
		},
	}
	r := newTestRouter(t, mock, tr)
	r.cache.Insert("fin-quotes", &fakeBinding{name: "fin-quotes"})

	out, err := r.HandleTurn(context.Background(), "session-1", "what's AAPL doing")
	if err != nil {
		t.Fatalf("HandleTurn() error = %v", err)
	}
	if out != "done" {
		t.Fatalf("unexpected output: %q", out)
	}
	if !r.health.IsHealthy("fin-quotes") {
		t.Fatal("expected fin-quotes to remain healthy")
	}
	recent := r.RecentMetrics(10)
	if len(recent) != 1 || recent[0].Outcome != toolapi.OutcomeSuccess {
		t.Fatalf("expected one success event, got %v", recent)
	}
}

func TestHandleTurn_FailureRollsBackHistoryAndEvictsOnlyNewHandles(t *testing.T) {
	tr := &fakeTransport{}
	var r *SmartRouter
	mock := &mockagent.Agent{
		Invoke: func(_ []toolapi.ToolSpec) (agent.Result, error) {
			// Simulate discover_tools side effect adding a brand-new handle this
			// turn by calling tryOpenAndCache directly before the agent "fails".
			if err := r.tryOpenAndCache(context.Background(), "news-wire"); err != nil {
				return agent.Result{}, err
			}
			return agent.Result{}, errors.New("model unavailable")
		},
	}
	r = newTestRouter(t, mock, tr)

	// Pre-existing, known-good handle that must survive the failure.
	r.cache.Insert("fin-quotes", &fakeBinding{name: "fin-quotes"})

	_, err := r.HandleTurn(context.Background(), "session-2", "ignored, failure is forced")
	if err == nil {
		t.Fatal("expected HandleTurn to return an error")
	}

	sess := r.sessionFor("session-2")
	if len(sess.history.Messages()) != 0 {
		t.Fatalf("expected history to be rolled back, got %v", sess.history.Messages())
	}

	if _, ok := r.cache.Get("fin-quotes"); !ok {
		t.Fatal("pre-existing handle must survive a failed turn")
	}
	if !r.health.IsHealthy("fin-quotes") {
		t.Fatal("pre-existing handle's health must be untouched by an unrelated failure")
	}

	if _, ok := r.cache.Get("news-wire"); ok {
		t.Fatal("handle introduced during the failed turn must be evicted")
	}
	if r.health.IsHealthy("news-wire") {
		t.Fatal("handle introduced during the failed turn must be marked unhealthy")
	}
}

func TestHandleTurn_SessionsAreIndependent(t *testing.T) {
	tr := &fakeTransport{}
	mock := &mockagent.Agent{Result: agent.Result{FinalText: "ok"}}
	r := newTestRouter(t, mock, tr)

	if _, err := r.HandleTurn(context.Background(), "a", "hello"); err != nil {
		t.Fatalf("HandleTurn() error = %v", err)
	}
	if _, err := r.HandleTurn(context.Background(), "b", "hi"); err != nil {
		t.Fatalf("HandleTurn() error = %v", err)
	}

	sessA := r.sessionFor("a")
	sessB := r.sessionFor("b")
	if len(sessA.history.Messages()) != 2 || len(sessB.history.Messages()) != 2 {
		t.Fatalf("expected each session to have its own 2-message history, got %d and %d",
			len(sessA.history.Messages()), len(sessB.history.Messages()))
	}
}

func TestHandleTurn_EagerNudgeOpensMatchingCategory(t *testing.T) {
	tr := &fakeTransport{}
	mock := &mockagent.Agent{Result: agent.Result{FinalText: "ok"}}
	r := newTestRouter(t, mock, tr)
	r.cfg.KeywordNudge = []config.NudgeRule{
		{Category: "finance", Keywords: []string{"stock"}, DiscoveryQueries: []string{"stock price lookup"}},
	}

	if _, err := r.HandleTurn(context.Background(), "session-3", "what's the stock price today"); err != nil {
		t.Fatalf("HandleTurn() error = %v", err)
	}

	found := false
	for _, h := range r.cache.Contents() {
		if h == "fin-quotes" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected the eager nudge to have opened fin-quotes")
	}
}

func TestHandleTurn_TurnErrorIsRecoverable(t *testing.T) {
	tr := &fakeTransport{}
	mock := &mockagent.Agent{Err: errors.New("boom")}
	r := newTestRouter(t, mock, tr)

	_, err := r.HandleTurn(context.Background(), "session-4", "hi")
	var turnErr *TurnError
	if !errors.As(err, &turnErr) {
		t.Fatalf("expected a *TurnError, got %T", err)
	}
	if !turnErr.Recoverable() {
		t.Fatal("expected the error to be marked recoverable")
	}
}

func TestHandleTurnStream_FallsBackToRunWhenExecutorDoesNotStream(t *testing.T) {
	tr := &fakeTransport{}
	mock := &mockagent.Agent{Result: agent.Result{FinalText: "plain text reply"}}
	r := newTestRouter(t, mock, tr)

	var got []string
	err := r.HandleTurnStream(context.Background(), "session-5", "hi", func(tok string) {
		got = append(got, tok)
	})
	if err != nil {
		t.Fatalf("HandleTurnStream() error = %v", err)
	}
	if len(got) != 1 || got[0] != "plain text reply" {
		t.Fatalf("expected the fallback to deliver the whole reply as one token, got %v", got)
	}
}

func TestHandleTurnStream_UsesStreamingExecutorAndRecordsUsage(t *testing.T) {
	tr := &fakeTransport{}
	mock := &mockagent.StreamingAgent{Agent: &mockagent.Agent{
		Invoke: func(tools []toolapi.ToolSpec) (agent.Result, error) {
			return agent.Result{FinalText: "streamed", TouchedHandles: []toolapi.Handle{"fin-quotes"}}, nil
		},
	}}
	r := newTestRouter(t, mock, tr)
	r.cache.Insert("fin-quotes", &fakeBinding{name: "fin-quotes"})

	var got []string
	err := r.HandleTurnStream(context.Background(), "session-6", "what's AAPL doing", func(tok string) {
		got = append(got, tok)
	})
	if err != nil {
		t.Fatalf("HandleTurnStream() error = %v", err)
	}
	if len(got) != 1 || got[0] != "streamed" {
		t.Fatalf("unexpected streamed tokens: %v", got)
	}
	recent := r.RecentMetrics(10)
	if len(recent) != 1 || recent[0].Outcome != toolapi.OutcomeSuccess {
		t.Fatalf("expected one success event, got %v", recent)
	}
}
