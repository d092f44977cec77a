// Package mockagent is a scriptable test double for agent.Executor, used to
// exercise the router without a live model.
package mockagent

import (
	"context"
	"sync"

	"github.com/fentz26/toolrouter/internal/agent"
	"github.com/fentz26/toolrouter/internal/toolapi"
)

// RunCall records a single invocation of Run.
type RunCall struct {
	Messages []toolapi.Message
	Tools    []toolapi.ToolSpec
	MaxSteps int
}

// Agent is a mock implementation of agent.Executor.
type Agent struct {
	mu sync.Mutex

	// Result is returned by Run. If Invoke is set, it takes precedence.
	Result agent.Result
	// Err, if non-nil, is returned as the error from Run.
	Err error
	// Invoke, if set, is called instead of returning Result/Err directly,
	// letting a test simulate a tool call against the supplied toolset.
	Invoke func(tools []toolapi.ToolSpec) (agent.Result, error)

	// Calls records every call to Run in order.
	Calls []RunCall
}

// Run records the call and returns Result/Err, or the outcome of Invoke.
func (a *Agent) Run(_ context.Context, messages []toolapi.Message, tools []toolapi.ToolSpec, maxSteps int) (agent.Result, error) {
	a.mu.Lock()
	a.Calls = append(a.Calls, RunCall{Messages: messages, Tools: tools, MaxSteps: maxSteps})
	invoke := a.Invoke
	result, err := a.Result, a.Err
	a.mu.Unlock()

	if invoke != nil {
		return invoke(tools)
	}
	return result, err
}

var _ agent.Executor = (*Agent)(nil)

// StreamingAgent wraps Agent with a RunStream that replays Result's
// FinalText through onToken in one shot, letting a test exercise the
// streaming path without a real token-by-token backend.
type StreamingAgent struct {
	*Agent
}

// RunStream implements agent.StreamingExecutor.
func (a *StreamingAgent) RunStream(ctx context.Context, messages []toolapi.Message, tools []toolapi.ToolSpec, maxSteps int, onToken func(string)) (agent.Result, error) {
	result, err := a.Run(ctx, messages, tools, maxSteps)
	if err != nil {
		return agent.Result{}, err
	}
	if onToken != nil && result.FinalText != "" {
		onToken(result.FinalText)
	}
	return result, nil
}

var _ agent.StreamingExecutor = (*StreamingAgent)(nil)
