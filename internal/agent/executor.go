// Package agent defines the Executor interface consumed by the router, plus
// reference adapters.
package agent

import (
	"context"

	"github.com/fentz26/toolrouter/internal/toolapi"
)

// Result is what a turn-level agent run produces on success.
type Result struct {
	FinalText string
	// TouchedHandles lists the handles whose tools were actually invoked
	// during the run, grouped back from individual tool names by the
	// executor. A handle whose tools were merely listed in the toolset but
	// never called is not included.
	TouchedHandles []toolapi.Handle
}

// Executor runs an agent against a message history and a toolset, bounded
// by a step budget.
type Executor interface {
	// Run executes one agent turn. It must return an error (rather than
	// succeed silently) if ctx is cancelled, if maxSteps is exceeded, or if
	// the underlying model call fails.
	Run(ctx context.Context, messages []toolapi.Message, tools []toolapi.ToolSpec, maxSteps int) (Result, error)
}

// StreamingExecutor is an optional extension for Executors that can stream
// output tokens as they are produced. The router's HandleTurnStream uses
// this when available and otherwise falls back to Run.
type StreamingExecutor interface {
	Executor
	RunStream(ctx context.Context, messages []toolapi.Message, tools []toolapi.ToolSpec, maxSteps int, onToken func(string)) (Result, error)
}
