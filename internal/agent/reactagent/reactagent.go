// Package reactagent implements agent.Executor as a ReAct-style tool-calling
// loop backed by github.com/mozilla-ai/any-llm-go, a unified multi-provider
// LLM interface.
package reactagent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	anyllm "github.com/mozilla-ai/any-llm-go"

	"github.com/fentz26/toolrouter/internal/agent"
	"github.com/fentz26/toolrouter/internal/toolapi"
)

// handoffMarker is emitted by some MCP transports in place of a real
// response when a tool call silently failed to reach its server (auth
// expired, server restarted mid-call, etc). The model repeats it back
// verbatim in final_output when this happens, so it is the one reliable
// signal that execution did not really complete.
const handoffMarker = "__TOOLROUTER_HANDOFF__"

// ErrSilentToolFailure is returned when the model's final answer is, or
// contains, the handoff marker instead of real content.
var ErrSilentToolFailure = errors.New("reactagent: tool execution did not complete (handoff marker observed)")

// Agent drives a bounded tool-calling loop against a single backend model.
type Agent struct {
	backend anyllm.Provider
	model   string
}

// New constructs an Agent against an already-configured any-llm-go backend
// provider (one of its providers/* packages) and a model name.
func New(backend anyllm.Provider, model string) *Agent {
	return &Agent{backend: backend, model: model}
}

// Run implements agent.Executor.
func (a *Agent) Run(ctx context.Context, messages []toolapi.Message, tools []toolapi.ToolSpec, maxSteps int) (agent.Result, error) {
	if maxSteps <= 0 {
		maxSteps = 1
	}

	toolByName := make(map[string]toolapi.ToolSpec, len(tools))
	for _, t := range tools {
		toolByName[t.Name] = t
	}

	conversation := toConversation(messages)
	touched := make(map[toolapi.Handle]bool)

	for step := 0; step < maxSteps; step++ {
		select {
		case <-ctx.Done():
			return agent.Result{}, ctx.Err()
		default:
		}

		resp, err := a.backend.Completion(ctx, anyllm.CompletionParams{
			Model:    a.model,
			Messages: conversation,
			Tools:    toTools(tools),
		})
		if err != nil {
			return agent.Result{}, fmt.Errorf("reactagent: completion: %w", err)
		}
		if len(resp.Choices) == 0 {
			return agent.Result{}, errors.New("reactagent: empty choices in completion response")
		}

		choice := resp.Choices[0].Message
		content := choice.ContentString()

		if len(choice.ToolCalls) == 0 {
			if strings.Contains(content, handoffMarker) {
				return agent.Result{}, ErrSilentToolFailure
			}
			return agent.Result{
				FinalText:      content,
				TouchedHandles: handleSlice(touched),
			}, nil
		}

		conversation = append(conversation, choice)

		for _, call := range choice.ToolCalls {
			spec, ok := toolByName[call.Function.Name]
			if !ok {
				conversation = append(conversation, anyllm.Message{
					Role:       anyllm.RoleTool,
					Content:    fmt.Sprintf("unknown tool %q", call.Function.Name),
					ToolCallID: call.ID,
				})
				continue
			}

			result, invokeErr := spec.Invoke(ctx, call.Function.Arguments)
			if invokeErr != nil {
				conversation = append(conversation, anyllm.Message{
					Role:       anyllm.RoleTool,
					Content:    fmt.Sprintf("error: %v", invokeErr),
					ToolCallID: call.ID,
				})
				continue
			}

			if h, ok := handleOf(call.Function.Name); ok {
				touched[h] = true
			}
			conversation = append(conversation, anyllm.Message{
				Role:       anyllm.RoleTool,
				Content:    result,
				ToolCallID: call.ID,
			})
		}
	}

	return agent.Result{}, fmt.Errorf("reactagent: exceeded max steps (%d) without a final answer", maxSteps)
}

// RunStream implements agent.StreamingExecutor, driving the same bounded
// tool-calling loop as Run but streaming each step's assistant text deltas
// to onToken as the backend produces them instead of waiting for the full
// completion. Tool-call argument fragments are accumulated silently, same
// as glyphoxa's any-llm wrapper does, since they aren't meaningful output
// until the call is complete.
func (a *Agent) RunStream(ctx context.Context, messages []toolapi.Message, tools []toolapi.ToolSpec, maxSteps int, onToken func(string)) (agent.Result, error) {
	if maxSteps <= 0 {
		maxSteps = 1
	}

	toolByName := make(map[string]toolapi.ToolSpec, len(tools))
	for _, t := range tools {
		toolByName[t.Name] = t
	}

	conversation := toConversation(messages)
	touched := make(map[toolapi.Handle]bool)

	for step := 0; step < maxSteps; step++ {
		select {
		case <-ctx.Done():
			return agent.Result{}, ctx.Err()
		default:
		}

		choice, err := a.streamStep(ctx, conversation, tools, onToken)
		if err != nil {
			return agent.Result{}, err
		}

		content := choice.ContentString()

		if len(choice.ToolCalls) == 0 {
			if strings.Contains(content, handoffMarker) {
				return agent.Result{}, ErrSilentToolFailure
			}
			return agent.Result{
				FinalText:      content,
				TouchedHandles: handleSlice(touched),
			}, nil
		}

		conversation = append(conversation, choice)

		for _, call := range choice.ToolCalls {
			spec, ok := toolByName[call.Function.Name]
			if !ok {
				conversation = append(conversation, anyllm.Message{
					Role:       anyllm.RoleTool,
					Content:    fmt.Sprintf("unknown tool %q", call.Function.Name),
					ToolCallID: call.ID,
				})
				continue
			}

			result, invokeErr := spec.Invoke(ctx, call.Function.Arguments)
			if invokeErr != nil {
				conversation = append(conversation, anyllm.Message{
					Role:       anyllm.RoleTool,
					Content:    fmt.Sprintf("error: %v", invokeErr),
					ToolCallID: call.ID,
				})
				continue
			}

			if h, ok := handleOf(call.Function.Name); ok {
				touched[h] = true
			}
			conversation = append(conversation, anyllm.Message{
				Role:       anyllm.RoleTool,
				Content:    result,
				ToolCallID: call.ID,
			})
		}
	}

	return agent.Result{}, fmt.Errorf("reactagent: exceeded max steps (%d) without a final answer", maxSteps)
}

// streamStep drains one CompletionStream call into a single accumulated
// assistant message, forwarding text deltas to onToken as they arrive.
func (a *Agent) streamStep(ctx context.Context, conversation []anyllm.Message, tools []toolapi.ToolSpec, onToken func(string)) (anyllm.Message, error) {
	chunks, errs := a.backend.CompletionStream(ctx, anyllm.CompletionParams{
		Model:    a.model,
		Messages: conversation,
		Tools:    toTools(tools),
	})

	var content strings.Builder
	toolCallAccum := map[int]*anyllm.ToolCall{}
	var order []int

	for chunk := range chunks {
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta

		if delta.Content != "" {
			content.WriteString(delta.Content)
			if onToken != nil {
				onToken(delta.Content)
			}
		}

		for i, tc := range delta.ToolCalls {
			existing, ok := toolCallAccum[i]
			if !ok {
				existing = &anyllm.ToolCall{ID: tc.ID, Type: "function"}
				toolCallAccum[i] = existing
				order = append(order, i)
			}
			if tc.ID != "" {
				existing.ID = tc.ID
			}
			if tc.Function.Name != "" {
				existing.Function.Name = tc.Function.Name
			}
			existing.Function.Arguments += tc.Function.Arguments
		}
	}

	if err := <-errs; err != nil {
		return anyllm.Message{}, fmt.Errorf("reactagent: completion stream: %w", err)
	}

	msg := anyllm.Message{Role: anyllm.RoleAssistant, Content: content.String()}
	for _, i := range order {
		msg.ToolCalls = append(msg.ToolCalls, *toolCallAccum[i])
	}
	return msg, nil
}

var _ agent.StreamingExecutor = (*Agent)(nil)

// handleOf recovers the owning handle from a qualified tool name of the
// form "<handle>.<tool>", matching how the transport adapters qualify the
// tool names their bindings expose. The router's own
// discover_tools meta-tool carries no such qualifier, since it isn't owned
// by any catalog handle; ok is false for it so callers don't mistake it for
// a touched server.
func handleOf(qualifiedName string) (toolapi.Handle, bool) {
	idx := strings.IndexByte(qualifiedName, '.')
	if idx < 0 {
		return "", false
	}
	return toolapi.Handle(qualifiedName[:idx]), true
}

func handleSlice(set map[toolapi.Handle]bool) []toolapi.Handle {
	out := make([]toolapi.Handle, 0, len(set))
	for h := range set {
		out = append(out, h)
	}
	return out
}

func toConversation(messages []toolapi.Message) []anyllm.Message {
	out := make([]anyllm.Message, 0, len(messages))
	for _, m := range messages {
		out = append(out, anyllm.Message{Role: toRole(m.Role), Content: m.Content})
	}
	return out
}

func toRole(r toolapi.Role) string {
	switch r {
	case toolapi.RoleSystem:
		return anyllm.RoleSystem
	case toolapi.RoleAssistant:
		return anyllm.RoleAssistant
	default:
		return anyllm.RoleUser
	}
}

func toTools(tools []toolapi.ToolSpec) []anyllm.Tool {
	out := make([]anyllm.Tool, 0, len(tools))
	for _, t := range tools {
		params := t.Schema
		if params == nil {
			params = map[string]any{}
		}
		out = append(out, anyllm.Tool{
			Type: "function",
			Function: anyllm.Function{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  params,
			},
		})
	}
	return out
}
