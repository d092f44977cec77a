// Package history implements per-session conversation history with
// checkpoint/rollback.
package history

import "github.com/fentz26/toolrouter/internal/toolapi"

// Marker is an opaque snapshot identifier returned by Checkpoint. Its
// internal representation is deliberately unexported so callers cannot
// forge or reinterpret it.
type Marker struct {
	length int
}

// History is an ordered, per-session message log. Not safe for concurrent
// use by itself; callers serialize access per session (the router does this
// with a per-session mutex).
type History struct {
	messages []toolapi.Message
}

// New constructs an empty History.
func New() *History {
	return &History{}
}

// Append pushes a message onto the history.
func (h *History) Append(role toolapi.Role, content string) {
	h.messages = append(h.messages, toolapi.Message{Role: role, Content: content})
}

// Messages returns an ordered copy of the history, safe for the caller to
// retain or mutate.
func (h *History) Messages() []toolapi.Message {
	out := make([]toolapi.Message, len(h.messages))
	copy(out, h.messages)
	return out
}

// Checkpoint returns an opaque marker capturing the current length.
func (h *History) Checkpoint() Marker {
	return Marker{length: len(h.messages)}
}

// Rollback truncates the history back to the length marker captured.
func (h *History) Rollback(marker Marker) {
	if marker.length < len(h.messages) {
		h.messages = h.messages[:marker.length]
	}
}

// Trim keeps the most recent maxTurns user+assistant pairs, preserving any
// leading system message. A "turn" is a user message plus every
// assistant/system message up to (but not including) the next user message.
func (h *History) Trim(maxTurns int) {
	if maxTurns <= 0 {
		return
	}

	var leadingSystem []toolapi.Message
	rest := h.messages
	for len(rest) > 0 && rest[0].Role == toolapi.RoleSystem {
		leadingSystem = append(leadingSystem, rest[0])
		rest = rest[1:]
	}

	turnStarts := make([]int, 0)
	for i, m := range rest {
		if m.Role == toolapi.RoleUser {
			turnStarts = append(turnStarts, i)
		}
	}

	if len(turnStarts) <= maxTurns {
		return
	}

	keepFrom := turnStarts[len(turnStarts)-maxTurns]
	trimmed := append([]toolapi.Message(nil), leadingSystem...)
	trimmed = append(trimmed, rest[keepFrom:]...)
	h.messages = trimmed
}
