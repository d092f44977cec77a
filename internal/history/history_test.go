package history

import (
	"testing"

	"github.com/fentz26/toolrouter/internal/toolapi"
)

func TestHistory_CheckpointRollbackIsNoOp(t *testing.T) {
	h := New()
	h.Append(toolapi.RoleUser, "hello")
	marker := h.Checkpoint()
	h.Rollback(marker)

	if len(h.Messages()) != 1 {
		t.Fatalf("checkpoint+rollback should be a no-op, got %v", h.Messages())
	}
}

func TestHistory_RollbackUndoesTurn(t *testing.T) {
	h := New()
	h.Append(toolapi.RoleUser, "first")
	marker := h.Checkpoint()
	h.Append(toolapi.RoleUser, "second")
	h.Append(toolapi.RoleAssistant, "reply")

	h.Rollback(marker)

	msgs := h.Messages()
	if len(msgs) != 1 || msgs[0].Content != "first" {
		t.Fatalf("expected rollback to restore prior history, got %v", msgs)
	}
}

func TestHistory_TrimPreservesLeadingSystemMessage(t *testing.T) {
	h := New()
	h.Append(toolapi.RoleSystem, "sys")
	for i := 0; i < 5; i++ {
		h.Append(toolapi.RoleUser, "u")
		h.Append(toolapi.RoleAssistant, "a")
	}

	h.Trim(2)

	msgs := h.Messages()
	if msgs[0].Role != toolapi.RoleSystem {
		t.Fatalf("expected leading system message to survive trim, got %v", msgs[0])
	}
	userCount := 0
	for _, m := range msgs {
		if m.Role == toolapi.RoleUser {
			userCount++
		}
	}
	if userCount != 2 {
		t.Fatalf("expected 2 user turns to survive trim, got %d", userCount)
	}
}

func TestHistory_MessagesReturnsCopy(t *testing.T) {
	h := New()
	h.Append(toolapi.RoleUser, "a")
	msgs := h.Messages()
	msgs[0].Content = "mutated"

	if h.Messages()[0].Content != "a" {
		t.Fatal("Messages() should return an independent copy")
	}
}
