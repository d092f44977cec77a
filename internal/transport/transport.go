// Package transport defines the Transport/Binding abstraction the router
// consumes to turn a catalog entry's transport spec into callable tools.
package transport

import (
	"context"

	"github.com/fentz26/toolrouter/internal/toolapi"
)

// Spec is the transport-facing view of a catalog entry's transport_spec.
type Spec struct {
	Handle  toolapi.Handle
	Kind    string
	Command string
	Args    []string
	Env     map[string]string
	URL     string
}

// Binding is a live connection to a server plus the tools it exposes.
type Binding interface {
	// Tools returns the callable tools this binding exposes.
	Tools() []toolapi.ToolSpec
	// Close releases the underlying connection. Safe to call once.
	Close() error
}

// Transport opens a Binding for a given spec.
type Transport interface {
	Open(ctx context.Context, spec Spec) (Binding, error)
}
