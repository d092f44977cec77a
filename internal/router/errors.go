package router

import "errors"

// Stable error kinds surfaced by the router. Most are absorbed internally
// and only logged; the one kind that ever reaches HandleTurn's caller is
// ErrAgentExecution, wrapped so callers can still distinguish recoverable
// failures from non-recoverable ones via Recoverable().
var (
	ErrEmbeddingProvider = errors.New("embedding provider error")
	ErrTransportOpen     = errors.New("transport open error")
	ErrAgentExecution    = errors.New("agent execution error")
	ErrMetricsWrite      = errors.New("metrics write error")
	ErrConfig            = errors.New("invalid configuration")
)

// TurnError is returned by HandleTurn on failure. It wraps the underlying
// cause and reports whether retrying the same turn is worth attempting.
type TurnError struct {
	kind        error
	cause       error
	recoverable bool
}

func (e *TurnError) Error() string {
	if e.cause == nil {
		return e.kind.Error()
	}
	return e.kind.Error() + ": " + e.cause.Error()
}

// Unwrap exposes both the stable kind and the underlying cause to errors.Is
// and errors.As.
func (e *TurnError) Unwrap() []error {
	if e.cause == nil {
		return []error{e.kind}
	}
	return []error{e.kind, e.cause}
}

// Recoverable reports whether the caller may usefully retry the same turn.
// HandleTurn marks every agent-path failure recoverable (step-budget
// exhaustion, context deadline/cancellation and any other executor error);
// it does not classify any agent-path error as non-recoverable.
func (e *TurnError) Recoverable() bool {
	return e.recoverable
}

func newTurnError(cause error, recoverable bool) *TurnError {
	return &TurnError{kind: ErrAgentExecution, cause: cause, recoverable: recoverable}
}
