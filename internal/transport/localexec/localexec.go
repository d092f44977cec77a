// Package localexec is a minimal Transport that execs a fixed allowlist of
// local binaries as a single tool. It speaks no real server protocol; it
// exists to exercise the router in tests and local development without a
// live MCP server, and to deterministically inject transport failures (a
// command not in the allowlist always returns an ErrCommandNotAllowed-wrapped
// error from Open).
package localexec

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/fentz26/toolrouter/internal/toolapi"
	"github.com/fentz26/toolrouter/internal/transport"
)

// ErrCommandNotAllowed is returned by Open when spec.Command is not on the
// allowlist.
var ErrCommandNotAllowed = errors.New("localexec: command not allowed")

// allowedCommands is the strict allowlist of executable programs and the
// subcommands each may be invoked with.
var allowedCommands = map[string][]string{
	"go":  {"version", "test"},
	"git": {"diff", "status"},
}

// Transport implements transport.Transport by exec'ing allowlisted local
// binaries. Each opened binding exposes exactly one tool, "<handle>.run",
// which reruns the bound command with the caller's extra_args appended.
type Transport struct {
	workDir string
}

var _ transport.Transport = (*Transport)(nil)

// New creates a Transport rooted at workDir (may be empty for the current
// working directory).
func New(workDir string) *Transport {
	return &Transport{workDir: workDir}
}

// Open implements transport.Transport.
func (t *Transport) Open(ctx context.Context, spec transport.Spec) (transport.Binding, error) {
	if !isAllowed(spec.Command, spec.Args) {
		return nil, fmt.Errorf("%w: %s %s", ErrCommandNotAllowed, spec.Command, strings.Join(spec.Args, " "))
	}
	return &binding{workDir: t.workDir, handle: spec.Handle, command: spec.Command, args: spec.Args}, nil
}

func isAllowed(cmd string, args []string) bool {
	subcmds, ok := allowedCommands[cmd]
	if !ok || len(args) == 0 {
		return false
	}
	for _, allowed := range subcmds {
		if args[0] == allowed {
			return true
		}
	}
	return false
}

type binding struct {
	workDir string
	handle  toolapi.Handle
	command string
	args    []string
}

func (b *binding) Tools() []toolapi.ToolSpec {
	return []toolapi.ToolSpec{
		{
			Name:        string(b.handle) + ".run",
			Description: fmt.Sprintf("Re-run %q with the bound arguments, optionally appending more.", b.command),
			Schema:      map[string]any{"type": "object", "properties": map[string]any{"extra_args": map[string]any{"type": "string"}}},
			Invoke:      b.invoke,
		},
	}
}

func (b *binding) invoke(ctx context.Context, args string) (string, error) {
	var extra []string
	if strings.TrimSpace(args) != "" {
		var parsed struct {
			ExtraArgs string `json:"extra_args"`
		}
		if err := json.Unmarshal([]byte(args), &parsed); err != nil {
			return "", fmt.Errorf("localexec: invalid args JSON: %w", err)
		}
		extra = strings.Fields(parsed.ExtraArgs)
	}
	all := append(append([]string(nil), b.args...), extra...)
	cmd := exec.CommandContext(ctx, b.command, all...)
	if b.workDir != "" {
		cmd.Dir = b.workDir
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return stdout.String() + stderr.String(), nil
		}
		return "", fmt.Errorf("localexec: exec error: %w", err)
	}
	return stdout.String(), nil
}

func (b *binding) Close() error { return nil }
