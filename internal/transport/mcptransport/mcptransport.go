// Package mcptransport implements transport.Transport over the Model
// Context Protocol, using the official Go SDK. It supports stdio and
// streamable-HTTP servers.
package mcptransport

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/fentz26/toolrouter/internal/toolapi"
	"github.com/fentz26/toolrouter/internal/transport"
)

// Transport opens MCP client sessions. A single Transport reuses one
// underlying SDK client across every server it opens.
type Transport struct {
	client *mcpsdk.Client
}

var _ transport.Transport = (*Transport)(nil)

// New constructs a Transport identifying itself to servers with the given
// implementation name and version.
func New(implementationName, version string) *Transport {
	client := mcpsdk.NewClient(&mcpsdk.Implementation{Name: implementationName, Version: version}, nil)
	return &Transport{client: client}
}

// Open implements transport.Transport. spec.Kind must be "stdio" or
// "streamable-http".
func (t *Transport) Open(ctx context.Context, spec transport.Spec) (transport.Binding, error) {
	var tr mcpsdk.Transport

	switch spec.Kind {
	case "stdio":
		if spec.Command == "" {
			return nil, fmt.Errorf("mcptransport: stdio server requires a non-empty command")
		}
		cmd := exec.CommandContext(ctx, spec.Command, spec.Args...)
		if len(spec.Env) > 0 {
			cmd.Env = os.Environ()
			for k, v := range spec.Env {
				cmd.Env = append(cmd.Env, k+"="+v)
			}
		}
		tr = &mcpsdk.CommandTransport{Command: cmd}
	case "streamable-http":
		if spec.URL == "" {
			return nil, fmt.Errorf("mcptransport: streamable-http server requires a non-empty URL")
		}
		tr = &mcpsdk.StreamableClientTransport{Endpoint: spec.URL}
	default:
		return nil, fmt.Errorf("mcptransport: unknown transport kind %q", spec.Kind)
	}

	session, err := t.client.Connect(ctx, tr, nil)
	if err != nil {
		return nil, fmt.Errorf("mcptransport: connect failed: %w", err)
	}

	var tools []toolapi.ToolSpec
	for sdkTool, err := range session.Tools(ctx, nil) {
		if err != nil {
			_ = session.Close()
			return nil, fmt.Errorf("mcptransport: listing tools failed: %w", err)
		}
		tools = append(tools, buildToolSpec(session, spec.Handle, *sdkTool))
	}

	return &binding{session: session, tools: tools}, nil
}

// buildToolSpec qualifies the tool's name as "<handle>.<tool>" so that the
// agent executor can map an invoked tool call back to the handle that owns
// it, while dispatching to the server under its own unqualified name.
func buildToolSpec(session *mcpsdk.ClientSession, handle toolapi.Handle, t mcpsdk.Tool) toolapi.ToolSpec {
	return toolapi.ToolSpec{
		Name:        string(handle) + "." + t.Name,
		Description: t.Description,
		Schema:      schemaToMap(t.InputSchema),
		Invoke: func(ctx context.Context, args string) (string, error) {
			var argsMap map[string]any
			if args != "" && args != "{}" {
				if err := json.Unmarshal([]byte(args), &argsMap); err != nil {
					return "", fmt.Errorf("mcptransport: invalid args JSON for tool %q: %w", t.Name, err)
				}
			}
			result, err := session.CallTool(ctx, &mcpsdk.CallToolParams{Name: t.Name, Arguments: argsMap})
			if err != nil {
				return "", fmt.Errorf("mcptransport: call to tool %q failed: %w", t.Name, err)
			}
			var sb strings.Builder
			for _, c := range result.Content {
				if tc, ok := c.(*mcpsdk.TextContent); ok {
					sb.WriteString(tc.Text)
				}
			}
			if result.IsError {
				return sb.String(), fmt.Errorf("mcptransport: tool %q reported an application error", t.Name)
			}
			return sb.String(), nil
		},
	}
}

func schemaToMap(schema any) map[string]any {
	if schema == nil {
		return map[string]any{"type": "object"}
	}
	if m, ok := schema.(map[string]any); ok {
		return m
	}
	data, err := json.Marshal(schema)
	if err != nil {
		return map[string]any{"type": "object"}
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return map[string]any{"type": "object"}
	}
	return m
}

type binding struct {
	session *mcpsdk.ClientSession
	tools   []toolapi.ToolSpec
}

func (b *binding) Tools() []toolapi.ToolSpec { return b.tools }
func (b *binding) Close() error              { return b.session.Close() }
