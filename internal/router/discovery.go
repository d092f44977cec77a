package router

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fentz26/toolrouter/internal/logging"
	"github.com/fentz26/toolrouter/internal/toolapi"
)

// discoveryPort is the narrow surface the discover_tools meta-tool needs.
// Keeping it this small (rather than handing the tool a reference to the
// whole router) lets the meta-tool be built and tested in isolation.
type discoveryPort interface {
	search(ctx context.Context, queries []string) ([]toolapi.SearchResult, error)
	tryOpenAndCache(ctx context.Context, h toolapi.Handle) error
	markFailed(h toolapi.Handle)
}

const discoverToolName = "discover_tools"

type discoverArgs struct {
	Queries []string `json:"queries"`
}

// newDiscoverTool builds the discover_tools meta-tool. bindingK caps how
// many of the search results get an eager try-open-and-cache side effect
// (default 1 per SPEC_FULL.md's discover_binding_k).
func newDiscoverTool(port discoveryPort, bindingK int) toolapi.ToolSpec {
	if bindingK <= 0 {
		bindingK = 1
	}
	return toolapi.ToolSpec{
		Name:        discoverToolName,
		Description: "Search the tool catalog for servers matching one or more natural-language queries. Opens the best match(es) automatically.",
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"queries": map[string]any{
					"type":  "array",
					"items": map[string]any{"type": "string"},
				},
			},
			"required": []string{"queries"},
		},
		Invoke: func(ctx context.Context, rawArgs string) (string, error) {
			var args discoverArgs
			if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
				return "", fmt.Errorf("discover_tools: decode arguments: %w", err)
			}

			results, err := port.search(ctx, args.Queries)
			if err != nil {
				logging.Warnf("discover_tools: search failed: %v", err)
				return "[]", nil
			}

			kept := make([]toolapi.SearchResult, 0, len(results))
			opened := 0
			for _, r := range results {
				if opened < bindingK {
					if openErr := port.tryOpenAndCache(ctx, r.Handle); openErr != nil {
						logging.Warnf("discover_tools: open %s failed: %v", r.Handle, openErr)
						port.markFailed(r.Handle)
						continue
					}
					opened++
				}
				kept = append(kept, r)
			}

			out, err := json.Marshal(kept)
			if err != nil {
				return "", fmt.Errorf("discover_tools: encode results: %w", err)
			}
			return string(out), nil
		},
	}
}
