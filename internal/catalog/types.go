package catalog

import "github.com/fentz26/toolrouter/internal/toolapi"

// TransportSpec is an opaque blob describing how to open a binding for a
// server entry. Its fields are interpreted only by the transport layer.
type TransportSpec struct {
	Kind    string            // e.g. "stdio", "streamable-http", "localexec"
	Command string            // stdio / localexec: program to run
	Args    []string          // stdio / localexec: program arguments
	Env     map[string]string // stdio: extra environment variables
	URL     string            // streamable-http: endpoint address
}

// ServerEntry is a single static catalog record. Entries are immutable
// after construction.
type ServerEntry struct {
	Handle        toolapi.Handle
	DisplayName   string
	Category      string
	Description   string
	Keywords      []string
	TransportSpec TransportSpec
}

// embeddedEntry augments a ServerEntry with its precomputed embedding
// vector. Computed once during Initialize; never mutated afterward.
type embeddedEntry struct {
	entry     ServerEntry
	embedding []float32
}

func (e ServerEntry) clone() ServerEntry {
	cp := e
	if e.Keywords != nil {
		cp.Keywords = append([]string(nil), e.Keywords...)
	}
	if e.TransportSpec.Args != nil {
		cp.TransportSpec.Args = append([]string(nil), e.TransportSpec.Args...)
	}
	if e.TransportSpec.Env != nil {
		cp.TransportSpec.Env = make(map[string]string, len(e.TransportSpec.Env))
		for k, v := range e.TransportSpec.Env {
			cp.TransportSpec.Env[k] = v
		}
	}
	return cp
}

// embedText builds the exact text embedded for a server entry, per the
// format name + ". " + description + " keywords: " + joined keywords.
func embedText(e ServerEntry) string {
	text := e.DisplayName + ". " + e.Description
	if len(e.Keywords) > 0 {
		text += " keywords: "
		for i, kw := range e.Keywords {
			if i > 0 {
				text += ", "
			}
			text += kw
		}
	}
	return text
}
