package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/fentz26/toolrouter/internal/toolapi"
)

// fileEntry mirrors ServerEntry's YAML-facing shape. Kept separate from
// ServerEntry so the in-memory type never carries yaml struct tags it
// doesn't need at runtime.
type fileEntry struct {
	Handle      string   `yaml:"handle"`
	DisplayName string   `yaml:"display_name"`
	Category    string   `yaml:"category"`
	Description string   `yaml:"description"`
	Keywords    []string `yaml:"keywords"`
	Transport   struct {
		Kind    string            `yaml:"kind"`
		Command string            `yaml:"command"`
		Args    []string          `yaml:"args"`
		Env     map[string]string `yaml:"env"`
		URL     string            `yaml:"url"`
	} `yaml:"transport"`
}

type catalogFile struct {
	Servers []fileEntry `yaml:"servers"`
}

// LoadFile reads a static catalog from a YAML file of the form:
//
//	servers:
//	  - handle: fin-quotes
//	    display_name: Fin Quotes
//	    category: finance
//	    description: real-time and historical stock quotes
//	    keywords: [stock, price, ticker]
//	    transport:
//	      kind: stdio
//	      command: fin-quotes-server
//	      args: ["--stdio"]
func LoadFile(path string) ([]ServerEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: reading file: %w", err)
	}

	var cf catalogFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("catalog: parsing file: %w", err)
	}

	seen := make(map[string]bool, len(cf.Servers))
	entries := make([]ServerEntry, 0, len(cf.Servers))
	for _, fe := range cf.Servers {
		if fe.Handle == "" {
			return nil, fmt.Errorf("catalog: entry with empty handle")
		}
		if seen[fe.Handle] {
			return nil, fmt.Errorf("catalog: duplicate handle %q", fe.Handle)
		}
		seen[fe.Handle] = true

		entries = append(entries, ServerEntry{
			Handle:      toolapi.Handle(fe.Handle),
			DisplayName: fe.DisplayName,
			Category:    fe.Category,
			Description: fe.Description,
			Keywords:    fe.Keywords,
			TransportSpec: TransportSpec{
				Kind:    fe.Transport.Kind,
				Command: fe.Transport.Command,
				Args:    fe.Transport.Args,
				Env:     fe.Transport.Env,
				URL:     fe.Transport.URL,
			},
		})
	}
	return entries, nil
}
