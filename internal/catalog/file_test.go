package catalog

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")
	content := `
servers:
  - handle: fin-quotes
    display_name: Fin Quotes
    category: finance
    description: stock quotes
    keywords: [stock, price]
    transport:
      kind: stdio
      command: fin-quotes-server
      args: ["--stdio"]
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	entries, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if len(entries) != 1 || entries[0].Handle != "fin-quotes" {
		t.Fatalf("unexpected entries: %+v", entries)
	}
	if entries[0].TransportSpec.Command != "fin-quotes-server" {
		t.Fatalf("unexpected transport spec: %+v", entries[0].TransportSpec)
	}
}

func TestLoadFile_RejectsDuplicateHandles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")
	content := `
servers:
  - handle: dup
    display_name: A
  - handle: dup
    display_name: B
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	if _, err := LoadFile(path); err == nil {
		t.Fatal("expected an error for a duplicate handle")
	}
}
