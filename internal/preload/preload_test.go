package preload

import (
	"context"
	"errors"
	"testing"

	"github.com/fentz26/toolrouter/internal/cache"
	"github.com/fentz26/toolrouter/internal/catalog"
	"github.com/fentz26/toolrouter/internal/embedding/hashembed"
	"github.com/fentz26/toolrouter/internal/toolapi"
	"github.com/fentz26/toolrouter/internal/transport"
)

type fakeBinding struct{}

func (fakeBinding) Tools() []toolapi.ToolSpec { return nil }
func (fakeBinding) Close() error              { return nil }

type fakeTransport struct {
	failHandles map[string]bool
}

func (f *fakeTransport) Open(_ context.Context, spec transport.Spec) (transport.Binding, error) {
	if f.failHandles[spec.Command] {
		return nil, errors.New("connection refused")
	}
	return fakeBinding{}, nil
}

func testEntries() []catalog.ServerEntry {
	return []catalog.ServerEntry{
		{Handle: "fin-quotes", DisplayName: "Fin Quotes", Description: "stock quotes", TransportSpec: catalog.TransportSpec{Kind: "stdio", Command: "fin-quotes"}},
		{Handle: "news-wire", DisplayName: "News Wire", Description: "breaking news", TransportSpec: catalog.TransportSpec{Kind: "stdio", Command: "news-wire"}},
		{Handle: "broken-srv", DisplayName: "Broken Server", Description: "always down", TransportSpec: catalog.TransportSpec{Kind: "stdio", Command: "broken-srv"}},
	}
}

func TestPreload_OpensRequestedCount(t *testing.T) {
	reg := catalog.New(testEntries(), hashembed.New(), 0, 0, 0)
	if err := reg.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	c, err := cache.New(10)
	if err != nil {
		t.Fatalf("cache.New() error = %v", err)
	}
	tr := &fakeTransport{}

	result := Run(context.Background(), []toolapi.Handle{"fin-quotes", "news-wire"}, reg, tr, c, 2, 2)

	if len(result.Opened) != 2 {
		t.Fatalf("expected 2 opened handles, got %v", result.Opened)
	}
	if len(result.Failed) != 0 {
		t.Fatalf("expected no failures, got %v", result.Failed)
	}
	if _, ok := c.Get("fin-quotes"); !ok {
		t.Fatal("expected fin-quotes to be in the cache")
	}
}

func TestPreload_TracksFailuresWithoutMarkingHealth(t *testing.T) {
	reg := catalog.New(testEntries(), hashembed.New(), 0, 0, 0)
	if err := reg.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	c, err := cache.New(10)
	if err != nil {
		t.Fatalf("cache.New() error = %v", err)
	}
	tr := &fakeTransport{failHandles: map[string]bool{"broken-srv": true}}

	result := Run(context.Background(), []toolapi.Handle{"broken-srv", "fin-quotes"}, reg, tr, c, 2, 2)

	if len(result.Opened) != 1 || result.Opened[0] != "fin-quotes" {
		t.Fatalf("expected only fin-quotes to open, got %v", result.Opened)
	}
	if len(result.Failed) != 1 {
		t.Fatalf("expected broken-srv to be recorded as a failure, got %v", result.Failed)
	}
}

func TestPreload_ZeroCountIsANoOp(t *testing.T) {
	reg := catalog.New(testEntries(), hashembed.New(), 0, 0, 0)
	c, err := cache.New(10)
	if err != nil {
		t.Fatalf("cache.New() error = %v", err)
	}
	tr := &fakeTransport{}

	result := Run(context.Background(), []toolapi.Handle{"fin-quotes"}, reg, tr, c, 2, 0)
	if len(result.Opened) != 0 {
		t.Fatalf("expected no opens, got %v", result.Opened)
	}
}
