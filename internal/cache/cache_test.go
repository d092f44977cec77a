package cache

import (
	"testing"

	"github.com/fentz26/toolrouter/internal/toolapi"
	"github.com/fentz26/toolrouter/internal/transport"
)

type fakeBinding struct {
	closed *bool
}

func (f fakeBinding) Tools() []toolapi.ToolSpec { return nil }
func (f fakeBinding) Close() error {
	*f.closed = true
	return nil
}

func newFakeBinding() (transport.Binding, *bool) {
	closed := new(bool)
	return fakeBinding{closed: closed}, closed
}

func TestCache_InsertGetTouch(t *testing.T) {
	c, err := New(2)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	a, _ := newFakeBinding()
	c.Insert("a", a)

	got, ok := c.Get("a")
	if !ok || got != a {
		t.Fatalf("Get(a) = %v, %v; want a, true", got, ok)
	}

	if _, ok := c.Get("missing"); ok {
		t.Fatal("Get(missing) should report absent")
	}

	c.Touch("missing") // no-op, must not panic
}

func TestCache_EvictionReleasesConnectionExactlyOnce(t *testing.T) {
	c, err := New(2)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	a, aClosed := newFakeBinding()
	b, bClosed := newFakeBinding()
	x, _ := newFakeBinding()

	c.Insert("a", a)
	c.Insert("b", b)
	c.Touch("a") // MRU = a

	c.Insert("x", x) // should evict LRU = b

	if !*bClosed {
		t.Fatal("expected b's connection to be closed on eviction")
	}
	if *aClosed {
		t.Fatal("a should not have been closed")
	}

	contents := c.Contents()
	if len(contents) != 2 || contents[0] != "x" || contents[1] != "a" {
		t.Fatalf("expected contents [x a] (MRU first), got %v", contents)
	}
}

func TestCache_InsertReplacesAndClosesOld(t *testing.T) {
	c, err := New(2)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	a1, a1Closed := newFakeBinding()
	a2, _ := newFakeBinding()

	c.Insert("a", a1)
	c.Insert("a", a2)

	if !*a1Closed {
		t.Fatal("expected replaced binding to be closed")
	}
	got, _ := c.Get("a")
	if got != a2 {
		t.Fatal("expected Get to return the replacement binding")
	}
}

func TestCache_EvictAndReleaseAll(t *testing.T) {
	c, err := New(2)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	a, aClosed := newFakeBinding()
	b, bClosed := newFakeBinding()
	c.Insert("a", a)
	c.Insert("b", b)

	if removed := c.Evict("a"); !removed {
		t.Fatal("expected Evict(a) to report removal")
	}
	if !*aClosed {
		t.Fatal("expected a's connection to be closed on Evict")
	}
	if removed := c.Evict("a"); removed {
		t.Fatal("expected Evict(a) to report no-op the second time")
	}

	c.ReleaseAll()
	if !*bClosed {
		t.Fatal("expected ReleaseAll to close remaining connections")
	}
	if len(c.Contents()) != 0 {
		t.Fatal("expected cache to be empty after ReleaseAll")
	}
}
