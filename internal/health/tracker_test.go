package health

import (
	"testing"
	"time"

	"github.com/fentz26/toolrouter/internal/toolapi"
)

func TestTracker_UnknownHandleIsHealthy(t *testing.T) {
	tr := New(60 * time.Second)
	if !tr.IsHealthy("never-seen") {
		t.Fatal("expected unknown handle to be healthy")
	}
}

func TestTracker_MarkFailThenMarkOK(t *testing.T) {
	tr := New(60 * time.Second)
	tr.MarkFail("h")
	if tr.IsHealthy("h") {
		t.Fatal("expected h to be unhealthy after MarkFail")
	}
	tr.MarkOK("h")
	if !tr.IsHealthy("h") {
		t.Fatal("expected h to be healthy after MarkOK")
	}
}

func TestTracker_CooldownExpiry(t *testing.T) {
	base := time.Unix(0, 0)
	tr := New(60 * time.Second)
	tr.now = func() time.Time { return base }

	tr.MarkFail("h")

	tr.now = func() time.Time { return base.Add(30 * time.Second) }
	if tr.IsHealthy("h") {
		t.Fatal("expected h to still be unhealthy at t=30s")
	}

	tr.now = func() time.Time { return base.Add(61 * time.Second) }
	if !tr.IsHealthy("h") {
		t.Fatal("expected h to be healthy again at t=61s")
	}
}

func TestTracker_FilterHealthyPreservesOrder(t *testing.T) {
	tr := New(60 * time.Second)
	tr.MarkFail("b")

	got := tr.FilterHealthy([]toolapi.Handle{"a", "b", "c"})
	want := []toolapi.Handle{"a", "c"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}
