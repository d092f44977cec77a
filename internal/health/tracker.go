// Package health quarantines repeatedly failing handles behind an absolute
// wall-clock cooldown. There is no exponential backoff: one failure means
// one fixed cooldown, on the theory that the catalog is small enough for an
// operator to inspect directly rather than rely on aggressive avoidance.
package health

import (
	"sync"
	"time"

	"github.com/fentz26/toolrouter/internal/toolapi"
)

// Record is the read-only view of a handle's health state, exposed for
// observability taps.
type Record struct {
	Handle              toolapi.Handle
	ConsecutiveFailures int
	LastFailureTime     time.Time
	CooldownUntil       time.Time
}

type record struct {
	consecutiveFailures int
	lastFailureTime     time.Time
	cooldownUntil       time.Time
}

// Tracker is a single-lock map of per-handle health records.
type Tracker struct {
	cooldown time.Duration
	now      func() time.Time

	mu      sync.Mutex
	records map[toolapi.Handle]*record
}

// New constructs a Tracker with the given fixed cooldown duration.
func New(cooldown time.Duration) *Tracker {
	return &Tracker{
		cooldown: cooldown,
		now:      time.Now,
		records:  make(map[toolapi.Handle]*record),
	}
}

// IsHealthy reports whether h has no record, or an elapsed cooldown.
func (t *Tracker) IsHealthy(h toolapi.Handle) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	r, ok := t.records[h]
	if !ok {
		return true
	}
	return r.cooldownUntil.IsZero() || !t.now().Before(r.cooldownUntil)
}

// MarkOK clears h's health record.
func (t *Tracker) MarkOK(h toolapi.Handle) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.records, h)
}

// MarkFail sets h's cooldown to now + cooldown and increments its failure
// streak.
func (t *Tracker) MarkFail(h toolapi.Handle) {
	t.mu.Lock()
	defer t.mu.Unlock()
	r, ok := t.records[h]
	if !ok {
		r = &record{}
		t.records[h] = r
	}
	now := t.now()
	r.consecutiveFailures++
	r.lastFailureTime = now
	r.cooldownUntil = now.Add(t.cooldown)
}

// FilterHealthy returns the subset of handles that are currently healthy,
// preserving order.
func (t *Tracker) FilterHealthy(handles []toolapi.Handle) []toolapi.Handle {
	out := make([]toolapi.Handle, 0, len(handles))
	for _, h := range handles {
		if t.IsHealthy(h) {
			out = append(out, h)
		}
	}
	return out
}

// Snapshot returns a copy of every tracked record, for observability.
func (t *Tracker) Snapshot() []Record {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Record, 0, len(t.records))
	for h, r := range t.records {
		out = append(out, Record{
			Handle:              h,
			ConsecutiveFailures: r.consecutiveFailures,
			LastFailureTime:     r.lastFailureTime,
			CooldownUntil:       r.cooldownUntil,
		})
	}
	return out
}
