// Package metrics implements the append-only usage log and the startup
// ranking function that drives preload.
package metrics

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fentz26/toolrouter/internal/logging"
	"github.com/fentz26/toolrouter/internal/toolapi"
)

// fileName is the fixed filename under data_dir.
const fileName = "usage.jsonl"

// record is the on-disk shape of one usage line.
type record struct {
	TS      int64          `json:"ts"`
	Handle  toolapi.Handle `json:"handle"`
	Outcome string         `json:"outcome"`
}

// Event is the in-memory view of one loaded or logged usage record.
type Event struct {
	TS      int64
	Handle  toolapi.Handle
	Outcome toolapi.Outcome
}

// Metrics is the persistent usage log. Appends are serialized under a
// single writer lock and flushed immediately; readers (RankTop) work off an
// in-memory snapshot built once at Load time and updated on every Log.
type Metrics struct {
	path string

	mu     sync.Mutex
	file   *os.File
	events []Event
}

// New constructs a Metrics instance rooted at dataDir, creating the
// directory if necessary. Call Load to populate it from any prior run.
func New(dataDir string) (*Metrics, error) {
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("metrics: creating data dir: %w", err)
	}
	path := filepath.Join(dataDir, fileName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("metrics: opening file: %w", err)
	}
	return &Metrics{path: path, file: f}, nil
}

// Load reads every existing line from the metrics file into memory.
// Malformed lines are skipped with a single warning; a truncated final line
// from a crashed process never blocks startup.
func (m *Metrics) Load() error {
	f, err := os.Open(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("metrics: reading file: %w", err)
	}
	defer f.Close()

	m.mu.Lock()
	defer m.mu.Unlock()

	warned := false
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var r record
		if err := json.Unmarshal(line, &r); err != nil {
			if !warned {
				logging.Warnf("metrics: skipping malformed line(s) in %s", m.path)
				warned = true
			}
			continue
		}
		m.events = append(m.events, Event{TS: r.TS, Handle: r.Handle, Outcome: toolapi.Outcome(r.Outcome)})
	}
	return nil
}

// Log appends a single usage event, flushing immediately so crash-truncation
// loses at most the in-flight record. The event is kept in the in-memory
// view even when writing it to the file fails.
func (m *Metrics) Log(ts int64, h toolapi.Handle, outcome toolapi.Outcome) error {
	line, err := json.Marshal(record{TS: ts, Handle: h, Outcome: string(outcome)})
	if err != nil {
		return fmt.Errorf("metrics: marshaling event: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.events = append(m.events, Event{TS: ts, Handle: h, Outcome: outcome})
	if _, err := m.file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("metrics: appending: %w", err)
	}
	if err := m.file.Sync(); err != nil {
		return fmt.Errorf("metrics: flushing: %w", err)
	}
	return nil
}

// RankTop returns up to n handles, ranked descending by lifetime success
// count, tie-broken by most recent success timestamp, then by first
// appearance in the event log (a proxy for catalog insertion order when the
// caller has no independent ordering). A handle with zero successes ranks
// below any handle with at least one, regardless of failure count.
func (m *Metrics) RankTop(n int) []toolapi.Handle {
	m.mu.Lock()
	events := make([]Event, len(m.events))
	copy(events, m.events)
	m.mu.Unlock()

	stats := make(map[toolapi.Handle]*rankStat)
	order := make([]toolapi.Handle, 0)

	for i, e := range events {
		s, ok := stats[e.Handle]
		if !ok {
			s = &rankStat{firstSeen: i}
			stats[e.Handle] = s
			order = append(order, e.Handle)
		}
		if e.Outcome == toolapi.OutcomeSuccess {
			s.successes++
			if e.TS > s.lastSuccess {
				s.lastSuccess = e.TS
			}
		}
	}

	ranked := append([]toolapi.Handle(nil), order...)
	sortHandles(ranked, stats)

	if n > 0 && len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

type rankStat struct {
	successes   int
	lastSuccess int64
	firstSeen   int
}

func sortHandles(handles []toolapi.Handle, stats map[toolapi.Handle]*rankStat) {
	less := func(i, j int) bool {
		a, b := stats[handles[i]], stats[handles[j]]
		if (a.successes > 0) != (b.successes > 0) {
			return a.successes > 0
		}
		if a.successes != b.successes {
			return a.successes > b.successes
		}
		if a.lastSuccess != b.lastSuccess {
			return a.lastSuccess > b.lastSuccess
		}
		return a.firstSeen < b.firstSeen
	}
	insertionSort(handles, less)
}

func insertionSort(handles []toolapi.Handle, less func(i, j int) bool) {
	for i := 1; i < len(handles); i++ {
		for j := i; j > 0 && less(j, j-1); j-- {
			handles[j], handles[j-1] = handles[j-1], handles[j]
		}
	}
}

// Recent returns the last n logged events, most recent last.
func (m *Metrics) Recent(n int) []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n <= 0 || n > len(m.events) {
		n = len(m.events)
	}
	out := make([]Event, n)
	copy(out, m.events[len(m.events)-n:])
	return out
}

// Close flushes and closes the underlying file.
func (m *Metrics) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.file.Close()
}
