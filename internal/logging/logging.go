// Package logging routes every debug/info/warn/error message through a
// single sink, following the reference codebase's own convention of calling
// the standard log package directly rather than pulling in a structured
// logging library (none appears anywhere in the example pack this was
// adapted from).
package logging

import (
	"log"
	"os"
	"sync"
)

var (
	mu      sync.Mutex
	sink    = log.New(os.Stderr, "", log.LstdFlags)
	debugOn bool
)

// SetDebug toggles whether Debugf output is emitted.
func SetDebug(enabled bool) {
	mu.Lock()
	defer mu.Unlock()
	debugOn = enabled
}

// SetOutput redirects the sink, primarily for tests that want to assert on
// log output or silence it.
func SetOutput(l *log.Logger) {
	mu.Lock()
	defer mu.Unlock()
	sink = l
}

func Debugf(format string, args ...any) {
	mu.Lock()
	on := debugOn
	l := sink
	mu.Unlock()
	if on {
		l.Printf("[debug] "+format, args...)
	}
}

func Infof(format string, args ...any) {
	mu.Lock()
	l := sink
	mu.Unlock()
	l.Printf("[info] "+format, args...)
}

func Warnf(format string, args ...any) {
	mu.Lock()
	l := sink
	mu.Unlock()
	l.Printf("[warn] "+format, args...)
}

func Errorf(format string, args ...any) {
	mu.Lock()
	l := sink
	mu.Unlock()
	l.Printf("[error] "+format, args...)
}
