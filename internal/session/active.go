package session

import "sync"

// A single process-wide slot holds the active session context so tools can
// reach it without threading it through the graph's serialized state.
// This assumes exactly one active session per process; concurrent sessions
// sharing a process will cross-contaminate state through this slot. That is
// a documented limitation of the propagation mechanism, not something the
// slot tries to mask.
var (
	activeMu sync.RWMutex
	active   *Context
)

// Install makes ctx the active session context, overwriting any previous
// one unconditionally (last write wins).
func Install(ctx *Context) {
	activeMu.Lock()
	defer activeMu.Unlock()
	active = ctx
}

// Current returns the active session context, or nil when none is
// installed. Callers must handle nil; tools report a textual sentinel
// instead of failing.
func Current() *Context {
	activeMu.RLock()
	defer activeMu.RUnlock()
	return active
}

// Reset clears the active slot. Used on session reset before installing
// the replacement context.
func Reset() {
	activeMu.Lock()
	defer activeMu.Unlock()
	active = nil
}
