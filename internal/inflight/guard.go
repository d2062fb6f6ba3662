// Package inflight discards superseded requests. Each viewer and slot pair
// keeps a generation counter; starting a new request cancels the previous
// one and makes its ticket stale.
package inflight

import (
	"context"
	"sync"
)

type key struct {
	viewer string
	slot   string
}

type entry struct {
	gen    uint64
	cancel context.CancelFunc
}

// Guard tracks the latest request per viewer and slot.
type Guard struct {
	mu      sync.Mutex
	entries map[key]*entry
	next    uint64
}

// New constructs an empty Guard.
func New() *Guard {
	return &Guard{entries: make(map[key]*entry)}
}

// Ticket identifies one started request.
type Ticket struct {
	guard *Guard
	key   key
	gen   uint64
}

// Begin registers a new request for viewer and slot, cancelling the context of
// any request it supersedes. The returned context is cancelled when a newer
// request begins or when the ticket is released.
func (g *Guard) Begin(ctx context.Context, viewer, slot string) (context.Context, Ticket) {
	ctx, cancel := context.WithCancel(ctx)
	k := key{viewer: viewer, slot: slot}

	g.mu.Lock()
	g.next++
	gen := g.next
	if prev, ok := g.entries[k]; ok {
		prev.cancel()
	}
	g.entries[k] = &entry{gen: gen, cancel: cancel}
	g.mu.Unlock()

	return ctx, Ticket{guard: g, key: k, gen: gen}
}

// Current reports whether no newer request has begun for the same viewer and slot.
func (t Ticket) Current() bool {
	if t.guard == nil {
		return true
	}
	t.guard.mu.Lock()
	defer t.guard.mu.Unlock()
	e, ok := t.guard.entries[t.key]
	return ok && e.gen == t.gen
}

// Generation returns the ticket's generation number.
func (t Ticket) Generation() uint64 {
	return t.gen
}

// Release cancels the ticket's context and forgets it if it is still the latest.
func (t Ticket) Release() {
	if t.guard == nil {
		return
	}
	t.guard.mu.Lock()
	defer t.guard.mu.Unlock()
	e, ok := t.guard.entries[t.key]
	if ok && e.gen == t.gen {
		e.cancel()
		delete(t.guard.entries, t.key)
	}
}
