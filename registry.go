// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package datapub

import (
	"sync"

	"github.com/juju/datapub/datatype"
)

// registry maps type identifiers to the observers subscribed to them.
// Mutations take the write lock; the dispatch loop snapshots the observer
// set for a type under the read lock and iterates the snapshot, so a
// subscription change during a dispatch pass never corrupts iteration.
// An in-flight pass may or may not see a concurrent add; removals are
// guaranteed to be reflected by the next dequeued request.
type registry struct {
	mu     sync.RWMutex
	byType map[datatype.ID]map[Observer]struct{}
}

func newRegistry() *registry {
	return &registry{
		byType: make(map[datatype.ID]map[Observer]struct{}),
	}
}

// add subscribes the observer to the given type. Adding an observer that
// is already subscribed is a no-op, so a double subscribe results in a
// single delivery per notification.
func (r *registry) add(id datatype.ID, o Observer) {
	r.mu.Lock()
	defer r.mu.Unlock()

	observers, ok := r.byType[id]
	if !ok {
		observers = make(map[Observer]struct{})
		r.byType[id] = observers
	}
	observers[o] = struct{}{}
}

// remove unsubscribes the observer from the given type. The observer is
// matched by identity. Empty sets are left in place; they are harmless
// and the type is likely to be subscribed to again.
func (r *registry) remove(id datatype.ID, o Observer) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if observers, ok := r.byType[id]; ok {
		delete(observers, o)
	}
}

// observers returns a snapshot of the observers subscribed to the given
// type, in unspecified order. The returned slice is private to the caller.
func (r *registry) observers(id datatype.ID) []Observer {
	r.mu.RLock()
	defer r.mu.RUnlock()

	observers := r.byType[id]
	if len(observers) == 0 {
		return nil
	}
	snapshot := make([]Observer, 0, len(observers))
	for o := range observers {
		snapshot = append(snapshot, o)
	}
	return snapshot
}

// count returns the number of subscriptions across all types.
func (r *registry) count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var n int
	for _, observers := range r.byType {
		n += len(observers)
	}
	return n
}
