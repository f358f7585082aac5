// Package genericlist implements Dissolve's GenericList: a type-erased,
// name-keyed store used throughout the Procedure engine and Configuration
// to stash analysis results, memoised intermediates, and restartable state
// under a (name, prefix) composite key.
//
// Grounded on the teacher's generic repository-cache pattern in
// `internal/infrastructure/database/redis/cache.go` (type-erased storage
// behind a name key, version/TTL bookkeeping alongside the value) — the
// same "store an interface{}, hand back a typed accessor" shape, adapted
// from a distributed cache to an in-process named store.
package genericlist

import (
	"fmt"
	"sync"

	"github.com/dissolveproject/dissolve/pkg/errors"
)

// item is one entry in the list: a type-erased value plus the bookkeeping
// every consumer of the list needs (version for staleness checks,
// InRestartFile for checkpoint selection).
type item struct {
	value         interface{}
	version       int
	inRestartFile bool
}

// List is a type-erased named store keyed by (name, prefix). The zero
// value is not usable; construct with New.
type List struct {
	mu    sync.RWMutex
	items map[string]*item
}

// New constructs an empty List.
func New() *List {
	return &List{items: make(map[string]*item)}
}

func key(name, prefix string) string {
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}

// Add inserts or replaces the item for (name, prefix), setting its
// restart-file flag to inRestartFile. A new item starts at version 0;
// replacing an existing item bumps its version.
func Add[T any](l *List, name, prefix string, value T, inRestartFile bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	k := key(name, prefix)
	if existing, ok := l.items[k]; ok {
		existing.value = value
		existing.version++
		existing.inRestartFile = inRestartFile
		return
	}
	l.items[k] = &item{value: value, version: 0, inRestartFile: inRestartFile}
}

// Contains reports whether an item exists for (name, prefix).
func (l *List) Contains(name, prefix string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.items[key(name, prefix)]
	return ok
}

// Remove deletes the item for (name, prefix), if present.
func (l *List) Remove(name, prefix string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.items, key(name, prefix))
}

// Version returns the item's version counter, or -1 if the item does not
// exist — callers use this to detect whether a cached analysis result is
// stale relative to the Configuration's contents version.
func (l *List) Version(name, prefix string) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	it, ok := l.items[key(name, prefix)]
	if !ok {
		return -1
	}
	return it.version
}

// Value retrieves the item for (name, prefix) and type-asserts it to T.
// A type mismatch or missing key is logged as an error by the caller (the
// list itself has no logger) and T's zero value is returned — GenericList
// never panics on a lookup, since a failed analysis lookup should degrade
// to "recompute", not crash the run.
func Value[T any](l *List, name, prefix string) (T, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var zero T
	it, ok := l.items[key(name, prefix)]
	if !ok {
		return zero, errors.NotFound(fmt.Sprintf("no item named %q in generic list", key(name, prefix)))
	}
	v, ok := it.value.(T)
	if !ok {
		return zero, errors.InvalidParam(fmt.Sprintf("item %q is not of the requested type", key(name, prefix)))
	}
	return v, nil
}

// Realise returns the item for (name, prefix), creating it via create if
// absent. This is the standard entry point for memoised analysis results:
// a Process1D node calls Realise with a factory that performs the
// (expensive) calculation, and subsequent calls in the same run reuse the
// cached value until something bumps the Configuration's contents version
// and the caller chooses to Remove the stale entry first.
func Realise[T any](l *List, name, prefix string, create func() (T, error), inRestartFile bool) (T, error) {
	if v, err := Value[T](l, name, prefix); err == nil {
		return v, nil
	}
	v, err := create()
	if err != nil {
		var zero T
		return zero, err
	}
	Add(l, name, prefix, v, inRestartFile)
	return v, nil
}

// Retrieve is an alias of Value kept for call sites that distinguish
// "fetch, error if absent" (Retrieve) from "fetch-or-create" (Realise).
func Retrieve[T any](l *List, name, prefix string) (T, error) {
	return Value[T](l, name, prefix)
}

// Names returns every (name, prefix) composite key currently stored,
// primarily for restart-file serialisation.
func (l *List) Names() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	names := make([]string, 0, len(l.items))
	for k := range l.items {
		names = append(names, k)
	}
	return names
}

// InRestartFile reports whether the item for (name, prefix) is flagged
// for inclusion in restart files.
func (l *List) InRestartFile(name, prefix string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	it, ok := l.items[key(name, prefix)]
	return ok && it.inRestartFile
}
