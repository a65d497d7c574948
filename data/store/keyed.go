package store

import "sync"

type entry[T any] struct {
	mu      sync.Mutex
	value   T
	deleted bool
}

// Keyed is a map of values where every key has its own lock. Operations on
// different keys only share the short map lookup.
type Keyed[T any] struct {
	mu      sync.RWMutex
	entries map[string]*entry[T]
	init    func() T
}

func NewKeyed[T any](init func() T) *Keyed[T] {
	return &Keyed[T]{
		entries: make(map[string]*entry[T]),
		init:    init,
	}
}

func (k *Keyed[T]) lookup(key string) (*entry[T], bool) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	e, ok := k.entries[key]
	return e, ok
}

func (k *Keyed[T]) getOrCreate(key string) *entry[T] {
	if e, ok := k.lookup(key); ok {
		return e
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	if e, ok := k.entries[key]; ok {
		return e
	}
	e := &entry[T]{value: k.init()}
	k.entries[key] = e
	return e
}

// Update runs fn with exclusive access to the value stored under key,
// creating it on first use. Changes made through v are kept even if fn
// returns an error, so fn must check before it mutates.
func (k *Keyed[T]) Update(key string, fn func(v *T) error) error {
	for {
		if applied, err := k.apply(k.getOrCreate(key), fn); applied {
			return err
		}
		// swept between lookup and lock, retry with a fresh entry
	}
}

func (k *Keyed[T]) apply(e *entry[T], fn func(v *T) error) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.deleted {
		return false, nil
	}
	return true, fn(&e.value)
}

// View runs fn on the value stored under key without creating it and reports
// whether the key existed.
func (k *Keyed[T]) View(key string, fn func(v T)) bool {
	e, ok := k.lookup(key)
	if !ok {
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.deleted {
		return false
	}
	fn(e.value)
	return true
}

func (k *Keyed[T]) Exists(key string) bool {
	return k.View(key, func(T) {})
}

func (k *Keyed[T]) Len() int {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.entries)
}

// DeleteIf removes every idle entry for which match returns true and returns
// the number removed. Entries locked by a running Update are skipped.
func (k *Keyed[T]) DeleteIf(match func(key string, v T) bool) int {
	k.mu.Lock()
	defer k.mu.Unlock()

	removed := 0
	for key, e := range k.entries {
		if !e.mu.TryLock() {
			continue
		}
		if match(key, e.value) {
			e.deleted = true
			delete(k.entries, key)
			removed++
		}
		e.mu.Unlock()
	}
	return removed
}

func (k *Keyed[T]) Clear() {
	k.DeleteIf(func(string, T) bool { return true })
}
