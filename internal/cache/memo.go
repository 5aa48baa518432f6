// Package cache provides a concurrency-safe keyed cache owned by a single
// goroutine. Callers never hold its lock; every operation is a message.
package cache

import "sync"

// Memo is a map owned by one actor goroutine. The zero value is not usable;
// create one with New and release it with Close.
type Memo[K comparable, V any] struct {
	ops       chan func(map[K]V)
	done      chan struct{}
	closeOnce sync.Once
}

// New starts the actor goroutine.
func New[K comparable, V any]() *Memo[K, V] {
	m := &Memo[K, V]{
		ops:  make(chan func(map[K]V)),
		done: make(chan struct{}),
	}
	go m.loop()
	return m
}

func (m *Memo[K, V]) loop() {
	data := make(map[K]V)
	for {
		select {
		case op := <-m.ops:
			op(data)
		case <-m.done:
			return
		}
	}
}

// do runs op on the actor and waits for it. It reports false once closed.
func (m *Memo[K, V]) do(op func(map[K]V)) bool {
	select {
	case <-m.done:
		return false
	default:
	}
	finished := make(chan struct{})
	select {
	case m.ops <- func(data map[K]V) {
		op(data)
		close(finished)
	}:
	case <-m.done:
		return false
	}
	<-finished
	return true
}

// Get returns the value stored for key.
func (m *Memo[K, V]) Get(key K) (V, bool) {
	var (
		v  V
		ok bool
	)
	m.do(func(data map[K]V) {
		v, ok = data[key]
	})
	return v, ok
}

// Set stores value for key, replacing any previous value.
func (m *Memo[K, V]) Set(key K, value V) {
	m.do(func(data map[K]V) {
		data[key] = value
	})
}

// Delete removes key.
func (m *Memo[K, V]) Delete(key K) {
	m.do(func(data map[K]V) {
		delete(data, key)
	})
}

// Clear removes every entry.
func (m *Memo[K, V]) Clear() {
	m.do(func(data map[K]V) {
		clear(data)
	})
}

// Len returns the number of entries.
func (m *Memo[K, V]) Len() int {
	var n int
	m.do(func(data map[K]V) {
		n = len(data)
	})
	return n
}

// Range calls fn for every entry on the actor goroutine. fn must not call
// back into the same Memo.
func (m *Memo[K, V]) Range(fn func(K, V)) {
	m.do(func(data map[K]V) {
		for k, v := range data {
			fn(k, v)
		}
	})
}

// Close stops the actor. Later reads return zero values and writes are dropped.
func (m *Memo[K, V]) Close() {
	m.closeOnce.Do(func() {
		close(m.done)
	})
}
