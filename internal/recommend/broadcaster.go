package recommend

import (
	"log/slog"
	"sync"

	"github.com/kozaktomas/photo-curator/internal/constants"
)

// Broadcaster fans values out to any number of listeners. Sends never block:
// a listener with a full buffer misses the value.
type Broadcaster[T any] struct {
	mu        sync.RWMutex
	listeners []chan T
	logger    *slog.Logger
}

func newBroadcaster[T any](logger *slog.Logger) *Broadcaster[T] {
	return &Broadcaster[T]{logger: logger}
}

// AddListener adds a buffered listener
func (b *Broadcaster[T]) AddListener() chan T {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan T, constants.EventChannelBuffer)
	b.listeners = append(b.listeners, ch)
	return ch
}

// RemoveListener removes and closes a listener
func (b *Broadcaster[T]) RemoveListener(ch chan T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, listener := range b.listeners {
		if listener == ch {
			b.listeners = append(b.listeners[:i], b.listeners[i+1:]...)
			close(ch)
			return
		}
	}
}

// Send delivers v to every listener with buffer room and returns how many got it
func (b *Broadcaster[T]) Send(v T) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	delivered := 0
	for _, listener := range b.listeners {
		select {
		case listener <- v:
			delivered++
		default:
			b.logger.Warn("listener buffer full, dropping event")
		}
	}
	return delivered
}

// Listeners returns the number of registered listeners
func (b *Broadcaster[T]) Listeners() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners)
}

// closeAll removes and closes every listener
func (b *Broadcaster[T]) closeAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.listeners {
		close(ch)
	}
	b.listeners = nil
}
