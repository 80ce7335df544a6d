package observable

import (
	"sync"
	"sync/atomic"
)

// Reader is the read side of a Value, handed to observers
type Reader[T comparable] interface {
	Get() T
	Subscribe() (<-chan T, func())
}

// Value holds the latest value of T and notifies subscribers when it changes.
//
// Get never blocks. Set stores the value and hands it to every subscriber
// without waiting: each subscription channel has room for one value, and a
// pending value that was never received is replaced by the newer one. A
// subscriber therefore never receives a value older than one it already saw.
type Value[T comparable] struct {
	cur atomic.Pointer[T]

	mu   sync.Mutex
	subs map[chan T]struct{}
}

// NewValue creates a Value holding initial
func NewValue[T comparable](initial T) *Value[T] {
	v := &Value[T]{subs: make(map[chan T]struct{})}
	v.cur.Store(&initial)
	return v
}

// Get returns the latest value
func (v *Value[T]) Get() T {
	return *v.cur.Load()
}

// Set publishes x. Setting the current value again is a no-op.
func (v *Value[T]) Set(x T) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if *v.cur.Load() == x {
		return
	}
	v.cur.Store(&x)

	for ch := range v.subs {
		offer(ch, x)
	}
}

// Subscribe returns a channel primed with the current value and a cancel
// func that closes it. The channel only ever holds the newest value.
func (v *Value[T]) Subscribe() (<-chan T, func()) {
	ch := make(chan T, 1)

	v.mu.Lock()
	ch <- *v.cur.Load()
	v.subs[ch] = struct{}{}
	v.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			v.mu.Lock()
			delete(v.subs, ch)
			close(ch)
			v.mu.Unlock()
		})
	}
	return ch, cancel
}

// Subscribers returns the number of active subscriptions
func (v *Value[T]) Subscribers() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.subs)
}

// offer replaces any unread value in ch with x. Callers hold v.mu, so ch has
// exactly one sender and the send after draining cannot block.
func offer[T any](ch chan T, x T) {
	select {
	case <-ch:
	default:
	}
	ch <- x
}
