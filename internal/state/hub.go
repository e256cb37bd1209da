// Package state holds shared, observable application state. A Hub keeps the
// latest value per watched key and fans updates out to subscribers of that
// key. Keys nobody watches hold no value.
package state

import "sync"

// Hub is a keyed reactive store. The zero value is not usable; use NewHub.
type Hub[K comparable, V any] struct {
	mu      sync.RWMutex
	values  map[K]V
	subs    map[K]map[int]chan V
	nextID  int
	persist func(K, V) error
}

type Option[K comparable, V any] func(*Hub[K, V])

// WithPersistence runs fn before every Set. A failing fn rejects the update.
func WithPersistence[K comparable, V any](fn func(K, V) error) Option[K, V] {
	return func(h *Hub[K, V]) {
		h.persist = fn
	}
}

func NewHub[K comparable, V any](opts ...Option[K, V]) *Hub[K, V] {
	h := &Hub[K, V]{
		values: make(map[K]V),
		subs:   make(map[K]map[int]chan V),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Hub[K, V]) Get(key K) (V, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	v, ok := h.values[key]
	return v, ok
}

// Set notifies subscribers of key and stores v while the key has any. Slow
// subscribers only ever see the most recent value.
func (h *Hub[K, V]) Set(key K, v V) error {
	if h.persist != nil {
		if err := h.persist(key, v); err != nil {
			return err
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.subs[key]) == 0 {
		return nil
	}
	h.values[key] = v
	for _, ch := range h.subs[key] {
		select {
		case ch <- v:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- v
		}
	}
	return nil
}

// Delete drops the stored value for key. Subscribers stay registered.
func (h *Hub[K, V]) Delete(key K) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.values, key)
}

// Subscribe returns a channel receiving every subsequent value for key and a
// cancel func that closes it. The stored value is dropped when the last
// subscriber of key cancels.
func (h *Hub[K, V]) Subscribe(key K) (<-chan V, func()) {
	ch := make(chan V, 1)

	h.mu.Lock()
	id := h.nextID
	h.nextID++
	if h.subs[key] == nil {
		h.subs[key] = make(map[int]chan V)
	}
	h.subs[key][id] = ch
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs[key], id)
			if len(h.subs[key]) == 0 {
				delete(h.subs, key)
				delete(h.values, key)
			}
			close(ch)
		})
	}
	return ch, cancel
}

// Subscribers reports how many subscriptions are open for key.
func (h *Hub[K, V]) Subscribers(key K) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[key])
}
