package cache

import "sync"

type subscriber[T any] struct {
	id       uint64
	listener Listener[T]
	// awaitingReplay subscribers joined a ready mirror and get no
	// notification until their initial_load replay ran
	awaitingReplay bool
}

// registry holds listeners in subscribe order
type registry[T any] struct {
	mu     sync.Mutex
	nextID uint64
	subs   []*subscriber[T]
}

// add registers l and returns its id and the new subscriber count
func (r *registry[T]) add(l Listener[T], awaitingReplay bool) (uint64, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	r.subs = append(r.subs, &subscriber[T]{id: r.nextID, listener: l, awaitingReplay: awaitingReplay})
	return r.nextID, len(r.subs)
}

// remove unregisters id and returns the remaining count
func (r *registry[T]) remove(id uint64) (bool, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, s := range r.subs {
		if s.id == id {
			r.subs = append(r.subs[:i:i], r.subs[i+1:]...)
			return true, len(r.subs)
		}
	}
	return false, len(r.subs)
}

// live returns the subscribers that take part in a notification round
func (r *registry[T]) live() []*subscriber[T] {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*subscriber[T], 0, len(r.subs))
	for _, s := range r.subs {
		if !s.awaitingReplay {
			out = append(out, s)
		}
	}
	return out
}

// promote clears the replay flag of id. It returns the listener, or nil when id is gone.
func (r *registry[T]) promote(id uint64) Listener[T] {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.subs {
		if s.id == id {
			s.awaitingReplay = false
			return s.listener
		}
	}
	return nil
}

// resetReplays makes every pending subscriber live; used when the state is cleared
func (r *registry[T]) resetReplays() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.subs {
		s.awaitingReplay = false
	}
}

func (r *registry[T]) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}
