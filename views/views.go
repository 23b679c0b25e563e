// Package views projects mirror state into the shapes pages render.
//
// A View recomputes its projection from the mirror's full item list on every
// mirror event. Projections are pure functions of that list; every sort in
// this package has a total order so equal inputs always give equal outputs.
package views

import (
	"sync"

	"github.com/trattoria/livesync/cache"
)

// View holds the latest projection of one mirror
type View[T, R any] struct {
	mirror   cache.Mirror[T]
	project  func([]T) R
	onChange func(R, cache.Stats)

	mu          sync.RWMutex
	value       R
	stats       cache.Stats
	unsubscribe cache.Unsubscribe
}

// Watch subscribes to m and keeps project(m.GetAll()) current. onChange, if
// set, is called on the mirror's pump after every recomputation.
func Watch[T, R any](m cache.Mirror[T], project func([]T) R, onChange func(R, cache.Stats)) *View[T, R] {
	v := &View[T, R]{
		mirror:   m,
		project:  project,
		onChange: onChange,
		value:    project(nil),
	}
	unsubscribe := m.Subscribe(v.handle)

	v.mu.Lock()
	v.unsubscribe = unsubscribe
	v.mu.Unlock()
	return v
}

func (v *View[T, R]) handle(ev cache.Event[T]) {
	items := ev.Items
	if ev.Type != cache.EventInitialLoad {
		items = v.mirror.GetAll()
	}
	value := v.project(items)

	v.mu.Lock()
	v.value = value
	v.stats = ev.Stats
	v.mu.Unlock()

	if v.onChange != nil {
		v.onChange(value, ev.Stats)
	}
}

// Value returns the latest projection
func (v *View[T, R]) Value() R {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.value
}

// Stats returns the mirror statistics of the latest event
func (v *View[T, R]) Stats() cache.Stats {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.stats
}

// Close stops watching. The last closed view of a mirror closes the mirror.
func (v *View[T, R]) Close() {
	v.mu.Lock()
	unsubscribe := v.unsubscribe
	v.unsubscribe = nil
	v.mu.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}
}
