package feed

import (
	"sync"
	"testing"
	"time"
)

type item struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Price int    `json:"price"`
}

func itemKey(i item) string { return i.ID }

type event struct {
	kind   string
	docs   []item
	change Change[item]
	origin Origin
	online bool
	err    error
}

// recordingSink stores every call in order
type recordingSink struct {
	mu     sync.Mutex
	events []event
	signal chan struct{}
}

func newRecordingSink() *recordingSink {
	return &recordingSink{signal: make(chan struct{}, 128)}
}

func (r *recordingSink) add(e event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
	select {
	case r.signal <- struct{}{}:
	default:
	}
}

func (r *recordingSink) Snapshot(docs []item, origin Origin) {
	r.add(event{kind: "snapshot", docs: docs, origin: origin})
}

func (r *recordingSink) Change(change Change[item], origin Origin) {
	r.add(event{kind: "change", change: change, origin: origin})
}

func (r *recordingSink) Connectivity(online bool) {
	r.add(event{kind: "connectivity", online: online})
}

func (r *recordingSink) Error(err error) {
	r.add(event{kind: "error", err: err})
}

func (r *recordingSink) all() []event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]event(nil), r.events...)
}

// waitFor blocks until at least n events were recorded
func (r *recordingSink) waitFor(t *testing.T, n int) []event {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		if events := r.all(); len(events) >= n {
			return events
		}
		select {
		case <-r.signal:
		case <-deadline:
			t.Fatalf("timed out waiting for %d events, got %d: %+v", n, len(r.all()), r.all())
		}
	}
}
