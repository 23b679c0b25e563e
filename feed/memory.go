package feed

import (
	"context"
	"sort"
	"sync"
)

// Memory is an in-process remote collection. Every subscriber gets a snapshot
// of the current documents, then the changes made through Put and Delete.
//
// Hold delays the initial snapshot of new subscribers until Release, which is
// how a slow remote handshake is simulated.
type Memory[T any] struct {
	collection string
	key        func(T) string

	mu         sync.Mutex
	docs       map[string]T
	subs       map[int]*memorySub[T]
	nextID     int
	held       bool
	subscribes int
	closes     int
}

type memorySub[T any] struct {
	sink   Sink[T]
	primed bool
}

// NewMemory creates a collection seeded with docs
func NewMemory[T any](collection string, key func(T) string, docs ...T) *Memory[T] {
	m := &Memory[T]{
		collection: collection,
		key:        key,
		docs:       make(map[string]T, len(docs)),
		subs:       make(map[int]*memorySub[T]),
	}
	for _, doc := range docs {
		m.docs[key(doc)] = doc
	}
	return m
}

func (m *Memory[T]) Collection() string { return m.collection }

// Subscribe registers sink and, unless held, delivers the initial snapshot before returning
func (m *Memory[T]) Subscribe(ctx context.Context, sink Sink[T]) (Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++
	sub := &memorySub[T]{sink: sink}
	m.subs[id] = sub
	m.subscribes++
	if !m.held {
		m.prime(sub)
	}

	var once sync.Once
	return SubscriptionFunc(func() error {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			delete(m.subs, id)
			m.closes++
		})
		return nil
	}), nil
}

// Put stores doc and delivers an added or modified change
func (m *Memory[T]) Put(doc T) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := m.key(doc)
	kind := Modified
	if _, ok := m.docs[key]; !ok {
		kind = Added
	}
	m.docs[key] = doc
	m.broadcast(Change[T]{Kind: kind, Doc: doc}, OriginServer)
}

// Delete removes the document with key and delivers a removed change.
// Deleting an absent key delivers nothing.
func (m *Memory[T]) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, ok := m.docs[key]
	if !ok {
		return
	}
	delete(m.docs, key)
	m.broadcast(Change[T]{Kind: Removed, Doc: doc}, OriginServer)
}

// Emit delivers a raw change without touching the stored documents.
// It reproduces duplicate or cache-origin deliveries.
func (m *Memory[T]) Emit(change Change[T], origin Origin) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.broadcast(change, origin)
}

// Resnapshot delivers the current documents again to every primed subscriber
func (m *Memory[T]) Resnapshot(origin Origin) {
	m.mu.Lock()
	defer m.mu.Unlock()
	docs := m.sortedDocs()
	for _, id := range m.subIDs() {
		if sub := m.subs[id]; sub.primed {
			sub.sink.Snapshot(docs, origin)
		}
	}
}

// Fail reports err to every subscriber
func (m *Memory[T]) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range m.subIDs() {
		m.subs[id].sink.Error(err)
	}
}

// SetOnline reports a connectivity change to every subscriber
func (m *Memory[T]) SetOnline(online bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range m.subIDs() {
		m.subs[id].sink.Connectivity(online)
	}
}

// Hold stops new subscribers from receiving their initial snapshot
func (m *Memory[T]) Hold() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.held = true
}

// Release delivers the pending initial snapshots
func (m *Memory[T]) Release() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.held = false
	for _, id := range m.subIDs() {
		if sub := m.subs[id]; !sub.primed {
			m.prime(sub)
		}
	}
}

// Active returns the number of open subscriptions
func (m *Memory[T]) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs)
}

// Subscribes returns how many subscriptions were ever opened
func (m *Memory[T]) Subscribes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.subscribes
}

// Closes returns how many subscriptions were closed
func (m *Memory[T]) Closes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closes
}

// List returns the stored documents ordered by key
func (m *Memory[T]) List(ctx context.Context) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sortedDocs(), nil
}

func (m *Memory[T]) prime(sub *memorySub[T]) {
	sub.primed = true
	sub.sink.Snapshot(m.sortedDocs(), OriginServer)
}

func (m *Memory[T]) broadcast(change Change[T], origin Origin) {
	for _, id := range m.subIDs() {
		if sub := m.subs[id]; sub.primed {
			sub.sink.Change(change, origin)
		}
	}
}

func (m *Memory[T]) subIDs() []int {
	ids := make([]int, 0, len(m.subs))
	for id := range m.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func (m *Memory[T]) sortedDocs() []T {
	keys := make([]string, 0, len(m.docs))
	for k := range m.docs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	docs := make([]T, 0, len(keys))
	for _, k := range keys {
		docs = append(docs, m.docs[k])
	}
	return docs
}
