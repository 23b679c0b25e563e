package cache

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/smallnest/chanx"
	"github.com/trattoria/livesync/feed"
	"github.com/trattoria/livesync/logger"
	"github.com/trattoria/livesync/routine"
	"go.uber.org/zap"
)

// Lock order: refMu, lifeMu, mu, reg.mu. applyMu may be held while taking
// any of them because listeners run under it and may unsubscribe.
type mirror[T any] struct {
	logger logger.Logger
	cfg    *Config
	schema Schema[T]
	source feed.Source[T]
	store  SnapshotStore[T]
	reg    registry[T]
	now    func() time.Time

	// refMu serialises subscriber count transitions with Open and Close
	refMu sync.Mutex

	// applyMu serialises every mutation together with its notification round
	applyMu sync.Mutex

	lifeMu  sync.Mutex
	session *session

	mu          sync.RWMutex
	gen         uint64
	items       map[string]T
	ready       bool
	online      bool
	stale       bool
	lastUpdated time.Time
}

// session is one open upstream lifetime
type session struct {
	gen    uint64
	cancel context.CancelFunc
	inbox  *chanx.UnboundedChan[func()]
	sub    feed.Subscription
	closed bool
}

// New creates a mirror over source. store may be nil to disable persisted snapshots.
func New[T any](
	log logger.Logger,
	cfg *Config,
	schema Schema[T],
	source feed.Source[T],
	store SnapshotStore[T],
) (Mirror[T], error) {
	if cfg == nil {
		return nil, ErrMissingConfig
	}
	cfg = cfg.MergeDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if schema.Key == nil || source == nil {
		return nil, ErrInvalidConfig
	}

	return &mirror[T]{
		logger: log,
		cfg:    cfg,
		schema: schema,
		source: source,
		store:  store,
		now:    time.Now,
		items:  make(map[string]T),
	}, nil
}

func (m *mirror[T]) Name() string { return m.cfg.Name }

func (m *mirror[T]) Open() {
	m.lifeMu.Lock()
	defer m.lifeMu.Unlock()
	if m.session != nil {
		return
	}

	m.mu.RLock()
	gen := m.gen
	m.mu.RUnlock()

	ctx, cancel := context.WithCancel(context.Background())
	s := &session{
		gen:    gen,
		cancel: cancel,
		inbox:  chanx.NewUnboundedChan[func()](ctx, m.cfg.QueueSize),
	}
	m.session = s

	routine.GoNamedWithContext(ctx, m.logger, m.cfg.Name+"-pump", func(ctx context.Context) {
		m.pump(ctx, s)
	})

	// queued first so a fresh persisted snapshot is considered before any feed event
	s.inbox.In <- func() { m.loadPersisted(s) }

	routine.GoNamedWithContext(ctx, m.logger, m.cfg.Name+"-subscribe", func(ctx context.Context) {
		m.subscribe(ctx, s)
	})

	m.logger.Info("mirror opened", zap.String("mirror", m.cfg.Name), zap.String("collection", m.source.Collection()))
}

func (m *mirror[T]) subscribe(ctx context.Context, s *session) {
	sub, err := m.source.Subscribe(ctx, &sink[T]{m: m, s: s})
	if err != nil {
		if ctx.Err() == nil {
			m.enqueue(s, func() { m.handleError(s, ErrSubscribe(m.cfg.Name, err)) })
		}
		return
	}

	m.lifeMu.Lock()
	if s.closed {
		m.lifeMu.Unlock()
		m.closeSubscription(sub)
		return
	}
	s.sub = sub
	m.lifeMu.Unlock()
}

func (m *mirror[T]) Close() {
	m.lifeMu.Lock()
	s := m.session
	if s == nil {
		m.lifeMu.Unlock()
		return
	}
	m.session = nil
	s.closed = true
	s.cancel()
	sub := s.sub

	m.mu.Lock()
	m.gen++
	m.items = make(map[string]T)
	m.ready = false
	m.online = false
	m.stale = false
	m.lastUpdated = time.Time{}
	m.mu.Unlock()
	m.lifeMu.Unlock()

	m.reg.resetReplays()
	if sub != nil {
		m.closeSubscription(sub)
	}
	m.logger.Info("mirror closed", zap.String("mirror", m.cfg.Name))
}

func (m *mirror[T]) closeSubscription(sub feed.Subscription) {
	if err := sub.Close(); err != nil {
		m.logger.Warn("failed to close upstream subscription", zap.String("mirror", m.cfg.Name), zap.Error(err))
	}
}

// pump applies queued feed callbacks one at a time
func (m *mirror[T]) pump(ctx context.Context, s *session) {
	for {
		select {
		case <-ctx.Done():
			return
		case fn, ok := <-s.inbox.Out:
			if !ok {
				return
			}
			m.applyMu.Lock()
			fn()
			m.applyMu.Unlock()
		}
	}
}

// enqueue queues fn on the session's pump; it is dropped once the session closed
func (m *mirror[T]) enqueue(s *session, fn func()) {
	m.lifeMu.Lock()
	defer m.lifeMu.Unlock()
	if s.closed {
		return
	}
	s.inbox.In <- fn
}

// schedule queues fn on the current pump, or runs it under the apply lock
// on a new goroutine when the mirror is not open
func (m *mirror[T]) schedule(fn func()) {
	m.lifeMu.Lock()
	if s := m.session; s != nil {
		s.inbox.In <- fn
		m.lifeMu.Unlock()
		return
	}
	m.lifeMu.Unlock()

	routine.GoNamed(m.logger, m.cfg.Name+"-replay", func() {
		m.applyMu.Lock()
		defer m.applyMu.Unlock()
		fn()
	})
}

// current reports whether s still owns the state; nil means a direct call. Requires mu.
func (m *mirror[T]) current(s *session) bool {
	return s == nil || s.gen == m.gen
}

func (m *mirror[T]) ApplyInitialSnapshot(items []T) {
	m.applyMu.Lock()
	defer m.applyMu.Unlock()
	m.applySnapshot(nil, items, feed.OriginServer)
}

func (m *mirror[T]) ApplyDelta(kind feed.Kind, item T) {
	m.applyMu.Lock()
	defer m.applyMu.Unlock()
	m.applyDelta(nil, kind, item, feed.OriginServer)
}

// applySnapshot applies a live snapshot. The first one replaces the state;
// later ones, or one landing over persisted data, are reconciled as deltas.
// Requires applyMu.
func (m *mirror[T]) applySnapshot(s *session, items []T, origin feed.Origin) {
	m.mu.Lock()
	if !m.current(s) {
		m.mu.Unlock()
		return
	}

	if !m.ready {
		m.items = make(map[string]T, len(items))
		for _, item := range items {
			m.items[m.schema.Key(item)] = item
		}
		m.ready = true
		m.stale = false
		m.online = origin == feed.OriginServer
		m.lastUpdated = m.now()
		ev := Event[T]{Type: EventInitialLoad, Items: m.sortedLocked(nil), Stats: m.statsLocked()}
		m.mu.Unlock()

		m.logger.Info("initial snapshot applied",
			zap.String("mirror", m.cfg.Name),
			zap.Int("count", ev.Stats.TotalCount),
			zap.Stringer("origin", origin),
		)
		m.notify(ev)
		m.save(origin, items)
		return
	}

	prev := m.sortedLocked(nil)
	wasStale, wasOnline := m.stale, m.online
	m.stale = false
	m.online = origin == feed.OriginServer
	flipped := wasStale || wasOnline != m.online
	status := Event[T]{Type: EventStatus, Stats: m.statsLocked()}
	m.mu.Unlock()

	changes := feed.Diff(prev, items, m.schema.Key)
	m.logger.Info("snapshot reconciled",
		zap.String("mirror", m.cfg.Name),
		zap.Int("changes", len(changes)),
		zap.Bool("replaced_persisted", wasStale),
	)
	for _, change := range changes {
		m.applyDelta(s, change.Kind, change.Doc, origin)
	}
	if len(changes) == 0 && flipped {
		m.notify(status)
	}
	m.save(origin, items)
}

// applyDelta requires applyMu
func (m *mirror[T]) applyDelta(s *session, kind feed.Kind, item T, origin feed.Origin) {
	key := m.schema.Key(item)

	m.mu.Lock()
	if !m.current(s) {
		m.mu.Unlock()
		return
	}
	if !m.ready {
		m.mu.Unlock()
		m.logger.Warn("dropping change before initial snapshot",
			zap.String("mirror", m.cfg.Name),
			zap.String("kind", string(kind)),
			zap.String("key", key),
		)
		return
	}

	var typ EventType
	existing, exists := m.items[key]
	switch kind {
	case feed.Added:
		if exists {
			m.mu.Unlock()
			return
		}
		m.items[key] = item
		typ = EventAdded
	case feed.Modified:
		m.items[key] = item
		typ = EventModified
	case feed.Removed:
		if !exists {
			m.mu.Unlock()
			return
		}
		delete(m.items, key)
		item = existing
		typ = EventRemoved
	default:
		m.mu.Unlock()
		m.logger.Warn("ignoring unknown change kind", zap.String("mirror", m.cfg.Name), zap.String("kind", string(kind)))
		return
	}
	m.online = origin == feed.OriginServer
	m.lastUpdated = m.now()
	ev := Event[T]{Type: typ, Item: item, Key: key, Stats: m.statsLocked()}
	m.mu.Unlock()

	m.notify(ev)
}

// applyPersisted serves a persisted snapshot while nothing live has landed. Requires applyMu.
func (m *mirror[T]) applyPersisted(s *session, items []T, writtenAt time.Time) {
	m.mu.Lock()
	if !m.current(s) || m.ready {
		m.mu.Unlock()
		return
	}
	m.items = make(map[string]T, len(items))
	for _, item := range items {
		m.items[m.schema.Key(item)] = item
	}
	m.ready = true
	m.stale = true
	m.online = false
	m.lastUpdated = writtenAt
	ev := Event[T]{Type: EventInitialLoad, Items: m.sortedLocked(nil), Stats: m.statsLocked()}
	m.mu.Unlock()

	m.logger.Info("serving persisted snapshot",
		zap.String("mirror", m.cfg.Name),
		zap.Int("count", len(items)),
		zap.Time("written_at", writtenAt),
	)
	m.notify(ev)
}

// loadPersisted requires applyMu
func (m *mirror[T]) loadPersisted(s *session) {
	if m.store == nil {
		return
	}
	m.mu.RLock()
	skip := m.ready || !m.current(s)
	m.mu.RUnlock()
	if skip {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.PersistTimeout)
	defer cancel()
	items, writtenAt, ok := m.store.Load(ctx, m.cfg.SnapshotKey, m.cfg.MaxAge)
	if !ok {
		m.logger.Debug("no fresh persisted snapshot", zap.String("mirror", m.cfg.Name))
		return
	}
	m.applyPersisted(s, items, writtenAt)
}

// handleError keeps the state, reports err and, before any data was loaded,
// falls back to a persisted snapshot of any age. Requires applyMu.
func (m *mirror[T]) handleError(s *session, err error) {
	m.mu.Lock()
	if !m.current(s) {
		m.mu.Unlock()
		return
	}
	m.online = false
	ready := m.ready
	ev := Event[T]{Type: EventError, Err: err, Stats: m.statsLocked()}
	m.mu.Unlock()

	m.logger.Warn("feed error", zap.String("mirror", m.cfg.Name), zap.Bool("ready", ready), zap.Error(err))
	m.notify(ev)

	if ready || m.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.PersistTimeout)
	defer cancel()
	items, writtenAt, ok := m.store.LoadStale(ctx, m.cfg.SnapshotKey)
	if !ok {
		m.logger.Warn("no persisted snapshot to fall back to", zap.String("mirror", m.cfg.Name))
		return
	}
	m.applyPersisted(s, items, writtenAt)
}

// setOnline reports a connectivity flip of a ready mirror as a status event. Requires applyMu.
func (m *mirror[T]) setOnline(s *session, online bool) {
	m.mu.Lock()
	if !m.current(s) || m.online == online {
		m.mu.Unlock()
		return
	}
	m.online = online
	ready := m.ready
	ev := Event[T]{Type: EventStatus, Stats: m.statsLocked()}
	m.mu.Unlock()

	if ready {
		m.notify(ev)
	}
}

// save overwrites the persisted snapshot with server-confirmed data
func (m *mirror[T]) save(origin feed.Origin, items []T) {
	if m.store == nil || origin != feed.OriginServer {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.PersistTimeout)
	defer cancel()
	if err := m.store.Save(ctx, m.cfg.SnapshotKey, items); err != nil {
		m.logger.Debug("snapshot not refreshed", zap.String("mirror", m.cfg.Name), zap.Error(err))
	}
}

func (m *mirror[T]) Persist(ctx context.Context) error {
	if m.store == nil {
		return ErrNoStore
	}
	m.applyMu.Lock()
	defer m.applyMu.Unlock()

	m.mu.RLock()
	live := m.ready && !m.stale
	items := m.sortedLocked(nil)
	m.mu.RUnlock()
	if !live {
		return ErrNotLive
	}
	return m.store.Save(ctx, m.cfg.SnapshotKey, items)
}

// notify delivers ev to every live subscriber in subscribe order. Requires applyMu.
func (m *mirror[T]) notify(ev Event[T]) {
	for _, sub := range m.reg.live() {
		m.deliver(sub.listener, ev)
	}
}

func (m *mirror[T]) deliver(l Listener[T], ev Event[T]) {
	_ = routine.Call(m.logger, m.cfg.Name+"-listener", func() { l(ev) })
}

func (m *mirror[T]) Subscribe(l Listener[T]) Unsubscribe {
	m.refMu.Lock()
	defer m.refMu.Unlock()

	m.mu.RLock()
	replay := m.ready
	id, count := m.reg.add(l, replay)
	m.mu.RUnlock()

	if count == 1 {
		m.Open()
	}
	if replay {
		m.schedule(func() { m.replay(id) })
	}

	var once sync.Once
	return func() {
		once.Do(func() { m.unsubscribe(id) })
	}
}

func (m *mirror[T]) unsubscribe(id uint64) {
	m.refMu.Lock()
	defer m.refMu.Unlock()
	if removed, count := m.reg.remove(id); removed && count == 0 {
		m.Close()
	}
}

// replay sends the current state to a subscriber that joined a ready mirror. Requires applyMu.
func (m *mirror[T]) replay(id uint64) {
	m.mu.RLock()
	ready := m.ready
	ev := Event[T]{Type: EventInitialLoad, Items: m.sortedLocked(nil), Stats: m.statsLocked()}
	m.mu.RUnlock()

	l := m.reg.promote(id)
	if l == nil || !ready {
		return
	}
	m.deliver(l, ev)
}

func (m *mirror[T]) GetAll() []T {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sortedLocked(nil)
}

func (m *mirror[T]) GetByID(key string) (T, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	item, ok := m.items[key]
	return item, ok
}

func (m *mirror[T]) GetFiltered(keep func(T) bool) []T {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sortedLocked(keep)
}

func (m *mirror[T]) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.statsLocked()
}

// sortedLocked requires mu
func (m *mirror[T]) sortedLocked(keep func(T) bool) []T {
	out := make([]T, 0, len(m.items))
	for _, item := range m.items {
		if keep == nil || keep(item) {
			out = append(out, item)
		}
	}
	if m.schema.Less != nil {
		sort.SliceStable(out, func(i, j int) bool { return m.schema.Less(out[i], out[j]) })
	} else {
		sort.Slice(out, func(i, j int) bool { return m.schema.Key(out[i]) < m.schema.Key(out[j]) })
	}
	return out
}

// statsLocked requires mu
func (m *mirror[T]) statsLocked() Stats {
	return Stats{
		TotalCount:     len(m.items),
		LastUpdated:    m.lastUpdated,
		IsOnline:       m.online,
		HasInitialData: m.ready,
		Stale:          m.stale,
	}
}

// sink turns feed callbacks into pump work bound to one session
type sink[T any] struct {
	m *mirror[T]
	s *session
}

func (k *sink[T]) Snapshot(docs []T, origin feed.Origin) {
	k.m.enqueue(k.s, func() { k.m.applySnapshot(k.s, docs, origin) })
}

func (k *sink[T]) Change(change feed.Change[T], origin feed.Origin) {
	k.m.enqueue(k.s, func() { k.m.applyDelta(k.s, change.Kind, change.Doc, origin) })
}

func (k *sink[T]) Connectivity(online bool) {
	k.m.enqueue(k.s, func() { k.m.setOnline(k.s, online) })
}

func (k *sink[T]) Error(err error) {
	k.m.enqueue(k.s, func() { k.m.handleError(k.s, err) })
}
