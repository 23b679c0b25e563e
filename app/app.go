// Package app wires the four restaurant mirrors to their change feeds, the
// persisted snapshot store, the maintenance schedule and the optional journal.
package app

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/trattoria/livesync/admin"
	"github.com/trattoria/livesync/cache"
	"github.com/trattoria/livesync/cron"
	"github.com/trattoria/livesync/db"
	"github.com/trattoria/livesync/entity"
	"github.com/trattoria/livesync/feed"
	"github.com/trattoria/livesync/journal"
	"github.com/trattoria/livesync/kafka"
	"github.com/trattoria/livesync/logger"
	"github.com/trattoria/livesync/snapshot"
	"go.uber.org/zap"
)

// Maintenance chain names
const (
	ChainSnapshotRefresh = "snapshot-refresh"
	ChainSnapshotPurge   = "snapshot-purge"
)

// Admin holds the write-side services; nil when no producer is configured
type Admin struct {
	Menu    *admin.Service[entity.MenuItem]
	Offers  *admin.Service[entity.Offer]
	Reviews *admin.Service[entity.Review]
	Hours   *admin.Service[entity.BusinessHours]
}

// App owns every long-lived component
type App struct {
	Menu    cache.Mirror[entity.MenuItem]
	Offers  cache.Mirror[entity.Offer]
	Reviews cache.Mirror[entity.Review]
	Hours   cache.Mirror[entity.BusinessHours]
	Admin   *Admin

	logger  logger.Logger
	config  *Config
	backend snapshot.Backend
	cron    cron.Cron
	journal *journal.Journal
	// persisters persist one mirror each, in declaration order
	persisters []persister

	database db.Database
	producer kafka.Producer
	// memory feeds are kept so local runs can be seeded
	memory *MemoryFeeds

	mu        sync.Mutex
	started   bool
	stopped   bool
	keepalive []cache.Unsubscribe
}

// MemoryFeeds are the in-process collections of the memory feed mode
type MemoryFeeds struct {
	Menu    *feed.Memory[entity.MenuItem]
	Offers  *feed.Memory[entity.Offer]
	Reviews *feed.Memory[entity.Review]
	Hours   *feed.Memory[entity.BusinessHours]
}

type persister struct {
	name    string
	persist func(ctx context.Context) error
}

// New builds every component from cfg. Nothing runs until Start.
func New(log logger.Logger, cfg *Config) (_ *App, err error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &App{logger: log, config: cfg, cron: cron.NewCron(log)}
	defer func() {
		if err != nil {
			a.closeResources()
		}
	}()

	if a.backend, err = openBackend(log, &cfg.Snapshot); err != nil {
		return nil, ErrBuild("snapshot backend", err)
	}
	if cfg.FeedMode != FeedMemory {
		if a.database, err = db.NewMySQL(log, &cfg.DB); err != nil {
			return nil, ErrBuild("database", err)
		}
	} else {
		a.memory = &MemoryFeeds{
			Menu:    feed.NewMemory(entity.CollectionMenuItems, entity.MenuItemID),
			Offers:  feed.NewMemory(entity.CollectionOffers, entity.OfferID),
			Reviews: feed.NewMemory(entity.CollectionReviews, entity.ReviewID),
			Hours:   feed.NewMemory(entity.CollectionBusinessHours, entity.BusinessHoursID),
		}
	}
	if cfg.writable() {
		if a.producer, err = kafka.NewProducer(log, &cfg.Producer); err != nil {
			return nil, ErrBuild("kafka producer", err)
		}
		a.Admin = &Admin{}
	}

	if a.Menu, err = buildKind(a, kind[entity.MenuItem]{
		collection: entity.CollectionMenuItems,
		keys:       admin.Keys[entity.MenuItem]{Key: entity.MenuItemID, WithKey: entity.MenuItemWithID},
		schema:     entity.MenuSchema(),
		maxAge:     entity.MenuMaxAge,
		memory:     a.memory.menu(),
		service:    func(ad *Admin) **admin.Service[entity.MenuItem] { return &ad.Menu },
	}); err != nil {
		return nil, err
	}
	if a.Offers, err = buildKind(a, kind[entity.Offer]{
		collection: entity.CollectionOffers,
		keys:       admin.Keys[entity.Offer]{Key: entity.OfferID, WithKey: entity.OfferWithID},
		schema:     entity.OfferSchema(),
		maxAge:     entity.OffersMaxAge,
		memory:     a.memory.offers(),
		service:    func(ad *Admin) **admin.Service[entity.Offer] { return &ad.Offers },
	}); err != nil {
		return nil, err
	}
	if a.Reviews, err = buildKind(a, kind[entity.Review]{
		collection: entity.CollectionReviews,
		keys:       admin.Keys[entity.Review]{Key: entity.ReviewID, WithKey: entity.ReviewWithID},
		schema:     entity.ReviewSchema(),
		maxAge:     entity.ReviewsMaxAge,
		memory:     a.memory.reviews(),
		service:    func(ad *Admin) **admin.Service[entity.Review] { return &ad.Reviews },
	}); err != nil {
		return nil, err
	}
	if a.Hours, err = buildKind(a, kind[entity.BusinessHours]{
		collection: entity.CollectionBusinessHours,
		keys:       admin.Keys[entity.BusinessHours]{Key: entity.BusinessHoursID, WithKey: entity.BusinessHoursWithID},
		schema:     entity.HoursSchema(),
		maxAge:     entity.HoursMaxAge,
		memory:     a.memory.hours(),
		service:    func(ad *Admin) **admin.Service[entity.BusinessHours] { return &ad.Hours },
	}); err != nil {
		return nil, err
	}

	if cfg.Journal.Enabled {
		inserter, err := journal.NewClickHouse(log, &cfg.Journal.ClickHouse)
		if err != nil {
			return nil, ErrBuild("journal", err)
		}
		if a.journal, err = journal.New(log, &cfg.Journal.Writer, inserter); err != nil {
			_ = inserter.Close()
			return nil, ErrBuild("journal", err)
		}
	}

	if err := a.schedule(); err != nil {
		return nil, err
	}
	return a, nil
}

// Memory returns the in-process collections, or nil outside the memory feed mode
func (a *App) Memory() *MemoryFeeds { return a.memory }

// Start opens every mirror and starts the schedule and the journal
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stopped {
		return ErrStopped
	}
	if a.started {
		return ErrStarted
	}
	a.started = true

	if a.journal != nil {
		if err := a.journal.Start(); err != nil {
			return ErrBuild("journal", err)
		}
		a.keepalive = append(a.keepalive,
			journal.Attach(a.journal, entity.CollectionMenuItems, a.Menu),
			journal.Attach(a.journal, entity.CollectionOffers, a.Offers),
			journal.Attach(a.journal, entity.CollectionReviews, a.Reviews),
			journal.Attach(a.journal, entity.CollectionBusinessHours, a.Hours),
		)
	}
	a.keepalive = append(a.keepalive,
		keepOpen(a.logger, a.Menu),
		keepOpen(a.logger, a.Offers),
		keepOpen(a.logger, a.Reviews),
		keepOpen(a.logger, a.Hours),
	)
	a.cron.Start()

	a.logger.Info("livesync started",
		zap.String("feed_mode", a.config.FeedMode),
		zap.String("snapshot_backend", a.config.Snapshot.Backend),
		zap.Bool("journal", a.journal != nil),
		zap.Bool("admin", a.Admin != nil),
	)
	return nil
}

// Stop persists the live mirrors, closes them and releases every resource
func (a *App) Stop(ctx context.Context) {
	a.mu.Lock()
	if a.stopped {
		a.mu.Unlock()
		return
	}
	a.stopped = true
	started := a.started
	keepalive := a.keepalive
	a.keepalive = nil
	a.mu.Unlock()

	a.cron.Close()
	if started && a.backend != nil {
		persisted, skipped, err := a.PersistAll(ctx)
		if err != nil {
			a.logger.Warn("final snapshot refresh failed", zap.Error(err))
		}
		a.logger.Info("final snapshot refresh", zap.Int("persisted", persisted), zap.Int("skipped", skipped))
	}
	for _, unsubscribe := range keepalive {
		unsubscribe()
	}
	a.Menu.Close()
	a.Offers.Close()
	a.Reviews.Close()
	a.Hours.Close()

	a.closeResources()
	a.logger.Info("livesync stopped")
}

// PersistAll persists every mirror and reports how many were written and skipped
func (a *App) PersistAll(ctx context.Context) (persisted, skipped int, err error) {
	var errs []error
	for _, p := range a.persisters {
		switch perr := p.persist(ctx); {
		case perr == nil:
			persisted++
		case errors.Is(perr, cache.ErrNotLive), errors.Is(perr, cache.ErrNoStore):
			skipped++
		default:
			errs = append(errs, perr)
		}
	}
	return persisted, skipped, errors.Join(errs...)
}

// PurgeExpired removes expired snapshots when the backend keeps them past expiry
func (a *App) PurgeExpired(ctx context.Context) (int64, error) {
	purger, ok := a.backend.(snapshot.Purger)
	if !ok {
		return 0, nil
	}
	return purger.Purge(ctx)
}

func (a *App) closeResources() {
	if a.journal != nil {
		if err := a.journal.Close(); err != nil {
			a.logger.Warn("failed to close journal", zap.Error(err))
		}
	}
	closers := []struct {
		name string
		c    io.Closer
	}{
		{"kafka producer", a.producer},
		{"database", a.database},
		{"snapshot backend", a.backend},
	}
	for _, c := range closers {
		if c.c == nil {
			continue
		}
		if err := c.c.Close(); err != nil {
			a.logger.Warn("failed to close "+c.name, zap.Error(err))
		}
	}
}

// keepOpen holds a subscription so a mirror stays open while views come and go
func keepOpen[T any](log logger.Logger, m cache.Mirror[T]) cache.Unsubscribe {
	return m.Subscribe(func(ev cache.Event[T]) {
		if ev.Type == cache.EventError {
			log.Warn("mirror feed error", zap.String("cache", m.Name()), zap.Error(ev.Err))
		}
	})
}

// RunChain runs a maintenance chain now
func (a *App) RunChain(ctx context.Context, name string) error {
	return a.cron.Trigger(ctx, name)
}
