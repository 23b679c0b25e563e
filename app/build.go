package app

import (
	"context"
	"time"

	"github.com/trattoria/livesync/admin"
	"github.com/trattoria/livesync/cache"
	"github.com/trattoria/livesync/cron"
	"github.com/trattoria/livesync/db"
	"github.com/trattoria/livesync/entity"
	"github.com/trattoria/livesync/feed"
	"github.com/trattoria/livesync/kafka"
	"github.com/trattoria/livesync/logger"
	"github.com/trattoria/livesync/snapshot"
	"go.uber.org/zap"
)

// refreshTimeout bounds one run of the snapshot chains
const refreshTimeout = time.Minute

// kind describes how one entity type is mirrored and edited
type kind[T admin.Entity] struct {
	collection string
	keys       admin.Keys[T]
	schema     cache.Schema[T]
	maxAge     time.Duration
	memory     *feed.Memory[T]
	// service points at the Admin field receiving the write service
	service func(*Admin) **admin.Service[T]
}

// buildKind creates the mirror of k and, when writes are possible, its admin service
func buildKind[T admin.Entity](a *App, k kind[T]) (cache.Mirror[T], error) {
	var docs *db.Documents[T]
	if a.database != nil {
		var err error
		if docs, err = db.NewDocuments[T](a.database, k.collection, k.keys.Key); err != nil {
			return nil, ErrBuild(k.collection+" repository", err)
		}
	}

	source, err := newSource(a, k, docs)
	if err != nil {
		return nil, ErrBuild(k.collection+" feed", err)
	}

	mcfg := &cache.Config{Name: k.collection, MaxAge: k.maxAge}
	var store cache.SnapshotStore[T]
	if a.backend != nil {
		s, err := snapshot.NewStore[T](a.logger, a.backend, &a.config.Snapshot.Store)
		if err != nil {
			return nil, ErrBuild(k.collection+" snapshot store", err)
		}
		mcfg.SnapshotKey = s.Key(k.collection)
		store = s
	}

	m, err := cache.New(a.logger, mcfg, k.schema, source, store)
	if err != nil {
		return nil, ErrBuild(k.collection+" mirror", err)
	}
	a.persisters = append(a.persisters, persister{name: k.collection, persist: m.Persist})

	if a.Admin != nil && docs != nil {
		svc, err := admin.NewService(a.logger, k.collection, k.keys, docs, a.producer)
		if err != nil {
			return nil, ErrBuild(k.collection+" admin", err)
		}
		*k.service(a.Admin) = svc
	}
	return m, nil
}

// newSource picks the change feed of k for the configured mode
func newSource[T admin.Entity](a *App, k kind[T], docs *db.Documents[T]) (feed.Source[T], error) {
	switch a.config.FeedMode {
	case FeedPoll:
		return feed.NewPoller(a.logger, &a.config.Poller, k.collection, k.keys.Key, docs.List)
	case FeedKafka:
		consumerCfg := a.config.Consumer
		consumerCfg.GroupID = consumerGroup(consumerCfg.GroupID, k.collection)
		log := a.logger
		newConsumer := func() (kafka.Consumer, error) {
			c := consumerCfg
			return kafka.NewConsumer(log, &c, k.collection)
		}
		return feed.NewKafkaSource(a.logger, &a.config.KafkaSource, k.collection, k.keys.Key, docs.List, newConsumer)
	default:
		if k.memory == nil {
			return nil, ErrInvalidConfig("memory feed missing for " + k.collection)
		}
		return k.memory, nil
	}
}

// consumerGroup gives every collection its own group so each mirror sees every message
func consumerGroup(prefix, collection string) string {
	if prefix == "" {
		prefix = "livesync"
	}
	return prefix + "-" + collection
}

func openBackend(log logger.Logger, cfg *SnapshotConfig) (snapshot.Backend, error) {
	switch cfg.Backend {
	case BackendMemory:
		return snapshot.NewMemory(), nil
	case BackendSQLite:
		b, err := snapshot.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return b, nil
	case BackendRedis:
		b, err := snapshot.NewRedis(log, &cfg.Redis)
		if err != nil {
			return nil, err
		}
		return b, nil
	default:
		return nil, nil
	}
}

// schedule registers the snapshot maintenance chains
func (a *App) schedule() error {
	if a.backend == nil {
		return nil
	}

	refresh := cron.Chain{
		Name:    ChainSnapshotRefresh,
		Spec:    a.config.Snapshot.RefreshSpec,
		Timeout: refreshTimeout,
		Tasks: []cron.Task{
			cron.TaskFunc{TaskName: "persist", Fn: func(ctx context.Context) error {
				persisted, skipped, err := a.PersistAll(ctx)
				shared := cron.GetSharedData(ctx)
				shared.Add("persisted", persisted)
				shared.Add("skipped", skipped)
				return err
			}},
			cron.TaskFunc{TaskName: "report", Fn: func(ctx context.Context) error {
				shared := cron.GetSharedData(ctx)
				a.logger.Info("snapshots refreshed",
					zap.Int("persisted", shared.Int("persisted")),
					zap.Int("skipped", shared.Int("skipped")),
				)
				return nil
			}},
		},
	}
	if err := a.cron.AddChain(refresh); err != nil {
		return ErrBuild("schedule", err)
	}

	if _, ok := a.backend.(snapshot.Purger); !ok {
		return nil
	}
	purge := cron.Chain{
		Name:    ChainSnapshotPurge,
		Spec:    a.config.Snapshot.PurgeSpec,
		Timeout: refreshTimeout,
		Tasks: []cron.Task{
			cron.TaskFunc{TaskName: "purge", Fn: func(ctx context.Context) error {
				n, err := a.PurgeExpired(ctx)
				if err != nil {
					return err
				}
				a.logger.Info("expired snapshots purged", zap.Int64("removed", n))
				return nil
			}},
		},
	}
	if err := a.cron.AddChain(purge); err != nil {
		return ErrBuild("schedule", err)
	}
	return nil
}

func (f *MemoryFeeds) menu() *feed.Memory[entity.MenuItem] {
	if f == nil {
		return nil
	}
	return f.Menu
}

func (f *MemoryFeeds) offers() *feed.Memory[entity.Offer] {
	if f == nil {
		return nil
	}
	return f.Offers
}

func (f *MemoryFeeds) reviews() *feed.Memory[entity.Review] {
	if f == nil {
		return nil
	}
	return f.Reviews
}

func (f *MemoryFeeds) hours() *feed.Memory[entity.BusinessHours] {
	if f == nil {
		return nil
	}
	return f.Hours
}
