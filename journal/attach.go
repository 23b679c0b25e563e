package journal

import (
	"time"

	"github.com/trattoria/livesync/cache"
	"go.uber.org/zap"
)

// Attach journals every event of m under collection until the returned func is called.
// Subscribing keeps the mirror open.
func Attach[T any](j *Journal, collection string, m cache.Mirror[T]) cache.Unsubscribe {
	return m.Subscribe(func(ev cache.Event[T]) {
		if err := j.Record(rowOf(collection, ev, j.now())); err != nil {
			j.logger.Warn("journal row dropped",
				zap.String("collection", collection),
				zap.String("event", string(ev.Type)),
				zap.Error(err),
			)
		}
	})
}

func rowOf[T any](collection string, ev cache.Event[T], at time.Time) Row {
	return Row{
		Collection: collection,
		Event:      string(ev.Type),
		Key:        ev.Key,
		TotalCount: ev.Stats.TotalCount,
		Online:     ev.Stats.IsOnline,
		Stale:      ev.Stats.Stale,
		At:         at.UTC(),
	}
}
