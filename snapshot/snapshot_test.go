package snapshot

import (
	"context"
	"testing"
	"time"

	"github.com/trattoria/livesync/logger"
)

type dish struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type clock struct{ t time.Time }

func newClock() *clock { return &clock{t: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)} }

func (c *clock) now() time.Time { return c.t }

func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestStore(t *testing.T, c *clock) (*Store[dish], *Memory) {
	t.Helper()
	backend := NewMemory()
	backend.now = c.now
	store, err := NewStore[dish](logger.NewNop(), backend, nil)
	if err != nil {
		t.Fatalf("NewStore() = %v", err)
	}
	store.now = c.now
	return store, backend
}

func TestStore_LoadRespectsMaxAge(t *testing.T) {
	c := newClock()
	store, _ := newTestStore(t, c)
	ctx := context.Background()
	key := store.Key("menu_items")

	items := []dish{{ID: "1", Name: "Lasagne"}, {ID: "2", Name: "Tiramisu"}}
	if err := store.Save(ctx, key, items); err != nil {
		t.Fatalf("Save() = %v", err)
	}

	c.advance(30 * time.Minute)
	got, writtenAt, ok := store.Load(ctx, key, time.Hour)
	if !ok {
		t.Fatal("Load() missed a fresh snapshot")
	}
	if len(got) != 2 || got[1].Name != "Tiramisu" {
		t.Errorf("Load() items = %+v", got)
	}
	if !writtenAt.Equal(c.t.Add(-30 * time.Minute)) {
		t.Errorf("writtenAt = %v", writtenAt)
	}

	c.advance(time.Hour)
	if _, _, ok := store.Load(ctx, key, time.Hour); ok {
		t.Error("Load() returned a snapshot older than max age")
	}
	if got, _, ok := store.LoadStale(ctx, key); !ok || len(got) != 2 {
		t.Errorf("LoadStale() = %+v, %v", got, ok)
	}
}

func TestStore_MissingAndUndecodable(t *testing.T) {
	c := newClock()
	store, backend := newTestStore(t, c)
	ctx := context.Background()

	if _, _, ok := store.LoadStale(ctx, store.Key("offers")); ok {
		t.Error("LoadStale() found a snapshot that was never saved")
	}

	_ = backend.Put(ctx, store.Key("offers"), []byte("not json"), time.Hour)
	if _, _, ok := store.LoadStale(ctx, store.Key("offers")); ok {
		t.Error("LoadStale() accepted an undecodable snapshot")
	}

	_ = backend.Put(ctx, store.Key("offers"), []byte(`{"items":[]}`), time.Hour)
	if _, _, ok := store.LoadStale(ctx, store.Key("offers")); ok {
		t.Error("LoadStale() accepted a snapshot without timestamp")
	}
}

func TestStore_SaveOverwritesAndEmpty(t *testing.T) {
	c := newClock()
	store, _ := newTestStore(t, c)
	ctx := context.Background()
	key := store.Key("reviews")

	_ = store.Save(ctx, key, []dish{{ID: "1"}})
	_ = store.Save(ctx, key, nil)

	got, _, ok := store.Load(ctx, key, time.Hour)
	if !ok {
		t.Fatal("empty snapshot must still be present")
	}
	if len(got) != 0 {
		t.Errorf("Load() = %+v, want empty", got)
	}

	if err := store.Save(ctx, "", nil); err != ErrEmptyKey {
		t.Errorf("Save(empty key) = %v, want ErrEmptyKey", err)
	}
}

func TestStore_RetentionExpiresAndPurges(t *testing.T) {
	c := newClock()
	store, backend := newTestStore(t, c)
	ctx := context.Background()

	_ = store.Save(ctx, store.Key("business_hours"), []dish{{ID: "main"}})
	c.advance(8 * 24 * time.Hour)

	if _, _, ok := store.LoadStale(ctx, store.Key("business_hours")); ok {
		t.Error("snapshot survived past retention")
	}
	n, err := store.Purge(ctx)
	if err != nil || n != 1 {
		t.Errorf("Purge() = %d, %v; want 1", n, err)
	}
	if len(backend.entries) != 0 {
		t.Errorf("entries left after purge: %d", len(backend.entries))
	}
}

func TestConfig(t *testing.T) {
	cfg := (&Config{}).MergeDefaults()
	if cfg.Prefix != "livesync:snapshot:" || cfg.Retention != 7*24*time.Hour {
		t.Errorf("defaults = %+v", cfg)
	}
	if err := (&Config{Retention: -time.Second}).Validate(); err == nil {
		t.Error("expected error for negative retention")
	}
	if _, err := NewStore[dish](logger.NewNop(), nil, nil); err == nil {
		t.Error("expected error for nil backend")
	}
}
