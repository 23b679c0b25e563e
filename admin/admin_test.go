package admin

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/shopspring/decimal"
	"github.com/trattoria/livesync/db"
	"github.com/trattoria/livesync/entity"
	"github.com/trattoria/livesync/kafka"
	"github.com/trattoria/livesync/logger"
)

type memoryRepo struct {
	mu   sync.Mutex
	docs map[string]entity.MenuItem
	err  error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{docs: make(map[string]entity.MenuItem)}
}

func (r *memoryRepo) Get(_ context.Context, id string) (entity.MenuItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok {
		return doc, db.ErrNotFound
	}
	return doc, nil
}

func (r *memoryRepo) Create(_ context.Context, doc entity.MenuItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	if _, ok := r.docs[doc.ID]; ok {
		return db.ErrDuplicateID
	}
	r.docs[doc.ID] = doc
	return nil
}

func (r *memoryRepo) Update(_ context.Context, doc entity.MenuItem) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.docs[doc.ID]; !ok {
		return 0, db.ErrNotFound
	}
	r.docs[doc.ID] = doc
	return 2, nil
}

func (r *memoryRepo) Delete(_ context.Context, id string) (entity.MenuItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok {
		return doc, db.ErrNotFound
	}
	delete(r.docs, id)
	return doc, nil
}

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []*kafka.ChangeMessage
	err  error
}

func (p *recordingPublisher) Publish(_ context.Context, msg *kafka.ChangeMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, msg)
	return nil
}

func (p *recordingPublisher) last(t *testing.T) *kafka.ChangeMessage {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.msgs) == 0 {
		t.Fatal("nothing published")
	}
	return p.msgs[len(p.msgs)-1]
}

func newMenuService(t *testing.T) (*Service[entity.MenuItem], *memoryRepo, *recordingPublisher) {
	t.Helper()
	repo := newMemoryRepo()
	pub := &recordingPublisher{}
	keys := Keys[entity.MenuItem]{Key: entity.MenuItemID, WithKey: entity.MenuItemWithID}
	svc, err := NewService(logger.NewNop(), entity.CollectionMenuItems, keys, repo, pub)
	if err != nil {
		t.Fatalf("NewService() = %v", err)
	}
	svc.now = func() time.Time { return time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC) }
	return svc, repo, pub
}

func pasta(id string) entity.MenuItem {
	return entity.MenuItem{ID: id, Name: "Cacio e pepe", Category: "pasta", Price: decimal.RequireFromString("11.00"), Available: true}
}

func TestCreate_AssignsID(t *testing.T) {
	svc, repo, pub := newMenuService(t)

	doc, err := svc.Create(context.Background(), pasta(""))
	if err != nil {
		t.Fatalf("Create() = %v", err)
	}
	if _, err := uuid.Parse(doc.ID); err != nil {
		t.Fatalf("assigned id %q is not a uuid: %v", doc.ID, err)
	}
	if _, ok := repo.docs[doc.ID]; !ok {
		t.Fatal("document not stored")
	}

	msg := pub.last(t)
	if msg.Collection != entity.CollectionMenuItems || msg.Kind != "added" || msg.Key != doc.ID {
		t.Errorf("published %+v", msg)
	}
	if !msg.Timestamp.Equal(svc.now()) {
		t.Errorf("timestamp = %v", msg.Timestamp)
	}
}

func TestCreate_KeepsGivenID(t *testing.T) {
	svc, _, pub := newMenuService(t)

	doc, err := svc.Create(context.Background(), pasta("cacio"))
	if err != nil || doc.ID != "cacio" {
		t.Fatalf("Create() = %+v, %v", doc, err)
	}
	if pub.last(t).Key != "cacio" {
		t.Error("wrong key published")
	}

	_, err = svc.Create(context.Background(), pasta("cacio"))
	if !errors.Is(err, db.ErrDuplicateID) {
		t.Errorf("duplicate Create() = %v", err)
	}
	if len(pub.msgs) != 1 {
		t.Errorf("published %d messages, want 1", len(pub.msgs))
	}
}

func TestWrites_RejectInvalid(t *testing.T) {
	svc, repo, pub := newMenuService(t)

	invalid := pasta("x")
	invalid.Name = " "
	if _, err := svc.Create(context.Background(), invalid); !errors.Is(err, ErrInvalidDocument) {
		t.Errorf("Create() = %v", err)
	}
	if _, err := svc.Update(context.Background(), invalid); !errors.Is(err, ErrInvalidDocument) {
		t.Errorf("Update() = %v", err)
	}
	if len(repo.docs) != 0 || len(pub.msgs) != 0 {
		t.Error("invalid document reached the repository or the topic")
	}
}

func TestUpdate(t *testing.T) {
	svc, repo, pub := newMenuService(t)
	ctx := context.Background()

	if _, err := svc.Update(ctx, pasta("")); !errors.Is(err, ErrMissingID) {
		t.Errorf("Update() without id = %v", err)
	}
	if _, err := svc.Update(ctx, pasta("ghost")); !errors.Is(err, db.ErrNotFound) {
		t.Errorf("Update() of missing doc = %v", err)
	}

	if _, err := svc.Create(ctx, pasta("cacio")); err != nil {
		t.Fatal(err)
	}
	changed := pasta("cacio")
	changed.Favorite = true
	if _, err := svc.Update(ctx, changed); err != nil {
		t.Fatalf("Update() = %v", err)
	}
	if !repo.docs["cacio"].Favorite {
		t.Error("update not stored")
	}
	if msg := pub.last(t); msg.Kind != "modified" || msg.Key != "cacio" {
		t.Errorf("published %+v", msg)
	}
}

func TestDelete_PublishesPriorDocument(t *testing.T) {
	svc, _, pub := newMenuService(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, pasta("cacio")); err != nil {
		t.Fatal(err)
	}
	if err := svc.Delete(ctx, "cacio"); err != nil {
		t.Fatalf("Delete() = %v", err)
	}

	msg := pub.last(t)
	if msg.Kind != "removed" || msg.Key != "cacio" {
		t.Fatalf("published %+v", msg)
	}
	var prior entity.MenuItem
	if err := kafkaPayload(msg, &prior); err != nil || prior.Name != "Cacio e pepe" {
		t.Errorf("payload = %+v, %v", prior, err)
	}

	if err := svc.Delete(ctx, "cacio"); !errors.Is(err, db.ErrNotFound) {
		t.Errorf("second Delete() = %v", err)
	}
	if err := svc.Delete(ctx, ""); !errors.Is(err, ErrMissingID) {
		t.Errorf("Delete(\"\") = %v", err)
	}
}

func TestPublishFailure_KeepsWrite(t *testing.T) {
	svc, repo, pub := newMenuService(t)
	pub.err = kafka.ErrProducerClosed

	_, err := svc.Create(context.Background(), pasta("cacio"))
	if !errors.Is(err, kafka.ErrProducerClosed) {
		t.Fatalf("Create() = %v", err)
	}
	if _, ok := repo.docs["cacio"]; !ok {
		t.Error("write rolled back on publish failure")
	}
}

func TestNewService_Validation(t *testing.T) {
	keys := Keys[entity.MenuItem]{Key: entity.MenuItemID, WithKey: entity.MenuItemWithID}
	tests := []struct {
		name       string
		collection string
		keys       Keys[entity.MenuItem]
		repo       Repository[entity.MenuItem]
		pub        Publisher
	}{
		{"no collection", "", keys, newMemoryRepo(), &recordingPublisher{}},
		{"no keys", "menu_items", Keys[entity.MenuItem]{}, newMemoryRepo(), &recordingPublisher{}},
		{"no repo", "menu_items", keys, nil, &recordingPublisher{}},
		{"no publisher", "menu_items", keys, newMemoryRepo(), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewService(logger.NewNop(), tt.collection, tt.keys, tt.repo, tt.pub); err == nil {
				t.Error("NewService() accepted invalid wiring")
			}
		})
	}
}

func kafkaPayload(msg *kafka.ChangeMessage, v any) error {
	return jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(msg.Payload, v)
}
