package feed

import (
	"context"
	"errors"
	"testing"
)

func TestMemory_SnapshotThenChanges(t *testing.T) {
	m := NewMemory("items", itemKey, item{ID: "b", Name: "Bruschetta"}, item{ID: "a", Name: "Arancini"})
	sink := newRecordingSink()

	sub, err := m.Subscribe(context.Background(), sink)
	if err != nil {
		t.Fatalf("Subscribe() = %v", err)
	}
	defer sub.Close()

	m.Put(item{ID: "c", Name: "Cannoli"})
	m.Put(item{ID: "a", Name: "Arancini", Price: 7})
	m.Delete("b")
	m.Delete("missing")

	events := sink.all()
	if len(events) != 4 {
		t.Fatalf("got %d events, want 4: %+v", len(events), events)
	}
	if events[0].kind != "snapshot" || len(events[0].docs) != 2 || events[0].docs[0].ID != "a" {
		t.Errorf("snapshot = %+v, want ordered a,b", events[0])
	}

	want := []Kind{Added, Modified, Removed}
	for i, kind := range want {
		if got := events[i+1].change.Kind; got != kind {
			t.Errorf("event %d kind = %s, want %s", i+1, got, kind)
		}
	}
}

func TestMemory_HoldAndRelease(t *testing.T) {
	m := NewMemory("items", itemKey, item{ID: "a"})
	m.Hold()

	sink := newRecordingSink()
	sub, _ := m.Subscribe(context.Background(), sink)
	defer sub.Close()

	m.Put(item{ID: "b"})
	if n := len(sink.all()); n != 0 {
		t.Fatalf("held subscriber got %d events", n)
	}

	m.Release()
	events := sink.all()
	if len(events) != 1 || events[0].kind != "snapshot" || len(events[0].docs) != 2 {
		t.Errorf("after release = %+v, want one snapshot with both docs", events)
	}
}

func TestMemory_CloseCounts(t *testing.T) {
	m := NewMemory[item]("items", itemKey)

	sub, _ := m.Subscribe(context.Background(), newRecordingSink())
	if m.Active() != 1 || m.Subscribes() != 1 {
		t.Fatalf("Active=%d Subscribes=%d", m.Active(), m.Subscribes())
	}

	_ = sub.Close()
	_ = sub.Close()
	if m.Active() != 0 || m.Closes() != 1 {
		t.Errorf("Active=%d Closes=%d, want 0 and 1", m.Active(), m.Closes())
	}
}

func TestMemory_FailAndConnectivity(t *testing.T) {
	m := NewMemory[item]("items", itemKey)
	sink := newRecordingSink()
	sub, _ := m.Subscribe(context.Background(), sink)
	defer sub.Close()

	boom := errors.New("boom")
	m.Fail(boom)
	m.SetOnline(false)

	events := sink.all()
	if len(events) != 3 {
		t.Fatalf("got %d events, want 3", len(events))
	}
	if !errors.Is(events[1].err, boom) {
		t.Errorf("error event = %v", events[1].err)
	}
	if events[2].kind != "connectivity" || events[2].online {
		t.Errorf("connectivity event = %+v", events[2])
	}
}

func TestMemory_SubscribeCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewMemory[item]("items", itemKey).Subscribe(ctx, newRecordingSink()); err == nil {
		t.Error("expected error for canceled context")
	}
}
