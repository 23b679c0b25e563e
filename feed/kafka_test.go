package feed

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/trattoria/livesync/kafka"
	"github.com/trattoria/livesync/logger"
)

type fakeConsumer struct {
	mu      sync.Mutex
	handler kafka.ChangeHandler
	onError kafka.ErrorHandler
	started chan struct{}
	closed  bool
}

func newFakeConsumer() *fakeConsumer {
	return &fakeConsumer{started: make(chan struct{})}
}

func (f *fakeConsumer) Start(_ context.Context, handler kafka.ChangeHandler, onError kafka.ErrorHandler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handler = handler
	f.onError = onError
	close(f.started)
	return nil
}

func (f *fakeConsumer) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeConsumer) deliver(t *testing.T, kind Kind, doc item) {
	t.Helper()
	msg, err := kafka.NewChangeMessage("items", string(kind), doc.ID, doc, time.Now())
	if err != nil {
		t.Fatalf("NewChangeMessage() = %v", err)
	}
	if err := f.handler(context.Background(), msg); err != nil {
		t.Fatalf("handler() = %v", err)
	}
}

func newKafkaSource(t *testing.T, load FetchFunc[item], consumer *fakeConsumer) *KafkaSource[item] {
	t.Helper()
	cfg := &KafkaSourceConfig{LoadTimeout: time.Second, RetryBackoff: time.Millisecond, MaxBackoff: 5 * time.Millisecond}
	src, err := NewKafkaSource(logger.NewNop(), cfg, "items", itemKey, load,
		func() (kafka.Consumer, error) { return consumer, nil })
	if err != nil {
		t.Fatalf("NewKafkaSource() = %v", err)
	}
	return src
}

func TestKafkaSource_BuffersChangesUntilSnapshot(t *testing.T) {
	gate := make(chan struct{})
	load := func(ctx context.Context) ([]item, error) {
		<-gate
		return []item{{ID: "a"}}, nil
	}
	consumer := newFakeConsumer()
	src := newKafkaSource(t, load, consumer)

	sink := newRecordingSink()
	sub, err := src.Subscribe(context.Background(), sink)
	if err != nil {
		t.Fatalf("Subscribe() = %v", err)
	}
	defer sub.Close()

	<-consumer.started
	consumer.deliver(t, Added, item{ID: "b"})
	if n := len(sink.all()); n != 0 {
		t.Fatalf("change delivered before snapshot: %d events", n)
	}

	close(gate)
	events := sink.waitFor(t, 2)
	if events[0].kind != "snapshot" || len(events[0].docs) != 1 {
		t.Fatalf("first event = %+v, want snapshot", events[0])
	}
	if events[1].kind != "change" || events[1].change.Doc.ID != "b" || events[1].change.Kind != Added {
		t.Errorf("second event = %+v, want buffered add of b", events[1])
	}

	consumer.deliver(t, Modified, item{ID: "a", Price: 9})
	events = sink.waitFor(t, 3)
	if events[2].change.Kind != Modified || events[2].change.Doc.Price != 9 {
		t.Errorf("third event = %+v", events[2])
	}
}

func TestKafkaSource_SkipsMalformedAndForeign(t *testing.T) {
	consumer := newFakeConsumer()
	src := newKafkaSource(t, func(context.Context) ([]item, error) { return nil, nil }, consumer)

	sink := newRecordingSink()
	sub, _ := src.Subscribe(context.Background(), sink)
	defer sub.Close()
	sink.waitFor(t, 1)

	messages := []*kafka.ChangeMessage{
		{Collection: "other", Kind: "added", Key: "x", Payload: []byte(`{"id":"x"}`)},
		{Collection: "items", Kind: "renamed", Key: "x", Payload: []byte(`{"id":"x"}`)},
		{Collection: "items", Kind: "removed", Key: "x"},
		{Collection: "items", Kind: "added", Key: "x", Payload: []byte(`{"id":`)},
	}
	for _, msg := range messages {
		if err := consumer.handler(context.Background(), msg); err != nil {
			t.Errorf("handler(%+v) = %v, want nil", msg, err)
		}
	}

	if n := len(sink.all()); n != 1 {
		t.Errorf("got %d events, want only the snapshot", n)
	}
}

func TestKafkaSource_LoadRetriesAndReportsErrors(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	load := func(context.Context) ([]item, error) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if calls == 1 {
			return nil, errors.New("connection refused")
		}
		return []item{{ID: "a"}}, nil
	}
	consumer := newFakeConsumer()
	src := newKafkaSource(t, load, consumer)

	sink := newRecordingSink()
	sub, _ := src.Subscribe(context.Background(), sink)
	defer sub.Close()

	events := sink.waitFor(t, 2)
	if events[0].kind != "error" {
		t.Errorf("first event = %+v, want error", events[0])
	}
	if events[1].kind != "snapshot" {
		t.Errorf("second event = %+v, want snapshot", events[1])
	}
}

func TestKafkaSource_ConsumerErrorTogglesConnectivity(t *testing.T) {
	consumer := newFakeConsumer()
	src := newKafkaSource(t, func(context.Context) ([]item, error) { return nil, nil }, consumer)

	sink := newRecordingSink()
	sub, _ := src.Subscribe(context.Background(), sink)
	sink.waitFor(t, 1)

	consumer.onError(errors.New("all brokers down"))
	consumer.deliver(t, Added, item{ID: "a"})

	events := sink.waitFor(t, 5)
	kinds := []string{events[1].kind, events[2].kind, events[3].kind, events[4].kind}
	want := []string{"error", "connectivity", "connectivity", "change"}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("event %d = %s, want %s", i+1, kinds[i], want[i])
		}
	}
	if events[2].online || !events[3].online {
		t.Errorf("connectivity = %v then %v, want false then true", events[2].online, events[3].online)
	}

	_ = sub.Close()
	if !consumer.closed {
		t.Error("consumer not closed")
	}
}
