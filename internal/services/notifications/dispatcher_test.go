package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/relun/backend/internal/domain/enums"
	"github.com/relun/backend/internal/domain/model"
	redrepo "github.com/relun/backend/internal/repo/redis"
)

type recordingSink struct {
	mu     sync.Mutex
	events []Event
	err    error
	block  chan struct{}
}

func (s *recordingSink) Name() string { return "recording" }

func (s *recordingSink) Deliver(_ context.Context, event Event) error {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return s.err
}

func (s *recordingSink) snapshot() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}

type panickingSink struct{}

func (panickingSink) Name() string { return "panicking" }

func (panickingSink) Deliver(context.Context, Event) error { panic("boom") }

func testMatch() model.Match {
	return model.Match{ID: "m1", UserA: "a", UserB: "b", Status: enums.MatchStatusActive}
}

func TestDispatcherDeliversToEverySink(t *testing.T) {
	first := &recordingSink{}
	failing := &recordingSink{err: errors.New("sink down")}
	d := NewDispatcher(Config{Workers: 1}, nil, panickingSink{}, failing, first)

	d.OnMatchCreated(testMatch())
	d.OnMessageAppended(model.Message{ID: "x", MatchID: "m1", Sender: "a", Sequence: 1}, "b")

	if err := d.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}

	events := first.snapshot()
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Type != EventMatchCreated || len(events[0].Recipients) != 2 {
		t.Fatalf("unexpected match event %+v", events[0])
	}
	if events[1].Type != EventMessageAppended || events[1].Recipients[0] != "b" {
		t.Fatalf("unexpected message event %+v", events[1])
	}
	if len(failing.snapshot()) != 2 {
		t.Fatalf("failing sink should still be offered every event")
	}
}

func TestDispatcherNeverBlocksWriters(t *testing.T) {
	sink := &recordingSink{block: make(chan struct{})}
	d := NewDispatcher(Config{Workers: 1, QueueSize: 1}, nil, sink)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 50; i++ {
			d.OnMatchCreated(testMatch())
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("enqueue blocked on a stalled sink")
	}

	close(sink.block)
	if err := d.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}
	if got := len(sink.snapshot()); got == 0 || got > 2 {
		t.Fatalf("expected overflow to be dropped, delivered %d", got)
	}
}

func TestDispatcherDropsAfterClose(t *testing.T) {
	sink := &recordingSink{}
	d := NewDispatcher(Config{}, nil, sink)
	if err := d.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}
	d.OnMatchCreated(testMatch())
	if err := d.Close(context.Background()); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if len(sink.snapshot()) != 0 {
		t.Fatalf("expected no delivery after close")
	}
}

func TestRedisSinkPublishesJSON(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redrepo.NewClient(mr.Addr(), "", 0)
	defer client.Close()

	events := redrepo.NewEventRepo(client, "test:events")
	ctx := context.Background()
	sub := client.Subscribe(ctx, events.Channel())
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	m := testMatch()
	if err := NewRedisSink(events).Deliver(ctx, Event{Type: EventMatchCreated, MatchID: m.ID, Match: &m}); err != nil {
		t.Fatalf("deliver: %v", err)
	}

	select {
	case msg := <-sub.Channel():
		var got Event
		if err := json.Unmarshal([]byte(msg.Payload), &got); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		if got.Type != EventMatchCreated || got.Match == nil || got.Match.ID != "m1" {
			t.Fatalf("unexpected event %+v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for published event")
	}
}

type fakeProducer struct {
	topic string
	key   string
}

func (p *fakeProducer) Produce(_ context.Context, topic string, key, _ []byte) error {
	p.topic = topic
	p.key = string(key)
	return nil
}

func TestKafkaSinkRoutesByEventType(t *testing.T) {
	producer := &fakeProducer{}
	sink := NewKafkaSink(producer, KafkaTopics{MessageAppended: "chat"})

	if err := sink.Deliver(context.Background(), Event{Type: EventMessageAppended, MatchID: "m9"}); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if producer.topic != "chat" || producer.key != "m9" {
		t.Fatalf("unexpected routing topic=%q key=%q", producer.topic, producer.key)
	}

	if err := sink.Deliver(context.Background(), Event{Type: EventMatchCreated, MatchID: "m9"}); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if producer.topic != "relun.matches" {
		t.Fatalf("expected default match topic, got %q", producer.topic)
	}
}
