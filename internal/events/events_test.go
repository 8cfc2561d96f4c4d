package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
)

type recordingWriter struct {
	mu   sync.Mutex
	msgs []kafka.Message
}

func (r *recordingWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msgs...)
	return nil
}

func (r *recordingWriter) Close() error { return nil }

func (r *recordingWriter) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.msgs)
}

func newTestPublisher(w kafkaWriter) *KafkaPublisher {
	p := &KafkaPublisher{
		log:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		writer: w,
		queue:  make(chan MatchEvent, queueDepth),
	}
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.wg.Add(1)
	go p.run(ctx)
	return p
}

func TestPublishMatchEventWritesMessage(t *testing.T) {
	w := &recordingWriter{}
	p := newTestPublisher(w)
	defer p.Close()

	p.PublishMatchEvent(context.Background(), MatchEvent{Type: EventStateChanged, MatchID: "m1"})

	deadline := time.Now().Add(time.Second)
	for w.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if w.count() != 1 {
		t.Fatalf("expected 1 message written, got %d", w.count())
	}
	var got MatchEvent
	if err := json.Unmarshal(w.msgs[0].Value, &got); err != nil {
		t.Fatalf("unmarshal published event: %v", err)
	}
	if got.MatchID != "m1" || got.Type != EventStateChanged {
		t.Fatalf("unexpected event payload: %+v", got)
	}
}

func TestNoOpDiscardsEvents(t *testing.T) {
	var n NoOp
	n.PublishMatchEvent(context.Background(), MatchEvent{MatchID: "m1"})
	if err := n.Close(); err != nil {
		t.Fatalf("NoOp.Close: %v", err)
	}
}
