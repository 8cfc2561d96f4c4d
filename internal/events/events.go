// Package events implements the optional match-event outbox: a best-effort
// side channel publishing state transitions, grading results, and match
// completion to a Kafka topic for downstream consumers (analytics, audit).
// Grounded on the async-queue-plus-background-writer idiom in
// services/ledger/internal/public/publisher.go, simplified to this
// system's single-writer, no-partition-strategy needs.
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// EventType names the kind of match lifecycle event being published.
type EventType string

const (
	EventStateChanged EventType = "match.state_changed"
	EventVerified     EventType = "match.question_verified"
	EventCompleted    EventType = "match.completed"
)

// MatchEvent is the JSON payload written to the outbox topic.
type MatchEvent struct {
	Type      EventType `json:"type"`
	MatchID   string    `json:"match_id"`
	Timestamp time.Time `json:"timestamp"`
	Detail    string    `json:"detail,omitempty"`
}

// Publisher publishes match lifecycle events. Implementations must not
// block callers on publish failure; the engine treats the outbox as
// best-effort (SPEC_FULL.md §4.8).
type Publisher interface {
	PublishMatchEvent(ctx context.Context, evt MatchEvent)
	Close() error
}

// NoOp discards every event. Used when RAGNAROK_KAFKA_BROKERS is unset.
type NoOp struct{}

func (NoOp) PublishMatchEvent(context.Context, MatchEvent) {}
func (NoOp) Close() error                                  { return nil }

const queueDepth = 256

type kafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher publishes events asynchronously via a background goroutine
// draining a buffered channel, so a slow or unavailable broker never blocks
// the match engine's hot path.
type KafkaPublisher struct {
	log    *slog.Logger
	writer kafkaWriter
	queue  chan MatchEvent

	wg       sync.WaitGroup
	cancel   context.CancelFunc
	stopOnce sync.Once
}

// NewKafkaPublisher constructs a publisher writing to topic on brokers and
// starts its background drain loop.
func NewKafkaPublisher(brokers []string, topic string, log *slog.Logger) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
	p := &KafkaPublisher{
		log:    log,
		writer: w,
		queue:  make(chan MatchEvent, queueDepth),
	}
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.wg.Add(1)
	go p.run(ctx)
	return p
}

func (p *KafkaPublisher) run(ctx context.Context) {
	defer p.wg.Done()
	for {
		select {
		case evt := <-p.queue:
			p.write(ctx, evt)
		case <-ctx.Done():
			for {
				select {
				case evt := <-p.queue:
					p.write(ctx, evt)
				default:
					return
				}
			}
		}
	}
}

func (p *KafkaPublisher) write(ctx context.Context, evt MatchEvent) {
	payload, err := json.Marshal(evt)
	if err != nil {
		p.log.Error("event_marshal_failed", "error", err, "match_id", evt.MatchID)
		return
	}
	msg := kafka.Message{Key: []byte(evt.MatchID), Value: payload}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.log.Warn("event_publish_failed", "error", err, "match_id", evt.MatchID, "type", evt.Type)
	}
}

// PublishMatchEvent enqueues evt for asynchronous delivery. If the queue is
// full, the event is dropped and logged rather than blocking the caller.
func (p *KafkaPublisher) PublishMatchEvent(ctx context.Context, evt MatchEvent) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	select {
	case p.queue <- evt:
	default:
		p.log.Warn("event_queue_full_dropped", "match_id", evt.MatchID, "type", evt.Type)
	}
}

// Close stops the background loop, draining any queued events, and closes
// the underlying writer.
func (p *KafkaPublisher) Close() error {
	var err error
	p.stopOnce.Do(func() {
		p.cancel()
		p.wg.Wait()
		err = p.writer.Close()
	})
	return err
}
