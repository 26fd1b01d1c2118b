package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/ritzau/flow-editor/pkg/logging"
)

// ErrClosed is returned by a broker that has been shut down
var ErrClosed = errors.New("broker is closed")

// Retention decides what a surface that attaches late gets to see
type Retention struct {
	Keep      int  // Events kept per topic (0 = nothing is replayed)
	ReplayAll bool // Replay every kept event instead of only the newest
}

// EditorTopics is the retention of the topics the editor publishes. A new surface
// must render the current graph at once, while a rejection notice only matters to
// the surfaces attached when it happened.
var EditorTopics = map[string]Retention{
	TopicGraph:   {Keep: 1},
	TopicNotices: {Keep: 0},
}

// subscriberQueue is the channel capacity of each subscription. A surface that falls
// this far behind loses snapshots, but the next one still carries the full graph.
const subscriberQueue = 100

type topic struct {
	retention Retention
	version   int
	backlog   []Event
	subs      map[*subscription]bool
}

// replay returns the events a new subscriber is sent before anything new
func (t *topic) replay() []Event {
	if t.retention.ReplayAll || len(t.backlog) == 0 {
		return t.backlog
	}
	return t.backlog[len(t.backlog)-1:]
}

func (t *topic) retain(event Event) {
	if t.retention.Keep <= 0 {
		return
	}
	t.backlog = append(t.backlog, event)
	if over := len(t.backlog) - t.retention.Keep; over > 0 {
		t.backlog = t.backlog[over:]
	}
}

// Broker fans graph snapshots and notices out to every attached rendering surface,
// whether it listens over SSE or over the WebSocket channel.
type Broker struct {
	mu     sync.RWMutex
	topics map[string]*topic
	closed bool
}

// NewBroker creates a broker with the editor topics configured
func NewBroker() *Broker {
	b := &Broker{topics: make(map[string]*topic)}
	for name, r := range EditorTopics {
		b.topicLocked(name).retention = r
	}
	return b
}

// ConfigureTopic changes the retention of a topic
func (b *Broker) ConfigureTopic(name string, r Retention) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.topicLocked(name).retention = r
}

func (b *Broker) topicLocked(name string) *topic {
	t, ok := b.topics[name]
	if !ok {
		t = &topic{subs: make(map[*subscription]bool)}
		b.topics[name] = t
	}
	return t
}

// Subscribe attaches to a topic until ctx is done or the subscription is closed.
// Retained events are queued before any later publish.
func (b *Broker) Subscribe(ctx context.Context, name string) (Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrClosed
	}

	t := b.topicLocked(name)
	sub := &subscription{
		topic:  name,
		events: make(chan Event, subscriberQueue),
		broker: b,
	}
	t.subs[sub] = true

	replay := t.replay()
	for _, event := range replay {
		sub.offer(event)
	}
	if len(replay) > 0 {
		logging.Debug("surface caught up", "topic", name, "events", len(replay))
	}

	go func() {
		<-ctx.Done()
		sub.Close()
	}()

	return sub, nil
}

// Publish encodes data once and offers it to every subscriber of the topic
func (b *Broker) Publish(name string, eventType string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode %s %s: %w", name, eventType, err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrClosed
	}

	t := b.topicLocked(name)
	t.version++
	event := Event{Topic: name, Type: eventType, Data: payload, Version: t.version}
	t.retain(event)

	for sub := range t.subs {
		sub.offer(event)
	}
	return nil
}

// Close ends every subscription; later calls are no-ops
func (b *Broker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	for _, t := range b.topics {
		for sub := range t.subs {
			sub.markClosed()
			close(sub.events)
		}
		t.subs = make(map[*subscription]bool)
	}
	return nil
}

// SubscriberCount returns the number of attached subscriptions on a topic
func (b *Broker) SubscriberCount(name string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if t, ok := b.topics[name]; ok {
		return len(t.subs)
	}
	return 0
}

func (b *Broker) detach(sub *subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, ok := b.topics[sub.topic]
	if !ok || !t.subs[sub] {
		return
	}
	delete(t.subs, sub)
	close(sub.events)
}

type subscription struct {
	topic  string
	events chan Event
	broker *Broker

	mu     sync.Mutex
	closed bool
}

func (s *subscription) Topic() string {
	return s.topic
}

func (s *subscription) Events() <-chan Event {
	return s.events
}

// offer queues an event without blocking; the broker lock is held by the caller
func (s *subscription) offer(event Event) {
	select {
	case s.events <- event:
	default:
		logging.Warn("surface too slow, dropping event", "topic", s.topic, "version", event.Version)
	}
}

// Close detaches the subscription and closes its Events channel
func (s *subscription) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.broker.detach(s)
	return nil
}

func (s *subscription) markClosed() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

// WriteSSE writes an event as one Server-Sent Events frame: "data: {json}\n\n"
func WriteSSE(w io.Writer, event Event) error {
	frame, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", event.Topic, err)
	}

	_, err = fmt.Fprintf(w, "data: %s\n\n", frame)
	return err
}
