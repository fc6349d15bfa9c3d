package broker

import (
	"context"
	"sync"
	"time"
)

// subscriberBuffer is the per-subscriber channel capacity.
const subscriberBuffer = 100

// InMemoryBroker delivers messages to every subscriber of a topic within one process.
// Publish blocks while a subscriber's buffer is full, which gives the single
// in-process worker natural backpressure.
type InMemoryBroker struct {
	mu          sync.RWMutex
	subscribers map[string][]*subscription
	offsets     map[string]int64
	closed      bool
}

type subscription struct {
	// sendMu keeps ch open while a Publish is sending on it.
	sendMu sync.RWMutex
	ch     chan Message
	done   chan struct{}
	once   sync.Once
}

func (s *subscription) close() {
	s.once.Do(func() {
		close(s.done)
		s.sendMu.Lock()
		close(s.ch)
		s.sendMu.Unlock()
	})
}

// NewInMemoryBroker creates a new InMemoryBroker instance.
func NewInMemoryBroker() *InMemoryBroker {
	return &InMemoryBroker{
		subscribers: make(map[string][]*subscription),
		offsets:     make(map[string]int64),
	}
}

// Publish sends a message to all subscribers of the topic.
func (b *InMemoryBroker) Publish(ctx context.Context, topic string, key string, value []byte) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrClosed
	}
	offset := b.offsets[topic]
	b.offsets[topic] = offset + 1
	subs := append([]*subscription(nil), b.subscribers[topic]...)
	b.mu.Unlock()

	msg := Message{
		Topic:     topic,
		Key:       key,
		Value:     value,
		Offset:    offset,
		Timestamp: time.Now().UnixMilli(),
	}

	for _, sub := range subs {
		if err := b.deliver(ctx, sub, msg); err != nil {
			return err
		}
	}
	return nil
}

func (b *InMemoryBroker) deliver(ctx context.Context, sub *subscription, msg Message) error {
	sub.sendMu.RLock()
	defer sub.sendMu.RUnlock()

	select {
	case <-sub.done:
		return nil
	default:
	}

	select {
	case sub.ch <- msg:
		return nil
	case <-sub.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribe registers a subscriber for the topic. groupID is ignored.
func (b *InMemoryBroker) Subscribe(ctx context.Context, topic string, groupID string) (<-chan Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrClosed
	}

	sub := &subscription{
		ch:   make(chan Message, subscriberBuffer),
		done: make(chan struct{}),
	}
	b.subscribers[topic] = append(b.subscribers[topic], sub)

	go func() {
		select {
		case <-ctx.Done():
			b.unsubscribe(topic, sub)
		case <-sub.done:
		}
	}()

	return sub.ch, nil
}

func (b *InMemoryBroker) unsubscribe(topic string, target *subscription) {
	b.mu.Lock()
	subs := b.subscribers[topic]
	for i, sub := range subs {
		if sub == target {
			b.subscribers[topic] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	b.mu.Unlock()

	target.close()
}

// SubscriberCount returns the number of live subscriptions on topic.
func (b *InMemoryBroker) SubscriberCount(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers[topic])
}

// Close closes every subscriber channel. Later Publish and Subscribe calls fail.
func (b *InMemoryBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	for _, subs := range b.subscribers {
		for _, sub := range subs {
			sub.close()
		}
	}
	b.subscribers = make(map[string][]*subscription)
	return nil
}
