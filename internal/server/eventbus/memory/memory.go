package memory

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/ccheshirecat/safepaw/internal/server/eventbus"
)

// ErrClosed is returned by Subscribe after Close.
var ErrClosed = errors.New("eventbus: closed")

type subscriber struct {
	ch   chan any
	once sync.Once
}

func (s *subscriber) close() { s.once.Do(func() { close(s.ch) }) }

// Bus is an in-process event bus. Slow subscribers lose payloads rather than
// blocking publishers.
type Bus struct {
	logger  *slog.Logger
	mu      sync.RWMutex
	topics  map[string][]*subscriber
	closed  bool
	dropped atomic.Uint64
}

var _ eventbus.Bus = (*Bus)(nil)

// New creates a Bus. A nil logger discards records.
func New(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Bus{logger: logger, topics: make(map[string][]*subscriber)}
}

// Publish fans payload out to every subscriber of topic.
func (b *Bus) Publish(ctx context.Context, topic string, payload any) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.topics[topic] {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case sub.ch <- payload:
		default:
			b.dropped.Add(1)
			b.logger.Warn("event dropped for slow subscriber", "topic", topic)
		}
	}
	return nil
}

// Subscribe registers a buffered channel for topic.
func (b *Bus) Subscribe(topic string, buffer int) (<-chan any, func(), error) {
	if buffer < 1 {
		buffer = 1
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, nil, ErrClosed
	}
	sub := &subscriber{ch: make(chan any, buffer)}
	b.topics[topic] = append(b.topics[topic], sub)

	unsubscribe := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.topics[topic]
		for i := range subs {
			if subs[i] == sub {
				b.topics[topic] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
		if len(b.topics[topic]) == 0 {
			delete(b.topics, topic)
		}
		sub.close()
	}
	return sub.ch, unsubscribe, nil
}

// Close detaches and closes every subscriber channel. Streams observe the
// closed channel and end.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	for topic, subs := range b.topics {
		for _, sub := range subs {
			sub.close()
		}
		delete(b.topics, topic)
	}
}

// Subscribers reports how many channels are attached to topic.
func (b *Bus) Subscribers(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.topics[topic])
}

// Dropped reports how many payloads were discarded for full subscribers.
func (b *Bus) Dropped() uint64 {
	return b.dropped.Load()
}
