// Package notify tells admins about changes to the moderation queue: live over
// Redis PubSub and by email through a Redis-backed queue.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/sistec/enquiry-backend/internal/config"
	"github.com/sistec/enquiry-backend/internal/logger"
	"github.com/sistec/enquiry-backend/internal/model"
)

// Subscription delivers moderation events until Close is called.
type Subscription struct {
	C     <-chan model.ModerationEvent
	close func()
}

// Close stops delivery. C is closed afterwards.
func (s *Subscription) Close() {
	s.close()
}

// RedisBus broadcasts moderation events on config.CacheKey.ModerationChannel.
// Pending events are also queued for the email worker.
type RedisBus struct {
	rdb *redis.Client
	log zerolog.Logger
}

// NewRedisBus creates a new RedisBus.
func NewRedisBus(rdb *redis.Client, log zerolog.Logger) *RedisBus {
	return &RedisBus{rdb: rdb, log: logger.Component(log, "event_bus")}
}

// Publish implements service.EventPublisher.
func (b *RedisBus) Publish(ctx context.Context, ev model.ModerationEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	pipe := b.rdb.TxPipeline()
	pipe.Publish(ctx, config.CacheKey.ModerationChannel(), payload)
	if ev.Type == model.EventQueryPending {
		pipe.RPush(ctx, config.WorkerKey.NotifyPendingQueue, payload)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

// Subscribe listens on the moderation channel until ctx is done or the subscription is closed.
func (b *RedisBus) Subscribe(ctx context.Context) (*Subscription, error) {
	pubsub := b.rdb.Subscribe(ctx, config.CacheKey.ModerationChannel())
	// Wait for the confirmation so a dead Redis is reported here.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe: %w", err)
	}

	out := make(chan model.ModerationEvent, 16)
	go func() {
		defer close(out)
		msgs := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				_ = pubsub.Close()
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var ev model.ModerationEvent
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					b.log.Warn().Err(err).Msg("Dropping malformed event")
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					_ = pubsub.Close()
					return
				}
			}
		}
	}()

	return &Subscription{C: out, close: func() { _ = pubsub.Close() }}, nil
}

// MemoryBus is an in-process bus with the same semantics, for single-node
// development and tests. Queued pending events are kept in Pending.
type MemoryBus struct {
	mu      sync.Mutex
	subs    map[chan model.ModerationEvent]struct{}
	pending []model.ModerationEvent
}

// NewMemoryBus creates an empty MemoryBus.
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{subs: make(map[chan model.ModerationEvent]struct{})}
}

// Publish implements service.EventPublisher. Slow subscribers miss events rather than block.
func (b *MemoryBus) Publish(_ context.Context, ev model.ModerationEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ev.Type == model.EventQueryPending {
		b.pending = append(b.pending, ev)
	}
	for ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	return nil
}

// Subscribe registers a listener until ctx is done or the subscription is closed.
func (b *MemoryBus) Subscribe(ctx context.Context) (*Subscription, error) {
	ch := make(chan model.ModerationEvent, 16)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	stop := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, ch)
			close(ch)
			b.mu.Unlock()
		})
	}
	go func() {
		<-ctx.Done()
		stop()
	}()
	return &Subscription{C: ch, close: stop}, nil
}

// Pending returns the pending events published so far.
func (b *MemoryBus) Pending() []model.ModerationEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]model.ModerationEvent(nil), b.pending...)
}
