package notify

import (
	"context"
	"sync"
	"sync/atomic"

	"taxiflow/pkg/logger"
	"taxiflow/pkg/models"
)

// Bus delivers order lifecycle events to currently-connected listeners.
// Delivery is at-most-once and best-effort: there is no backlog, a listener
// that is not subscribed at publish time never sees the event.
type Bus interface {
	Publish(ctx context.Context, ev models.Event) error
	Subscribe(buffer int) *Subscription
}

// Subscription is one listener's view of the bus. Events arrive on C in
// publish order until Close is called.
type Subscription struct {
	ch     chan models.Event
	cancel func()
	once   sync.Once
}

func (s *Subscription) C() <-chan models.Event { return s.ch }

// Close stops delivery. The channel is closed, no replay is possible.
func (s *Subscription) Close() {
	s.once.Do(s.cancel)
}

// Broker is the in-process fan-out. Listeners subscribe and unsubscribe
// freely; a full subscriber buffer drops the event for that subscriber
// instead of blocking the publisher.
type Broker struct {
	mu      sync.RWMutex
	subs    map[*Subscription]struct{}
	dropped atomic.Int64
	log     logger.ILogger
}

func NewBroker(log logger.ILogger) *Broker {
	return &Broker{
		subs: make(map[*Subscription]struct{}),
		log:  log,
	}
}

func (b *Broker) Publish(_ context.Context, ev models.Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subs {
		select {
		case sub.ch <- ev:
		default:
			b.dropped.Add(1)
			b.log.Warning("dropped event for slow subscriber",
				logger.String("kind", string(ev.Kind)),
				logger.Int64("order_id", ev.OrderID),
			)
		}
	}
	return nil
}

func (b *Broker) Subscribe(buffer int) *Subscription {
	if buffer <= 0 {
		buffer = 1
	}

	sub := &Subscription{ch: make(chan models.Event, buffer)}
	sub.cancel = func() {
		b.mu.Lock()
		delete(b.subs, sub)
		b.mu.Unlock()
		close(sub.ch)
	}

	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()

	return sub
}

// Dropped reports how many events were discarded because a subscriber
// buffer was full.
func (b *Broker) Dropped() int64 {
	return b.dropped.Load()
}
