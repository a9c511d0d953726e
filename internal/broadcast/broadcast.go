// Package broadcast fans state-transition events out to live
// subscribers (kiosk, dashboard). Delivery is best-effort: a slow
// subscriber loses events instead of stalling the publisher, and a
// reconnecting subscriber gets no replay.
package broadcast

import (
	"sync"

	"github.com/JaePyJs/CLMS-sub014/internal/model"
	"go.uber.org/zap"
)

type Subscription struct {
	ch      chan model.Event
	dropped int
	once    sync.Once
	remove  func()
}

// C is the subscriber's event stream. It is closed on Close.
func (s *Subscription) C() <-chan model.Event {
	return s.ch
}

func (s *Subscription) Close() {
	s.once.Do(func() {
		s.remove()
		close(s.ch)
	})
}

type Broadcaster struct {
	mu     sync.Mutex
	subs   map[*Subscription]struct{}
	buffer int
	log    *zap.Logger
}

func New(log *zap.Logger, buffer int) *Broadcaster {
	if buffer <= 0 {
		buffer = 64
	}
	return &Broadcaster{
		subs:   make(map[*Subscription]struct{}),
		buffer: buffer,
		log:    log.Named("broadcast"),
	}
}

func (b *Broadcaster) Subscribe() *Subscription {
	sub := &Subscription{
		ch: make(chan model.Event, b.buffer),
	}
	sub.remove = func() {
		b.mu.Lock()
		delete(b.subs, sub)
		b.mu.Unlock()
	}
	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()
	return sub
}

// Publish delivers to every live subscriber. Publishing happens under
// the broadcaster lock, so each subscriber sees events in publish
// order; a subscriber whose buffer is full loses the event.
func (b *Broadcaster) Publish(ev model.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for sub := range b.subs {
		select {
		case sub.ch <- ev:
		default:
			sub.dropped++
			b.log.Warn("subscriber buffer full, dropping event",
				zap.String("type", string(ev.Type)),
				zap.String("resourceId", ev.ResourceID),
				zap.Int("dropped", sub.dropped),
			)
		}
	}
}

func (b *Broadcaster) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
