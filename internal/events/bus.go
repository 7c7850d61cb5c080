package events

import (
	"context"
	"sync"
	"time"
)

// Bus is an in-process fan-out publisher.
type Bus struct {
	// mu serializes publishes so every subscriber sees the same order.
	mu sync.Mutex
	// subscribers holds the live subscriber queues.
	subscribers map[*subscriber]struct{}
	// now stamps published events.
	now func() time.Time
}

// subscriber buffers events for one consumer.
type subscriber struct {
	mu      sync.Mutex
	cond    *sync.Cond
	queue   []Event
	closed  bool
	deliver chan Event
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{
		subscribers: make(map[*subscriber]struct{}),
		now:         time.Now,
	}
}

// Publish enqueues the event for every current subscriber.
func (b *Bus) Publish(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if event.Time.IsZero() {
		event.Time = b.now()
	}

	for sub := range b.subscribers {
		sub.push(event)
	}
}

// Subscribe registers a consumer. The returned channel is closed after ctx
// is done and the queued events have been dropped.
func (b *Bus) Subscribe(ctx context.Context) <-chan Event {
	sub := &subscriber{
		deliver: make(chan Event),
	}
	sub.cond = sync.NewCond(&sub.mu)

	b.mu.Lock()
	b.subscribers[sub] = struct{}{}
	b.mu.Unlock()

	go sub.run(ctx)

	go func() {
		<-ctx.Done()

		b.mu.Lock()
		delete(b.subscribers, sub)
		b.mu.Unlock()

		sub.close()
	}()

	return sub.deliver
}

// Subscribers returns the number of live subscribers.
func (b *Bus) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.subscribers)
}

// push appends to the queue and wakes the delivery goroutine.
func (s *subscriber) push(event Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	s.queue = append(s.queue, event)
	s.cond.Signal()
}

// close stops delivery.
func (s *subscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.queue = nil
	s.cond.Signal()
}

// next blocks until an event is queued or the subscriber is closed.
func (s *subscriber) next() (Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for len(s.queue) == 0 && !s.closed {
		s.cond.Wait()
	}

	if s.closed {
		return Event{}, false
	}

	event := s.queue[0]
	s.queue[0] = Event{}
	s.queue = s.queue[1:]

	return event, true
}

// run drains the queue into the delivery channel in FIFO order.
func (s *subscriber) run(ctx context.Context) {
	defer close(s.deliver)

	for {
		event, ok := s.next()
		if !ok {
			return
		}

		select {
		case s.deliver <- event:
		case <-ctx.Done():
			return
		}
	}
}
