package events

import (
	"net/http"
	"sync"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

type subscriber struct {
	ch    chan Event
	types map[Type]bool
}

// Broker fans out events to subscribers.
type Broker struct {
	mu   sync.Mutex
	subs map[*subscriber]struct{}
}

// NewBroker creates a new broker.
func NewBroker() *Broker {
	return &Broker{subs: make(map[*subscriber]struct{})}
}

// Subscribe registers a subscriber for the given event types.
// Empty types means all.
func (b *Broker) Subscribe(types []Type) *Subscription {
	sub := &subscriber{ch: make(chan Event, 64), types: make(map[Type]bool)}
	for _, t := range types {
		sub.types[t] = true
	}
	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()
	return &Subscription{broker: b, sub: sub}
}

// Publish broadcasts an event to subscribers.
func (b *Broker) Publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for sub := range b.subs {
		if len(sub.types) > 0 && !sub.types[ev.Type] {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
			// Drop if subscriber is slow.
		}
	}
}

// Subscribers counts active subscriptions.
func (b *Broker) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// ServeWS upgrades the connection and streams events as JSON.
// The optional hello event is sent first so a new dashboard can render
// without waiting for the next change.
func (b *Broker) ServeWS(w http.ResponseWriter, r *http.Request, types []Type, hello *Event) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{})
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "closing")

	sub := b.Subscribe(types)
	defer sub.Close()

	ctx := conn.CloseRead(r.Context())
	if hello != nil {
		if err := wsjson.Write(ctx, conn, hello); err != nil {
			return
		}
	}
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.sub.ch:
			if !ok {
				return
			}
			if err := wsjson.Write(ctx, conn, ev); err != nil {
				return
			}
		}
	}
}

// Subscription represents an active broker subscription.
type Subscription struct {
	broker *Broker
	sub    *subscriber
	once   sync.Once
}

// Chan exposes the event channel.
func (s *Subscription) Chan() <-chan Event {
	return s.sub.ch
}

// Close removes the subscription.
func (s *Subscription) Close() {
	if s == nil || s.broker == nil || s.sub == nil {
		return
	}
	s.once.Do(func() {
		s.broker.mu.Lock()
		delete(s.broker.subs, s.sub)
		s.broker.mu.Unlock()
		close(s.sub.ch)
	})
}
