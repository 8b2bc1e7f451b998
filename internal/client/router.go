package client

import (
	"sync"
	"time"

	"github.com/sisilabsai/nexenairis-collab/internal/protocol"
)

// Listener receives inbound events for one event type.
type Listener func(protocol.Event)

// Subscription identifies a registered listener for later removal.
type Subscription struct {
	eventType string
	id        int
}

// Router demultiplexes inbound events by type tag and is the fan-in point
// for typed outbound commands. Events with no registered listener are
// dropped silently so future server event types can't break older clients.
type Router struct {
	mu        sync.Mutex
	listeners map[string]map[int]Listener
	nextID    int
	send      func(protocol.Command)
}

func NewRouter(send func(protocol.Command)) *Router {
	return &Router{
		listeners: make(map[string]map[int]Listener),
		send:      send,
	}
}

func (r *Router) Subscribe(eventType string, fn Listener) Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	if r.listeners[eventType] == nil {
		r.listeners[eventType] = make(map[int]Listener)
	}
	r.listeners[eventType][r.nextID] = fn
	return Subscription{eventType: eventType, id: r.nextID}
}

func (r *Router) Unsubscribe(sub Subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.listeners[sub.eventType], sub.id)
}

// Dispatch routes one event to every listener registered for its tag.
// Listeners run outside the router lock so they may (un)subscribe freely.
func (r *Router) Dispatch(ev protocol.Event) {
	r.mu.Lock()
	fns := make([]Listener, 0, len(r.listeners[ev.EventType()]))
	for _, fn := range r.listeners[ev.EventType()] {
		fns = append(fns, fn)
	}
	r.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// Outbound command helpers. Each builds the canonical envelope and hands it
// to the transport; none of them touches local state. The store only moves
// when the server echoes the effect back.

func (r *Router) ViewDeal(dealID string) {
	r.send(protocol.Command{Type: protocol.CmdViewDeal, DealID: dealID, Timestamp: time.Now().UTC()})
}

func (r *Router) StopViewingDeal(dealID string) {
	r.send(protocol.Command{Type: protocol.CmdStopViewingDeal, DealID: dealID, Timestamp: time.Now().UTC()})
}

func (r *Router) LockDeal(dealID string) {
	r.send(protocol.Command{Type: protocol.CmdLockDeal, DealID: dealID, Timestamp: time.Now().UTC()})
}

func (r *Router) UnlockDeal(dealID string) {
	r.send(protocol.Command{Type: protocol.CmdUnlockDeal, DealID: dealID, Timestamp: time.Now().UTC()})
}

func (r *Router) MoveDeal(dealID, fromStageID, toStageID string) {
	r.send(protocol.Command{
		Type:        protocol.CmdMoveDeal,
		DealID:      dealID,
		FromStageID: fromStageID,
		ToStageID:   toStageID,
		Timestamp:   time.Now().UTC(),
	})
}

func (r *Router) AddComment(dealID, message string) {
	r.send(protocol.Command{Type: protocol.CmdAddComment, DealID: dealID, Message: message, Timestamp: time.Now().UTC()})
}

func (r *Router) Ping() {
	r.send(protocol.Command{Type: protocol.CmdPing})
}
