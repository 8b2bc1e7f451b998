package hub

import (
	"context"

	"github.com/sisilabsai/nexenairis-collab/internal/room"
)

type HubMsg interface{ isHubMsg() }

type EnsureRoom struct {
	TenantID string
	Reply    chan *room.Room
}

type GetRoom struct {
	TenantID string
	Reply    chan *room.Room
}

type RemoveRoom struct {
	TenantID string
}

type ShutdownHub struct{}

func (EnsureRoom) isHubMsg()  {}
func (GetRoom) isHubMsg()     {}
func (RemoveRoom) isHubMsg()  {}
func (ShutdownHub) isHubMsg() {}

// Hub owns the tenant -> room registry. Like the rooms it hands out, it is
// a single-goroutine actor fed through an inbox.
type Hub struct {
	inbox  chan HubMsg
	rooms  map[string]*room.Room
	opts   room.Options
	ctx    context.Context
	cancel context.CancelFunc
}

func NewHub(parent context.Context, opts room.Options) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:  make(chan HubMsg, 64),
		rooms:  make(map[string]*room.Room),
		opts:   opts,
		ctx:    ctx,
		cancel: cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

// Done is closed once the hub stops. Senders must select on Done so a
// shutdown can't strand them on a full inbox.
func (h *Hub) Done() <-chan struct{} { return h.ctx.Done() }

// stopRoom asks a room to shut down without blocking on one that already has.
func stopRoom(rm *room.Room) {
	select {
	case rm.Inbox() <- room.Shutdown{}:
	case <-rm.Done():
	}
}

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case EnsureRoom:
				if rm := h.rooms[msg.TenantID]; rm != nil {
					msg.Reply <- rm
					break
				}
				rm := room.New(h.ctx, msg.TenantID, h.opts)
				h.rooms[msg.TenantID] = rm
				msg.Reply <- rm

			case GetRoom:
				msg.Reply <- h.rooms[msg.TenantID] // may be nil

			case RemoveRoom:
				if rm := h.rooms[msg.TenantID]; rm != nil {
					stopRoom(rm)
				}
				delete(h.rooms, msg.TenantID)

			case ShutdownHub:
				for _, rm := range h.rooms {
					stopRoom(rm)
				}
				clear(h.rooms)
				h.cancel()
			}
		}
	}
}
