package ws

import (
	"context"
	"math/rand"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/sisilabsai/nexenairis-collab/internal/board"
	"github.com/sisilabsai/nexenairis-collab/internal/hub"
	"github.com/sisilabsai/nexenairis-collab/internal/protocol"
	"github.com/sisilabsai/nexenairis-collab/internal/room"
)

// Handler upgrades /ws requests and bridges the connection to its tenant
// room. Identity rides the query string so a reconnecting client re-presents
// the same (user, tenant) pair and the room re-associates presence.
func Handler(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		userID := q.Get("user_id")
		tenantID := q.Get("tenant_id")
		if userID == "" || tenantID == "" {
			http.Error(w, "missing user_id or tenant_id", http.StatusBadRequest)
			return
		}
		user := board.User{
			ID:     userID,
			Name:   q.Get("name"),
			Color:  q.Get("color"),
			Avatar: q.Get("avatar"),
		}
		if user.Name == "" {
			user.Name = userID
		}

		reply := make(chan *room.Room, 1)
		var rm *room.Room
		select {
		case h.Inbox() <- hub.EnsureRoom{TenantID: tenantID, Reply: reply}:
			select {
			case rm = <-reply:
			case <-h.Done():
			}
		case <-h.Done():
		}
		if rm == nil {
			http.Error(w, "room unavailable", http.StatusServiceUnavailable)
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			// In dev ONLY, you can loosen origin checks:
			// OriginPatterns: []string{"http://localhost:*", "http://127.0.0.1:*"},
		})
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		out := make(chan []byte, 16)
		clientID := randID(8)

		// Every room send selects on Done: once the room stops draining its
		// inbox, a blocked handler would leak until process exit.
		select {
		case rm.Inbox() <- room.Join{ClientID: clientID, User: user, Outbox: out}:
		case <-rm.Done():
			return
		}
		defer func() {
			select {
			case rm.Inbox() <- room.Leave{ClientID: clientID}:
			case <-rm.Done():
			}
		}()

		// Writer goroutine
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for payload := range out {
				ctx, cancel := context.WithTimeout(writeCtx, 3*time.Second)
				_ = conn.Write(ctx, websocket.MessageText, payload)
				cancel()
			}
		}()

		// Reader loop
		for {
			_, data, err := conn.Read(r.Context())
			if err != nil {
				// Treat clean close/going-away as normal:
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					return
				}
				// Otherwise, just exit (room.Leave in defer):
				return
			}

			cmd, err := protocol.DecodeCommand(data)
			if err != nil {
				// One bad payload must not cost the whole channel.
				log.Warn("dropping malformed command",
					zap.String("user_id", userID),
					zap.String("tenant_id", tenantID),
					zap.Error(err),
				)
				continue
			}
			select {
			case rm.Inbox() <- room.FromClient{ClientID: clientID, Cmd: cmd}:
			case <-rm.Done():
				return
			}
		}
	}
}

func randID(length int) string {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	b := make([]byte, length)
	for i := range b {
		b[i] = charset[rand.Intn(len(charset))]
	}
	return string(b)
}
