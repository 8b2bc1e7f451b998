package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sisilabsai/nexenairis-collab/internal/board"
	"github.com/sisilabsai/nexenairis-collab/internal/hub"
	"github.com/sisilabsai/nexenairis-collab/internal/room"
)

// TenantPresence reports who is currently connected for a tenant. It reads
// the room's live view; a tenant with no room yet simply has nobody online.
func TenantPresence(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID := chi.URLParam(r, "tenantID")

		reply := make(chan *room.Room, 1)
		var rm *room.Room
		select {
		case h.Inbox() <- hub.GetRoom{TenantID: tenantID, Reply: reply}:
			select {
			case rm = <-reply:
			case <-h.Done():
			}
		case <-h.Done():
		}

		users := []board.User{}
		if rm != nil {
			view := make(chan room.View, 1)
			select {
			case rm.Inbox() <- room.GetState{Reply: view}:
				select {
				case v := <-view:
					users = v.State.OnlineUsers
				case <-rm.Done():
				}
			case <-rm.Done():
			}
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(struct {
			Count int          `json:"count"`
			Users []board.User `json:"users"`
		}{Count: len(users), Users: users})
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
