package hub

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sisilabsai/nexenairis-collab/internal/room"
)

func ensure(t *testing.T, h *Hub, tenantID string) *room.Room {
	t.Helper()
	reply := make(chan *room.Room, 1)
	h.Inbox() <- EnsureRoom{TenantID: tenantID, Reply: reply}
	select {
	case rm := <-reply:
		return rm
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out ensuring room %q", tenantID)
		return nil
	}
}

func get(t *testing.T, h *Hub, tenantID string) *room.Room {
	t.Helper()
	reply := make(chan *room.Room, 1)
	h.Inbox() <- GetRoom{TenantID: tenantID, Reply: reply}
	select {
	case rm := <-reply:
		return rm
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out getting room %q", tenantID)
		return nil
	}
}

func TestHub_EnsureRoomIsIdempotent(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := NewHub(ctx, room.Options{})

	first := ensure(t, h, "acme")
	require.NotNil(t, first)
	second := ensure(t, h, "acme")
	assert.Same(t, first, second, "one room per tenant")

	other := ensure(t, h, "globex")
	assert.NotSame(t, first, other, "tenants get separate rooms")
}

func TestHub_GetRoomMissingIsNil(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := NewHub(ctx, room.Options{})

	assert.Nil(t, get(t, h, "nobody"))

	ensure(t, h, "acme")
	assert.NotNil(t, get(t, h, "acme"))
}

func TestHub_ShutdownClosesDoneAndStopsRooms(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := NewHub(ctx, room.Options{})

	rm := ensure(t, h, "acme")
	h.Inbox() <- ShutdownHub{}

	select {
	case <-h.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("hub done not closed after shutdown")
	}
	select {
	case <-rm.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("room not stopped by hub shutdown")
	}
}

func TestHub_RemoveRoomForgetsTenant(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := NewHub(ctx, room.Options{})

	ensure(t, h, "acme")
	h.Inbox() <- RemoveRoom{TenantID: "acme"}
	assert.Nil(t, get(t, h, "acme"))

	// A fresh ensure after removal starts a new room.
	assert.NotNil(t, ensure(t, h, "acme"))
}
