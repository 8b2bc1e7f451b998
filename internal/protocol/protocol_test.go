package protocol

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sisilabsai/nexenairis-collab/internal/board"
)

func TestDecodeEvent_UnknownTypeSentinel(t *testing.T) {
	_, err := DecodeEvent([]byte(`{"type":"shiny_new_server_event","deal_id":"1"}`))
	require.ErrorIs(t, err, ErrUnknownType)
}

func TestDecodeEvent_Malformed(t *testing.T) {
	cases := map[string]string{
		"bad json":               `{"type":`,
		"lock without user":      `{"type":"deal_locked","deal_id":"42"}`,
		"lock without deal":      `{"type":"deal_locked","user":{"id":"3","name":"Amy"}}`,
		"left without user_id":   `{"type":"user_left"}`,
		"snapshot without state": `{"type":"collaboration_state"}`,
		"comment without body":   `{"type":"comment_added","deal_id":"42"}`,
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeEvent([]byte(payload))
			require.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestDecodeEvent_DealLocked(t *testing.T) {
	payload := []byte(`{
		"type": "deal_locked",
		"deal_id": "42",
		"user": {"id": "3", "name": "Amy"},
		"locked_at": "2026-01-02T15:04:05Z",
		"expires_at": "2026-01-02T15:09:05Z"
	}`)

	ev, err := DecodeEvent(payload)
	require.NoError(t, err)

	locked, ok := ev.(DealLocked)
	require.True(t, ok)
	assert.Equal(t, "42", locked.Lock.DealID)
	assert.Equal(t, "3", locked.Lock.User.ID)
	assert.Equal(t, 5*time.Minute, locked.Lock.ExpiresAt.Sub(locked.Lock.LockedAt))
}

func TestEncodeDecode_SnapshotRoundTrip(t *testing.T) {
	state := board.NewState()
	state.UpsertUser(board.User{ID: "1", Name: "Amy", Online: true})
	state.SetLock(board.DealLock{DealID: "42", User: board.User{ID: "1", Name: "Amy"}})

	payload, err := Encode(StateSnapshot{State: state})
	require.NoError(t, err)

	ev, err := DecodeEvent(payload)
	require.NoError(t, err)
	snap, ok := ev.(StateSnapshot)
	require.True(t, ok)
	assert.Len(t, snap.State.OnlineUsers, 1)
	require.Len(t, snap.State.DealLocks, 1)
	assert.Equal(t, "42", snap.State.DealLocks[0].DealID)
}

func TestEncodeDecode_CommentRoundTrip(t *testing.T) {
	payload, err := Encode(CommentAdded{
		DealID: "7",
		Comment: board.Comment{
			ID:        "c1",
			DealID:    "7",
			User:      board.User{ID: "1", Name: "Amy"},
			Message:   "ping me before closing",
			Timestamp: time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC),
		},
	})
	require.NoError(t, err)

	ev, err := DecodeEvent(payload)
	require.NoError(t, err)
	added, ok := ev.(CommentAdded)
	require.True(t, ok)
	assert.Equal(t, "7", added.DealID)
	assert.Equal(t, "ping me before closing", added.Comment.Message)
}

func TestEncode_EmptyViewerListStaysOnWire(t *testing.T) {
	payload, err := Encode(DealViewingUpdated{DealID: "42"})
	require.NoError(t, err)
	// The server's full set is authoritative; an empty set must arrive as
	// [] so clients clear their entry rather than seeing an absent field.
	assert.Contains(t, string(payload), `"users":[]`)
}

func TestCommand_PingHasNoTimestamp(t *testing.T) {
	payload, err := json.Marshal(Command{Type: CmdPing})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"ping"}`, string(payload))
}

func TestDecodeCommand(t *testing.T) {
	cmd, err := DecodeCommand([]byte(`{"type":"move_deal","deal_id":"1","from_stage_id":"a","to_stage_id":"b"}`))
	require.NoError(t, err)
	assert.Equal(t, CmdMoveDeal, cmd.Type)
	assert.Equal(t, "a", cmd.FromStageID)
	assert.Equal(t, "b", cmd.ToStageID)

	_, err = DecodeCommand([]byte(`{"deal_id":"1"}`))
	require.ErrorIs(t, err, ErrMalformed)

	_, err = DecodeCommand([]byte(`not json`))
	require.ErrorIs(t, err, ErrMalformed)
}
