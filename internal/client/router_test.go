package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sisilabsai/nexenairis-collab/internal/board"
	"github.com/sisilabsai/nexenairis-collab/internal/protocol"
)

func TestRouter_DispatchToAllListeners(t *testing.T) {
	r := NewRouter(func(protocol.Command) {})

	var first, second int
	r.Subscribe(protocol.EvtUserJoined, func(protocol.Event) { first++ })
	r.Subscribe(protocol.EvtUserJoined, func(protocol.Event) { second++ })
	r.Subscribe(protocol.EvtUserLeft, func(protocol.Event) { t.Fatal("wrong tag dispatched") })

	r.Dispatch(protocol.UserJoined{User: board.User{ID: "1", Name: "Amy"}})

	assert.Equal(t, 1, first)
	assert.Equal(t, 1, second)
}

func TestRouter_Unsubscribe(t *testing.T) {
	r := NewRouter(func(protocol.Command) {})

	var calls int
	sub := r.Subscribe(protocol.EvtDealLocked, func(protocol.Event) { calls++ })

	ev := protocol.DealLocked{Lock: board.DealLock{DealID: "1", User: board.User{ID: "1"}}}
	r.Dispatch(ev)
	r.Unsubscribe(sub)
	r.Dispatch(ev)

	assert.Equal(t, 1, calls)
}

func TestRouter_UnknownTagDroppedSilently(t *testing.T) {
	r := NewRouter(func(protocol.Command) {})
	// No listeners registered at all; dispatch must be a quiet no-op.
	r.Dispatch(protocol.DealUnlocked{DealID: "1"})
}

func TestRouter_OutboundEnvelopes(t *testing.T) {
	var sent []protocol.Command
	r := NewRouter(func(cmd protocol.Command) { sent = append(sent, cmd) })

	r.ViewDeal("42")
	r.StopViewingDeal("42")
	r.LockDeal("42")
	r.UnlockDeal("42")
	r.MoveDeal("42", "stage-a", "stage-b")
	r.AddComment("42", "looks stale")
	r.Ping()

	require.Len(t, sent, 7)

	assert.Equal(t, protocol.CmdViewDeal, sent[0].Type)
	assert.Equal(t, protocol.CmdStopViewingDeal, sent[1].Type)
	assert.Equal(t, protocol.CmdLockDeal, sent[2].Type)
	assert.Equal(t, protocol.CmdUnlockDeal, sent[3].Type)

	move := sent[4]
	assert.Equal(t, protocol.CmdMoveDeal, move.Type)
	assert.Equal(t, "42", move.DealID)
	assert.Equal(t, "stage-a", move.FromStageID)
	assert.Equal(t, "stage-b", move.ToStageID)

	comment := sent[5]
	assert.Equal(t, protocol.CmdAddComment, comment.Type)
	assert.Equal(t, "looks stale", comment.Message)

	for _, cmd := range sent[:6] {
		assert.False(t, cmd.Timestamp.IsZero(), "%s carries a timestamp", cmd.Type)
	}
	assert.True(t, sent[6].Timestamp.IsZero(), "ping is bare")
}
