// Package room hosts the per-tenant collaboration actor. One goroutine owns
// the authoritative board state; connections talk to it through a typed
// message inbox, so every mutation and broadcast is serialized.
package room

import (
	"context"
	"math/rand"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/sisilabsai/nexenairis-collab/internal/board"
	"github.com/sisilabsai/nexenairis-collab/internal/presence"
	"github.com/sisilabsai/nexenairis-collab/internal/protocol"
)

type Msg interface{ isRoomMsg() }

type Join struct {
	ClientID string
	User     board.User
	Outbox   chan []byte // encoded server events for this connection
}

type Leave struct{ ClientID string }

type FromClient struct {
	ClientID string
	Cmd      protocol.Command
}

type Shutdown struct{}

type View struct {
	NumClients int
	State      board.State
}

type GetState struct {
	Reply chan View
}

func (Join) isRoomMsg()       {}
func (Leave) isRoomMsg()      {}
func (FromClient) isRoomMsg() {}
func (Shutdown) isRoomMsg()   {}
func (GetState) isRoomMsg()   {}

type connection struct {
	user   board.User
	outbox chan []byte
}

type Options struct {
	LockTTL     time.Duration     // advisory expiry stamped on locks
	PresenceTTL time.Duration     // registry liveness window
	Presence    presence.Registry // optional cross-node registry
	Logger      *zap.Logger
}

type Room struct {
	tenantID string
	inbox    chan Msg
	state    board.State
	conns    map[string]connection
	opts     Options
	log      *zap.Logger
	ctx      context.Context
	cancel   context.CancelFunc
}

func New(parent context.Context, tenantID string, opts Options) *Room {
	if opts.LockTTL <= 0 {
		opts.LockTTL = 5 * time.Minute
	}
	if opts.PresenceTTL <= 0 {
		opts.PresenceTTL = 90 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(parent)
	r := &Room{
		tenantID: tenantID,
		inbox:    make(chan Msg, 64),
		state:    board.NewState(),
		conns:    make(map[string]connection),
		opts:     opts,
		log:      opts.Logger.With(zap.String("tenant_id", tenantID)),
		ctx:      ctx,
		cancel:   cancel,
	}
	go r.loop()
	return r
}

func (r *Room) Inbox() chan<- Msg { return r.inbox }

// Done is closed once the room stops. The loop no longer drains the inbox
// after that, so senders must select on Done or risk blocking for good.
func (r *Room) Done() <-chan struct{} { return r.ctx.Done() }

func (r *Room) loop() {
	for {
		select {
		case <-r.ctx.Done():
			r.shutdown()
			return

		case m := <-r.inbox:
			switch msg := m.(type) {
			case Join:
				r.handleJoin(msg)

			case Leave:
				r.handleLeave(msg.ClientID)

			case FromClient:
				r.handleCommand(msg.ClientID, msg.Cmd)

			case GetState:
				msg.Reply <- View{NumClients: len(r.conns), State: r.state.Clone()}

			case Shutdown:
				r.shutdown()
				return
			}
		}
	}
}

// handleJoin registers the connection, pushes the full snapshot to the
// joiner (this is what makes reconnects converge, since everything missed
// across the drop is superseded), then fans out the presence change.
func (r *Room) handleJoin(msg Join) {
	u := msg.User
	u.Online = true
	r.conns[msg.ClientID] = connection{user: u, outbox: msg.Outbox}
	r.state.UpsertUser(u)
	r.touchPresence(u)

	if snap, err := protocol.Encode(protocol.StateSnapshot{State: r.state.Clone()}); err == nil {
		msg.Outbox <- snap
	}
	r.broadcast(protocol.UserJoined{User: u})
}

func (r *Room) handleLeave(clientID string) {
	c, ok := r.conns[clientID]
	if !ok {
		return
	}
	delete(r.conns, clientID)
	if r.userConnected(c.user.ID) {
		// Another tab of the same user is still here.
		return
	}
	r.dropUser(c.user)
}

// dropUser runs when the last connection of a user goes away: presence,
// viewer sets and held locks are all released and fanned out.
func (r *Room) dropUser(u board.User) {
	r.state.RemoveUser(u.ID)
	if r.opts.Presence != nil {
		if err := r.opts.Presence.Remove(r.ctx, r.tenantID, u.ID); err != nil {
			r.log.Warn("presence remove", zap.String("user_id", u.ID), zap.Error(err))
		}
	}
	r.broadcast(protocol.UserLeft{UserID: u.ID})

	for dealID, viewers := range r.state.ViewingUsers {
		trimmed := slices.DeleteFunc(slices.Clone(viewers), func(v board.User) bool {
			return v.ID == u.ID
		})
		if len(trimmed) != len(viewers) {
			r.state.SetViewers(dealID, trimmed)
			r.broadcast(protocol.DealViewingUpdated{DealID: dealID, Users: trimmed})
		}
	}

	for _, l := range slices.Clone(r.state.DealLocks) {
		if l.User.ID == u.ID {
			r.state.RemoveLock(l.DealID)
			r.broadcast(protocol.DealUnlocked{DealID: l.DealID})
		}
	}
}

func (r *Room) handleCommand(clientID string, cmd protocol.Command) {
	c, ok := r.conns[clientID]
	if !ok {
		return
	}
	user := c.user
	now := time.Now().UTC()

	switch cmd.Type {
	case protocol.CmdPing:
		r.touchPresence(user)

	case protocol.CmdViewDeal:
		if cmd.DealID == "" {
			break
		}
		viewers := slices.Clone(r.state.Viewers(cmd.DealID))
		if !slices.ContainsFunc(viewers, func(v board.User) bool { return v.ID == user.ID }) {
			viewers = append(viewers, user)
		}
		r.state.SetViewers(cmd.DealID, viewers)
		r.broadcast(protocol.DealViewingUpdated{DealID: cmd.DealID, Users: viewers})
		r.logActivity(board.Activity{
			Type:      board.ActivityUserViewing,
			User:      user,
			DealID:    cmd.DealID,
			Timestamp: now,
		})

	case protocol.CmdStopViewingDeal:
		if cmd.DealID == "" {
			break
		}
		viewers := slices.DeleteFunc(slices.Clone(r.state.Viewers(cmd.DealID)), func(v board.User) bool {
			return v.ID == user.ID
		})
		r.state.SetViewers(cmd.DealID, viewers)
		r.broadcast(protocol.DealViewingUpdated{DealID: cmd.DealID, Users: viewers})

	case protocol.CmdLockDeal:
		if cmd.DealID == "" {
			break
		}
		// Latest lock wins, even against a holder who thinks they got
		// there first; clients reconcile to whatever we broadcast.
		l := board.DealLock{
			DealID:    cmd.DealID,
			User:      user,
			LockedAt:  now,
			ExpiresAt: now.Add(r.opts.LockTTL),
		}
		r.state.SetLock(l)
		r.broadcast(protocol.DealLocked{Lock: l})
		r.logActivity(board.Activity{
			Type:      board.ActivityDealLocked,
			User:      user,
			DealID:    cmd.DealID,
			Timestamp: now,
		})

	case protocol.CmdUnlockDeal:
		cur, held := r.state.Lock(cmd.DealID)
		if !held || cur.User.ID != user.ID {
			// Only the holder releases; anyone else is stale.
			break
		}
		r.state.RemoveLock(cmd.DealID)
		r.broadcast(protocol.DealUnlocked{DealID: cmd.DealID})

	case protocol.CmdMoveDeal:
		if cmd.DealID == "" {
			break
		}
		r.logActivity(board.Activity{
			Type:      board.ActivityDealMoved,
			User:      user,
			DealID:    cmd.DealID,
			StageID:   cmd.ToStageID,
			Timestamp: now,
			Move: &board.MoveDetail{
				FromStageID: cmd.FromStageID,
				ToStageID:   cmd.ToStageID,
			},
		})

	case protocol.CmdAddComment:
		if cmd.DealID == "" || cmd.Message == "" {
			break
		}
		comment := board.Comment{
			ID:        newID(8),
			DealID:    cmd.DealID,
			User:      user,
			Message:   cmd.Message,
			Timestamp: now,
		}
		r.state.AddComment(cmd.DealID, comment)
		r.broadcast(protocol.CommentAdded{DealID: cmd.DealID, Comment: comment})
		r.logActivity(board.Activity{
			Type:      board.ActivityCommentAdded,
			User:      user,
			DealID:    cmd.DealID,
			Message:   cmd.Message,
			Timestamp: now,
		})

	default:
		r.log.Debug("ignoring unknown command", zap.String("type", cmd.Type))
	}
}

// logActivity appends to the bounded log and fans the entry out.
func (r *Room) logActivity(a board.Activity) {
	if a.ID == "" {
		a.ID = newID(8)
	}
	r.state.AddActivity(a)
	r.broadcast(protocol.NewActivity{Activity: a})
}

func (r *Room) broadcast(ev protocol.Event) {
	payload, err := protocol.Encode(ev)
	if err != nil {
		r.log.Error("encode event", zap.String("type", ev.EventType()), zap.Error(err))
		return
	}
	for id, c := range r.conns {
		select {
		case c.outbox <- payload:
			// ok
		default:
			// Connection is slow/full - drop it; the client reconnects
			// and converges off the next snapshot.
			close(c.outbox)
			delete(r.conns, id)
		}
	}
}

func (r *Room) userConnected(userID string) bool {
	for _, c := range r.conns {
		if c.user.ID == userID {
			return true
		}
	}
	return false
}

func (r *Room) touchPresence(u board.User) {
	if r.opts.Presence == nil {
		return
	}
	if err := r.opts.Presence.Touch(r.ctx, r.tenantID, u, r.opts.PresenceTTL); err != nil {
		r.log.Warn("presence touch", zap.String("user_id", u.ID), zap.Error(err))
	}
}

func (r *Room) shutdown() {
	for id, c := range r.conns {
		close(c.outbox) // tell the connection no more events
		delete(r.conns, id)
	}
	r.cancel()
}

func newID(length int) string {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	b := make([]byte, length)
	for i := range b {
		b[i] = charset[rand.Intn(len(charset))]
	}
	return string(b)
}
