package client

import (
	"sync"

	"go.uber.org/zap"

	"github.com/sisilabsai/nexenairis-collab/internal/board"
	"github.com/sisilabsai/nexenairis-collab/internal/protocol"
)

// Store is the client-side projection of shared board state. It is mutated
// only through router dispatch; everything else gets copies. Dispatch runs
// on the single read-loop goroutine, so reducers are serialized by
// construction; the lock exists for snapshot readers on other goroutines.
type Store struct {
	mu    sync.Mutex
	state board.State
	log   *zap.Logger
}

func NewStore(log *zap.Logger) *Store {
	return &Store{state: board.NewState(), log: log}
}

// Attach registers the store's reducer with the router for every event type
// it knows how to fold in.
func (s *Store) Attach(r *Router) {
	for _, eventType := range []string{
		protocol.EvtCollaborationState,
		protocol.EvtUserJoined,
		protocol.EvtUserLeft,
		protocol.EvtDealViewingUpdated,
		protocol.EvtDealLocked,
		protocol.EvtDealUnlocked,
		protocol.EvtNewActivity,
		protocol.EvtCommentAdded,
	} {
		r.Subscribe(eventType, s.Apply)
	}
}

// Apply folds one event into the state. Reducers never panic and never
// reject events that reference deals or users the client hasn't seen yet:
// local knowledge is incomplete until the next snapshot, so unknown
// references are valid inserts.
func (s *Store) Apply(ev protocol.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch e := ev.(type) {
	case protocol.StateSnapshot:
		// A snapshot supersedes everything accumulated before a drop.
		s.state = e.State.Clone()
	case protocol.UserJoined:
		u := e.User
		u.Online = true
		s.state.UpsertUser(u)
	case protocol.UserLeft:
		s.state.RemoveUser(e.UserID)
	case protocol.DealViewingUpdated:
		s.state.SetViewers(e.DealID, e.Users)
	case protocol.DealLocked:
		s.state.SetLock(e.Lock)
	case protocol.DealUnlocked:
		s.state.RemoveLock(e.DealID)
	case protocol.NewActivity:
		s.state.AddActivity(e.Activity)
	case protocol.CommentAdded:
		s.state.AddComment(e.DealID, e.Comment)
	default:
		s.log.Warn("no reducer for event", zap.String("type", ev.EventType()))
	}
}

// Snapshot returns a deep copy; callers can hold it across renders without
// racing the read loop.
func (s *Store) Snapshot() board.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Read-only views backing the presentation adapters.

// OnlineUsers backs the online-users strip.
func (s *Store) OnlineUsers() []board.User {
	return s.Snapshot().OnlineUsers
}

// Activities backs the activity feed, newest first.
func (s *Store) Activities() []board.Activity {
	return s.Snapshot().RecentActivities
}

// Badge backs the per-card collaboration indicators.
func (s *Store) Badge(dealID string) board.Badge {
	return s.Snapshot().Badge(dealID)
}

// Comments returns the thread for one deal in arrival order.
func (s *Store) Comments(dealID string) []board.Comment {
	return s.Snapshot().Comments[dealID]
}
