// Package protocol defines the JSON wire contract between pipeline-board
// clients and the collaboration server. Every message carries a mandatory
// "type" discriminator; commands travel client -> server, events travel
// server -> client.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sisilabsai/nexenairis-collab/internal/board"
)

var ErrUnknownType = errors.New("unknown message type")
var ErrMalformed = errors.New("malformed message")

// Client -> server command types.
const (
	CmdViewDeal        = "view_deal"
	CmdStopViewingDeal = "stop_viewing_deal"
	CmdLockDeal        = "lock_deal"
	CmdUnlockDeal      = "unlock_deal"
	CmdMoveDeal        = "move_deal"
	CmdAddComment      = "add_comment"
	CmdPing            = "ping"
)

// Server -> client event types.
const (
	EvtCollaborationState = "collaboration_state"
	EvtUserJoined         = "user_joined"
	EvtUserLeft           = "user_left"
	EvtDealViewingUpdated = "deal_viewing_updated"
	EvtDealLocked         = "deal_locked"
	EvtDealUnlocked       = "deal_unlocked"
	EvtNewActivity        = "new_activity"
	EvtCommentAdded       = "comment_added"
)

// Command is the canonical outbound envelope. Unused fields stay off the
// wire; ping is just {"type":"ping"}.
type Command struct {
	Type        string    `json:"type"`
	DealID      string    `json:"deal_id,omitempty"`
	FromStageID string    `json:"from_stage_id,omitempty"`
	ToStageID   string    `json:"to_stage_id,omitempty"`
	Message     string    `json:"message,omitempty"`
	Timestamp   time.Time `json:"timestamp,omitzero"`
}

// Event is the decoded inbound message. It is a closed set; reducers can
// switch exhaustively over the concrete types below.
type Event interface{ EventType() string }

type StateSnapshot struct{ State board.State }

type UserJoined struct{ User board.User }

type UserLeft struct{ UserID string }

type DealViewingUpdated struct {
	DealID string
	Users  []board.User
}

type DealLocked struct{ Lock board.DealLock }

type DealUnlocked struct{ DealID string }

type NewActivity struct{ Activity board.Activity }

type CommentAdded struct {
	DealID  string
	Comment board.Comment
}

func (StateSnapshot) EventType() string      { return EvtCollaborationState }
func (UserJoined) EventType() string         { return EvtUserJoined }
func (UserLeft) EventType() string           { return EvtUserLeft }
func (DealViewingUpdated) EventType() string { return EvtDealViewingUpdated }
func (DealLocked) EventType() string         { return EvtDealLocked }
func (DealUnlocked) EventType() string       { return EvtDealUnlocked }
func (NewActivity) EventType() string        { return EvtNewActivity }
func (CommentAdded) EventType() string       { return EvtCommentAdded }

// envelope is the flat JSON shape shared by Encode and DecodeEvent. Optional
// sections are pointers so absent ones can be told apart from zero values.
type envelope struct {
	Type      string          `json:"type"`
	State     *board.State    `json:"state,omitempty"`
	User      *board.User     `json:"user,omitempty"`
	UserID    string          `json:"user_id,omitempty"`
	DealID    string          `json:"deal_id,omitempty"`
	// Users is a pointer so an authoritative empty list still reaches the
	// wire as [] instead of being omitted.
	Users     *[]board.User   `json:"users,omitempty"`
	LockedAt  time.Time       `json:"locked_at,omitzero"`
	ExpiresAt time.Time       `json:"expires_at,omitzero"`
	Activity  *board.Activity `json:"activity,omitempty"`
	Comment   *board.Comment  `json:"comment,omitempty"`
}

// Encode marshals a server event into its wire form.
func Encode(ev Event) ([]byte, error) {
	env := envelope{Type: ev.EventType()}
	switch e := ev.(type) {
	case StateSnapshot:
		env.State = &e.State
	case UserJoined:
		env.User = &e.User
	case UserLeft:
		env.UserID = e.UserID
	case DealViewingUpdated:
		env.DealID = e.DealID
		users := e.Users
		if users == nil {
			users = []board.User{}
		}
		env.Users = &users
	case DealLocked:
		env.DealID = e.Lock.DealID
		env.User = &e.Lock.User
		env.LockedAt = e.Lock.LockedAt
		env.ExpiresAt = e.Lock.ExpiresAt
	case DealUnlocked:
		env.DealID = e.DealID
	case NewActivity:
		env.Activity = &e.Activity
	case CommentAdded:
		env.DealID = e.DealID
		env.Comment = &e.Comment
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownType, ev)
	}
	return json.Marshal(env)
}

// DecodeEvent parses an inbound payload into a typed event. Unknown tags
// return ErrUnknownType so callers can drop them silently; payloads missing
// the fields their tag requires return ErrMalformed.
func DecodeEvent(data []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	switch env.Type {
	case EvtCollaborationState:
		if env.State == nil {
			return nil, fmt.Errorf("%w: %s without state", ErrMalformed, env.Type)
		}
		return StateSnapshot{State: *env.State}, nil

	case EvtUserJoined:
		if env.User == nil || env.User.ID == "" {
			return nil, fmt.Errorf("%w: %s without user", ErrMalformed, env.Type)
		}
		return UserJoined{User: *env.User}, nil

	case EvtUserLeft:
		if env.UserID == "" {
			return nil, fmt.Errorf("%w: %s without user_id", ErrMalformed, env.Type)
		}
		return UserLeft{UserID: env.UserID}, nil

	case EvtDealViewingUpdated:
		if env.DealID == "" {
			return nil, fmt.Errorf("%w: %s without deal_id", ErrMalformed, env.Type)
		}
		var users []board.User
		if env.Users != nil {
			users = *env.Users
		}
		return DealViewingUpdated{DealID: env.DealID, Users: users}, nil

	case EvtDealLocked:
		if env.DealID == "" || env.User == nil {
			return nil, fmt.Errorf("%w: %s without deal_id/user", ErrMalformed, env.Type)
		}
		return DealLocked{Lock: board.DealLock{
			DealID:    env.DealID,
			User:      *env.User,
			LockedAt:  env.LockedAt,
			ExpiresAt: env.ExpiresAt,
		}}, nil

	case EvtDealUnlocked:
		if env.DealID == "" {
			return nil, fmt.Errorf("%w: %s without deal_id", ErrMalformed, env.Type)
		}
		return DealUnlocked{DealID: env.DealID}, nil

	case EvtNewActivity:
		if env.Activity == nil {
			return nil, fmt.Errorf("%w: %s without activity", ErrMalformed, env.Type)
		}
		return NewActivity{Activity: *env.Activity}, nil

	case EvtCommentAdded:
		if env.DealID == "" || env.Comment == nil {
			return nil, fmt.Errorf("%w: %s without deal_id/comment", ErrMalformed, env.Type)
		}
		return CommentAdded{DealID: env.DealID, Comment: *env.Comment}, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
	}
}

// DecodeCommand parses a client payload on the server side.
func DecodeCommand(data []byte) (Command, error) {
	var cmd Command
	if err := json.Unmarshal(data, &cmd); err != nil {
		return Command{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if cmd.Type == "" {
		return Command{}, fmt.Errorf("%w: missing type", ErrMalformed)
	}
	return cmd, nil
}
