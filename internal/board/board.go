package board

import (
	"slices"
	"time"
)

// MaxRecentActivities bounds the activity log; older entries fall off the end.
const MaxRecentActivities = 50

type User struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Color  string `json:"color,omitempty"`
	Avatar string `json:"avatar,omitempty"`
	Online bool   `json:"online,omitempty"`
}

type DealLock struct {
	DealID    string    `json:"deal_id"`
	User      User      `json:"user"`
	LockedAt  time.Time `json:"locked_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

type Comment struct {
	ID        string    `json:"id"`
	DealID    string    `json:"deal_id"`
	User      User      `json:"user"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	IsSystem  bool      `json:"is_system,omitempty"`
}

type ActivityType string

const (
	ActivityDealMoved    ActivityType = "deal_moved"
	ActivityDealEdited   ActivityType = "deal_edited"
	ActivityUserViewing  ActivityType = "user_viewing"
	ActivityDealLocked   ActivityType = "deal_locked"
	ActivityCommentAdded ActivityType = "comment_added"
	ActivityDealCreated  ActivityType = "deal_created"
)

// MoveDetail carries the stage transition for deal_moved activities.
type MoveDetail struct {
	FromStageID string `json:"from_stage_id"`
	ToStageID   string `json:"to_stage_id"`
}

// Activity is immutable once received; the log is append-only.
type Activity struct {
	ID        string       `json:"id"`
	Type      ActivityType `json:"type"`
	User      User         `json:"user"`
	DealID    string       `json:"deal_id,omitempty"`
	StageID   string       `json:"stage_id,omitempty"`
	Message   string       `json:"message,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
	Move      *MoveDetail  `json:"move,omitempty"`
}

// State is the shared projection both sides of the channel keep: the server
// room owns the authoritative copy, each client rebuilds its own from the
// snapshot plus incremental events. Nothing in here survives a restart.
type State struct {
	OnlineUsers      []User               `json:"online_users"`
	ViewingUsers     map[string][]User    `json:"viewing_users"`
	RecentActivities []Activity           `json:"recent_activities"`
	DealLocks        []DealLock           `json:"deal_locks"`
	Comments         map[string][]Comment `json:"comments"`
}

func NewState() State {
	return State{
		OnlineUsers:      []User{},
		ViewingUsers:     map[string][]User{},
		RecentActivities: []Activity{},
		DealLocks:        []DealLock{},
		Comments:         map[string][]Comment{},
	}
}

// UpsertUser inserts or replaces by id, so duplicate joins can't fork a user.
func (s *State) UpsertUser(u User) {
	for i, existing := range s.OnlineUsers {
		if existing.ID == u.ID {
			s.OnlineUsers[i] = u
			return
		}
	}
	s.OnlineUsers = append(s.OnlineUsers, u)
}

// RemoveUser is a no-op when the id is unknown.
func (s *State) RemoveUser(id string) {
	s.OnlineUsers = slices.DeleteFunc(s.OnlineUsers, func(u User) bool {
		return u.ID == id
	})
}

// SetViewers replaces the whole viewer list for a deal; the server's set is
// authoritative, not a delta. An empty list clears the entry.
func (s *State) SetViewers(dealID string, users []User) {
	if s.ViewingUsers == nil {
		s.ViewingUsers = map[string][]User{}
	}
	if len(users) == 0 {
		delete(s.ViewingUsers, dealID)
		return
	}
	s.ViewingUsers[dealID] = users
}

// SetLock removes any lock on the same deal before inserting, which keeps the
// at-most-one-lock-per-deal invariant even when lock/unlock pairs arrive out
// of order: the latest lock event is always trusted.
func (s *State) SetLock(l DealLock) {
	s.RemoveLock(l.DealID)
	s.DealLocks = append(s.DealLocks, l)
}

func (s *State) RemoveLock(dealID string) {
	s.DealLocks = slices.DeleteFunc(s.DealLocks, func(l DealLock) bool {
		return l.DealID == dealID
	})
}

// AddActivity prepends, newest first, then truncates to MaxRecentActivities.
func (s *State) AddActivity(a Activity) {
	s.RecentActivities = append([]Activity{a}, s.RecentActivities...)
	if len(s.RecentActivities) > MaxRecentActivities {
		s.RecentActivities = s.RecentActivities[:MaxRecentActivities]
	}
}

// AddComment appends in arrival order; the list is created on first use.
func (s *State) AddComment(dealID string, c Comment) {
	if s.Comments == nil {
		s.Comments = map[string][]Comment{}
	}
	s.Comments[dealID] = append(s.Comments[dealID], c)
}

func (s State) Lock(dealID string) (DealLock, bool) {
	for _, l := range s.DealLocks {
		if l.DealID == dealID {
			return l, true
		}
	}
	return DealLock{}, false
}

func (s State) Viewers(dealID string) []User {
	return s.ViewingUsers[dealID]
}

func (s State) HasUser(id string) bool {
	return slices.ContainsFunc(s.OnlineUsers, func(u User) bool { return u.ID == id })
}

// Badge is the per-card collaboration indicator: who is looking at a deal,
// who (if anyone) is editing it, and how busy its comment thread is.
type Badge struct {
	Viewers      []User    `json:"viewers"`
	Lock         *DealLock `json:"lock,omitempty"`
	CommentCount int       `json:"comment_count"`
}

func (s State) Badge(dealID string) Badge {
	b := Badge{
		Viewers:      s.Viewers(dealID),
		CommentCount: len(s.Comments[dealID]),
	}
	if l, ok := s.Lock(dealID); ok {
		b.Lock = &l
	}
	return b
}

// Clone deep-copies the state so snapshot readers never alias the live maps.
func (s State) Clone() State {
	out := State{
		OnlineUsers:      slices.Clone(s.OnlineUsers),
		ViewingUsers:     make(map[string][]User, len(s.ViewingUsers)),
		RecentActivities: slices.Clone(s.RecentActivities),
		DealLocks:        slices.Clone(s.DealLocks),
		Comments:         make(map[string][]Comment, len(s.Comments)),
	}
	for id, users := range s.ViewingUsers {
		out.ViewingUsers[id] = slices.Clone(users)
	}
	for id, comments := range s.Comments {
		out.Comments[id] = slices.Clone(comments)
	}
	return out
}
