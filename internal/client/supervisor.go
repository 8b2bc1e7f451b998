package client

import (
	"sync"
	"time"
)

// ChannelState names the supervisor's states. The "already scheduled" guard
// is structural: a retry timer can only be armed from Disconnected, and only
// when none is pending.
type ChannelState int

const (
	StateDisconnected ChannelState = iota
	StateConnecting
	StateConnected
)

func (s ChannelState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Supervisor watches one transport channel and schedules a single delayed
// reconnect when it drops. There is no retry cap and no backoff; the one
// invariant is that at most one retry timer is in flight.
type Supervisor struct {
	mu      sync.Mutex
	state   ChannelState
	retry   *time.Timer
	delay   time.Duration
	dial    func()
	stopped bool
}

func NewSupervisor(delay time.Duration, dial func()) *Supervisor {
	return &Supervisor{delay: delay, dial: dial}
}

// BeginConnect claims the Disconnected -> Connecting transition. Returns
// false when an attempt is already underway or the supervisor is stopped.
func (s *Supervisor) BeginConnect() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped || s.state != StateDisconnected || s.retry != nil {
		return false
	}
	s.state = StateConnecting
	return true
}

func (s *Supervisor) ConnectSucceeded() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.state = StateConnected
	s.clearRetryLocked()
}

// ChannelDown covers both a failed dial and an established channel dropping.
// While a retry is already armed, further down-signals are no-ops.
func (s *Supervisor) ChannelDown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateDisconnected
	if s.stopped || s.retry != nil {
		return
	}
	s.retry = time.AfterFunc(s.delay, s.fireRetry)
}

func (s *Supervisor) fireRetry() {
	s.mu.Lock()
	s.retry = nil
	if s.stopped || s.state != StateDisconnected {
		s.mu.Unlock()
		return
	}
	s.state = StateConnecting
	s.mu.Unlock()
	s.dial()
}

// Stop cancels any pending retry and pins the supervisor down for good.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	s.state = StateDisconnected
	s.clearRetryLocked()
}

func (s *Supervisor) State() ChannelState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// RetryArmed reports whether a reconnect timer is pending.
func (s *Supervisor) RetryArmed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.retry != nil
}

func (s *Supervisor) clearRetryLocked() {
	if s.retry != nil {
		s.retry.Stop()
		s.retry = nil
	}
}
