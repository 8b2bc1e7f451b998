// Package client implements the consuming side of the pipeline-board
// collaboration channel: one websocket per (user, tenant), a reconnection
// supervisor, a liveness prober, an event router and the state store the UI
// renders from. Transport failures never surface past Connected(); the
// layer is best-effort presence, not a correctness-critical data path.
package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sisilabsai/nexenairis-collab/internal/board"
	"github.com/sisilabsai/nexenairis-collab/internal/protocol"
)

const (
	defaultReconnectDelay = 5 * time.Second
	defaultPingInterval   = 30 * time.Second
)

type Config struct {
	// ServerURL is the collaboration endpoint, e.g. "ws://host:8080/ws".
	// The address is an opaque collaborator, never hardcoded here.
	ServerURL string
	UserID    string
	TenantID  string
	Name      string
	Color     string
	Avatar    string

	ReconnectDelay time.Duration // 0 means 5s
	PingInterval   time.Duration // 0 means 30s
	Logger         *zap.Logger   // nil means zap.NewNop()
}

// Session is the explicitly owned handle UI code holds: constructed per
// consumer, never a process-wide singleton, so tests can run two
// independent clients side by side. Lifecycle is Connect once, Disconnect
// once; Disconnect cancels every timer the session armed.
type Session struct {
	cfg    Config
	log    *zap.Logger
	router *Router
	store  *Store
	sup    *Supervisor

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	ch     *Channel
	prober *Prober
}

func NewSession(cfg Config) (*Session, error) {
	if cfg.ServerURL == "" || cfg.UserID == "" || cfg.TenantID == "" {
		return nil, errors.New("client: ServerURL, UserID and TenantID are required")
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = defaultReconnectDelay
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = defaultPingInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	s := &Session{cfg: cfg, log: cfg.Logger}
	s.router = NewRouter(s.sendCommand)
	s.store = NewStore(s.log)
	s.store.Attach(s.router)
	s.sup = NewSupervisor(cfg.ReconnectDelay, s.dial)
	return s, nil
}

// Connect is fire-and-forget: it kicks off the first dial and returns. The
// session flips to Connected asynchronously; repeat calls while an attempt
// or connection is live are no-ops.
func (s *Session) Connect(ctx context.Context) {
	s.mu.Lock()
	if s.ctx == nil {
		s.ctx, s.cancel = context.WithCancel(ctx)
	}
	s.mu.Unlock()

	if !s.sup.BeginConnect() {
		return
	}
	go s.dial()
}

// dial runs one connection attempt. The supervisor has already moved to
// Connecting before this is called, both on the first connect and on retry.
func (s *Session) dial() {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	if ctx == nil || ctx.Err() != nil {
		s.sup.Stop()
		return
	}

	id := Identity{
		UserID:   s.cfg.UserID,
		TenantID: s.cfg.TenantID,
		Name:     s.cfg.Name,
		Color:    s.cfg.Color,
		Avatar:   s.cfg.Avatar,
	}
	ch, err := dialChannel(ctx, s.cfg.ServerURL, id, s.log)
	if err != nil {
		s.log.Warn("connect failed", zap.Error(err))
		s.sup.ChannelDown()
		return
	}

	s.mu.Lock()
	if s.ctx == nil || s.ctx.Err() != nil {
		s.mu.Unlock()
		ch.Close()
		s.sup.Stop()
		return
	}
	s.ch = ch
	s.prober = startProber(s.cfg.PingInterval, func() {
		ch.Send(ctx, protocol.Command{Type: protocol.CmdPing})
	})
	s.mu.Unlock()

	s.sup.ConnectSucceeded()
	s.log.Info("collaboration channel open",
		zap.String("tenant_id", s.cfg.TenantID),
		zap.String("user_id", s.cfg.UserID),
	)
	go s.readLoop(ctx, ch)
}

// readLoop is the only dispatcher: every reducer runs to completion here
// before the next message is parsed, so state mutations are serialized.
func (s *Session) readLoop(ctx context.Context, ch *Channel) {
	for {
		data, err := ch.Read(ctx)
		if err != nil {
			s.teardownChannel(ch)
			if ctx.Err() != nil {
				// Owner context cancelled: terminal, same as Disconnect.
				// Connected() must not report true on a dead channel.
				s.sup.Stop()
				return
			}
			s.log.Info("collaboration channel down", zap.Error(err))
			s.sup.ChannelDown()
			return
		}

		ev, err := protocol.DecodeEvent(data)
		if err != nil {
			// A single bad message must not take down the channel.
			if errors.Is(err, protocol.ErrUnknownType) {
				s.log.Debug("ignoring unknown event", zap.Error(err))
			} else {
				s.log.Warn("dropping malformed event", zap.Error(err))
			}
			continue
		}
		s.router.Dispatch(ev)
	}
}

func (s *Session) teardownChannel(ch *Channel) {
	s.mu.Lock()
	if s.ch == ch {
		s.ch = nil
	}
	prober := s.prober
	s.prober = nil
	s.mu.Unlock()

	if prober != nil {
		prober.Stop()
	}
	ch.Close()
}

// Disconnect tears the channel down and cancels the reconnect timer and the
// prober; nothing the session armed outlives this call. Safe to call more
// than once. The session is done afterwards.
func (s *Session) Disconnect() {
	s.sup.Stop()

	s.mu.Lock()
	cancel := s.cancel
	ch := s.ch
	prober := s.prober
	s.ch = nil
	s.prober = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if prober != nil {
		prober.Stop()
	}
	if ch != nil {
		ch.Close()
	}
}

// Connected backs the Live/Offline indicator; transport errors are never
// surfaced beyond this flag flipping to false.
func (s *Session) Connected() bool {
	return s.sup.State() == StateConnected
}

// State returns a read-only snapshot of the collaboration state.
func (s *Session) State() board.State {
	return s.store.Snapshot()
}

// Store exposes the read views the presentation adapters consume.
func (s *Session) Store() *Store { return s.store }

// OnEvent registers a listener for one inbound event type, for adapters
// that want change notifications instead of polling Snapshot.
func (s *Session) OnEvent(eventType string, fn Listener) Subscription {
	return s.router.Subscribe(eventType, fn)
}

func (s *Session) OffEvent(sub Subscription) {
	s.router.Unsubscribe(sub)
}

// Imperative hook surface: thin wrappers over the router's outbound
// helpers. None of these mutates the local store.

func (s *Session) ViewDeal(dealID string)        { s.router.ViewDeal(dealID) }
func (s *Session) StopViewingDeal(dealID string) { s.router.StopViewingDeal(dealID) }
func (s *Session) LockDeal(dealID string)        { s.router.LockDeal(dealID) }
func (s *Session) UnlockDeal(dealID string)      { s.router.UnlockDeal(dealID) }
func (s *Session) MoveDeal(dealID, fromStageID, toStageID string) {
	s.router.MoveDeal(dealID, fromStageID, toStageID)
}
func (s *Session) AddComment(dealID, message string) error {
	if message == "" {
		return fmt.Errorf("client: empty comment for deal %s", dealID)
	}
	s.router.AddComment(dealID, message)
	return nil
}

func (s *Session) sendCommand(cmd protocol.Command) {
	s.mu.Lock()
	ch := s.ch
	ctx := s.ctx
	s.mu.Unlock()
	if ch == nil || ctx == nil {
		s.log.Debug("dropping command, no open channel", zap.String("type", cmd.Type))
		return
	}
	ch.Send(ctx, cmd)
}
