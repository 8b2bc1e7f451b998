package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/sisilabsai/nexenairis-collab/internal/protocol"
)

// Identity is re-presented on every (re)connect so the server can
// re-associate presence with the same (user, tenant) pair.
type Identity struct {
	UserID   string
	TenantID string
	Name     string
	Color    string
	Avatar   string
}

// Channel owns exactly one websocket connection. Send is best-effort: once
// the channel is closed it is a no-op, never an error and never a queue.
type Channel struct {
	conn *websocket.Conn
	log  *zap.Logger

	mu   sync.Mutex
	open bool
}

func dialChannel(ctx context.Context, addr string, id Identity, log *zap.Logger) (*Channel, error) {
	u, err := url.Parse(addr)
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	q := u.Query()
	q.Set("user_id", id.UserID)
	q.Set("tenant_id", id.TenantID)
	if id.Name != "" {
		q.Set("name", id.Name)
	}
	if id.Color != "" {
		q.Set("color", id.Color)
	}
	if id.Avatar != "" {
		q.Set("avatar", id.Avatar)
	}
	u.RawQuery = q.Encode()

	conn, _, err := websocket.Dial(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", u.Host, err)
	}
	return &Channel{conn: conn, log: log, open: true}, nil
}

// Send marshals and writes one command. A closed channel swallows the
// command; a write failure only logs, the read loop notices the drop.
func (c *Channel) Send(ctx context.Context, cmd protocol.Command) {
	c.mu.Lock()
	open := c.open
	c.mu.Unlock()
	if !open {
		c.log.Debug("dropping command on closed channel", zap.String("type", cmd.Type))
		return
	}

	payload, err := json.Marshal(cmd)
	if err != nil {
		c.log.Warn("marshal command", zap.String("type", cmd.Type), zap.Error(err))
		return
	}
	writeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := c.conn.Write(writeCtx, websocket.MessageText, payload); err != nil {
		c.log.Debug("write failed", zap.String("type", cmd.Type), zap.Error(err))
	}
}

// Read blocks for the next inbound payload. Any error means the channel is
// down; callers must not Read again after one.
func (c *Channel) Read(ctx context.Context) ([]byte, error) {
	_, data, err := c.conn.Read(ctx)
	return data, err
}

func (c *Channel) Close() {
	c.mu.Lock()
	if !c.open {
		c.mu.Unlock()
		return
	}
	c.open = false
	c.mu.Unlock()
	_ = c.conn.Close(websocket.StatusNormalClosure, "bye")
}
