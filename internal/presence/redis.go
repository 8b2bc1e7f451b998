package presence

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/sisilabsai/nexenairis-collab/internal/board"
)

// Key semantics:
// - tenantKey:  ZSET of user ids, score = expireAt (unix seconds) as a
//   logical TTL
// - usersKey:   Hash of user id -> user JSON for the same tenant
const (
	keyTenantFmt = "presence:tenant:%s"
	keyUsersFmt  = "presence:tenant:users:%s"
)

func tenantKey(tenantID string) string { return fmt.Sprintf(keyTenantFmt, tenantID) }
func usersKey(tenantID string) string  { return fmt.Sprintf(keyUsersFmt, tenantID) }

type Redis struct {
	rdb *redis.Client
}

func NewRedis(rdb *redis.Client) *Redis {
	return &Redis{rdb: rdb}
}

func (p *Redis) Touch(ctx context.Context, tenantID string, user board.User, ttl time.Duration) error {
	payload, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("marshal user %s: %w", user.ID, err)
	}
	expireAt := time.Now().Add(ttl).Unix()

	tx := p.rdb.TxPipeline()
	tx.ZAdd(ctx, tenantKey(tenantID), redis.Z{Score: float64(expireAt), Member: user.ID})
	tx.HSet(ctx, usersKey(tenantID), user.ID, payload)
	_, err = tx.Exec(ctx)
	return err
}

func (p *Redis) Remove(ctx context.Context, tenantID, userID string) error {
	tx := p.rdb.TxPipeline()
	tx.ZRem(ctx, tenantKey(tenantID), userID)
	tx.HDel(ctx, usersKey(tenantID), userID)
	_, err := tx.Exec(ctx)
	return err
}

func (p *Redis) Online(ctx context.Context, tenantID string) ([]board.User, error) {
	now := time.Now().Unix()

	// Sweep members whose logical TTL lapsed, hash entries included.
	expired, err := p.rdb.ZRangeByScore(ctx, tenantKey(tenantID), &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(now, 10),
	}).Result()
	if err != nil && err != redis.Nil {
		return nil, err
	}
	if len(expired) > 0 {
		tx := p.rdb.TxPipeline()
		tx.ZRemRangeByScore(ctx, tenantKey(tenantID), "-inf", strconv.FormatInt(now, 10))
		tx.HDel(ctx, usersKey(tenantID), expired...)
		if _, err := tx.Exec(ctx); err != nil {
			return nil, err
		}
	}

	aliveIDs, err := p.rdb.ZRangeByScore(ctx, tenantKey(tenantID), &redis.ZRangeBy{
		Min: "(" + strconv.FormatInt(now, 10),
		Max: "+inf",
	}).Result()
	if err != nil && err != redis.Nil {
		return nil, err
	}
	if len(aliveIDs) == 0 {
		return nil, nil
	}

	raw, err := p.rdb.HMGet(ctx, usersKey(tenantID), aliveIDs...).Result()
	if err != nil && err != redis.Nil {
		return nil, err
	}
	users := make([]board.User, 0, len(aliveIDs))
	for i, v := range raw {
		s, ok := v.(string)
		if !ok {
			// ZSET member without a hash entry; fall back to the id.
			users = append(users, board.User{ID: aliveIDs[i], Name: aliveIDs[i], Online: true})
			continue
		}
		var u board.User
		if err := json.Unmarshal([]byte(s), &u); err != nil {
			return nil, fmt.Errorf("unmarshal user %s: %w", aliveIDs[i], err)
		}
		u.Online = true
		users = append(users, u)
	}
	return users, nil
}
