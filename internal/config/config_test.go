package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Empty(t, cfg.RedisAddr)
	assert.Equal(t, 5*time.Minute, cfg.LockTTL)
	assert.Equal(t, 90*time.Second, cfg.PresenceTTL)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("COLLAB_LISTEN_ADDR", ":9999")
	t.Setenv("COLLAB_REDIS_ADDR", "localhost:6379")
	t.Setenv("COLLAB_LOCK_TTL", "2m")
	t.Setenv("COLLAB_PRESENCE_TTL", "30s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.ListenAddr)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, 2*time.Minute, cfg.LockTTL)
	assert.Equal(t, 30*time.Second, cfg.PresenceTTL)
}

func TestLoad_BadDurationFallsBack(t *testing.T) {
	t.Setenv("COLLAB_LOCK_TTL", "not-a-duration")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, cfg.LockTTL)
}
