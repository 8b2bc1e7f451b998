package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ListenAddr  string
	RedisAddr   string // empty disables the cross-node presence registry
	LockTTL     time.Duration
	PresenceTTL time.Duration
}

func Load() (*Config, error) {
	godotenv.Load()

	config := &Config{
		ListenAddr:  getEnv("COLLAB_LISTEN_ADDR", ":8080"),
		RedisAddr:   getEnv("COLLAB_REDIS_ADDR", ""),
		LockTTL:     getEnvAsDuration("COLLAB_LOCK_TTL", 5*time.Minute),
		PresenceTTL: getEnvAsDuration("COLLAB_PRESENCE_TTL", 90*time.Second),
	}

	return config, nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		d, err := time.ParseDuration(value)
		if err == nil {
			return d
		}
	}
	return defaultValue
}
