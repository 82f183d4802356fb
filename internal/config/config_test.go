package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnvDefaults(t *testing.T) {
	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.AppPort)
	assert.Equal(t, RoleAll, cfg.AppRole)
	assert.Equal(t, 200, cfg.FeedListLimit)
	assert.Equal(t, 7*24*time.Hour, cfg.FeedCacheTTL)
	assert.Equal(t, 20, cfg.FeedPageSize)
	assert.Equal(t, 1000, cfg.FanoutBatchSize)
	assert.Equal(t, int32(50), cfg.DBMaxConns)
}

func TestLoadFromEnvOverrides(t *testing.T) {
	t.Setenv("FEED_LIST_LIMIT", "20")
	t.Setenv("FEED_CACHE_TTL", "90m")
	t.Setenv("CACHE_DRIVER", CacheDriverMemory)
	t.Setenv("DB_PASSWORD", "secret")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, 20, cfg.FeedListLimit)
	assert.Equal(t, 90*time.Minute, cfg.FeedCacheTTL)
	assert.Equal(t, CacheDriverMemory, cfg.CacheDriver)

	assert.NotContains(t, cfg.String(), "secret")
	assert.Contains(t, cfg.GetDSN(), ":secret@")
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			AppRole: RoleAll, CacheDriver: CacheDriverRedis, QueueDriver: QueueDriverAsynq,
			FeedListLimit: 200, FeedCacheTTL: time.Hour, FeedPageSize: 20, FeedMaxPageSize: 20,
			FriendshipPageSize: 20, FriendshipMaxPageSize: 20, FanoutBatchSize: 10, FanoutConcurrency: 1,
		}
	}
	c := valid()
	require.NoError(t, c.Validate())

	cases := map[string]func(*Config){
		"zero list limit":      func(c *Config) { c.FeedListLimit = 0 },
		"default above max":    func(c *Config) { c.FeedPageSize = 50 },
		"unknown role":         func(c *Config) { c.AppRole = "cron" },
		"unknown cache":        func(c *Config) { c.CacheDriver = "memcached" },
		"local queue worker":   func(c *Config) { c.QueueDriver = QueueDriverLocal; c.AppRole = RoleWorker },
		"non-positive ttl":     func(c *Config) { c.FeedCacheTTL = 0 },
		"zero friendship size": func(c *Config) { c.FriendshipPageSize = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := valid()
			mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}
