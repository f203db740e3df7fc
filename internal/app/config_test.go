package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("SESSION_SECRET", "s3cret")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, AuditSinkDirect, cfg.AuditSink)
	assert.Equal(t, 5*time.Second, cfg.AuditWriteTimeout)
	assert.Equal(t, 30*time.Second, cfg.RoleCacheTTL)
	assert.Equal(t, 10, cfg.AuthRateLimit)
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("SESSION_SECRET", "s3cret")
	t.Setenv("AUDIT_SINK", "queue")
	t.Setenv("ROLE_CACHE_TTL", "0s")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("REDIS_DB", "3")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, AuditSinkQueue, cfg.AuditSink)
	assert.Zero(t, cfg.RoleCacheTTL)
	opts := cfg.RedisOptions()
	assert.Equal(t, "redis:6379", opts.Addr)
	assert.Equal(t, 3, opts.DB)
}

func TestConfigValidate(t *testing.T) {
	valid := func() Config {
		return Config{SessionSecret: "x", AuditSink: AuditSinkDirect, AuditWriteTimeout: time.Second, LogLevel: "info"}
	}
	cfg := valid()
	require.NoError(t, cfg.Validate())

	cases := map[string]func(*Config){
		"no secret":    func(c *Config) { c.SessionSecret = "" },
		"bad sink":     func(c *Config) { c.AuditSink = "kafka" },
		"zero timeout": func(c *Config) { c.AuditWriteTimeout = 0 },
		"bad level":    func(c *Config) { c.LogLevel = "trace" },
		"negative ttl": func(c *Config) { c.RoleCacheTTL = -time.Second },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := valid()
			mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestRefreshTestMode(t *testing.T) {
	t.Setenv(testModeEnv, "1")
	assert.True(t, RefreshTestMode())
	assert.True(t, InTestMode())
	t.Setenv(testModeEnv, "0")
	assert.False(t, RefreshTestMode())
	assert.False(t, InTestMode())
}
