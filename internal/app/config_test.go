package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfig_Defaults(t *testing.T) {
	cfg, err := ParseConfig(nil)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.HttpPort)
	assert.Equal(t, "release", cfg.Server.RunMode)
	assert.False(t, cfg.Database.Enabled)
	assert.True(t, cfg.Limiter.Enabled)
	assert.Equal(t, 30*time.Second, cfg.GetContextTimeout())
	assert.Equal(t, time.Minute, cfg.GetStatsInterval())

	d := cfg.GetClientDurations()
	assert.Equal(t, 2*time.Second, d.ProbeInterval)
	assert.Equal(t, 2*time.Second, d.ProbeTimeout)
	assert.Equal(t, 3*time.Second, d.SyncInterval)
	assert.Equal(t, 5*time.Second, d.RequestTimeout)

	rules := cfg.GetLimiterRules()
	require.Len(t, rules, 1)
	assert.Equal(t, "/api/notes", rules[0].Key)
	assert.Equal(t, time.Second, rules[0].FillInterval)
}

func TestParseConfig_ExplicitFalseIsKept(t *testing.T) {
	cfg, err := ParseConfig([]byte(`
limiter:
  enabled: false
tracer:
  enabled: false
client:
  sync-on-mutation: false
  sync-interval: 500ms
  request-timeout: bogus
`))
	require.NoError(t, err)

	assert.False(t, cfg.Limiter.Enabled)
	assert.Nil(t, cfg.GetLimiterRules())
	assert.False(t, cfg.Tracer.Enabled)
	assert.False(t, cfg.Client.SyncOnMutation)

	d := cfg.GetClientDurations()
	assert.Equal(t, 500*time.Millisecond, d.SyncInterval)
	assert.Equal(t, 5*time.Second, d.RequestTimeout, "invalid value falls back")
	// 未出现的字段保持默认
	assert.Equal(t, "http://127.0.0.1:9000", cfg.Client.ServerURL)
}

func TestParseConfig_Invalid(t *testing.T) {
	_, err := ParseConfig([]byte("server: ["))
	assert.Error(t, err)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  http-port: \":9100\"\napp:\n  write-queue-capacity: 8\n"), 0o644))

	cfg, realpath, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, realpath, cfg.File)
	assert.Equal(t, ":9100", cfg.Server.HttpPort)
	assert.Equal(t, 8, cfg.GetWriteQueueConfig().QueueCapacity)

	_, _, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestAppConfig_Validate(t *testing.T) {
	cfg, err := ParseConfig(nil)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	cases := map[string]string{
		"run mode": "server:\n  run-mode: staging\n",
		"db type":  "database:\n  enabled: true\n  type: oracle\n",
		"storage":  "client:\n  storage: s3\n",
		"duration": "client:\n  sync-interval: soon\n",
		"limiter":  "limiter:\n  capacity: -1\n",
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			cfg, err := ParseConfig([]byte(data))
			require.NoError(t, err)
			assert.Error(t, cfg.Validate())
		})
	}

	// 数据库关闭时不检查类型
	cfg, err = ParseConfig([]byte("database:\n  type: oracle\n"))
	require.NoError(t, err)
	assert.NoError(t, cfg.Validate())
}
