package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: debug\n"), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, 50051, cfg.Server.GRPCPort)
	assert.Equal(t, StorageFile, cfg.Storage.Backend)
	assert.Equal(t, "config/institutions", cfg.Storage.ConfigDir)
	assert.Equal(t, []string{SinkMemory}, cfg.Audit.Sinks)
	assert.Equal(t, 1000, cfg.Audit.RingSize)
	assert.Equal(t, 2*time.Second, cfg.Assessment.ResolveTimeout)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadConfig_ExplicitMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9000\n"), 0o600))

	t.Setenv("CREDIFACE_SERVER_PORT", "9100")
	t.Setenv("CREDIFACE_ASSESSMENT_RESOLVE_TIMEOUT", "750ms")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, 750*time.Millisecond, cfg.Assessment.ResolveTimeout)
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:     ServerConfig{Port: 8000, GRPCPort: 50051},
			Storage:    StorageConfig{Backend: StorageFile, ConfigDir: "c", DataDir: "d"},
			Audit:      AuditConfig{Sinks: []string{SinkMemory}, RingSize: 1000},
			Assessment: AssessmentConfig{ResolveTimeout: time.Second, BatchConcurrency: 4, MaxBatchSize: 10},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, true},
		{"unknown backend", func(c *Config) { c.Storage.Backend = "s3" }, true},
		{"unknown sink", func(c *Config) { c.Audit.Sinks = []string{"syslog"} }, true},
		{"kafka without brokers", func(c *Config) { c.Audit.Sinks = []string{SinkKafka} }, true},
		{"redis sink without redis", func(c *Config) { c.Audit.Sinks = []string{SinkRedis} }, true},
		{"cache without redis", func(c *Config) { c.Cache.Enabled = true }, true},
		{"zero timeout", func(c *Config) { c.Assessment.ResolveTimeout = 0 }, true},
		{"rate limit without budget", func(c *Config) { c.RateLimit.Enabled = true }, true},
		{"tracing without endpoint", func(c *Config) { c.Tracing.Enabled = true }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestAuditConfig_HasSink(t *testing.T) {
	c := AuditConfig{Sinks: []string{SinkMemory, SinkKafka}}
	assert.True(t, c.HasSink(SinkKafka))
	assert.False(t, c.HasSink(SinkRedis))
}
