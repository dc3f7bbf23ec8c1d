package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/credicefi/crediface/pkg/constants"
)

// EnvPrefix is the prefix of every environment variable override.
const EnvPrefix = "CREDIFACE"

// LoadConfig loads the configuration from file and environment variables.
// An explicit path takes precedence over the default search locations.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/crediface/")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	// Load from environment variables
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.grpc_port", 50051)
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.allowed_origins", []string{"*"})

	v.SetDefault("storage.backend", StorageFile)
	v.SetDefault("storage.config_dir", "config/institutions")
	v.SetDefault("storage.data_dir", "data")
	v.SetDefault("storage.watch", true)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "crediface")
	v.SetDefault("database.password", "")
	v.SetDefault("database.database", "crediface")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.sqlite_path", "crediface.db")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "30m")
	v.SetDefault("database.max_conn_idle_time", "5m")
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 20)
	v.SetDefault("redis.min_idle_conns", 2)
	v.SetDefault("redis.dial_timeout", "5s")

	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.l1_ttl", constants.TenantConfigL1TTL)
	v.SetDefault("cache.l2_ttl", constants.TenantConfigL2TTL)

	v.SetDefault("audit.sinks", []string{SinkMemory})
	v.SetDefault("audit.ring_size", constants.AuditRingSize)
	v.SetDefault("audit.buffer_size", constants.AuditDefaultBufferSize)
	v.SetDefault("audit.workers", constants.AuditDefaultWorkers)
	v.SetDefault("audit.hmac_secret", "")

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "crediface.assessments")
	v.SetDefault("kafka.batch_timeout", "50ms")

	v.SetDefault("assessment.resolve_timeout", constants.DefaultResolveTimeout)
	v.SetDefault("assessment.batch_concurrency", constants.DefaultBatchConcurrency)
	v.SetDefault("assessment.max_batch_size", constants.DefaultMaxBatchSize)

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.default_rpm", 600)
	v.SetDefault("rate_limit.burst_size", 50)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output_path", "stdout")

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.otlp_endpoint", "localhost:4317")
	v.SetDefault("tracing.service_name", "crediface")
	v.SetDefault("tracing.sample_ratio", 1.0)
	v.SetDefault("tracing.insecure", true)
}
