package config

import (
	"fmt"
	"time"
)

// Storage backends for the tenant repository.
const (
	StorageFile     = "file"
	StoragePostgres = "postgres"
	StorageSQLite   = "sqlite"
)

// Audit sink names accepted in audit.sinks.
const (
	SinkMemory   = "memory"
	SinkRedis    = "redis"
	SinkPostgres = "postgres"
	SinkKafka    = "kafka"
)

// Config holds the application's configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Audit      AuditConfig      `mapstructure:"audit"`
	Kafka      KafkaConfig      `mapstructure:"kafka"`
	Assessment AssessmentConfig `mapstructure:"assessment"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	Log        LogConfig        `mapstructure:"log"`
	Tracing    TracingConfig    `mapstructure:"tracing"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	GRPCPort        int           `mapstructure:"grpc_port"`
	Environment     string        `mapstructure:"environment"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
}

// HTTPAddr returns the listen address of the HTTP server.
func (c *ServerConfig) HTTPAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// GRPCAddr returns the listen address of the gRPC server.
func (c *ServerConfig) GRPCAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.GRPCPort)
}

// IsProduction reports whether the server runs in the production environment.
func (c *ServerConfig) IsProduction() bool {
	return c.Environment == "production"
}

// StorageConfig selects where tenant configurations and datasets are read from.
type StorageConfig struct {
	Backend   string `mapstructure:"backend"`
	ConfigDir string `mapstructure:"config_dir"`
	DataDir   string `mapstructure:"data_dir"`
	Watch     bool   `mapstructure:"watch"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	SQLitePath      string        `mapstructure:"sqlite_path"`
	MaxConns        int           `mapstructure:"max_conns"`
	MinConns        int           `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// GetDSN returns the PostgreSQL connection string.
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// GetURL returns the PostgreSQL connection URL understood by pgxpool.
func (c *DatabaseConfig) GetURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode)
}

type RedisConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Address      string        `mapstructure:"address"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
}

// CacheConfig controls the tenant snapshot cache placed in front of the repository.
type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	L1TTL   time.Duration `mapstructure:"l1_ttl"`
	L2TTL   time.Duration `mapstructure:"l2_ttl"`
}

// AuditConfig controls the audit dispatcher and its sinks.
type AuditConfig struct {
	Sinks      []string `mapstructure:"sinks"`
	RingSize   int      `mapstructure:"ring_size"`
	BufferSize int      `mapstructure:"buffer_size"`
	Workers    int      `mapstructure:"workers"`
	HMACSecret string   `mapstructure:"hmac_secret"`
}

// HasSink reports whether the named sink is enabled.
func (c *AuditConfig) HasSink(name string) bool {
	for _, s := range c.Sinks {
		if s == name {
			return true
		}
	}
	return false
}

type KafkaConfig struct {
	Brokers      []string      `mapstructure:"brokers"`
	Topic        string        `mapstructure:"topic"`
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
}

// AssessmentConfig tunes the assessment orchestrator.
type AssessmentConfig struct {
	ResolveTimeout   time.Duration `mapstructure:"resolve_timeout"`
	BatchConcurrency int           `mapstructure:"batch_concurrency"`
	MaxBatchSize     int           `mapstructure:"max_batch_size"`
}

type RateLimitConfig struct {
	Enabled    bool `mapstructure:"enabled"`
	DefaultRPM int  `mapstructure:"default_rpm"`
	BurstSize  int  `mapstructure:"burst_size"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

type TracingConfig struct {
	Enabled      bool    `mapstructure:"enabled"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	ServiceName  string  `mapstructure:"service_name"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
	Insecure     bool    `mapstructure:"insecure"`
}

// Validate checks for essential configuration values.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Server.GRPCPort < 0 || c.Server.GRPCPort > 65535 {
		return fmt.Errorf("server.grpc_port out of range: %d", c.Server.GRPCPort)
	}

	switch c.Storage.Backend {
	case StorageFile:
		if c.Storage.ConfigDir == "" || c.Storage.DataDir == "" {
			return fmt.Errorf("storage.config_dir and storage.data_dir are required for the file backend")
		}
	case StoragePostgres, StorageSQLite:
	default:
		return fmt.Errorf("unknown storage.backend %q", c.Storage.Backend)
	}

	for _, sink := range c.Audit.Sinks {
		switch sink {
		case SinkMemory, SinkRedis, SinkPostgres, SinkKafka:
		default:
			return fmt.Errorf("unknown audit sink %q", sink)
		}
	}
	if c.Audit.RingSize <= 0 {
		return fmt.Errorf("audit.ring_size must be positive")
	}
	if c.Audit.HasSink(SinkKafka) && (len(c.Kafka.Brokers) == 0 || c.Kafka.Topic == "") {
		return fmt.Errorf("kafka.brokers and kafka.topic are required by the kafka audit sink")
	}
	if c.Audit.HasSink(SinkRedis) && !c.Redis.Enabled {
		return fmt.Errorf("the redis audit sink requires redis.enabled")
	}
	if c.Cache.Enabled && !c.Redis.Enabled {
		return fmt.Errorf("cache.enabled requires redis.enabled")
	}

	if c.Assessment.ResolveTimeout <= 0 {
		return fmt.Errorf("assessment.resolve_timeout must be positive")
	}
	if c.Assessment.BatchConcurrency <= 0 || c.Assessment.MaxBatchSize <= 0 {
		return fmt.Errorf("assessment.batch_concurrency and assessment.max_batch_size must be positive")
	}

	if c.RateLimit.Enabled && (c.RateLimit.DefaultRPM <= 0 || c.RateLimit.BurstSize <= 0) {
		return fmt.Errorf("rate_limit.default_rpm and rate_limit.burst_size must be positive")
	}

	if c.Tracing.Enabled && c.Tracing.OTLPEndpoint == "" {
		return fmt.Errorf("tracing.otlp_endpoint is required when tracing is enabled")
	}
	return nil
}
