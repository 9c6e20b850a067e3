package domain

import "time"

// Config holds the complete Heron configuration.
type Config struct {
	// Server settings
	Server ServerConfig `json:"server" mapstructure:"server"`

	// Tier selects the default backends
	Tier Tier `json:"tier" mapstructure:"tier"`

	// Component configurations
	Repository RepositoryConfig `json:"repository" mapstructure:"repository"`
	Cache      CacheConfig      `json:"cache" mapstructure:"cache"`
	EventBus   EventBusConfig   `json:"eventBus" mapstructure:"event_bus"`

	// Knowledge catalog and engine tuning
	Knowledge KnowledgeConfig    `json:"knowledge" mapstructure:"knowledge"`
	Matching  MatchingConfig     `json:"matching" mapstructure:"matching"`
	Clinical  ClinicalThresholds `json:"clinical" mapstructure:"clinical"`
	Worker    WorkerConfig       `json:"worker" mapstructure:"worker"`

	// Observability
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`
	Tracing TracingConfig `json:"tracing" mapstructure:"tracing"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string  `json:"host" mapstructure:"host"`
	Port         int     `json:"port" mapstructure:"port"`
	ReadTimeout  int     `json:"readTimeout" mapstructure:"read_timeout"`    // seconds
	WriteTimeout int     `json:"writeTimeout" mapstructure:"write_timeout"`  // seconds
	RateLimitRPS float64 `json:"rateLimitRps" mapstructure:"rate_limit_rps"` // 0 disables limiting
	RateBurst    int     `json:"rateBurst" mapstructure:"rate_burst"`
}

// KnowledgeConfig locates the static catalog.
type KnowledgeConfig struct {
	// CatalogPath is a YAML catalog file; empty uses the embedded catalog.
	CatalogPath string `json:"catalogPath" mapstructure:"catalog_path"`
}

// MatchingConfig tunes the symptom matcher.
type MatchingConfig struct {
	// MinScore is the exclusive lower bound for emitted findings.
	MinScore int `json:"minScore" mapstructure:"min_score"`
}

// WorkerConfig controls the bus consumer.
type WorkerConfig struct {
	Enabled     bool `json:"enabled" mapstructure:"enabled"`
	Concurrency int  `json:"concurrency" mapstructure:"concurrency"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `json:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `json:"format" mapstructure:"format"` // json, text
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled     bool   `json:"enabled" mapstructure:"enabled"`
	ServiceName string `json:"serviceName" mapstructure:"service_name"`
}

// Tier represents the deployment tier.
type Tier string

const (
	// TierCommunity runs on SQLite, an in-process bus and a local cache
	TierCommunity Tier = "community"

	// TierPro runs on PostgreSQL, NATS and Redis
	TierPro Tier = "pro"
)

// DefaultConfig returns a default configuration for Community tier.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30,
			WriteTimeout: 30,
			RateLimitRPS: 50,
			RateBurst:    100,
		},
		Tier: TierCommunity,
		Repository: RepositoryConfig{
			Driver:     "sqlite",
			SQLitePath: "./heron.db",
		},
		Cache: CacheConfig{
			Type:         "memory",
			LocalMaxSize: 10000,
			LocalTTL:     5 * time.Minute,
		},
		EventBus: EventBusConfig{
			Type:              "channel",
			ChannelBufferSize: 1000,
		},
		Matching: MatchingConfig{
			MinScore: 20,
		},
		Clinical: DefaultClinicalThresholds(),
		Worker: WorkerConfig{
			Enabled:     true,
			Concurrency: 4,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "heron",
		},
	}
}

// ProConfig returns a configuration for Pro tier.
func ProConfig() *Config {
	cfg := DefaultConfig()
	cfg.Tier = TierPro
	cfg.Repository = RepositoryConfig{
		Driver:          "postgres",
		PostgresHost:    "localhost",
		PostgresPort:    5432,
		PostgresDB:      "heron",
		PostgresSSLMode: "disable",
	}
	cfg.Cache = CacheConfig{
		Type:           "redis",
		RedisAddr:      "localhost:6379",
		EnableTwoPhase: true,
		LocalMaxSize:   1000,
		LocalTTL:       5 * time.Minute,
	}
	cfg.EventBus = EventBusConfig{
		Type:              "nats",
		NATSUrl:           "nats://localhost:4222",
		NATSMaxReconnects: 10,
		NATSReconnectWait: 5,
	}
	cfg.Tracing.Enabled = true
	return cfg
}
