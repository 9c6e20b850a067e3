// Package config loads Heron configuration with viper.
//
// Values are layered: tier defaults, then an optional YAML or .env file,
// then HERON_* environment variables. Nested keys map to env names by
// replacing "." with "_", so cache.redis_addr is HERON_CACHE_REDIS_ADDR.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/opensource-health/heron/internal/domain"
)

// EnvPrefix is prepended to every environment override.
const EnvPrefix = "HERON"

// Load builds the configuration. path may be empty, in which case
// ./heron.yaml and /etc/heron/heron.yaml are tried and their absence is
// not an error.
func Load(path string) (*domain.Config, error) {
	v := viper.New()

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("heron")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/heron/")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	// The tier picks the defaults, so it is read before they are set.
	base := domain.DefaultConfig()
	if domain.Tier(strings.ToLower(v.GetString("tier"))) == domain.TierPro {
		base = domain.ProConfig()
	}
	setDefaults(v, base)

	cfg := &domain.Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setDefaults registers every key so env-only overrides are unmarshaled.
func setDefaults(v *viper.Viper, c *domain.Config) {
	v.SetDefault("tier", string(c.Tier))

	v.SetDefault("server.host", c.Server.Host)
	v.SetDefault("server.port", c.Server.Port)
	v.SetDefault("server.read_timeout", c.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", c.Server.WriteTimeout)
	v.SetDefault("server.rate_limit_rps", c.Server.RateLimitRPS)
	v.SetDefault("server.rate_burst", c.Server.RateBurst)

	v.SetDefault("repository.driver", c.Repository.Driver)
	v.SetDefault("repository.sqlite_path", c.Repository.SQLitePath)
	v.SetDefault("repository.postgres_host", c.Repository.PostgresHost)
	v.SetDefault("repository.postgres_port", c.Repository.PostgresPort)
	v.SetDefault("repository.postgres_user", c.Repository.PostgresUser)
	v.SetDefault("repository.postgres_password", c.Repository.PostgresPassword)
	v.SetDefault("repository.postgres_db", c.Repository.PostgresDB)
	v.SetDefault("repository.postgres_ssl_mode", c.Repository.PostgresSSLMode)
	v.SetDefault("repository.max_open_conns", c.Repository.MaxOpenConns)
	v.SetDefault("repository.max_idle_conns", c.Repository.MaxIdleConns)
	v.SetDefault("repository.conn_max_lifetime", c.Repository.ConnMaxLifetime)

	v.SetDefault("cache.type", c.Cache.Type)
	v.SetDefault("cache.local_max_size", c.Cache.LocalMaxSize)
	v.SetDefault("cache.local_ttl", c.Cache.LocalTTL)
	v.SetDefault("cache.redis_addr", c.Cache.RedisAddr)
	v.SetDefault("cache.redis_password", c.Cache.RedisPassword)
	v.SetDefault("cache.redis_db", c.Cache.RedisDB)
	v.SetDefault("cache.enable_two_phase", c.Cache.EnableTwoPhase)

	v.SetDefault("event_bus.type", c.EventBus.Type)
	v.SetDefault("event_bus.channel_buffer_size", c.EventBus.ChannelBufferSize)
	v.SetDefault("event_bus.nats_url", c.EventBus.NATSUrl)
	v.SetDefault("event_bus.nats_token", c.EventBus.NATSToken)
	v.SetDefault("event_bus.nats_max_reconnects", c.EventBus.NATSMaxReconnects)
	v.SetDefault("event_bus.nats_reconnect_wait", c.EventBus.NATSReconnectWait)

	v.SetDefault("knowledge.catalog_path", c.Knowledge.CatalogPath)
	v.SetDefault("matching.min_score", c.Matching.MinScore)

	v.SetDefault("clinical.elderly_age", c.Clinical.ElderlyAge)
	v.SetDefault("clinical.elderly_systolic", c.Clinical.ElderlySystolic)
	v.SetDefault("clinical.elderly_diastolic", c.Clinical.ElderlyDiastolic)
	v.SetDefault("clinical.systolic", c.Clinical.Systolic)
	v.SetDefault("clinical.diastolic", c.Clinical.Diastolic)
	v.SetDefault("clinical.first_line_therapy", c.Clinical.FirstLineTherapy)
	v.SetDefault("clinical.mammogram_age", c.Clinical.MammogramAge)
	v.SetDefault("clinical.colonoscopy_age", c.Clinical.ColonoscopyAge)
	v.SetDefault("clinical.lipid_panel_age", c.Clinical.LipidPanelAge)
	v.SetDefault("clinical.blood_glucose_age", c.Clinical.BloodGlucoseAge)

	v.SetDefault("worker.enabled", c.Worker.Enabled)
	v.SetDefault("worker.concurrency", c.Worker.Concurrency)

	v.SetDefault("logging.level", c.Logging.Level)
	v.SetDefault("logging.format", c.Logging.Format)

	v.SetDefault("tracing.enabled", c.Tracing.Enabled)
	v.SetDefault("tracing.service_name", c.Tracing.ServiceName)
}

// Validate checks values that would otherwise fail late at startup.
func Validate(c *domain.Config) error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	switch c.Repository.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("invalid repository driver: %s", c.Repository.Driver)
	}

	if c.Matching.MinScore < 0 || c.Matching.MinScore > 100 {
		return fmt.Errorf("matching.min_score must be within 0..100, got %d", c.Matching.MinScore)
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	return nil
}
