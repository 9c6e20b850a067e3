// Package domain defines the core interfaces and types for Heron.
package domain

import (
	"context"
	"time"
)

// Repository defines the interface for data persistence.
// Practice records are stored as whole lists under fixed keys.
type Repository interface {
	// Practice records
	GetPatients(ctx context.Context) ([]Patient, error)
	SavePatients(ctx context.Context, patients []Patient) error
	GetAppointments(ctx context.Context) ([]Appointment, error)
	SaveAppointments(ctx context.Context, appointments []Appointment) error
	GetPrescriptions(ctx context.Context) ([]Prescription, error)
	SavePrescriptions(ctx context.Context, prescriptions []Prescription) error

	// Settings are merged over DefaultSettings on read
	GetSettings(ctx context.Context) (*Settings, error)
	SaveSettings(ctx context.Context, settings *Settings) error

	// Backup and restore
	BackupAllData(ctx context.Context) (*Backup, error)
	RestoreAllData(ctx context.Context, backup *Backup) error

	// Clinical rule configuration
	SaveClinicalRule(ctx context.Context, rule *ClinicalRule) error
	GetClinicalRule(ctx context.Context, ruleID string) (*ClinicalRule, error)
	ListClinicalRules(ctx context.Context) ([]*ClinicalRule, error)
	DeleteClinicalRule(ctx context.Context, ruleID string) error

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	// Driver is the database driver: "sqlite" or "postgres"
	Driver string `mapstructure:"driver"`

	// SQLite specific
	SQLitePath string `mapstructure:"sqlite_path"`

	// PostgreSQL specific
	PostgresHost     string `mapstructure:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password"`
	PostgresDB       string `mapstructure:"postgres_db"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode"`

	// Connection pool settings
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}
