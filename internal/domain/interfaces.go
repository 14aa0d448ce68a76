package domain

import (
	"context"
	"time"
)

// MedicationCatalog is the read-only source of medication reference records.
type MedicationCatalog interface {
	Get(id string) (*MedicationRecord, error)
	List() []MedicationRecord
	Version() string
}

// ResultCache stores evaluation results keyed by a content hash.
type ResultCache interface {
	Get(ctx context.Context, key string) (*NetBenefitResult, bool)
	Set(ctx context.Context, key string, result *NetBenefitResult, ttl time.Duration) error
	Close() error
}

// ConfigManager defines the interface for configuration management
type ConfigManager interface {
	GetConfig() *Config
	GetServerConfig() *ServerConfig
	Reload() error
	Validate() error
	IsProduction() bool
	IsDevelopment() bool
}
