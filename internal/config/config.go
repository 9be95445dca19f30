// Package config loads the JSON configuration surface (SPEC_FULL.md §6.3),
// following the teacher's config.LoadConfig pattern: read a JSON file into a
// struct, silently fall back to defaults when the file is absent.
package config

import (
	"encoding/json"
	"os"
)

// Config is the root configuration document.
type Config struct {
	Server         ServerConfig         `json:"server"`
	Repository     RepositoryConfig     `json:"repository"`
	Email          EmailConfig          `json:"email"`
	Scheduler      SchedulerConfig      `json:"scheduler"`
	Queue          QueueConfig          `json:"queue"`
	CustomDetection CustomDetectionConfig `json:"customDetection"`
	EncryptionKey  string               `json:"encryption_key"`
	Tenants        []TenantConfig       `json:"tenants"`
}

type ServerConfig struct {
	Port string `json:"port"`
	Mode string `json:"mode"` // debug, release
}

// RepositoryConfig describes how to reach the Central Repository's own
// storage (the analytical schema), as distinct from the many monitored
// target databases it stores snapshots about.
type RepositoryConfig struct {
	Type     string `json:"type"` // mysql, postgres
	Host     string `json:"host"`
	Port     string `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"dbname"`
}

type EmailConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	From     string `json:"from"`
}

// SchedulerConfig is §6.3's scheduler.* surface.
type SchedulerConfig struct {
	IntervalMinutes          int  `json:"intervalMinutes"`
	MaxParallelTenants       int  `json:"maxParallelTenants"`
	ConnectionTimeoutSeconds int  `json:"connectionTimeoutSeconds"`
	RunOnStartup             bool `json:"runOnStartup"`
}

// QueueConfig is §6.3's queue.* surface.
type QueueConfig struct {
	Capacity int `json:"capacity"`
}

// CustomDetectionConfig is §6.3's customDetection.* surface.
type CustomDetectionConfig struct {
	ByConvention bool `json:"byConvention"`
}

// TenantConfig is the tenant/environment registry the Scanner needs as a
// concrete source of "all tenants x environments" — spec.md leaves
// tenancy management external, so this is the thin loader this
// implementation supplies (SPEC_FULL.md §2.3).
type TenantConfig struct {
	ID            uint                     `json:"id"`
	Code          string                   `json:"code"`
	Name          string                   `json:"name"`
	CustomObjects []string                 `json:"custom_objects"`
	Environments  map[string]ConnConfig    `json:"environments"`
}

// ConnConfig is one environment's connection descriptor, with an opaque
// (possibly still-encrypted) password, mirroring the teacher's
// DatabaseConnection shape.
type ConnConfig struct {
	Type     string `json:"type"`
	Host     string `json:"host"`
	Port     string `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	Database string `json:"database"`
}

// Default returns the built-in defaults applied when no config file is
// present, matching the documented defaults in SPEC_FULL.md §6.3.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Port: "8080", Mode: "debug"},
		Repository: RepositoryConfig{
			Type: "postgres", Host: "localhost", Port: "5432",
			User: "postgres", Password: "postgres", DBName: "snapshot_engine",
		},
		Scheduler: SchedulerConfig{
			IntervalMinutes:          360,
			MaxParallelTenants:       5,
			ConnectionTimeoutSeconds: 30,
			RunOnStartup:             true,
		},
		Queue:           QueueConfig{Capacity: 10},
		CustomDetection: CustomDetectionConfig{ByConvention: true},
	}
}

// Load reads path as JSON into a Config. A missing file is not an error:
// the caller gets Default() instead, exactly as the teacher's
// config.LoadConfig treats a missing config.json.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Default(), nil
	}

	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
