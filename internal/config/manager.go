// Package config loads SkillMeat's layered configuration: built-in
// defaults, then a YAML config file, then environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration object.
type Config struct {
	Collection CollectionConfig `yaml:"collection"`
	Store      StoreConfig      `yaml:"store"`
	Logging    LoggingConfig    `yaml:"logging"`
	Deploy     DeployConfig     `yaml:"deploy"`
	Memory     MemoryConfig     `yaml:"memory"`
	Context    ContextConfig    `yaml:"context"`
	Server     ServerConfig     `yaml:"server"`
	Features   FeatureConfig    `yaml:"features"`
}

// CollectionConfig locates the local collection root.
type CollectionConfig struct {
	Root string `yaml:"root"`
}

// StoreConfig configures the relational store (C1).
type StoreConfig struct {
	Driver      string        `yaml:"driver"`
	DSN         string        `yaml:"dsn"`
	MaxRetries  int           `yaml:"max_retries"`
	RetryDelay  time.Duration `yaml:"retry_delay"`
	MaxOpenConn int           `yaml:"max_open_conn"`
	MaxIdleConn int           `yaml:"max_idle_conn"`
}

// LoggingConfig mirrors logger.Config for file-based overrides.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	Output     string `yaml:"output"`
	TimeFormat string `yaml:"time_format"`
	Caller     bool   `yaml:"caller"`
}

// DeployConfig maps deployment profiles to project-relative paths,
// e.g. claude-code -> ".claude". It is loaded, saved and overridable
// from the environment, but no component reads it: Workers does not
// size any worker pool.
type DeployConfig struct {
	Profiles        map[string]string `yaml:"profiles"`
	Workers         int               `yaml:"workers"`
	DefaultProfile  string            `yaml:"default_profile"`
	AutoSnapshot    bool              `yaml:"auto_snapshot"`
}

// MemoryConfig holds settings for the memory extractor (C8). It is
// loaded and saved, but the extractor does not read it.
type MemoryConfig struct {
	MaxContentChars   int     `yaml:"max_content_chars"`
	DedupThreshold    float64 `yaml:"dedup_threshold"`
	MinConfidence     float64 `yaml:"min_confidence"`
	ClassifyRateLimit float64 `yaml:"classify_rate_limit"`
}

// ContextConfig holds settings for the context packer (C9). It is
// loaded and saved, but the packer does not read it.
type ContextConfig struct {
	DefaultTokenBudget int `yaml:"default_token_budget"`
	CharsPerToken      int `yaml:"chars_per_token"`
}

// ServerConfig configures the optional HTTP surface.
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	CORSOrigins  []string      `yaml:"cors_origins"`
}

// FeatureConfig holds on/off switches for optional behavior. They are
// loaded and saved, but nothing checks them: no feature is turned off
// by them and nothing returns a FeatureDisabled error.
type FeatureConfig struct {
	EnableMemoryExtraction bool `yaml:"enable_memory_extraction"`
	EnableMarketplaceSync  bool `yaml:"enable_marketplace_sync"`
	EnableWatch            bool `yaml:"enable_watch"`
}

func defaults() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		Collection: CollectionConfig{Root: filepath.Join(home, ".skillmeat", "collection")},
		Store: StoreConfig{
			Driver:      "sqlite3",
			DSN:         filepath.Join(home, ".skillmeat", "skillmeat.db"),
			MaxRetries:  3,
			RetryDelay:  200 * time.Millisecond,
			MaxOpenConn: 8,
			MaxIdleConn: 4,
		},
		Logging: LoggingConfig{Level: "info", Format: "json", Output: "stdout", TimeFormat: time.RFC3339, Caller: false},
		Deploy: DeployConfig{
			Profiles:       map[string]string{"claude-code": ".claude", "cursor": ".cursor"},
			Workers:        4,
			DefaultProfile: "claude-code",
			AutoSnapshot:   true,
		},
		Memory: MemoryConfig{
			MaxContentChars:   2000,
			DedupThreshold:    0.85,
			MinConfidence:     0.4,
			ClassifyRateLimit: 2.0,
		},
		Context: ContextConfig{DefaultTokenBudget: 8000, CharsPerToken: 4},
		Server:  ServerConfig{Host: "127.0.0.1", Port: 8787, ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second},
		Features: FeatureConfig{
			EnableMemoryExtraction: true,
			EnableMarketplaceSync:  true,
			EnableWatch:            true,
		},
	}
}

// Manager loads, holds, and persists the effective configuration.
type Manager struct {
	config     *Config
	configPath string
}

func NewManager() *Manager {
	return &Manager{config: defaults()}
}

// Load reads configPath if present, merges it over defaults, then
// applies SKILLMEAT_* environment overrides. A missing file is not an
// error: defaults plus env overrides are a valid configuration.
func (m *Manager) Load(configPath string) error {
	m.configPath = configPath
	cfg := defaults()

	if configPath != "" {
		if data, err := os.ReadFile(configPath); err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return fmt.Errorf("parse config %s: %w", configPath, err)
			}
		} else if !os.IsNotExist(err) {
			return fmt.Errorf("read config %s: %w", configPath, err)
		}
	}

	applyEnvOverrides(cfg)
	m.config = cfg
	return nil
}

func (m *Manager) Config() *Config { return m.config }

// Save writes the effective configuration back to configPath.
func (m *Manager) Save() error {
	if m.configPath == "" {
		return fmt.Errorf("no config path set")
	}
	if err := os.MkdirAll(filepath.Dir(m.configPath), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(m.config)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(m.configPath, data, 0o644)
}

// applyEnvOverrides walks a small fixed set of SKILLMEAT_* variables.
// Kept explicit rather than reflection-driven so every override is
// greppable.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SKILLMEAT_COLLECTION_ROOT"); v != "" {
		cfg.Collection.Root = v
	}
	if v := os.Getenv("SKILLMEAT_STORE_DSN"); v != "" {
		cfg.Store.DSN = v
	}
	if v := os.Getenv("SKILLMEAT_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("SKILLMEAT_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("SKILLMEAT_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("SKILLMEAT_CORS_ORIGINS"); v != "" {
		cfg.Server.CORSOrigins = strings.Split(v, ",")
	}
	if v := os.Getenv("SKILLMEAT_DEFAULT_PROFILE"); v != "" {
		cfg.Deploy.DefaultProfile = v
	}
}
