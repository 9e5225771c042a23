// Package config loads and validates the service configuration from an
// optional YAML file plus environment overlays.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/scansage/scansage/internal/audit"
	"github.com/scansage/scansage/internal/errors"
	"github.com/scansage/scansage/internal/ingest"
	"github.com/scansage/scansage/internal/logging"
)

// Environment variables overlaid onto file settings. Environment values
// always win over file values.
const (
	EnvAuditDir      = "SCANSAGE_AUDIT_DIR"
	EnvAuditMaxBytes = "SCANSAGE_AUDIT_MAX_BYTES"
)

// Config represents the complete service configuration
type Config struct {
	// HTTP server configuration
	Server ServerConfig `yaml:"server" json:"server"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`

	// Record storage configuration
	Storage StorageConfig `yaml:"storage" json:"storage"`

	// Cap audit trail configuration
	Audit AuditConfig `yaml:"audit" json:"audit"`

	// Ingestion behavior configuration
	Ingest IngestConfig `yaml:"ingest" json:"ingest"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	// Listen address
	ListenAddr string `yaml:"listen_addr" json:"listen_addr"`

	// Listen port
	Port int `yaml:"port" json:"port"`

	// Request timeout
	RequestTimeout time.Duration `yaml:"request_timeout" json:"request_timeout"`

	// Maximum request body size in bytes. This is a transport guard and
	// sits above the ingestion payload ceiling so the payload limit is
	// what callers observe.
	MaxRequestSize int64 `yaml:"max_request_size" json:"max_request_size"`

	// Rate limiting
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// CORS settings
	CORS CORSConfig `yaml:"cors" json:"cors"`
}

// RateLimitConfig holds rate limiting settings
type RateLimitConfig struct {
	// Enable rate limiting
	Enabled bool `yaml:"enabled" json:"enabled"`

	// Requests per second
	RequestsPerSecond int `yaml:"requests_per_second" json:"requests_per_second"`

	// Burst size
	BurstSize int `yaml:"burst_size" json:"burst_size"`
}

// CORSConfig holds CORS settings
type CORSConfig struct {
	// Enable CORS
	Enabled bool `yaml:"enabled" json:"enabled"`

	// Allowed origins
	AllowedOrigins []string `yaml:"allowed_origins" json:"allowed_origins"`

	// Allowed methods
	AllowedMethods []string `yaml:"allowed_methods" json:"allowed_methods"`

	// Allowed headers
	AllowedHeaders []string `yaml:"allowed_headers" json:"allowed_headers"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	// Log level (debug, info, warn, error)
	Level string `yaml:"level" json:"level"`

	// Log format (text, json)
	Format string `yaml:"format" json:"format"`

	// Log output (stdout, stderr, file path)
	Output string `yaml:"output" json:"output"`

	// Enable request logging for the API
	RequestLogging bool `yaml:"request_logging" json:"request_logging"`
}

// StorageConfig holds ingestion record storage settings
type StorageConfig struct {
	// Directory for the durable record file
	Directory string `yaml:"directory" json:"directory"`
}

// AuditConfig holds cap audit trail settings
type AuditConfig struct {
	// Directory for the audit file; empty falls back to the storage
	// directory
	Directory string `yaml:"directory" json:"directory"`

	// Rotation threshold in bytes; zero or negative disables rotation
	MaxBytes int64 `yaml:"max_bytes" json:"max_bytes"`

	// Minimum interval between repeated sink failure warnings
	WarnInterval time.Duration `yaml:"warn_interval" json:"warn_interval"`
}

// IngestConfig holds ingestion behavior settings
type IngestConfig struct {
	// Opt in to the real minimal parser without a per-request override
	LabMode bool `yaml:"lab_mode" json:"lab_mode"`

	// Default parser selection (safe_xml, real_minimal); empty keeps
	// the no-op default
	Parser string `yaml:"parser" json:"parser"`
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr:     "127.0.0.1",
			Port:           8080,
			RequestTimeout: 30 * time.Second,
			MaxRequestSize: 4 * 1024 * 1024, // 4MB
			RateLimit: RateLimitConfig{
				Enabled:           true,
				RequestsPerSecond: 100,
				BurstSize:         200,
			},
			CORS: CORSConfig{
				Enabled:        true,
				AllowedOrigins: []string{"*"},
				AllowedMethods: []string{"GET", "POST", "OPTIONS"},
				AllowedHeaders: []string{"Content-Type", "X-Request-ID"},
			},
		},
		Logging: LoggingConfig{
			Level:          "info",
			Format:         "text",
			Output:         "stdout",
			RequestLogging: true,
		},
		Storage: StorageConfig{
			Directory: "state/public",
		},
		Audit: AuditConfig{
			Directory:    "",
			MaxBytes:     audit.DefaultMaxBytes,
			WarnInterval: audit.DefaultWarnInterval,
		},
		Ingest: IngestConfig{
			LabMode: false,
			Parser:  "",
		},
	}
}

// Load loads configuration from a file. A missing file yields defaults;
// environment overlays apply either way.
func Load(path string) (*Config, error) {
	config := Default()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		config.ApplyEnv(nil)
		return config, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.ApplyEnv(nil)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// Save saves configuration to a file
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ApplyEnv overlays environment settings onto the configuration. Lookup
// may be nil to read the process environment. A malformed audit byte
// limit falls back to the default rather than failing startup.
func (c *Config) ApplyEnv(lookup func(key string) (string, bool)) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if raw, ok := lookup(EnvAuditDir); ok {
		if dir := strings.TrimSpace(raw); dir != "" {
			c.Audit.Directory = dir
		}
	}
	if raw, ok := lookup(EnvAuditMaxBytes); ok {
		c.Audit.MaxBytes = parseAuditMaxBytes(raw)
	}
}

// parseAuditMaxBytes interprets the rotation threshold override. Unusable
// values select the default; explicit zero or negative disables rotation.
func parseAuditMaxBytes(raw string) int64 {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return audit.DefaultMaxBytes
	}
	parsed, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil {
		return audit.DefaultMaxBytes
	}
	if parsed <= 0 {
		return 0
	}
	return parsed
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.ListenAddr == "" {
		return errors.NewConfigFieldError(errors.CodeConfiguration,
			"listen address is required", "server.listen_addr", c.Server.ListenAddr)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return errors.NewConfigFieldError(errors.CodeConfiguration,
			"port must be between 1 and 65535", "server.port", c.Server.Port)
	}
	if c.Server.RequestTimeout <= 0 {
		return errors.NewConfigFieldError(errors.CodeConfiguration,
			"request timeout must be positive", "server.request_timeout", c.Server.RequestTimeout)
	}
	if c.Server.MaxRequestSize <= 0 {
		return errors.NewConfigFieldError(errors.CodeConfiguration,
			"max request size must be positive", "server.max_request_size", c.Server.MaxRequestSize)
	}
	if c.Server.RateLimit.Enabled {
		if c.Server.RateLimit.RequestsPerSecond <= 0 {
			return errors.NewConfigFieldError(errors.CodeConfiguration,
				"requests per second must be positive", "server.rate_limit.requests_per_second",
				c.Server.RateLimit.RequestsPerSecond)
		}
		if c.Server.RateLimit.BurstSize <= 0 {
			return errors.NewConfigFieldError(errors.CodeConfiguration,
				"burst size must be positive", "server.rate_limit.burst_size",
				c.Server.RateLimit.BurstSize)
		}
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.Logging.Level] {
		return errors.NewConfigFieldError(errors.CodeConfiguration,
			"invalid log level", "logging.level", c.Logging.Level)
	}

	validLogFormats := map[string]bool{
		"text": true,
		"json": true,
	}
	if !validLogFormats[c.Logging.Format] {
		return errors.NewConfigFieldError(errors.CodeConfiguration,
			"invalid log format", "logging.format", c.Logging.Format)
	}

	if c.Storage.Directory == "" {
		return errors.NewConfigFieldError(errors.CodeConfiguration,
			"storage directory is required", "storage.directory", c.Storage.Directory)
	}
	if c.Audit.WarnInterval < 0 {
		return errors.NewConfigFieldError(errors.CodeConfiguration,
			"warn interval cannot be negative", "audit.warn_interval", c.Audit.WarnInterval)
	}

	validParsers := map[string]bool{
		"":                       true,
		ingest.ParserSafeXML:     true,
		ingest.ParserRealMinimal: true,
	}
	if !validParsers[c.Ingest.Parser] {
		return errors.NewConfigFieldError(errors.CodeConfiguration,
			"unknown parser selection", "ingest.parser", c.Ingest.Parser)
	}

	return nil
}

// GetServerAddress returns the full listen address
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.ListenAddr, c.Server.Port)
}

// GetLoggingConfig returns the logging settings in logger form
func (c *Config) GetLoggingConfig() logging.Config {
	return logging.Config{
		Level:  logging.LogLevel(c.Logging.Level),
		Format: logging.LogFormat(c.Logging.Format),
		Output: c.Logging.Output,
	}
}

// GetAuditConfig returns the audit sink settings. An unset audit
// directory falls back to the storage directory.
func (c *Config) GetAuditConfig() audit.Config {
	dir := c.Audit.Directory
	if dir == "" {
		dir = c.Storage.Directory
	}
	return audit.Config{
		Directory:    dir,
		MaxBytes:     c.Audit.MaxBytes,
		WarnInterval: c.Audit.WarnInterval,
	}
}

// GetIngestLookup returns the setting lookup used for per-request limit
// and parser resolution. Environment values win; file settings fill in
// the parser selection and lab flag when the environment leaves them
// unset.
func (c *Config) GetIngestLookup() func(key string) (string, bool) {
	parser := c.Ingest.Parser
	labMode := c.Ingest.LabMode
	return func(key string) (string, bool) {
		if value, ok := os.LookupEnv(key); ok {
			return value, ok
		}
		switch key {
		case ingest.EnvParserOverride:
			if parser != "" {
				return parser, true
			}
		case ingest.EnvAuthorizedLab:
			if labMode {
				return "true", true
			}
		}
		return "", false
	}
}
