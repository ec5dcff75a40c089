// Package config handles configuration for redfishd. Values come from
// environment variables with sensible defaults; an optional YAML file
// (REDFISH_CONFIG_FILE) supplies defaults that the environment overrides.
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete redfishd configuration.
type Config struct {
	Server ServerConfig
	TLS    TLSConfig
	Auth   AuthConfig
}

// ServerConfig contains settings for the plain-HTTP listener.
type ServerConfig struct {
	Host           string
	Port           int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int
}

// TLSConfig contains settings for the TLS listener. The TLS listener
// always requires authentication; the plain listener never does.
type TLSConfig struct {
	Enabled  bool
	Port     int
	CertFile string
	KeyFile  string
}

// AuthConfig contains authentication settings.
type AuthConfig struct {
	DefaultUsername string
	DefaultPassword string
	SessionTimeout  time.Duration
}

// Load reads configuration from the optional YAML file and environment
// variables, environment taking precedence.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           3000,
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   30 * time.Second,
			IdleTimeout:    60 * time.Second,
			MaxHeaderBytes: 1048576, // 1MB
		},
		TLS: TLSConfig{
			Enabled: false,
			Port:    3443,
		},
		Auth: AuthConfig{
			DefaultUsername: "root",
			DefaultPassword: "root",
			SessionTimeout:  30 * time.Minute,
		},
	}

	// YAML file provides defaults below the environment
	if path := os.Getenv("REDFISH_CONFIG_FILE"); path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
		log.Printf("Loaded configuration file: %s", path)
	}

	cfg.Server.Host = getEnv("REDFISH_SERVER_HOST", cfg.Server.Host)
	cfg.Server.Port = getEnvInt("REDFISH_SERVER_PORT", cfg.Server.Port)
	cfg.Server.ReadTimeout = getEnvDuration("REDFISH_SERVER_READ_TIMEOUT", cfg.Server.ReadTimeout)
	cfg.Server.WriteTimeout = getEnvDuration("REDFISH_SERVER_WRITE_TIMEOUT", cfg.Server.WriteTimeout)
	cfg.Server.IdleTimeout = getEnvDuration("REDFISH_SERVER_IDLE_TIMEOUT", cfg.Server.IdleTimeout)
	cfg.Server.MaxHeaderBytes = getEnvInt("REDFISH_SERVER_MAX_HEADER_BYTES", cfg.Server.MaxHeaderBytes)

	cfg.TLS.Enabled = getEnvBool("REDFISH_TLS_ENABLED", cfg.TLS.Enabled)
	cfg.TLS.Port = getEnvInt("REDFISH_TLS_PORT", cfg.TLS.Port)
	cfg.TLS.CertFile = getEnv("REDFISH_TLS_CERT_FILE", cfg.TLS.CertFile)
	cfg.TLS.KeyFile = getEnv("REDFISH_TLS_KEY_FILE", cfg.TLS.KeyFile)

	cfg.Auth.DefaultUsername = getEnv("REDFISH_AUTH_USERNAME", cfg.Auth.DefaultUsername)
	cfg.Auth.DefaultPassword = getEnv("REDFISH_AUTH_PASSWORD", cfg.Auth.DefaultPassword)
	cfg.Auth.SessionTimeout = getEnvDuration("REDFISH_AUTH_SESSION_TIMEOUT", cfg.Auth.SessionTimeout)

	// Validate configuration
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// Log loaded configuration (never credentials)
	log.Printf("Configuration loaded:")
	log.Printf("  HTTP listener: %s:%d", cfg.Server.Host, cfg.Server.Port)
	if cfg.TLS.Enabled {
		log.Printf("  TLS listener: %s:%d", cfg.Server.Host, cfg.TLS.Port)
	}

	return cfg, nil
}

// fileConfig mirrors Config for YAML decoding. Durations are strings in
// the file ("30s", "5m") and parsed here.
type fileConfig struct {
	Server struct {
		Host           string `yaml:"host"`
		Port           int    `yaml:"port"`
		ReadTimeout    string `yaml:"read_timeout"`
		WriteTimeout   string `yaml:"write_timeout"`
		IdleTimeout    string `yaml:"idle_timeout"`
		MaxHeaderBytes int    `yaml:"max_header_bytes"`
	} `yaml:"server"`
	TLS struct {
		Enabled  *bool  `yaml:"enabled"`
		Port     int    `yaml:"port"`
		CertFile string `yaml:"cert_file"`
		KeyFile  string `yaml:"key_file"`
	} `yaml:"tls"`
	Auth struct {
		DefaultUsername string `yaml:"default_username"`
		DefaultPassword string `yaml:"default_password"`
		SessionTimeout  string `yaml:"session_timeout"`
	} `yaml:"auth"`
}

// loadFile overlays YAML file contents onto cfg. Absent keys leave the
// existing value in place.
func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return err
	}

	if fc.Server.Host != "" {
		cfg.Server.Host = fc.Server.Host
	}
	if fc.Server.Port != 0 {
		cfg.Server.Port = fc.Server.Port
	}
	if err := overlayDuration(&cfg.Server.ReadTimeout, fc.Server.ReadTimeout); err != nil {
		return fmt.Errorf("server.read_timeout: %w", err)
	}
	if err := overlayDuration(&cfg.Server.WriteTimeout, fc.Server.WriteTimeout); err != nil {
		return fmt.Errorf("server.write_timeout: %w", err)
	}
	if err := overlayDuration(&cfg.Server.IdleTimeout, fc.Server.IdleTimeout); err != nil {
		return fmt.Errorf("server.idle_timeout: %w", err)
	}
	if fc.Server.MaxHeaderBytes != 0 {
		cfg.Server.MaxHeaderBytes = fc.Server.MaxHeaderBytes
	}

	if fc.TLS.Enabled != nil {
		cfg.TLS.Enabled = *fc.TLS.Enabled
	}
	if fc.TLS.Port != 0 {
		cfg.TLS.Port = fc.TLS.Port
	}
	if fc.TLS.CertFile != "" {
		cfg.TLS.CertFile = fc.TLS.CertFile
	}
	if fc.TLS.KeyFile != "" {
		cfg.TLS.KeyFile = fc.TLS.KeyFile
	}

	if fc.Auth.DefaultUsername != "" {
		cfg.Auth.DefaultUsername = fc.Auth.DefaultUsername
	}
	if fc.Auth.DefaultPassword != "" {
		cfg.Auth.DefaultPassword = fc.Auth.DefaultPassword
	}
	if err := overlayDuration(&cfg.Auth.SessionTimeout, fc.Auth.SessionTimeout); err != nil {
		return fmt.Errorf("auth.session_timeout: %w", err)
	}

	return nil
}

// overlayDuration parses a duration string into dst when the string is set.
func overlayDuration(dst *time.Duration, value string) error {
	if value == "" {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return err
	}
	*dst = d
	return nil
}

// validate checks if the configuration is valid.
func validate(cfg *Config) error {
	// Validate server port
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be 1-65535)", cfg.Server.Port)
	}

	// Validate timeouts
	if cfg.Server.ReadTimeout <= 0 {
		return fmt.Errorf("invalid read timeout: %v (must be positive)", cfg.Server.ReadTimeout)
	}
	if cfg.Server.WriteTimeout <= 0 {
		return fmt.Errorf("invalid write timeout: %v (must be positive)", cfg.Server.WriteTimeout)
	}

	if cfg.TLS.Enabled {
		if cfg.TLS.Port < 1 || cfg.TLS.Port > 65535 {
			return fmt.Errorf("invalid TLS port: %d (must be 1-65535)", cfg.TLS.Port)
		}
		if cfg.TLS.Port == cfg.Server.Port {
			return fmt.Errorf("TLS port %d conflicts with server port", cfg.TLS.Port)
		}
		if cfg.TLS.CertFile == "" || cfg.TLS.KeyFile == "" {
			return fmt.Errorf("TLS enabled but cert_file/key_file not set")
		}
	}

	if cfg.Auth.SessionTimeout <= 0 {
		return fmt.Errorf("invalid session timeout: %v (must be positive)", cfg.Auth.SessionTimeout)
	}

	return nil
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns a default value.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
		log.Printf("Warning: invalid integer value for %s: %s, using default: %d", key, value, defaultValue)
	}
	return defaultValue
}

// getEnvBool retrieves a boolean environment variable or returns a default value.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
		log.Printf("Warning: invalid boolean value for %s: %s, using default: %v", key, value, defaultValue)
	}
	return defaultValue
}

// getEnvDuration retrieves a duration environment variable or returns a default value.
// Accepts values like "30s", "5m", "1h"
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		log.Printf("Warning: invalid duration value for %s: %s, using default: %v", key, value, defaultValue)
	}
	return defaultValue
}

// GetLogLevel returns the configured log level.
func GetLogLevel() string {
	return getEnv("REDFISH_LOG_LEVEL", "info")
}

// IsDebugMode returns true if debug mode is enabled.
func IsDebugMode() bool {
	return GetLogLevel() == "debug"
}
