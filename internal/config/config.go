// Package config loads the catalog server configuration from TOML or YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Store drivers.
const (
	DriverFile   = "file"
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

// Config is the top-level catalog.toml configuration.
type Config struct {
	Server ServerConfig `toml:"server" yaml:"server"`
	Store  StoreConfig  `toml:"store" yaml:"store"`
	Redis  RedisConfig  `toml:"redis" yaml:"redis"`
	Cache  CacheConfig  `toml:"cache" yaml:"cache"`
	Log    LogConfig    `toml:"log" yaml:"log"`
}

// ServerConfig controls the HTTP and gRPC listeners.
type ServerConfig struct {
	HTTPAddr               string `toml:"http_addr" yaml:"http_addr"`
	GRPCAddr               string `toml:"grpc_addr" yaml:"grpc_addr"` // empty disables gRPC
	CORSOrigin             string `toml:"cors_origin" yaml:"cors_origin"`
	ShutdownTimeoutSeconds int    `toml:"shutdown_timeout_seconds" yaml:"shutdown_timeout_seconds"`
}

// StoreConfig locates the item store. Path is always the JSON file the
// stats are computed from; Driver selects where item listings are served
// from.
type StoreConfig struct {
	Path   string `toml:"path" yaml:"path"`
	Driver string `toml:"driver" yaml:"driver"`
	DSN    string `toml:"dsn" yaml:"dsn"`
}

// RedisConfig controls sharing of computed stats between processes.
type RedisConfig struct {
	Enabled            bool   `toml:"enabled" yaml:"enabled"`
	Addr               string `toml:"addr" yaml:"addr"`
	SnapshotTTLSeconds int    `toml:"snapshot_ttl_seconds" yaml:"snapshot_ttl_seconds"`
}

type CacheConfig struct {
	Diagnostics bool `toml:"diagnostics" yaml:"diagnostics"`
	Watch       bool `toml:"watch" yaml:"watch"`
}

type LogConfig struct {
	Level string `toml:"level" yaml:"level"`
}

// Defaults returns a Config that serves data/items.json on :4001.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			HTTPAddr:               ":4001",
			GRPCAddr:               ":50051",
			CORSOrigin:             "*",
			ShutdownTimeoutSeconds: 5,
		},
		Store: StoreConfig{
			Path:   filepath.Join("data", "items.json"),
			Driver: DriverFile,
		},
		Redis: RedisConfig{
			Addr:               "localhost:6379",
			SnapshotTTLSeconds: 24 * 60 * 60,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads path over Defaults. The format follows the file extension:
// .yaml and .yml are YAML, anything else is TOML.
func Load(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		if _, err := toml.Decode(string(data), &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	return cfg, nil
}

// LoadOrDefault loads path when it is non-empty, otherwise returns Defaults.
func LoadOrDefault(path string) (Config, error) {
	if path == "" {
		return Defaults(), nil
	}
	return Load(path)
}

// Validate checks the configuration and returns every problem found.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.HTTPAddr == "" {
		errs = append(errs, fmt.Errorf("server.http_addr must not be empty"))
	}
	if c.Server.ShutdownTimeoutSeconds < 0 {
		errs = append(errs, fmt.Errorf("server.shutdown_timeout_seconds must be >= 0"))
	}

	if c.Store.Path == "" {
		errs = append(errs, fmt.Errorf("store.path must not be empty"))
	}
	switch c.Store.Driver {
	case DriverFile:
	case DriverMySQL, DriverSQLite:
		if c.Store.DSN == "" {
			errs = append(errs, fmt.Errorf("store.dsn must be set when store.driver is %q", c.Store.Driver))
		}
	default:
		errs = append(errs, fmt.Errorf("store.driver must be one of %q, %q, %q", DriverFile, DriverMySQL, DriverSQLite))
	}

	if c.Redis.Enabled && c.Redis.Addr == "" {
		errs = append(errs, fmt.Errorf("redis.addr must be set when redis.enabled is true"))
	}
	if c.Redis.SnapshotTTLSeconds < 0 {
		errs = append(errs, fmt.Errorf("redis.snapshot_ttl_seconds must be >= 0"))
	}

	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "error", "fatal":
	default:
		errs = append(errs, fmt.Errorf("log.level %q is not a valid level", c.Log.Level))
	}

	return errors.Join(errs...)
}

func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.Server.ShutdownTimeoutSeconds) * time.Second
}

func (c *Config) SnapshotTTL() time.Duration {
	return time.Duration(c.Redis.SnapshotTTLSeconds) * time.Second
}
