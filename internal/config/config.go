// Package config provides YAML-based configuration loading for querybar.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/zulandar/querybar/internal/gormlog"
	"github.com/zulandar/querybar/internal/querylog"
	"gopkg.in/yaml.v3"
)

// Config is the top-level querybar configuration, loaded from querybar.yaml.
type Config struct {
	Database     DatabaseConfig `yaml:"database"`
	Log          LogConfig      `yaml:"log"`
	Server       ServerConfig   `yaml:"server"`
	LibraryPaths []string       `yaml:"library_paths"`
	SkipPackages []string       `yaml:"skip_packages"`
	EditorURL    string         `yaml:"editor_url"`
}

// DatabaseConfig selects the GORM dialect and connection string.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// LogConfig must agree with the delimited format the producer writes.
type LogConfig struct {
	Outer         string        `yaml:"outer"`
	Inner         string        `yaml:"inner"`
	TimePrecision int           `yaml:"time_precision"`
	SlowThreshold time.Duration `yaml:"slow_threshold"`
}

// ServerConfig holds settings for the demo HTTP server.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// Supported database drivers.
const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

// Load reads a YAML config file from path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	cfg := newConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := newConfig()
	cfg.applyDefaults()
	return &cfg
}

// newConfig presets the fields whose zero value is meaningful, so an
// explicit 0 in the file survives decoding.
func newConfig() Config {
	return Config{
		Log: LogConfig{
			TimePrecision: querylog.DefaultTimePrecision,
			SlowThreshold: gormlog.DefaultSlowThreshold,
		},
	}
}

// Format returns the query log format described by the log section.
func (c *Config) Format() querylog.Format {
	f := querylog.DefaultFormat()
	f.Outer = c.Log.Outer
	f.Inner = c.Log.Inner
	return f
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.Database.Driver == "" {
		c.Database.Driver = DriverSQLite
	}
	if c.Database.DSN == "" && c.Database.Driver == DriverSQLite {
		c.Database.DSN = "querybar.db"
	}
	if c.Log.Outer == "" {
		c.Log.Outer = querylog.DefaultOuter
	}
	if c.Log.Inner == "" {
		c.Log.Inner = querylog.DefaultInner
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.EditorURL == "" {
		c.EditorURL = querylog.DefaultEditorURL
	}
	if c.SkipPackages == nil {
		c.SkipPackages = append([]string(nil), querylog.DefaultSkipPackages...)
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	switch c.Database.Driver {
	case DriverSQLite:
	case DriverMySQL:
		if c.Database.DSN == "" {
			errs = append(errs, "database.dsn is required for mysql")
		} else if _, err := mysql.ParseDSN(c.Database.DSN); err != nil {
			errs = append(errs, fmt.Sprintf("database.dsn: %v", err))
		}
	default:
		errs = append(errs, fmt.Sprintf("database.driver %q is not supported (use sqlite or mysql)", c.Database.Driver))
	}
	if c.Log.Outer == c.Log.Inner {
		errs = append(errs, "log.outer and log.inner must differ")
	}
	if c.Log.TimePrecision < 0 || c.Log.TimePrecision > 9 {
		errs = append(errs, "log.time_precision must be between 0 and 9")
	}
	if c.Log.SlowThreshold < 0 {
		errs = append(errs, "log.slow_threshold must not be negative")
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port %d out of range", c.Server.Port))
	}
	if !strings.Contains(c.EditorURL, "%file") {
		errs = append(errs, "editor_url must contain %file")
	}
	for i, p := range c.LibraryPaths {
		if strings.TrimSpace(p) == "" {
			errs = append(errs, fmt.Sprintf("library_paths[%d] is empty", i))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
