// Package config provides hierarchical configuration management.
// Priority: defaults < config file < .env file < environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/colisflow/colisflow/internal/model"
)

// Config holds all colisflow configuration.
type Config struct {
	Version int `yaml:"version"`

	Site     string         `yaml:"site"`
	Database DatabaseConfig `yaml:"database"`
	Blob     BlobConfig     `yaml:"blob"`
	Server   ServerConfig   `yaml:"server"`
	Watch    WatchConfig    `yaml:"watch"`
	Calendar CalendarConfig `yaml:"calendar"`
	Logging  LoggingConfig  `yaml:"logging"`

	// Epochs override the per-type ledger fallback dates, keyed by the
	// ledger type strings, values YYYY-MM-DD.
	Epochs map[string]string `yaml:"epochs"`
}

// DatabaseConfig holds the Postgres connection settings.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

// DSN builds the connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		d.Host, d.Port, d.Name, d.User, d.Password, d.SSLMode)
}

// BlobConfig holds the raw-extract archive settings.
type BlobConfig struct {
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	UsePathStyle    bool   `yaml:"use_path_style"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

// ServerConfig for the HTTP server.
type ServerConfig struct {
	Host          string        `yaml:"host"`
	Port          int           `yaml:"port"`
	MaxUploadSize int64         `yaml:"max_upload_size"`
	Timeout       time.Duration `yaml:"timeout"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// WatchConfig for the drop-directory watcher.
type WatchConfig struct {
	Dir string `yaml:"dir"`
}

// CalendarConfig lists the non-reporting public holidays, YYYY-MM-DD.
type CalendarConfig struct {
	Holidays []string `yaml:"holidays"`
}

// LoggingConfig controls the slog handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Version: 1,
		Site:    "LTH",
		Database: DatabaseConfig{
			Host:    "localhost",
			Port:    5432,
			Name:    "postgres",
			User:    "postgres",
			SSLMode: "require",
		},
		Blob: BlobConfig{
			Bucket: "colisflow-extracts",
			Region: "eu-west-3",
		},
		Server: ServerConfig{
			Host:          "localhost",
			Port:          8080,
			MaxUploadSize: 64 << 20,
			Timeout:       2 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// HolidayDates parses the configured holidays.
func (c *Config) HolidayDates() ([]time.Time, error) {
	dates := make([]time.Time, 0, len(c.Calendar.Holidays))
	for _, raw := range c.Calendar.Holidays {
		d, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return nil, fmt.Errorf("invalid holiday %q: %w", raw, err)
		}
		dates = append(dates, d)
	}
	return dates, nil
}

// EpochDates parses the per-type epoch overrides.
func (c *Config) EpochDates() (map[model.DataType]time.Time, error) {
	if len(c.Epochs) == 0 {
		return nil, nil
	}
	epochs := make(map[model.DataType]time.Time, len(c.Epochs))
	for typ, raw := range c.Epochs {
		d, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return nil, fmt.Errorf("invalid epoch for %s: %w", typ, err)
		}
		epochs[model.DataType(typ)] = d
	}
	return epochs, nil
}

// Manager handles configuration loading and merging.
type Manager struct {
	mu     sync.RWMutex
	config *Config
	paths  []string
}

// NewManager creates a new configuration manager.
func NewManager() *Manager {
	return &Manager{config: Default()}
}

// Load loads configuration from all sources in priority order.
func (m *Manager) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.config = Default()

	// A .env alongside the binary feeds the environment first.
	godotenv.Load()

	for _, path := range m.getConfigPaths() {
		if err := m.loadFile(path); err != nil {
			if !os.IsNotExist(err) {
				return err
			}
		} else {
			m.paths = append(m.paths, path)
		}
	}

	m.loadEnv()
	return nil
}

// LoadFile loads one explicit config file over the defaults.
func (m *Manager) LoadFile(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.config = Default()
	godotenv.Load()
	if err := m.loadFile(path); err != nil {
		return err
	}
	m.paths = append(m.paths, path)
	m.loadEnv()
	return nil
}

// Get returns the current configuration.
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// Paths returns the config files that were actually loaded.
func (m *Manager) Paths() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.paths
}

// getConfigPaths returns config file paths in priority order.
func (m *Manager) getConfigPaths() []string {
	var paths []string

	if runtime.GOOS != "windows" {
		paths = append(paths, "/etc/colisflow/config.yaml")
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".colisflow", "config.yaml"))
	}
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, ".colisflow.yaml"))
	}
	return paths
}

// loadFile loads a single config file and merges it.
func (m *Manager) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var partial Config
	if err := yaml.Unmarshal(data, &partial); err != nil {
		return err
	}
	m.merge(&partial)
	return nil
}

// merge merges non-zero values from src into config.
func (m *Manager) merge(src *Config) {
	if src.Site != "" {
		m.config.Site = src.Site
	}

	// Database
	if src.Database.Host != "" {
		m.config.Database.Host = src.Database.Host
	}
	if src.Database.Port != 0 {
		m.config.Database.Port = src.Database.Port
	}
	if src.Database.Name != "" {
		m.config.Database.Name = src.Database.Name
	}
	if src.Database.User != "" {
		m.config.Database.User = src.Database.User
	}
	if src.Database.Password != "" {
		m.config.Database.Password = src.Database.Password
	}
	if src.Database.SSLMode != "" {
		m.config.Database.SSLMode = src.Database.SSLMode
	}

	// Blob
	if src.Blob.Bucket != "" {
		m.config.Blob.Bucket = src.Blob.Bucket
	}
	if src.Blob.Region != "" {
		m.config.Blob.Region = src.Blob.Region
	}
	if src.Blob.Endpoint != "" {
		m.config.Blob.Endpoint = src.Blob.Endpoint
	}
	if src.Blob.UsePathStyle {
		m.config.Blob.UsePathStyle = true
	}
	if src.Blob.AccessKeyID != "" {
		m.config.Blob.AccessKeyID = src.Blob.AccessKeyID
	}
	if src.Blob.SecretAccessKey != "" {
		m.config.Blob.SecretAccessKey = src.Blob.SecretAccessKey
	}

	// Server
	if src.Server.Host != "" {
		m.config.Server.Host = src.Server.Host
	}
	if src.Server.Port != 0 {
		m.config.Server.Port = src.Server.Port
	}
	if src.Server.MaxUploadSize != 0 {
		m.config.Server.MaxUploadSize = src.Server.MaxUploadSize
	}
	if src.Server.Timeout != 0 {
		m.config.Server.Timeout = src.Server.Timeout
	}

	// Watch
	if src.Watch.Dir != "" {
		m.config.Watch.Dir = src.Watch.Dir
	}

	// Calendar
	if len(src.Calendar.Holidays) > 0 {
		m.config.Calendar.Holidays = src.Calendar.Holidays
	}

	// Logging
	if src.Logging.Level != "" {
		m.config.Logging.Level = src.Logging.Level
	}
	if src.Logging.Format != "" {
		m.config.Logging.Format = src.Logging.Format
	}

	if len(src.Epochs) > 0 {
		if m.config.Epochs == nil {
			m.config.Epochs = make(map[string]string, len(src.Epochs))
		}
		for k, v := range src.Epochs {
			m.config.Epochs[k] = v
		}
	}
}

// loadEnv loads configuration from environment variables. The database
// variables keep their historical lowercase names.
func (m *Manager) loadEnv() {
	if v := os.Getenv("host"); v != "" {
		m.config.Database.Host = v
	}
	if v := os.Getenv("port"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			m.config.Database.Port = p
		}
	}
	if v := os.Getenv("dbname"); v != "" {
		m.config.Database.Name = v
	}
	if v := os.Getenv("user"); v != "" {
		m.config.Database.User = v
	}
	if v := os.Getenv("password"); v != "" {
		m.config.Database.Password = v
	}
	if v := os.Getenv("sslmode"); v != "" {
		m.config.Database.SSLMode = v
	}

	if v := os.Getenv("COLISFLOW_SITE"); v != "" {
		m.config.Site = v
	}
	if v := os.Getenv("COLISFLOW_BUCKET"); v != "" {
		m.config.Blob.Bucket = v
	}
	if v := os.Getenv("COLISFLOW_BLOB_ENDPOINT"); v != "" {
		m.config.Blob.Endpoint = v
	}
	if v := os.Getenv("AWS_ACCESS_KEY_ID"); v != "" && m.config.Blob.AccessKeyID == "" {
		m.config.Blob.AccessKeyID = v
	}
	if v := os.Getenv("AWS_SECRET_ACCESS_KEY"); v != "" && m.config.Blob.SecretAccessKey == "" {
		m.config.Blob.SecretAccessKey = v
	}
	if v := os.Getenv("COLISFLOW_LOG_LEVEL"); v != "" {
		m.config.Logging.Level = v
	}
	if v := os.Getenv("COLISFLOW_WATCH_DIR"); v != "" {
		m.config.Watch.Dir = v
	}
}
