// Package config loads and saves the YAML configuration file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/julianstephens/shiftcal/internal/constants"
	"github.com/julianstephens/shiftcal/internal/utils"
)

// Driver names a storage backend.
type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
	DriverCalDAV   Driver = "caldav"
	DriverMemory   Driver = "memory"
)

// CalDAVConfig points at a remote calendar. The password lives in the
// OS keyring.
type CalDAVConfig struct {
	URL          string `yaml:"url"`
	Username     string `yaml:"username"`
	CalendarPath string `yaml:"calendar_path,omitempty"`
}

// StorageConfig selects and configures the backend.
type StorageConfig struct {
	Driver Driver `yaml:"driver"`
	// Path is the sqlite database file.
	Path string `yaml:"path,omitempty"`
	// Postgres is a connection string without password. When empty the
	// full connection string is read from the keyring.
	Postgres string       `yaml:"postgres,omitempty"`
	CalDAV   CalDAVConfig `yaml:"caldav,omitempty"`
}

// NotifierConfig enables webhook notices on persistence failures.
type NotifierConfig struct {
	WebhookURL string `yaml:"webhook_url,omitempty"`
	Secret     string `yaml:"secret,omitempty"`
}

// Config is the top-level application configuration.
type Config struct {
	UserID        string                `yaml:"user_id"`
	AccountType   constants.AccountType `yaml:"account_type"`
	Timezone      string                `yaml:"timezone"`
	DefaultView   constants.ViewMode    `yaml:"default_view"`
	Storage       StorageConfig         `yaml:"storage"`
	SyncSpec      string                `yaml:"sync"`
	HistoryLimit  int                   `yaml:"history_limit"`
	MaxDailyHours float64               `yaml:"max_daily_hours"`
	Notifier      NotifierConfig        `yaml:"notifier,omitempty"`
	Debug         bool                  `yaml:"debug"`

	// dir is where the file was loaded from; relative paths resolve here.
	dir string
}

// DefaultConfig returns the configuration written on first run.
func DefaultConfig() *Config {
	user := os.Getenv("USER")
	if user == "" {
		user = "me"
	}
	return &Config{
		UserID:        user,
		AccountType:   constants.AccountEmployee,
		Timezone:      "Local",
		DefaultView:   constants.ViewWeek,
		Storage:       StorageConfig{Driver: DriverSQLite, Path: constants.DefaultDBFileName},
		SyncSpec:      constants.DefaultSyncSpec,
		HistoryLimit:  constants.DefaultHistoryLimit,
		MaxDailyHours: constants.DefaultMaxDailyHours,
	}
}

// Normalize fills zero values with defaults so partially written files
// still load.
func (c *Config) Normalize() {
	def := DefaultConfig()
	if c.UserID == "" {
		c.UserID = def.UserID
	}
	switch c.AccountType {
	case constants.AccountEmployee, constants.AccountManager:
	default:
		c.AccountType = def.AccountType
	}
	if c.Timezone == "" {
		c.Timezone = def.Timezone
	}
	switch c.DefaultView {
	case constants.ViewDay, constants.ViewWeek:
	default:
		c.DefaultView = def.DefaultView
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = def.Storage.Driver
	}
	if c.Storage.Driver == DriverSQLite && c.Storage.Path == "" {
		c.Storage.Path = def.Storage.Path
	}
	if c.SyncSpec == "" {
		c.SyncSpec = def.SyncSpec
	}
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = def.HistoryLimit
	}
	if c.MaxDailyHours <= 0 {
		c.MaxDailyHours = def.MaxDailyHours
	}
}

// Validate rejects values the application cannot run with.
func (c *Config) Validate() error {
	if !utils.ValidateTimezone(c.Timezone) {
		return fmt.Errorf("invalid timezone %q", c.Timezone)
	}
	switch c.Storage.Driver {
	case DriverSQLite, DriverPostgres, DriverMemory:
	case DriverCalDAV:
		if c.Storage.CalDAV.URL == "" || c.Storage.CalDAV.Username == "" {
			return errors.New("caldav storage requires url and username")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	return nil
}

// Dir returns the directory holding the config file.
func (c *Config) Dir() string {
	return c.dir
}

// DBPath resolves the sqlite path against the config directory.
func (c *Config) DBPath() string {
	p, err := utils.ExpandHome(c.Storage.Path)
	if err != nil {
		p = c.Storage.Path
	}
	if filepath.IsAbs(p) || c.dir == "" {
		return p
	}
	return filepath.Join(c.dir, p)
}

// CacheDir is where calendar snapshots are kept.
func (c *Config) CacheDir() string {
	return filepath.Join(c.dir, constants.CacheDirName)
}

// LockPath is the background sync lockfile.
func (c *Config) LockPath() string {
	return filepath.Join(c.dir, constants.LockFileName)
}

// Load reads path, writing a default config with 0600 permissions when it
// does not exist yet.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}
	path, err := utils.ExpandHome(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			cfg.dir = filepath.Dir(path)
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	cfg.Normalize()
	cfg.dir = filepath.Dir(path)
	return &cfg, nil
}

// Save writes cfg atomically via a temp file and rename.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}
	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".shiftcal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
