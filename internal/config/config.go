package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Storage drivers.
const (
	DriverFile     = "file"
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
)

// StorageConfig selects where the event collection is persisted.
type StorageConfig struct {
	// Driver is one of "file" (default), "memory" or "postgres".
	Driver string `yaml:"driver" json:"driver"`
	// Path is the JSON file used by the file driver.
	Path string `yaml:"path" json:"path"`
	// DSN is the connection string used by the postgres driver.
	DSN string `yaml:"dsn,omitempty" json:"dsn,omitempty"`
}

// SnapshotConfig controls PNG captures of the month view.
type SnapshotConfig struct {
	// Cron is a 5-field schedule ("0 * * * *"). Empty disables scheduled
	// captures; -snapshot still captures once.
	Cron string `yaml:"cron" json:"cron"`
	// Output is where the PNG is written and served from /preview.png.
	Output string `yaml:"output" json:"output"`
	Width  int    `yaml:"width" json:"width"`
	Height int    `yaml:"height" json:"height"`
}

// ICSFeedConfig is a remote calendar the import endpoint may fetch.
type ICSFeedConfig struct {
	// ID names the feed in POST /api/import?feed=<id> and in logs.
	ID string `yaml:"id" json:"id"`
	// Name is a human-friendly label.
	Name string `yaml:"name" json:"name"`
	// URL is the ICS subscription endpoint.
	URL string `yaml:"url" json:"url"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the Web UI/API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the Web UI and API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA zone that decides what "today" is.
	Timezone string `yaml:"timezone" json:"timezone"`

	// LogLevel is debug, info, warn or error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	Storage  StorageConfig  `yaml:"storage" json:"storage"`
	Snapshot SnapshotConfig `yaml:"snapshot" json:"snapshot"`

	// ICSFeeds lists the only remote calendars that can be imported.
	ICSFeeds []ICSFeedConfig `yaml:"ics_feeds" json:"ics_feeds"`

	// ICSCacheDir holds conditional-GET caches of imported feeds.
	ICSCacheDir string `yaml:"ics_cache_dir" json:"ics_cache_dir"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:   "127.0.0.1:8080",
		Timezone: "Local",
		LogLevel: "info",
		Storage: StorageConfig{
			Driver: DriverFile,
			Path:   "/var/lib/monthcal/events.json",
		},
		Snapshot: SnapshotConfig{
			Cron:   "",
			Output: "/var/lib/monthcal/preview.png",
			Width:  1280,
			Height: 960,
		},
		ICSFeeds:    []ICSFeedConfig{},
		ICSCacheDir: "/var/lib/monthcal/ics-cache",
		BasicAuth:   nil,
	}
}

// Normalize fills in missing/zero values with defaults so that partially
// filled configs still behave.
func (c *Config) Normalize() {
	def := DefaultConfig()
	if c.Listen == "" {
		c.Listen = def.Listen
	}
	if c.Timezone == "" {
		c.Timezone = def.Timezone
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	switch c.Storage.Driver {
	case DriverFile, DriverMemory, DriverPostgres:
	default:
		c.Storage.Driver = DriverFile
	}
	if c.Storage.Path == "" {
		c.Storage.Path = def.Storage.Path
	}
	if c.Snapshot.Output == "" {
		c.Snapshot.Output = def.Snapshot.Output
	}
	if c.Snapshot.Width <= 0 {
		c.Snapshot.Width = def.Snapshot.Width
	}
	if c.Snapshot.Height <= 0 {
		c.Snapshot.Height = def.Snapshot.Height
	}
	if c.ICSFeeds == nil {
		c.ICSFeeds = []ICSFeedConfig{}
	}
	if c.ICSCacheDir == "" {
		c.ICSCacheDir = def.ICSCacheDir
	}
}

// Validate reports settings that cannot work at runtime.
func (c *Config) Validate() error {
	var errs []error
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("timezone %q: %w", c.Timezone, err))
	}
	if c.Storage.Driver == DriverPostgres && c.Storage.DSN == "" {
		errs = append(errs, errors.New("storage.dsn is required for the postgres driver"))
	}
	if c.Snapshot.Cron != "" {
		if _, err := cron.ParseStandard(c.Snapshot.Cron); err != nil {
			errs = append(errs, fmt.Errorf("snapshot.cron %q: %w", c.Snapshot.Cron, err))
		}
	}
	seen := make(map[string]bool, len(c.ICSFeeds))
	for i, f := range c.ICSFeeds {
		if f.ID == "" {
			errs = append(errs, fmt.Errorf("ics_feeds[%d]: id is required", i))
		} else if seen[f.ID] {
			errs = append(errs, fmt.Errorf("ics_feeds[%d]: duplicate id %q", i, f.ID))
		}
		seen[f.ID] = true
		if u, err := url.Parse(f.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, fmt.Errorf("ics_feeds[%d]: url must be http(s)", i))
		}
	}
	return errors.Join(errs...)
}

// Feed finds a configured feed by id, or by exact URL when id is empty.
func (c *Config) Feed(id, rawURL string) (ICSFeedConfig, bool) {
	for _, f := range c.ICSFeeds {
		if id != "" && f.ID == id {
			return f, true
		}
		if id == "" && rawURL != "" && f.URL == rawURL {
			return f, true
		}
	}
	return ICSFeedConfig{}, false
}

// Location resolves Timezone, falling back to time.Local.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// WithDataDir rewrites the default /var/lib paths under dir. Used for
// debug runs without root permissions.
func (c *Config) WithDataDir(dir string) {
	def := DefaultConfig()
	if c.Storage.Path == def.Storage.Path {
		c.Storage.Path = filepath.Join(dir, "events.json")
	}
	if c.Snapshot.Output == def.Snapshot.Output {
		c.Snapshot.Output = filepath.Join(dir, "preview.png")
	}
	if c.ICSCacheDir == def.ICSCacheDir {
		c.ICSCacheDir = filepath.Join(dir, "ics-cache")
	}
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the given configuration to the specified path atomically
// (temp file in the same directory, 0600, rename).
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

	tmp, err := os.CreateTemp(dir, ".monthcal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
