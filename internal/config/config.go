package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FeedConfig describes one read-only ICS subscription exposed as a source
// calendar.
type FeedConfig struct {
	// URL is the ICS subscription endpoint.
	URL string `yaml:"url" json:"url"`
	// ID is an internal identifier used for caching and logging.
	ID string `yaml:"id" json:"id"`
	// Name is the calendar name the feed is exposed under.
	Name string `yaml:"name" json:"name"`
}

// LocalConfig points at the writable local calendar store.
type LocalConfig struct {
	// Path is a directory holding one <calendar>.ics file per calendar.
	Path string `yaml:"path" json:"path"`
}

// JobConfig is one scheduled sync: source calendar, destination calendar,
// filters, and a cron expression saying when to run.
type JobConfig struct {
	Name        string `yaml:"name" json:"name"`
	Cron        string `yaml:"cron" json:"cron"`
	Source      string `yaml:"source" json:"source"`
	Destination string `yaml:"destination" json:"destination"`

	// Days is the size of the sync window in days from today.
	Days int `yaml:"days" json:"days"`

	// TimeoutSeconds bounds one run of this job. Zero falls back to
	// SchedulerConfig.DefaultTimeoutSeconds.
	TimeoutSeconds int `yaml:"timeout" json:"timeout"`

	ExcludeDeclined bool     `yaml:"exclude_declined" json:"exclude_declined"`
	ExcludeAllDay   bool     `yaml:"exclude_all_day" json:"exclude_all_day"`
	ExcludeTitles   []string `yaml:"exclude_titles" json:"exclude_titles"`
	ForceRefresh    bool     `yaml:"force_refresh" json:"force_refresh"`
}

// SchedulerConfig holds daemon-wide scheduling defaults.
type SchedulerConfig struct {
	DefaultTimeoutSeconds int `yaml:"default_timeout" json:"default_timeout"`
}

// Config is the top-level application configuration.
type Config struct {
	// Account is the current user's address, matched against event
	// attendees to decide whether an invitation was declined.
	Account string `yaml:"account" json:"account"`

	// Timezone is the IANA timezone the query window is anchored in
	// (e.g. "Europe/Madrid"). Empty means the system local zone.
	Timezone string `yaml:"timezone" json:"timezone"`

	// LogLevel is "debug", "info", "warn" or "error".
	LogLevel string `yaml:"log_level" json:"log_level"`

	// CacheDir backs the feed HTTP cache.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`

	// Feeds are the subscribed read-only source calendars.
	Feeds []FeedConfig `yaml:"feeds" json:"feeds"`

	// Local, if non-nil, enables the writable local calendar store.
	Local *LocalConfig `yaml:"local,omitempty" json:"local,omitempty"`

	Scheduler SchedulerConfig `yaml:"scheduler" json:"scheduler"`

	// Jobs are the scheduled syncs run in daemon mode.
	Jobs []JobConfig `yaml:"jobs" json:"jobs"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		CacheDir: "./var/ics-cache",
		Feeds:    []FeedConfig{},
		Scheduler: SchedulerConfig{
			DefaultTimeoutSeconds: 300,
		},
		Jobs: []JobConfig{},
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		c.LogLevel = "info"
	}
	if c.CacheDir == "" {
		c.CacheDir = "./var/ics-cache"
	}
	if c.Scheduler.DefaultTimeoutSeconds <= 0 {
		c.Scheduler.DefaultTimeoutSeconds = 300
	}
	if c.Feeds == nil {
		c.Feeds = []FeedConfig{}
	}
	if c.Jobs == nil {
		c.Jobs = []JobConfig{}
	}
	for i := range c.Jobs {
		if c.Jobs[i].Days <= 0 {
			c.Jobs[i].Days = 7
		}
		if c.Jobs[i].TimeoutSeconds <= 0 {
			c.Jobs[i].TimeoutSeconds = c.Scheduler.DefaultTimeoutSeconds
		}
	}
}

// Validate rejects configurations the daemon cannot run. Cron expressions
// are validated by the scheduler when jobs are registered.
func (c *Config) Validate() error {
	seen := make(map[string]bool, len(c.Jobs))
	for _, job := range c.Jobs {
		if job.Name == "" {
			return errors.New("job missing name")
		}
		if seen[job.Name] {
			return fmt.Errorf("duplicate job name %q", job.Name)
		}
		seen[job.Name] = true
		if job.Cron == "" {
			return fmt.Errorf("job %q: cron expression is required", job.Name)
		}
		if job.Source == "" {
			return fmt.Errorf("job %q: source calendar is required", job.Name)
		}
		if job.Destination == "" {
			return fmt.Errorf("job %q: destination calendar is required", job.Name)
		}
	}
	for _, f := range c.Feeds {
		if f.Name == "" || f.URL == "" {
			return fmt.Errorf("feed %q: name and url are required", f.ID)
		}
	}
	return nil
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist: create the parent directory if needed,
//     write a default config with 0600 perms, and return the default.
//   - If the file exists: read YAML, unmarshal, normalize defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create a default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with the error so the
				// caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes the configuration to the given path: parent directory 0700,
// atomic temp-file + rename, final perms 0600.
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

	tmp, err := os.CreateTemp(dir, ".calsync-config-*.tmp")
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
