package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ICSConfig describes one ICS subscription whose events are merged into the
// snapshot's event catalog.
type ICSConfig struct {
	// URL is the ICS subscription endpoint.
	URL string `yaml:"url" json:"url"`
	// ID is an internal identifier used for de-dup and logging.
	ID string `yaml:"id" json:"id"`
	// Name is a human-friendly label shown in the back-office UI.
	Name string `yaml:"name" json:"name"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level daemon configuration.
type Config struct {
	// Listen is the HTTP listen address for the board API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA venue timezone all scheduling is interpreted
	// in (e.g. "America/Denver").
	Timezone string `yaml:"timezone" json:"timezone"`

	// VenueUTCOffsetsHours lists the UTC offsets (hours west of UTC) the
	// venue's timezone has used historically, in probe order. Civil-time
	// resolution tries these in order and keeps the first exact match.
	VenueUTCOffsetsHours []int `yaml:"venue_utc_offsets_hours" json:"venue_utc_offsets_hours"`

	// RefreshCron is a cron-style schedule string (e.g. "*/5 * * * *")
	// driving snapshot refresh and preview capture.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// WindowDays is how far ahead recurring events are expanded.
	WindowDays int `yaml:"window_days" json:"window_days"`

	// ItemsPerSlide caps items on one slide before chunking.
	ItemsPerSlide int `yaml:"items_per_slide" json:"items_per_slide"`

	// SnapshotURL is the back-office content snapshot endpoint. A plain
	// filesystem path also works, for single-box installs.
	SnapshotURL string `yaml:"snapshot_url" json:"snapshot_url"`

	// ICS is the list of subscribed ICS event sources.
	ICS []ICSConfig `yaml:"ics" json:"ics"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all
	// endpoints except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:               "127.0.0.1:8080",
		Timezone:             "America/Denver",
		VenueUTCOffsetsHours: []int{6, 7},
		RefreshCron:          "*/5 * * * *",
		WindowDays:           60,
		ItemsPerSlide:        6,
		ICS:                  []ICSConfig{},
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs (e.g., older versions) still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8080"
	}
	if c.Timezone == "" {
		c.Timezone = "America/Denver"
	}
	if len(c.VenueUTCOffsetsHours) == 0 {
		c.VenueUTCOffsetsHours = []int{6, 7}
	}
	if c.RefreshCron == "" {
		c.RefreshCron = "*/5 * * * *"
	}
	if c.WindowDays <= 0 {
		c.WindowDays = 60
	}
	if c.ItemsPerSlide <= 0 {
		c.ItemsPerSlide = 6
	}
	if c.ICS == nil {
		c.ICS = []ICSConfig{}
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
			// First run: create default config file.
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
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
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

	// Atomic write: write to temp file in same directory then rename.
	tmp, err := os.CreateTemp(dir, ".barsign-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	// Ensure we clean up temp file on error.
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}

	// Flush and close before chmod/rename.
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	// Set permissions to 0600 on temp file before rename.
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	// Rename over the target path.
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}

	return nil
}

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
