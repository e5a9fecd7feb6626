// Package config loads the prefsafe configuration: the tracked domain
// set, the kernel tunables to capture, and the storage paths. The result
// is an immutable Config value handed to each component at construction;
// nothing reads configuration ambiently after startup.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config is the process-wide configuration, read once at startup.
type Config struct {
	// BaseDir is the root of the snapshot store (default ~/.prefsafe).
	BaseDir string `mapstructure:"base_dir"`

	// TrackedDomains is the fixed set of preference domains captured by
	// backups and queried by the change-history engine.
	TrackedDomains []string `mapstructure:"tracked_domains"`

	// KernelParams is the set of sysctl tunables captured alongside the
	// domain records.
	KernelParams []string `mapstructure:"kernel_params"`

	// RetainCount is how many non-protected snapshots prune keeps.
	RetainCount int `mapstructure:"retain_count"`

	// PreferencesDir is the directory the watch command monitors for
	// plist writes (default ~/Library/Preferences).
	PreferencesDir string `mapstructure:"preferences_dir"`

	// LogLevel is the minimum level for the file logger.
	LogLevel string `mapstructure:"log_level"`
}

// DomainService maps a preference domain to the UI process that owns it.
// Reverting a single key restarts only the owning process; a full restore
// restarts all of them.
var domainServices = map[string]string{
	"com.apple.dock":          "Dock",
	"com.apple.finder":        "Finder",
	"com.apple.WindowServer":  "SystemUIServer",
	"NSGlobalDomain":          "SystemUIServer",
	"com.apple.screencapture": "SystemUIServer",
}

// ServiceFor returns the process to restart after mutating domain.
// Domains with no dedicated owner fall back to the preferences daemon.
func ServiceFor(domain string) string {
	if svc, ok := domainServices[domain]; ok {
		return svc
	}
	return "cfprefsd"
}

// Dir returns the prefsafe config directory, respecting XDG_CONFIG_HOME.
// Defaults to ~/.config/prefsafe if XDG_CONFIG_HOME is not set.
func Dir() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "prefsafe"), nil
}

// Load reads the optional config file at {Dir()}/config.yaml, applies
// PREFSAFE_* environment overrides, and fills in defaults for anything
// unset. A missing config file is not an error.
func Load() (*Config, error) {
	dir, err := Dir()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config directory: %w", err)
	}
	return load(filepath.Join(dir, "config.yaml"))
}

func load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetEnvPrefix("PREFSAFE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}

	v.SetDefault("base_dir", filepath.Join(home, ".prefsafe"))
	v.SetDefault("preferences_dir", filepath.Join(home, "Library", "Preferences"))
	v.SetDefault("retain_count", 10)
	v.SetDefault("log_level", "info")
	v.SetDefault("tracked_domains", []string{
		"com.apple.dock",
		"com.apple.finder",
		"com.apple.WindowServer",
		"NSGlobalDomain",
		"com.apple.screencapture",
		"com.apple.universalaccess",
	})
	v.SetDefault("kernel_params", []string{
		"kern.maxvnodes",
		"kern.maxproc",
		"kern.maxfiles",
		"kern.ipc.somaxconn",
		"net.inet.tcp.delayed_ack",
		"net.inet.tcp.sendspace",
		"net.inet.tcp.recvspace",
	})
}

func (c *Config) validate() error {
	if c.BaseDir == "" {
		return fmt.Errorf("base_dir must not be empty")
	}
	if len(c.TrackedDomains) == 0 {
		return fmt.Errorf("tracked_domains must not be empty")
	}
	if c.RetainCount < 1 {
		return fmt.Errorf("retain_count must be at least 1, got %d", c.RetainCount)
	}
	return nil
}
