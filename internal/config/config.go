// Package config handles configuration management using Viper
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bnema/waycomp/internal/xkb"
	"github.com/spf13/viper"
)

// Config represents the compositor configuration
type Config struct {
	// Backend selection and device discovery
	Backend BackendConfig `mapstructure:"backend"`

	// Keymap defaults used when XKB_DEFAULT_* are unset
	Keyboard KeyboardConfig `mapstructure:"keyboard"`

	// Logging configuration
	Logging LoggingConfig `mapstructure:"logging"`
}

// BackendConfig selects and tunes the hardware backends
type BackendConfig struct {
	Types           []string `mapstructure:"types"`            // evdev, drm, headless; empty means autodetect
	InputDir        string   `mapstructure:"input_dir"`        // Directory scanned for event devices
	DRMDir          string   `mapstructure:"drm_dir"`          // sysfs DRM class directory
	PollIntervalMs  int      `mapstructure:"poll_interval_ms"` // Connector and device polling interval
	RefreshRate     int      `mapstructure:"refresh_rate"`     // Refresh in mHz for outputs without modes
	HeadlessOutputs int      `mapstructure:"headless_outputs"` // Virtual outputs created by the headless backend
}

// KeyboardConfig holds the keymap compiler defaults
type KeyboardConfig struct {
	Rules   string `mapstructure:"rules"`
	Model   string `mapstructure:"model"`
	Layout  string `mapstructure:"layout"`
	Variant string `mapstructure:"variant"`
	Options string `mapstructure:"options"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	LogLevel string `mapstructure:"log_level"` // Override LOG_LEVEL env var
}

// RuleNames converts the keyboard section for the keymap compiler
func (k KeyboardConfig) RuleNames() xkb.RuleNames {
	return xkb.RuleNames{
		Rules:   k.Rules,
		Model:   k.Model,
		Layout:  k.Layout,
		Variant: k.Variant,
		Options: k.Options,
	}
}

// BackendsEnv overrides backend.types with a comma separated list
const BackendsEnv = "WAYCOMP_BACKENDS"

var (
	// DefaultConfig provides sensible defaults
	DefaultConfig = Config{
		Backend: BackendConfig{
			Types:           []string{},
			InputDir:        "/dev/input",
			DRMDir:          "/sys/class/drm",
			PollIntervalMs:  1000,
			RefreshRate:     60000,
			HeadlessOutputs: 1,
		},
		Keyboard: KeyboardConfig{
			Rules:  xkb.DefaultRules,
			Model:  xkb.DefaultModel,
			Layout: xkb.DefaultLayout,
		},
		Logging: LoggingConfig{
			LogLevel: "", // Empty means use LOG_LEVEL env var
		},
	}

	// Global config instance
	cfg *Config

	// Override config path if set
	configPathOverride string
)

// SetConfigPath allows overriding the config path
func SetConfigPath(path string) {
	configPathOverride = path
}

// Init initializes the configuration system
func Init() error {
	viper.SetConfigName("waycomp")
	viper.SetConfigType("toml")

	// If a specific path is set, use only that
	if configPathOverride != "" {
		viper.SetConfigFile(configPathOverride)
	} else {
		viper.AddConfigPath("/etc/waycomp")

		// If running with sudo, try the real user's config
		if sudoUser := os.Getenv("SUDO_USER"); sudoUser != "" {
			viper.AddConfigPath(fmt.Sprintf("/home/%s/.config/waycomp", sudoUser))
		} else if home := os.Getenv("HOME"); home != "" && home != "/root" {
			viper.AddConfigPath(filepath.Join(home, ".config", "waycomp"))
		}

		viper.AddConfigPath(".")
	}

	// Set defaults - need to set individual fields for proper merging
	viper.SetDefault("backend.types", DefaultConfig.Backend.Types)
	viper.SetDefault("backend.input_dir", DefaultConfig.Backend.InputDir)
	viper.SetDefault("backend.drm_dir", DefaultConfig.Backend.DRMDir)
	viper.SetDefault("backend.poll_interval_ms", DefaultConfig.Backend.PollIntervalMs)
	viper.SetDefault("backend.refresh_rate", DefaultConfig.Backend.RefreshRate)
	viper.SetDefault("backend.headless_outputs", DefaultConfig.Backend.HeadlessOutputs)

	viper.SetDefault("keyboard.rules", DefaultConfig.Keyboard.Rules)
	viper.SetDefault("keyboard.model", DefaultConfig.Keyboard.Model)
	viper.SetDefault("keyboard.layout", DefaultConfig.Keyboard.Layout)
	viper.SetDefault("keyboard.variant", DefaultConfig.Keyboard.Variant)
	viper.SetDefault("keyboard.options", DefaultConfig.Keyboard.Options)

	viper.SetDefault("logging.log_level", DefaultConfig.Logging.LogLevel)

	if err := viper.BindEnv("backend.types", BackendsEnv); err != nil {
		return fmt.Errorf("failed to bind %s: %w", BackendsEnv, err)
	}

	// Read config file if it exists
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found, use defaults
	}

	cfg = &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return fmt.Errorf("unable to unmarshal config: %w", err)
	}
	cfg.Backend.Types = normalizeTypes(cfg.Backend.Types)

	return nil
}

// normalizeTypes splits entries that still contain commas, which happens
// when the list comes from a single environment string
func normalizeTypes(types []string) []string {
	out := []string{}
	for _, t := range types {
		for _, part := range strings.Split(t, ",") {
			if part = strings.TrimSpace(strings.ToLower(part)); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// Get returns the current configuration
func Get() *Config {
	if cfg == nil {
		// Return defaults if not initialized
		return &DefaultConfig
	}
	return cfg
}

// Set sets the current configuration (for testing)
func Set(c *Config) {
	cfg = c
}

// Save saves the current configuration to file
func Save() error {
	configPath := GetConfigPath()

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		// If we can't create it (e.g., /etc/waycomp needs sudo), provide helpful message
		if os.IsPermission(err) && strings.Contains(configPath, "/etc/") {
			return fmt.Errorf("failed to create config directory %s: permission denied. Try running with sudo", dir)
		}
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := viper.WriteConfigAs(configPath); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// GetConfigPath returns the path to the config file
func GetConfigPath() string {
	if configPathOverride != "" {
		return configPathOverride
	}

	if viper.ConfigFileUsed() != "" {
		return viper.ConfigFileUsed()
	}

	// Root and sudo sessions use the system config
	if os.Getuid() == 0 || os.Getenv("SUDO_USER") != "" {
		return "/etc/waycomp/waycomp.toml"
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "/etc/waycomp/waycomp.toml"
	}

	return filepath.Join(home, ".config", "waycomp", "waycomp.toml")
}
