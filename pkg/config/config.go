// Package config loads installer settings from a YAML file, the environment
// and built-in defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/jaspreet-dot-casa/uinstall/pkg/components"
	"github.com/jaspreet-dot-casa/uinstall/pkg/envfile"
	"github.com/jaspreet-dot-casa/uinstall/pkg/logging"
	"github.com/jaspreet-dot-casa/uinstall/pkg/snapshot"
	"github.com/jaspreet-dot-casa/uinstall/pkg/state"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	// AppName names the config directory and environment prefix.
	AppName = "uinstall"
	// ConfigFileName is the name of the config file.
	ConfigFileName = "config.yaml"
	// SystemConfigDir is searched after the user config directory.
	SystemConfigDir = "/etc/uinstall"
)

// Security tiers, from least to most strict.
const (
	TierBasic    = "basic"
	TierStandard = "standard"
	TierHardened = "hardened"
)

// SecurityTiers lists the valid security tiers.
var SecurityTiers = []string{TierBasic, TierStandard, TierHardened}

// Config represents the complete installer configuration.
type Config struct {
	Paths     PathsConfig     `mapstructure:"paths"`
	Install   InstallConfig   `mapstructure:"install"`
	Ports     PortsConfig     `mapstructure:"ports"`
	Services  ServicesConfig  `mapstructure:"services"`
	Preflight PreflightConfig `mapstructure:"preflight"`
	Cleanup   CleanupConfig   `mapstructure:"cleanup"`
	Logging   LoggingConfig   `mapstructure:"logging"`

	file     string
	settings map[string]any
}

// PathsConfig controls where the installer reads and writes.
type PathsConfig struct {
	// StateDir holds the checkpoint file
	StateDir string `mapstructure:"state_dir"`
	// LogDir holds install.log
	LogDir string `mapstructure:"log_dir"`
	// DataDir holds bulk data such as downloaded models; removed by --clean --purge
	DataDir string `mapstructure:"data_dir"`
	// InstallDir receives install.env and is the working directory for services
	InstallDir string `mapstructure:"install_dir"`
	// ComponentsDir contains the component installer scripts
	ComponentsDir string `mapstructure:"components_dir"`
}

// InstallConfig selects what gets installed.
type InstallConfig struct {
	// Mode is one of "minimal", "standard", "full"
	Mode string `mapstructure:"mode"`
	// SecurityTier is one of "basic", "standard", "hardened"
	SecurityTier string `mapstructure:"security_tier"`
	// Components are installed in addition to those selected by Mode
	Components []string `mapstructure:"components"`
	Tools      []string `mapstructure:"tools"`
	Models     []string `mapstructure:"models"`
	// BasePackages are installed with apt-get before any component
	BasePackages []string `mapstructure:"base_packages"`
	// AnswersFile is an optional KEY=VALUE file overriding the settings above
	AnswersFile string `mapstructure:"answers_file"`
}

// PortsConfig controls port allocation for service components.
type PortsConfig struct {
	Host       string `mapstructure:"host"`
	RangeStart int    `mapstructure:"range_start"`
	RangeEnd   int    `mapstructure:"range_end"`
}

// ServicesConfig controls how installed services are started and verified.
type ServicesConfig struct {
	// StartCommand is run in InstallDir; empty skips starting services
	StartCommand  string        `mapstructure:"start_command"`
	HealthTimeout time.Duration `mapstructure:"health_timeout"`
}

// PreflightConfig controls pre-flight checks.
type PreflightConfig struct {
	RequireRoot      bool     `mapstructure:"require_root"`
	MinDiskGB        int      `mapstructure:"min_disk_gb"`
	RequiredTools    []string `mapstructure:"required_tools"`
	ConnectivityHost string   `mapstructure:"connectivity_host"`
	Platforms        []string `mapstructure:"platforms"`
}

// CleanupConfig controls --clean.
type CleanupConfig struct {
	// StopCommands stop services managed outside the installer
	StopCommands []string `mapstructure:"stop_commands"`
}

// LoggingConfig controls the log file.
type LoggingConfig struct {
	// Level is one of DEBUG, INFO, WARN, ERROR
	Level string `mapstructure:"level"`
}

// ConfigurationError reports an invalid setting.
type ConfigurationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid configuration: %s: %s: %v", e.Field, e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("paths.state_dir", "/var/lib/uinstall/state")
	v.SetDefault("paths.log_dir", "/var/log/uinstall")
	v.SetDefault("paths.data_dir", "/var/lib/uinstall/data")
	v.SetDefault("paths.install_dir", "/opt/uinstall")
	v.SetDefault("paths.components_dir", "/usr/share/uinstall/components")

	v.SetDefault("install.mode", components.ModeStandard)
	v.SetDefault("install.security_tier", TierStandard)
	v.SetDefault("install.components", []string{})
	v.SetDefault("install.tools", []string{})
	v.SetDefault("install.models", []string{})
	v.SetDefault("install.base_packages", []string{"ca-certificates", "curl"})
	v.SetDefault("install.answers_file", "")

	v.SetDefault("ports.host", "127.0.0.1")
	v.SetDefault("ports.range_start", 20000)
	v.SetDefault("ports.range_end", 20999)

	v.SetDefault("services.start_command", "")
	v.SetDefault("services.health_timeout", "2m")

	v.SetDefault("preflight.require_root", true)
	v.SetDefault("preflight.min_disk_gb", 10)
	v.SetDefault("preflight.required_tools", []string{"apt-get"})
	v.SetDefault("preflight.connectivity_host", "")
	v.SetDefault("preflight.platforms", []string{"linux"})

	v.SetDefault("cleanup.stop_commands", []string{})

	v.SetDefault("logging.level", "INFO")
}

// UserConfigDir returns $XDG_CONFIG_HOME/uinstall, falling back to
// ~/.config/uinstall.
func UserConfigDir() (string, error) {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, AppName), nil
}

// Load reads the configuration. An explicit path must exist; otherwise the
// user and system config directories are searched and a missing file means
// defaults. UINSTALL_* environment variables override file values.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(strings.ToUpper(AppName))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(strings.TrimSuffix(ConfigFileName, filepath.Ext(ConfigFileName)))
		v.SetConfigType("yaml")
		if dir, err := UserConfigDir(); err == nil {
			v.AddConfigPath(dir)
		}
		v.AddConfigPath(SystemConfigDir)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, &ConfigurationError{Field: "config", Reason: "cannot read config file", Err: err}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, &ConfigurationError{Field: "config", Reason: "cannot decode settings", Err: err}
	}
	cfg.file = v.ConfigFileUsed()
	cfg.settings = v.AllSettings()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// File returns the config file that was read, or "" when running on defaults.
func (c *Config) File() string {
	return c.file
}

// Validate checks that settings are usable.
func (c *Config) Validate() error {
	paths := []struct {
		field, value string
	}{
		{"paths.state_dir", c.Paths.StateDir},
		{"paths.log_dir", c.Paths.LogDir},
		{"paths.data_dir", c.Paths.DataDir},
		{"paths.install_dir", c.Paths.InstallDir},
		{"paths.components_dir", c.Paths.ComponentsDir},
	}
	for _, p := range paths {
		if strings.TrimSpace(p.value) == "" {
			return &ConfigurationError{Field: p.field, Reason: "must not be empty"}
		}
	}

	if err := validateMode("install.mode", c.Install.Mode); err != nil {
		return err
	}
	if err := validateTier("install.security_tier", c.Install.SecurityTier); err != nil {
		return err
	}

	if c.Ports.RangeStart < 1 || c.Ports.RangeEnd > 65535 || c.Ports.RangeStart > c.Ports.RangeEnd {
		return &ConfigurationError{
			Field:  "ports.range_start",
			Reason: fmt.Sprintf("range %d-%d must lie within 1-65535 with start <= end", c.Ports.RangeStart, c.Ports.RangeEnd),
		}
	}
	if c.Services.HealthTimeout < 0 {
		return &ConfigurationError{Field: "services.health_timeout", Reason: "must not be negative"}
	}
	if c.Preflight.MinDiskGB < 0 {
		return &ConfigurationError{Field: "preflight.min_disk_gb", Reason: "must not be negative"}
	}
	if !logging.ValidLevel(c.Logging.Level) {
		return &ConfigurationError{Field: "logging.level", Reason: fmt.Sprintf("unknown level %q", c.Logging.Level)}
	}
	return nil
}

func validateMode(field, mode string) error {
	if !slices.Contains(components.Modes, mode) {
		return &ConfigurationError{Field: field, Reason: fmt.Sprintf("unknown mode %q (want one of %s)", mode, strings.Join(components.Modes, ", "))}
	}
	return nil
}

func validateTier(field, tier string) error {
	if !slices.Contains(SecurityTiers, tier) {
		return &ConfigurationError{Field: field, Reason: fmt.Sprintf("unknown security tier %q (want one of %s)", tier, strings.Join(SecurityTiers, ", "))}
	}
	return nil
}

// InitialSnapshot builds the snapshot a fresh run starts from: the install
// section overlaid with the answers file, if any.
func (c *Config) InitialSnapshot() (*snapshot.Snapshot, error) {
	snap := snapshot.New()
	snap.Mode = c.Install.Mode
	snap.SecurityTier = c.Install.SecurityTier
	snap.Components = slices.Clone(c.Install.Components)
	snap.Tools = slices.Clone(c.Install.Tools)
	snap.Models = slices.Clone(c.Install.Models)

	if c.Install.AnswersFile == "" {
		return snap, nil
	}

	answers, err := envfile.Parse(c.Install.AnswersFile)
	if err != nil {
		return nil, &ConfigurationError{Field: "install.answers_file", Reason: "cannot read answers", Err: err}
	}
	if err := snap.Apply(answers); err != nil {
		return nil, &ConfigurationError{Field: "install.answers_file", Reason: "invalid answer", Err: err}
	}
	if err := validateMode("install.answers_file", snap.Mode); err != nil {
		return nil, err
	}
	if err := validateTier("install.answers_file", snap.SecurityTier); err != nil {
		return nil, err
	}
	return snap, nil
}

// CheckpointPath returns the checkpoint file location.
func (c *Config) CheckpointPath() string {
	return filepath.Join(c.Paths.StateDir, state.FileName)
}

// LogPath returns the log file location.
func (c *Config) LogPath() string {
	return filepath.Join(c.Paths.LogDir, logging.FileName)
}

// Render returns the effective settings as YAML.
func (c *Config) Render() ([]byte, error) {
	return yaml.Marshal(c.settings)
}
