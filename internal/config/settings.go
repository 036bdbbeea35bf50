package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes the environment variables read by Load, e.g.
// VAGRANT_NINJA_BASE_DIR.
const EnvPrefix = "VAGRANT_NINJA"

// Settings holds the tool settings.
type Settings struct {
	// BaseDir is the parent of all target directories.
	BaseDir string `mapstructure:"base_dir"`

	// VagrantBinary is the provisioning tool executable.
	VagrantBinary string `mapstructure:"vagrant_binary"`

	// VBoxManageBinary is queried by the doctor command.
	VBoxManageBinary string `mapstructure:"vboxmanage_binary"`

	// PriorityWrapper prefixes the provisioning tool argv when a config
	// asks for low priority.
	PriorityWrapper []string `mapstructure:"priority_wrapper"`

	// QuickLowPriority wraps quick commands with PriorityWrapper. Builds
	// follow the LowPriority option of their config instead.
	QuickLowPriority bool `mapstructure:"quick_low_priority"`

	// LogFormat is "console" or "json".
	LogFormat string `mapstructure:"log_format"`

	// LogLevel is a zerolog level name.
	LogLevel string `mapstructure:"log_level"`

	// NoColor disables colored log panel output.
	NoColor bool `mapstructure:"no_color"`

	// File is the settings file that was read, empty if none.
	File string `mapstructure:"-"`
}

// Log formats.
const (
	LogFormatConsole = "console"
	LogFormatJSON    = "json"
)

var logLevels = []string{"trace", "debug", "info", "warn", "error", "fatal", "panic", "disabled"}

// DefaultSettings returns the built-in defaults.
func DefaultSettings() *Settings {
	return &Settings{
		BaseDir:          "~/vagrant",
		VagrantBinary:    "vagrant",
		VBoxManageBinary: "vboxmanage",
		PriorityWrapper:  []string{"chrt", "--verbose", "-i", "0"},
		QuickLowPriority: true,
		LogFormat:        LogFormatConsole,
		LogLevel:         "info",
	}
}

// flagKeys maps command-line flag names onto settings keys.
var flagKeys = map[string]string{
	"base-dir":   "base_dir",
	"log-format": "log_format",
	"log-level":  "log_level",
	"no-color":   "no_color",
}

// Load reads the settings. An explicit file must exist; without one,
// settings.yaml in ConfigDir is read if present. Flags from the given set
// that were changed on the command line override everything else; flags
// may be nil.
func Load(file string, flags *pflag.FlagSet) (*Settings, error) {
	v := viper.New()

	defaults := DefaultSettings()
	v.SetDefault("base_dir", defaults.BaseDir)
	v.SetDefault("vagrant_binary", defaults.VagrantBinary)
	v.SetDefault("vboxmanage_binary", defaults.VBoxManageBinary)
	v.SetDefault("priority_wrapper", defaults.PriorityWrapper)
	v.SetDefault("quick_low_priority", defaults.QuickLowPriority)
	v.SetDefault("log_format", defaults.LogFormat)
	v.SetDefault("log_level", defaults.LogLevel)
	v.SetDefault("no_color", defaults.NoColor)

	if file != "" {
		v.SetConfigFile(file)
	} else {
		dir, err := ConfigDir()
		if err != nil {
			return nil, fmt.Errorf("failed to determine config directory: %w", err)
		}
		v.SetConfigName(strings.TrimSuffix(SettingsFileName, filepath.Ext(SettingsFileName)))
		v.SetConfigType("yaml")
		v.AddConfigPath(dir)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read settings: %w", err)
		}
	}

	s := &Settings{}
	if err := v.Unmarshal(s); err != nil {
		return nil, fmt.Errorf("failed to parse settings: %w", err)
	}
	s.File = v.ConfigFileUsed()

	base, err := ExpandHome(s.BaseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to expand base_dir: %w", err)
	}
	s.BaseDir = base
	s.LogFormat = strings.ToLower(strings.TrimSpace(s.LogFormat))
	s.LogLevel = strings.ToLower(strings.TrimSpace(s.LogLevel))

	if err := s.Validate(); err != nil {
		return nil, err
	}

	return s, nil
}

// Validate checks the settings for errors.
func (s *Settings) Validate() error {
	if s.BaseDir == "" {
		return fmt.Errorf("base_dir is required")
	}
	if !filepath.IsAbs(s.BaseDir) {
		return fmt.Errorf("base_dir must be an absolute path, got %q", s.BaseDir)
	}
	if s.VagrantBinary == "" {
		return fmt.Errorf("vagrant_binary is required")
	}

	switch s.LogFormat {
	case LogFormatConsole, LogFormatJSON:
	default:
		return fmt.Errorf("invalid log_format %q (valid: console, json)", s.LogFormat)
	}

	valid := false
	for _, level := range logLevels {
		if s.LogLevel == level {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("invalid log_level %q (valid: %s)", s.LogLevel, strings.Join(logLevels, ", "))
	}

	return nil
}

// ToolCommand returns the argv for running the provisioning tool with the
// given arguments, wrapped by PriorityWrapper when lowPriority is set.
func (s *Settings) ToolCommand(lowPriority bool, args ...string) []string {
	var argv []string
	if lowPriority {
		argv = append(argv, s.PriorityWrapper...)
	}
	argv = append(argv, s.VagrantBinary)
	return append(argv, args...)
}
