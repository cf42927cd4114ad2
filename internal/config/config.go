// Package config loads the optional sheet.toml settings file for the sheet
// command.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"
)

// DefaultFile is looked up in the working directory when no --config flag
// is given.
const DefaultFile = "sheet.toml"

// Print modes.
const (
	ModeValues = "values"
	ModeTexts  = "texts"
)

// Config contains every setting of the sheet command.
type Config struct {
	Log    LogConfig    `toml:"log"`
	Print  PrintConfig  `toml:"print"`
	Script ScriptConfig `toml:"script"`
}

// LogConfig controls the stderr logger.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `toml:"level"`
}

// PrintConfig controls how the grid is written after a script runs.
type PrintConfig struct {
	// Mode is "values" or "texts".
	Mode string `toml:"mode"`

	// Pretty renders a bordered table instead of tab separated rows.
	Pretty bool `toml:"pretty"`
}

// ScriptConfig controls script execution.
type ScriptConfig struct {
	// KeepGoing logs rejected lines and carries on instead of stopping at
	// the first one.
	KeepGoing bool `toml:"keep_going"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Log:   LogConfig{Level: "info"},
		Print: PrintConfig{Mode: ModeValues},
	}
}

// Load reads path on top of the defaults. Keys missing from the file keep
// their default value. If path is empty, DefaultFile is used when it exists.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("parsing %s: unknown keys %s", path, strings.Join(keys, ", "))
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks values that toml cannot type-check.
func (c *Config) Validate() error {
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch c.Print.Mode {
	case ModeValues, ModeTexts:
	default:
		return fmt.Errorf("print.mode: must be %q or %q, got %q", ModeValues, ModeTexts, c.Print.Mode)
	}
	return nil
}

// LogLevel returns the configured level, falling back to info.
func (c *Config) LogLevel() log.Level {
	level, err := log.ParseLevel(c.Log.Level)
	if err != nil {
		return log.InfoLevel
	}
	return level
}
