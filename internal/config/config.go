// Package config loads the arbor configuration file.
//
// The file uses a dnsmasq-style format: one "optionName value" pair per
// line, "#" comments, and "[section]" headers. Options before the first
// header are global. Every option in the [builder] section is handed to the
// tree builder as a global attribute; the other sections are validated
// against DefaultSchema.
package config

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// BuilderSection holds free-form builder attributes.
const BuilderSection = "builder"

// Config represents the loaded configuration file.
type Config struct {
	// Global options that precede any section header.
	Global map[string]string
	// Sections maps section name to its options.
	Sections map[string]map[string]string
	// Warnings contains any warnings generated during config loading.
	Warnings []string
}

// NewConfig creates a new empty configuration.
func NewConfig() *Config {
	return &Config{
		Global:   make(map[string]string),
		Sections: make(map[string]map[string]string),
		Warnings: make([]string, 0),
	}
}

// Load loads configuration from the default config file path.
func Load() (*Config, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, fmt.Errorf("failed to get config path: %w", err)
	}
	return LoadFromPath(configPath)
}

// LoadFromPath loads configuration from the specified file path. A missing
// file yields an empty configuration.
//
// Symlinks are rejected, so a config path cannot be pointed at an
// unrelated file.
func LoadFromPath(path string) (*Config, error) {
	fi, err := os.Lstat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewConfig(), nil
		}
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fi.Mode()&os.ModeSymlink != 0 {
		return nil, fmt.Errorf("symlink not allowed in config path: %s", path)
	}

	file, err := os.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	return LoadFromReader(file)
}

// LoadFromReader loads configuration from an io.Reader.
func LoadFromReader(r io.Reader) (*Config, error) {
	config := NewConfig()
	scanner := bufio.NewScanner(r)

	var section string
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			section = strings.TrimSpace(strings.Trim(line, "[]"))
			if section == "" {
				return nil, fmt.Errorf("empty section header")
			}
			if config.Sections[section] == nil {
				config.Sections[section] = make(map[string]string)
			}
			continue
		}

		name, value, _ := strings.Cut(line, " ")
		value = strings.TrimSpace(value)
		if section == "" {
			config.Global[name] = value
		} else {
			config.Sections[section][name] = value
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config: %w", err)
	}

	for _, issue := range ValidateConfig(config, DefaultSchema()) {
		config.addWarning("%s", issue)
	}
	return config, nil
}

func (c *Config) addWarning(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	c.Warnings = append(c.Warnings, msg)
	slog.Warn("[Config] " + msg)
}

// parseBool accepts true, false, 1, 0, yes, no, on and off
// (case-insensitive).
func parseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "true", "1", "yes", "on":
		return true, nil
	case "false", "0", "no", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean value: %s", s)
	}
}

// Option returns the option in section ("" for global). Section options
// fall back to the global value.
func (c *Config) Option(section, name string) (string, bool) {
	if section != "" {
		if value, ok := c.Sections[section][name]; ok {
			return value, true
		}
	}
	value, ok := c.Global[name]
	return value, ok
}

// Set sets an option in section ("" for global).
func (c *Config) Set(section, name, value string) {
	if section == "" {
		c.Global[name] = value
		return
	}
	if c.Sections[section] == nil {
		c.Sections[section] = make(map[string]string)
	}
	c.Sections[section][name] = value
}

// BuilderAttrs returns the [builder] section as builder global attributes.
func (c *Config) BuilderAttrs() map[string]any {
	attrs := make(map[string]any, len(c.Sections[BuilderSection]))
	for k, v := range c.Sections[BuilderSection] {
		attrs[k] = v
	}
	return attrs
}

// HasWarnings returns true if there are any warnings.
func (c *Config) HasWarnings() bool {
	return len(c.Warnings) > 0
}
