package config

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"
)

// OptionType represents the expected type of a configuration option value.
type OptionType string

const (
	TypeString   OptionType = "string"
	TypeBool     OptionType = "bool"
	TypeInt      OptionType = "int"
	TypeDuration OptionType = "duration"
)

// ConfigOption declares a single configuration option.
type ConfigOption struct {
	// Key is the option name as it appears in the config file (kebab-case).
	Key         string
	Type        OptionType
	Default     string
	Description string
	// Section is "" for global options.
	Section string
	// EnvVar overrides the file value when set.
	EnvVar string
}

// ConfigSchema declares the known configuration options.
type ConfigSchema struct {
	options   []*ConfigOption
	bySection map[string]map[string]*ConfigOption
	// open sections accept any option.
	open map[string]bool
}

// NewSchema creates a new empty ConfigSchema.
func NewSchema() *ConfigSchema {
	return &ConfigSchema{
		bySection: make(map[string]map[string]*ConfigOption),
		open:      make(map[string]bool),
	}
}

// Register adds an option. The last registration of a key wins.
func (s *ConfigSchema) Register(opt ConfigOption) {
	ref := new(ConfigOption)
	*ref = opt
	s.options = append(s.options, ref)
	if s.bySection[opt.Section] == nil {
		s.bySection[opt.Section] = make(map[string]*ConfigOption)
	}
	s.bySection[opt.Section][opt.Key] = ref
}

// RegisterAll adds multiple options.
func (s *ConfigSchema) RegisterAll(opts []ConfigOption) {
	for _, opt := range opts {
		s.Register(opt)
	}
}

// OpenSection marks a section whose options are free-form.
func (s *ConfigSchema) OpenSection(section string) {
	s.open[section] = true
}

// Lookup returns the option for key in section ("" for global), or nil.
func (s *ConfigSchema) Lookup(section, key string) *ConfigOption {
	return s.bySection[section][key]
}

// Options returns the options of section, in registration order.
func (s *ConfigSchema) Options(section string) []ConfigOption {
	var out []ConfigOption
	for _, o := range s.options {
		if o.Section == section {
			out = append(out, *o)
		}
	}
	return out
}

// Sections returns the sorted names of every non-global section.
func (s *ConfigSchema) Sections() []string {
	var out []string
	for sec := range s.bySection {
		if sec != "" {
			out = append(out, sec)
		}
	}
	for sec := range s.open {
		if !slices.Contains(out, sec) {
			out = append(out, sec)
		}
	}
	slices.Sort(out)
	return out
}

// Resolve returns the effective value for key in section: the environment
// variable declared for it, then the config value, then the default.
func (s *ConfigSchema) Resolve(c *Config, section, key string) string {
	opt := s.Lookup(section, key)
	if opt != nil && opt.EnvVar != "" {
		if v, ok := os.LookupEnv(opt.EnvVar); ok {
			return v
		}
	}
	if v, ok := c.Option(section, key); ok {
		return v
	}
	if opt != nil {
		return opt.Default
	}
	return ""
}

// ValidateConfig returns human-readable issues (empty if the config is
// valid): unknown sections, unknown options and type mismatches.
func ValidateConfig(c *Config, s *ConfigSchema) []string {
	var issues []string
	check := func(section string, opts map[string]string) {
		for key, value := range opts {
			opt := s.Lookup(section, key)
			if opt == nil && section != "" {
				opt = s.Lookup("", key)
			}
			if opt == nil {
				if section == "" {
					issues = append(issues, fmt.Sprintf("unknown global option: %q (value: %q)", key, value))
				} else {
					issues = append(issues, fmt.Sprintf("unknown option in [%s]: %q (value: %q)", section, key, value))
				}
				continue
			}
			if err := validateType(opt.Type, value); err != nil {
				if section == "" {
					issues = append(issues, fmt.Sprintf("global option %q: %v", key, err))
				} else {
					issues = append(issues, fmt.Sprintf("option %q in [%s]: %v", key, section, err))
				}
			}
		}
	}

	check("", c.Global)
	for section, opts := range c.Sections {
		if s.open[section] {
			continue
		}
		if _, ok := s.bySection[section]; !ok {
			issues = append(issues, fmt.Sprintf("unknown section: [%s]", section))
			continue
		}
		check(section, opts)
	}

	slices.Sort(issues)
	return issues
}

func validateType(t OptionType, value string) error {
	switch t {
	case TypeString, "":
		return nil
	case TypeBool:
		if _, err := parseBool(value); err != nil {
			return fmt.Errorf("expected bool, got %q", value)
		}
	case TypeInt:
		if _, err := strconv.Atoi(value); err != nil {
			return fmt.Errorf("expected int, got %q", value)
		}
	case TypeDuration:
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("expected duration, got %q", value)
		}
	default:
		return fmt.Errorf("unknown option type %q", t)
	}
	return nil
}

// FormatHelp returns a reference of every registered option, grouped by
// section.
func (s *ConfigSchema) FormatHelp() string {
	var b strings.Builder
	if globals := s.Options(""); len(globals) > 0 {
		b.WriteString("Global Options:\n")
		for _, o := range globals {
			writeOptionHelp(&b, o)
		}
	}
	for _, sec := range s.Sections() {
		fmt.Fprintf(&b, "\n[%s] Options:\n", sec)
		if s.open[sec] {
			b.WriteString("  (any option; passed through as attributes)\n")
		}
		for _, o := range s.Options(sec) {
			writeOptionHelp(&b, o)
		}
	}
	return b.String()
}

func writeOptionHelp(b *strings.Builder, o ConfigOption) {
	fmt.Fprintf(b, "  %-20s %s", o.Key, o.Description)
	parts := make([]string, 0, 3)
	if o.Type != "" && o.Type != TypeString {
		parts = append(parts, "type: "+string(o.Type))
	}
	if o.Default != "" {
		parts = append(parts, "default: "+o.Default)
	}
	if o.EnvVar != "" {
		parts = append(parts, "env: "+o.EnvVar)
	}
	if len(parts) > 0 {
		fmt.Fprintf(b, " (%s)", strings.Join(parts, ", "))
	}
	b.WriteString("\n")
}

// DefaultSchema returns the canonical schema of arbor options.
func DefaultSchema() *ConfigSchema {
	s := NewSchema()
	s.OpenSection(BuilderSection)
	s.RegisterAll([]ConfigOption{
		{Key: "log.level", Type: TypeString, Default: "info", Description: "Log level: debug, info, warn, error", EnvVar: "ARBOR_LOG_LEVEL"},
		{Key: "log.format", Type: TypeString, Default: "text", Description: "Log format: text, json"},
		{Key: "convert.cache-size", Type: TypeInt, Default: "1000", Description: "Compiled expressions kept in the shared cache"},

		{Key: "interval", Section: "runner", Type: TypeDuration, Default: "100ms", Description: "Time between ticks"},
		{Key: "max-ticks", Section: "runner", Type: TypeInt, Default: "0", Description: "Stop after this many ticks (0 = unlimited)"},
		{Key: "stop-on-terminal", Section: "runner", Type: TypeBool, Default: "true", Description: "Stop once the root succeeds or fails"},
		{Key: "stop-on-failure", Section: "runner", Type: TypeBool, Default: "false", Description: "Stop once the root fails"},
		{Key: "seed", Section: "runner", Type: TypeInt, Default: "0", Description: "Random seed (0 = random)"},

		{Key: "dir", Section: "board", Type: TypeString, Default: "", Description: "Directory for snapshot history", EnvVar: "ARBOR_BOARD_DIR"},
		{Key: "redis-addr", Section: "board", Type: TypeString, Default: "", Description: "Redis address for snapshot history", EnvVar: "ARBOR_REDIS_ADDR"},
		{Key: "redis-password", Section: "board", Type: TypeString, Default: "", Description: "Redis password", EnvVar: "ARBOR_REDIS_PASSWORD"},
		{Key: "redis-db", Section: "board", Type: TypeInt, Default: "0", Description: "Redis database number"},
		{Key: "redis-prefix", Section: "board", Type: TypeString, Default: "arbor:board:", Description: "Redis key prefix"},
		{Key: "project", Section: "board", Type: TypeString, Default: "", Description: "Project name (defaults to the tree name)"},
		{Key: "track-every", Section: "board", Type: TypeInt, Default: "1", Description: "Track a snapshot every N ticks"},

		{Key: "addr", Section: "metrics", Type: TypeString, Default: "", Description: "Serve Prometheus metrics on this address"},
	})
	return s
}
