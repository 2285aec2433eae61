package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
)

// Settings is the typed view of a Config with schema defaults and
// environment overrides applied.
type Settings struct {
	Log     LogSettings     `mapstructure:"log"`
	Convert ConvertSettings `mapstructure:"convert"`
	Runner  RunnerSettings  `mapstructure:"runner"`
	Board   BoardSettings   `mapstructure:"board"`
	Metrics MetricsSettings `mapstructure:"metrics"`
}

type LogSettings struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type ConvertSettings struct {
	CacheSize int `mapstructure:"cache-size"`
}

type RunnerSettings struct {
	Interval       time.Duration `mapstructure:"interval"`
	MaxTicks       int           `mapstructure:"max-ticks"`
	StopOnTerminal bool          `mapstructure:"stop-on-terminal"`
	StopOnFailure  bool          `mapstructure:"stop-on-failure"`
	Seed           uint64        `mapstructure:"seed"`
}

type BoardSettings struct {
	Dir           string `mapstructure:"dir"`
	RedisAddr     string `mapstructure:"redis-addr"`
	RedisPassword string `mapstructure:"redis-password"`
	RedisDB       int    `mapstructure:"redis-db"`
	RedisPrefix   string `mapstructure:"redis-prefix"`
	Project       string `mapstructure:"project"`
	TrackEvery    int    `mapstructure:"track-every"`
}

type MetricsSettings struct {
	Addr string `mapstructure:"addr"`
}

// Settings resolves every option of DefaultSchema and decodes the result.
// Dotted global keys such as log.level nest under their prefix.
func (c *Config) Settings() (Settings, error) {
	s := DefaultSchema()
	raw := make(map[string]any)
	put := func(section, key string, value any) {
		if section == "" {
			section, key, _ = strings.Cut(key, ".")
		}
		m, _ := raw[section].(map[string]any)
		if m == nil {
			m = make(map[string]any)
			raw[section] = m
		}
		m[key] = value
	}
	for _, section := range append([]string{""}, s.Sections()...) {
		for _, opt := range s.Options(section) {
			v, err := typed(opt, s.Resolve(c, section, opt.Key))
			if err != nil {
				return Settings{}, err
			}
			put(section, opt.Key, v)
		}
	}

	var out Settings
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		Result:           &out,
	})
	if err != nil {
		return Settings{}, err
	}
	if err := dec.Decode(raw); err != nil {
		return Settings{}, fmt.Errorf("decode settings: %w", err)
	}
	return out, nil
}

// typed converts a resolved value using the option's declared type.
// Durations stay strings for the decode hook.
func typed(opt ConfigOption, value string) (any, error) {
	if value == "" {
		return value, nil
	}
	var (
		v   any = value
		err error
	)
	switch opt.Type {
	case TypeBool:
		v, err = parseBool(value)
	case TypeInt:
		v, err = strconv.Atoi(value)
	}
	if err != nil {
		name := opt.Key
		if opt.Section != "" {
			name = opt.Section + "." + opt.Key
		}
		return nil, fmt.Errorf("option %s: %w", name, err)
	}
	return v, nil
}
