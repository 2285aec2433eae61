package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/joeycumines/arbor/internal/builder"
	"github.com/joeycumines/arbor/internal/config"
	"github.com/joeycumines/arbor/internal/convert"
	"github.com/spf13/cobra"
)

// app is the state shared by every subcommand, resolved before it runs.
type app struct {
	configPath string
	logLevel   string
	logFormat  string
	sets       []string

	cfg      *config.Config
	settings config.Settings
	logger   *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:           "arbor",
		Short:         "Arbor builds and runs behaviour trees",
		Long:          `Arbor compiles behaviour trees from XML, JSON or YAML definitions, ticks them at a fixed interval and records snapshots of their state.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd.ErrOrStderr())
		},
	}
	flags := cmd.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "Config file (default $"+config.EnvConfigPath+" or ~/.arbor/config)")
	flags.StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	flags.StringVar(&a.logFormat, "log-format", "", "Log format: text, json")
	flags.StringArrayVar(&a.sets, "set", nil, "Builder attribute as key=value (repeatable)")

	cmd.AddCommand(
		newRunCmd(a),
		newExportCmd(a),
		newTagsCmd(),
		newConfigCmd(a),
		newVersionCmd(),
	)
	return cmd
}

func (a *app) init(stderr io.Writer) error {
	var err error
	if a.configPath != "" {
		a.cfg, err = config.LoadFromPath(a.configPath)
	} else {
		a.cfg, err = config.Load()
	}
	if err != nil {
		return err
	}
	if a.settings, err = a.cfg.Settings(); err != nil {
		return err
	}
	if a.logLevel != "" {
		a.settings.Log.Level = a.logLevel
	}
	if a.logFormat != "" {
		a.settings.Log.Format = a.logFormat
	}
	convert.SetCacheSize(a.settings.Convert.CacheSize)
	a.logger, err = newLogger(stderr, a.settings.Log)
	return err
}

// newLogger builds the process logger from the resolved log settings.
func newLogger(w io.Writer, s config.LogSettings) (*slog.Logger, error) {
	opts := &slog.HandlerOptions{}
	switch strings.ToLower(s.Level) {
	case "debug":
		opts.Level = slog.LevelDebug
	case "info", "":
		opts.Level = slog.LevelInfo
	case "warn":
		opts.Level = slog.LevelWarn
	case "error":
		opts.Level = slog.LevelError
	default:
		return nil, fmt.Errorf("invalid log level: %s", s.Level)
	}
	switch strings.ToLower(s.Format) {
	case "text", "":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("invalid log format: %s", s.Format)
	}
}

// globals merges the [builder] config section with --set flags.
func (a *app) globals() (map[string]any, error) {
	attrs := a.cfg.BuilderAttrs()
	for _, kv := range a.sets {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --set %q: want key=value", kv)
		}
		attrs[k] = v
	}
	return attrs, nil
}

func (a *app) builder() (*builder.Builder, error) {
	globals, err := a.globals()
	if err != nil {
		return nil, err
	}
	return builder.New(builder.WithGlobals(globals), builder.WithLogger(a.logger)), nil
}
