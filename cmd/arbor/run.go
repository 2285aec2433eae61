package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/joeycumines/arbor/internal/board"
	"github.com/joeycumines/arbor/internal/bt"
	"github.com/joeycumines/arbor/internal/config"
	"github.com/joeycumines/arbor/internal/metrics"
	"github.com/joeycumines/arbor/internal/runner"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

type runFlags struct {
	ticks       int
	interval    time.Duration
	seed        uint64
	untilDone   bool
	boardDir    string
	redisAddr   string
	metricsAddr string
	export      string
}

func newRunCmd(a *app) *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "run FILE",
		Short: "Build a tree and tick it until it finishes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := &a.settings
			if cmd.Flags().Changed("ticks") {
				s.Runner.MaxTicks = f.ticks
			}
			if cmd.Flags().Changed("interval") {
				s.Runner.Interval = f.interval
			}
			if cmd.Flags().Changed("seed") {
				s.Runner.Seed = f.seed
			}
			if cmd.Flags().Changed("until-done") {
				s.Runner.StopOnTerminal = f.untilDone
			}
			if cmd.Flags().Changed("board-dir") {
				s.Board.Dir = f.boardDir
			}
			if cmd.Flags().Changed("redis-addr") {
				s.Board.RedisAddr = f.redisAddr
			}
			if cmd.Flags().Changed("metrics-addr") {
				s.Metrics.Addr = f.metricsAddr
			}
			return a.run(cmd, args[0], f.export)
		},
	}
	flags := cmd.Flags()
	flags.IntVar(&f.ticks, "ticks", 0, "Stop after this many ticks (0 = unlimited)")
	flags.DurationVar(&f.interval, "interval", runner.DefaultInterval, "Time between ticks")
	flags.Uint64Var(&f.seed, "seed", 0, "Random seed (0 = random)")
	flags.BoolVar(&f.untilDone, "until-done", true, "Stop once the root succeeds or fails")
	flags.StringVar(&f.boardDir, "board-dir", "", "Record snapshots under this directory")
	flags.StringVar(&f.redisAddr, "redis-addr", "", "Record snapshots to this Redis server")
	flags.StringVar(&f.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	flags.StringVar(&f.export, "export", "", "Write the final tree to this .json or .xml file")
	return cmd
}

func (a *app) run(cmd *cobra.Command, path, export string) error {
	s := a.settings
	b, err := a.builder()
	if err != nil {
		return err
	}
	root, err := b.BuildFile(path)
	if err != nil {
		return err
	}

	opts := []bt.ContextOption{bt.WithLogger(a.logger), bt.WithOutput(cmd.OutOrStdout())}
	if s.Runner.Seed != 0 {
		opts = append(opts, bt.WithSeed(s.Runner.Seed))
	}
	collector := metrics.NewCollector()
	tree := bt.NewTree(root, bt.WithContext(bt.NewContext(opts...)), bt.WithObserver(collector))
	if err := tree.Setup(bt.SetupOptions{Loader: b}); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	if s.Metrics.Addr != "" {
		shutdown := serveMetrics(a, s.Metrics.Addr, collector)
		defer shutdown()
	}

	var onTick func(*bt.Tree, bt.Status) error
	if store, err := openStore(s.Board); err != nil {
		return err
	} else if store != nil {
		defer store.Close()
		var bopts []board.Option
		if s.Board.Project != "" {
			bopts = append(bopts, board.WithProject(s.Board.Project))
		}
		bd := board.New(tree, store, bopts...)
		if err := bd.Clear(ctx); err != nil {
			return err
		}
		every := max(s.Board.TrackEvery, 1)
		onTick = func(t *bt.Tree, st bt.Status) error {
			if t.Count()%every != 0 && st == bt.Running {
				return nil
			}
			_, err := bd.Track(ctx, map[string]any{"status": st.String()})
			return err
		}
	}

	r := runner.Start(ctx, tree, runner.Config{
		Interval:       s.Runner.Interval,
		MaxTicks:       s.Runner.MaxTicks,
		StopOnTerminal: s.Runner.StopOnTerminal,
		StopOnFailure:  s.Runner.StopOnFailure,
		OnTick:         onTick,
	})
	if err := r.Wait(); err != nil && (ctx.Err() == nil || !errors.Is(err, context.Canceled)) {
		return err
	}

	var summary string
	r.Do(func(t *bt.Tree) {
		summary = fmt.Sprintf("%s: %s after %d ticks", t.Name(), t.Status(), t.Count())
	})
	a.logger.Info("[Runner] finished", "tree", tree.Name(), "status", tree.Status(), "ticks", tree.Count())
	_, _ = fmt.Fprintln(cmd.ErrOrStderr(), summary)

	if export != "" {
		return writeExport(export, root)
	}
	return nil
}

// openStore returns the configured snapshot store, or nil when tracking is
// disabled. Redis takes precedence over the filesystem.
func openStore(s config.BoardSettings) (board.Store, error) {
	switch {
	case s.RedisAddr != "":
		var opts []board.RedisOption
		if s.RedisPrefix != "" {
			opts = append(opts, board.WithPrefix(s.RedisPrefix))
		}
		return board.NewRedisStore(s.RedisAddr, s.RedisPassword, s.RedisDB, opts...), nil
	case s.Dir != "":
		return board.NewFSStore(s.Dir)
	default:
		return nil, nil
	}
}

func serveMetrics(a *app, addr string, collector *metrics.Collector) func() {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collector)
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("[Metrics] server failed", "addr", addr, "error", err)
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

// encode exports root in the format named by the file extension.
func encode(path string, root bt.Node) ([]byte, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xml":
		return bt.ToXML(root)
	case ".json", "":
		return bt.ToJSON(root)
	default:
		return nil, fmt.Errorf("unsupported export format %q", filepath.Ext(path))
	}
}

func writeExport(path string, root bt.Node) error {
	data, err := encode(path, root)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
