// Package runner drives trees at a fixed frame interval using
// go-behaviortree tickers.
package runner

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/joeycumines/arbor/internal/bt"
	gbt "github.com/joeycumines/go-behaviortree"
)

// DefaultInterval is the frame interval used when none is configured.
const DefaultInterval = 100 * time.Millisecond

// errFinished ends a ticker without reporting an error.
var errFinished = errors.New("runner: finished")

// Config controls a Runner.
type Config struct {
	// Interval between ticks.
	Interval time.Duration
	// MaxTicks stops the runner after that many ticks. Zero means no limit.
	MaxTicks int
	// StopOnTerminal stops once the root reports Success or Failure.
	StopOnTerminal bool
	// StopOnFailure stops once the root reports Failure.
	StopOnFailure bool
	// OnTick is called after every successful tick, with the tree locked.
	// A returned error stops the runner and is reported by Err.
	OnTick func(t *bt.Tree, s bt.Status) error
}

// Runner ticks one tree from a background goroutine. Use Do to access the
// tree while the runner is active.
type Runner struct {
	tree   *bt.Tree
	cfg    Config
	mu     sync.Mutex
	ticks  int
	ticker gbt.Ticker
}

// Start begins ticking tree, which must already be set up. The runner stops
// when ctx is cancelled.
func Start(ctx context.Context, tree *bt.Tree, cfg Config) *Runner {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	r := &Runner{tree: tree, cfg: cfg}
	if cfg.StopOnFailure {
		r.ticker = gbt.NewTickerStopOnFailure(ctx, cfg.Interval, r.node())
	} else {
		r.ticker = gbt.NewTicker(ctx, cfg.Interval, r.node())
	}
	return r
}

func (r *Runner) node() gbt.Node {
	return func() (gbt.Tick, []gbt.Node) { return r.tick, nil }
}

func (r *Runner) tick([]gbt.Node) (gbt.Status, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, err := r.tree.Tick()
	if err != nil {
		r.tree.Context().Logger().Error("[Runner] tick failed", "tree", r.tree.Name(), "error", err)
		return gbt.Failure, err
	}
	r.ticks++
	if r.cfg.OnTick != nil {
		if err := r.cfg.OnTick(r.tree, s); err != nil {
			return gbt.Failure, err
		}
	}
	if r.cfg.StopOnTerminal && (s == bt.Success || s == bt.Failure) {
		return Status(s), errFinished
	}
	if r.cfg.MaxTicks > 0 && r.ticks >= r.cfg.MaxTicks {
		return Status(s), errFinished
	}
	return Status(s), nil
}

// Status maps a tree status onto go-behaviortree. Invalid maps to Failure.
func Status(s bt.Status) gbt.Status {
	switch s {
	case bt.Running:
		return gbt.Running
	case bt.Success:
		return gbt.Success
	default:
		return gbt.Failure
	}
}

// Do runs fn with exclusive access to the tree.
func (r *Runner) Do(fn func(t *bt.Tree)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(r.tree)
}

// Ticks returns the number of ticks run.
func (r *Runner) Ticks() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ticks
}

// Done closes when the runner stops.
func (r *Runner) Done() <-chan struct{} { return r.ticker.Done() }

// Err returns the error that stopped the runner, if any.
func (r *Runner) Err() error {
	err := r.ticker.Err()
	if errors.Is(err, errFinished) {
		return nil
	}
	return err
}

// Stop stops the runner and waits for it to finish.
func (r *Runner) Stop() {
	r.ticker.Stop()
	<-r.ticker.Done()
}

// Wait blocks until the runner stops, then returns Err.
func (r *Runner) Wait() error {
	<-r.Done()
	return r.Err()
}

var _ gbt.Ticker = (*Runner)(nil)

// Manager runs several trees, stopping all of them on the first error.
type Manager struct {
	m gbt.Manager
}

// NewManager creates an empty Manager.
func NewManager() *Manager {
	return &Manager{m: gbt.NewManager()}
}

// Start starts a runner for tree and adds it to the manager.
func (m *Manager) Start(ctx context.Context, tree *bt.Tree, cfg Config) (*Runner, error) {
	r := Start(ctx, tree, cfg)
	if err := m.m.Add(r); err != nil {
		r.Stop()
		return nil, err
	}
	return r, nil
}

// Done closes once every runner has stopped.
func (m *Manager) Done() <-chan struct{} { return m.m.Done() }

// Err returns the combined errors of the runners.
func (m *Manager) Err() error { return m.m.Err() }

// Stop stops every runner.
func (m *Manager) Stop() { m.m.Stop() }

// Wait blocks until every runner has stopped, then returns Err.
func (m *Manager) Wait() error {
	<-m.Done()
	return m.Err()
}
