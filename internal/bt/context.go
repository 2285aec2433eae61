package bt

import (
	"io"
	"log/slog"
	"maps"
	"math/rand/v2"
	"os"
	"slices"
	"time"
)

// Clock returns the current tree time in seconds.
type Clock func() float64

// Context is the single mutable key-value store shared by every node of a
// tree, plus the tree-wide services nodes need while ticking (clock, random
// source, logger, output writer).
//
// Context performs no locking. A tree is ticked from one goroutine at a time;
// ticking the same tree concurrently is undefined behaviour.
type Context struct {
	data   map[string]any
	clock  Clock
	rand   *rand.Rand
	logger *slog.Logger
	out    io.Writer
}

// ContextOption configures a Context.
type ContextOption func(*Context)

// WithClock overrides the time source, e.g. for simulation.
func WithClock(clock Clock) ContextOption {
	return func(c *Context) { c.clock = clock }
}

// WithSeed makes the random source deterministic.
func WithSeed(seed uint64) ContextOption {
	return func(c *Context) { c.rand = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)) }
}

// WithLogger sets the logger used by every node.
func WithLogger(logger *slog.Logger) ContextOption {
	return func(c *Context) { c.logger = logger }
}

// WithOutput sets the writer used by output leaves such as Print.
func WithOutput(w io.Writer) ContextOption {
	return func(c *Context) { c.out = w }
}

// WithValues seeds the context with initial values.
func WithValues(values map[string]any) ContextOption {
	return func(c *Context) {
		if c.data == nil {
			c.data = make(map[string]any, len(values))
		}
		maps.Copy(c.data, values)
	}
}

// NewContext creates a Context. The default clock reports monotonic seconds
// elapsed since construction.
func NewContext(opts ...ContextOption) *Context {
	start := time.Now()
	c := &Context{
		clock: func() float64 { return time.Since(start).Seconds() },
		out:   os.Stdout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.rand == nil {
		c.rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return c
}

// Get returns the value for key, or nil.
func (c *Context) Get(key string) any {
	if c == nil || c.data == nil {
		return nil
	}
	return c.data[key]
}

// Lookup returns the value for key and whether it exists.
func (c *Context) Lookup(key string) (any, bool) {
	if c == nil || c.data == nil {
		return nil, false
	}
	v, ok := c.data[key]
	return v, ok
}

// Set stores a value.
func (c *Context) Set(key string, value any) {
	if c.data == nil {
		c.data = make(map[string]any)
	}
	c.data[key] = value
}

// Has reports whether key exists.
func (c *Context) Has(key string) bool {
	_, ok := c.Lookup(key)
	return ok
}

// Delete removes key.
func (c *Context) Delete(key string) {
	if c.data != nil {
		delete(c.data, key)
	}
}

// Keys returns all keys, sorted.
func (c *Context) Keys() []string {
	if c == nil {
		return nil
	}
	return slices.Sorted(maps.Keys(c.data))
}

// Len returns the number of keys.
func (c *Context) Len() int {
	if c == nil {
		return 0
	}
	return len(c.data)
}

// Clear removes every key.
func (c *Context) Clear() {
	c.data = make(map[string]any)
}

// Snapshot returns a shallow copy of the stored values. Mutable values
// (slices, maps) are shared with the context.
func (c *Context) Snapshot() map[string]any {
	if c == nil || c.data == nil {
		return map[string]any{}
	}
	return maps.Clone(c.data)
}

// Now returns the current tree time in seconds.
func (c *Context) Now() float64 { return c.clock() }

// Rand returns the tree's random source.
func (c *Context) Rand() *rand.Rand { return c.rand }

// Logger returns the tree logger, falling back to slog.Default.
func (c *Context) Logger() *slog.Logger {
	if c == nil || c.logger == nil {
		return slog.Default()
	}
	return c.logger
}

// Output returns the writer for output leaves.
func (c *Context) Output() io.Writer { return c.out }
