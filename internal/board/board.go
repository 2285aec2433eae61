// Package board records tree snapshots for offline inspection. Every call
// to Track stores a numbered history entry holding the exported tree, plus a
// "current" summary pointing at the latest entry.
package board

import (
	"context"
	"errors"
	"iter"
	"time"

	"github.com/joeycumines/arbor/internal/bt"
)

// Entry is one tracked snapshot.
type Entry struct {
	ID    int            `json:"id"`
	Step  int            `json:"step"`
	Round int            `json:"round"`
	Info  map[string]any `json:"info"`
	// Time is the wall clock in milliseconds since the Unix epoch.
	Time int64      `json:"time"`
	Tree *bt.Record `json:"tree,omitempty"`
}

// Summary returns e without its tree.
func (e Entry) Summary() Entry {
	e.Tree = nil
	return e
}

// Store persists the entries of one or more projects.
type Store interface {
	// Put stores e as history entry e.ID and records its summary as the
	// project's current entry.
	Put(ctx context.Context, project string, e Entry) error
	// Current returns the latest summary, or ErrNoEntries.
	Current(ctx context.Context, project string) (Entry, error)
	// Entries iterates the history in ascending id order.
	Entries(ctx context.Context, project string) iter.Seq2[Entry, error]
	// Clear removes the project's history and current entry.
	Clear(ctx context.Context, project string) error
	Close() error
}

// ErrNoEntries is returned when a project has nothing tracked.
var ErrNoEntries = errors.New("board: no entries")

// Board tracks one tree into a Store.
type Board struct {
	tree    *bt.Tree
	store   Store
	project string
	trackID int
	now     func() time.Time
}

// Option configures a Board.
type Option func(*Board)

// WithProject overrides the project name, which defaults to the tree name.
func WithProject(project string) Option {
	return func(b *Board) { b.project = project }
}

// WithNow overrides the wall clock used to stamp entries.
func WithNow(now func() time.Time) Option {
	return func(b *Board) { b.now = now }
}

// New creates a Board.
func New(tree *bt.Tree, store Store, opts ...Option) *Board {
	b := &Board{tree: tree, store: store, project: tree.Name(), now: time.Now}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Project returns the project name entries are stored under.
func (b *Board) Project() string { return b.project }

// TrackID returns the id of the last tracked entry.
func (b *Board) TrackID() int { return b.trackID }

// Track snapshots the tree with optional extra info.
func (b *Board) Track(ctx context.Context, info map[string]any) (Entry, error) {
	record := bt.ToRecord(b.tree.Root())
	e := Entry{
		ID:    b.trackID + 1,
		Step:  b.tree.Count(),
		Round: b.tree.Round(),
		Info:  info,
		Time:  b.now().UnixMilli(),
		Tree:  &record,
	}
	if err := b.store.Put(ctx, b.project, e); err != nil {
		return Entry{}, err
	}
	b.trackID = e.ID
	b.tree.Context().Logger().Debug("[Board] tracked", "project", b.project, "id", e.ID, "step", e.Step)
	return e, nil
}

// Clear removes every stored entry and restarts numbering.
func (b *Board) Clear(ctx context.Context) error {
	if err := b.store.Clear(ctx, b.project); err != nil {
		return err
	}
	b.trackID = 0
	return nil
}

// Iterate yields the stored history in order.
func (b *Board) Iterate(ctx context.Context) iter.Seq2[Entry, error] {
	return b.store.Entries(ctx, b.project)
}
