// Package builder compiles tree definitions (JSON, XML and YAML records)
// into live node trees.
package builder

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"

	"github.com/google/uuid"
	"github.com/joeycumines/arbor/internal/bt"
	"github.com/joeycumines/arbor/internal/convert"
	"github.com/mitchellh/mapstructure"
)

// IncludeTag splices the tree stored at its path attribute in place of the
// element. Its remaining attributes are passed down as caller attributes.
const IncludeTag = "Include"

var (
	// ErrUnknownTag is wrapped when a record names an unregistered tag.
	ErrUnknownTag = errors.New("unknown tag")
	// ErrIncludeCycle is wrapped when an include refers back to a file that
	// is still being built.
	ErrIncludeCycle = errors.New("include cycle")
)

// Builder turns records into nodes using a registry of constructors.
type Builder struct {
	registry *Registry
	globals  bt.Attrs
	logger   *slog.Logger
}

// Option configures a Builder.
type Option func(*Builder)

// WithRegistry replaces the default registry.
func WithRegistry(r *Registry) Option {
	return func(b *Builder) { b.registry = r }
}

// WithGlobals sets attributes merged beneath every node's own attributes.
func WithGlobals(globals map[string]any) Option {
	return func(b *Builder) { b.globals = bt.Attrs(globals).Clone() }
}

// WithLogger sets the builder logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Builder) { b.logger = logger }
}

// New creates a Builder.
func New(opts ...Option) *Builder {
	b := &Builder{}
	for _, opt := range opts {
		opt(b)
	}
	if b.registry == nil {
		b.registry = DefaultRegistry()
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}
	return b
}

// Registry returns the constructor registry.
func (b *Builder) Registry() *Registry { return b.registry }

// build carries the per-call state through a recursive build.
type build struct {
	attrs          bt.Attrs
	ignoreChildren bool
	dir            string
	// files is the stack of absolute paths currently being built.
	files []string
}

// BuildOption configures a single build.
type BuildOption func(*build)

// WithAttrs sets caller attributes, layered between the globals and each
// node's own data.
func WithAttrs(attrs map[string]any) BuildOption {
	return func(s *build) { s.attrs = bt.MergeAttrs(s.attrs, attrs) }
}

// WithIgnoreChildren builds the root only, skipping its children.
func WithIgnoreChildren() BuildOption {
	return func(s *build) { s.ignoreChildren = true }
}

// WithDir sets the directory relative include paths are resolved against.
func WithDir(dir string) BuildOption {
	return func(s *build) { s.dir = dir }
}

func newBuild(opts []BuildOption) *build {
	s := &build{attrs: bt.Attrs{}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BuildRecord compiles r. Any construction error aborts the whole build and
// no partial tree is returned.
func (b *Builder) BuildRecord(r bt.Record, opts ...BuildOption) (bt.Node, error) {
	return b.compile(r, newBuild(opts))
}

// BuildJSON parses and compiles a JSON tree definition.
func (b *Builder) BuildJSON(data []byte, opts ...BuildOption) (bt.Node, error) {
	return b.buildBytes(FormatJSON, data, opts)
}

// BuildXML parses and compiles an XML tree definition.
func (b *Builder) BuildXML(data []byte, opts ...BuildOption) (bt.Node, error) {
	return b.buildBytes(FormatXML, data, opts)
}

// BuildYAML parses and compiles a YAML tree definition.
func (b *Builder) BuildYAML(data []byte, opts ...BuildOption) (bt.Node, error) {
	return b.buildBytes(FormatYAML, data, opts)
}

func (b *Builder) buildBytes(format Format, data []byte, opts []BuildOption) (bt.Node, error) {
	r, err := Parse(format, data)
	if err != nil {
		return nil, err
	}
	return b.BuildRecord(r, opts...)
}

// BuildFile compiles the tree stored at path, inferring the format from the
// extension.
func (b *Builder) BuildFile(path string, opts ...BuildOption) (bt.Node, error) {
	return b.buildFile(path, newBuild(opts))
}

// LoadFile builds the tree stored at path with default options. It lets the
// builder act as the loader handed to nodes at setup.
func (b *Builder) LoadFile(path string) (bt.Node, error) {
	return b.BuildFile(path)
}

var _ bt.Loader = (*Builder)(nil)

func (b *Builder) buildFile(path string, s *build) (bt.Node, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if slices.Contains(s.files, abs) {
		return nil, &bt.BuildError{Tag: IncludeTag, Path: abs, Err: ErrIncludeCycle}
	}
	format, err := FormatOf(abs)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("read tree: %w", err)
	}
	r, err := Parse(format, data)
	if err != nil {
		return nil, &bt.BuildError{Path: abs, Err: err}
	}
	b.logger.Debug("[Builder] building file", "path", abs, "format", format)
	child := *s
	child.dir = filepath.Dir(abs)
	child.files = append(slices.Clone(s.files), abs)
	return b.compile(r, &child)
}

func (b *Builder) compile(r bt.Record, s *build) (bt.Node, error) {
	if r.Tag == IncludeTag || r.Tag == SnakeCase(IncludeTag) {
		return b.include(r, s)
	}
	ctor, ok := b.registry.Lookup(r.Tag)
	if !ok {
		return nil, &bt.BuildError{Tag: r.Tag, Err: ErrUnknownTag}
	}

	var children []bt.Node
	if !s.ignoreChildren {
		for _, cr := range r.Children {
			child, err := b.compile(cr, s)
			if err != nil {
				return nil, err
			}
			children = append(children, child)
		}
	}

	attrs := bt.MergeAttrs(b.globals, s.attrs, r.Data)
	delete(attrs, bt.KeyType)
	delete(attrs, bt.KeyTag)
	delete(attrs, bt.KeyDebug)
	if _, ok := attrs[bt.KeyName]; !ok {
		attrs[bt.KeyName] = r.Tag
	}

	n, err := ctor(bt.Args{Tag: r.Tag, Attrs: attrs, Children: children})
	if err != nil {
		return nil, b.located(r.Tag, s, err)
	}
	if err := restore(n, r.Data); err != nil {
		return nil, b.located(r.Tag, s, err)
	}
	return n, nil
}

// located attaches the current file to a construction error.
func (b *Builder) located(tag string, s *build, err error) error {
	path := ""
	if len(s.files) > 0 {
		path = s.files[len(s.files)-1]
	}
	var be *bt.BuildError
	if errors.As(err, &be) {
		if be.Path == "" {
			be.Path = path
		}
		return err
	}
	return &bt.BuildError{Tag: tag, Path: path, Err: err}
}

func (b *Builder) include(r bt.Record, s *build) (bt.Node, error) {
	if len(r.Children) > 0 {
		return nil, b.located(IncludeTag, s, fmt.Errorf("%w: include takes no children", bt.ErrArity))
	}
	raw, ok := r.Data["path"]
	if !ok {
		return nil, b.located(IncludeTag, s, fmt.Errorf("%w %q", bt.ErrMissingAttr, "path"))
	}
	env := bt.MergeAttrs(b.globals, s.attrs)
	path, err := convert.New(func() map[string]any { return env }).Render(raw)
	if err != nil {
		return nil, b.located(IncludeTag, s, err)
	}
	if !filepath.IsAbs(path) && s.dir != "" {
		path = filepath.Join(s.dir, path)
	}
	extra := maps.Clone(r.Data)
	delete(extra, "path")
	child := *s
	child.attrs = bt.MergeAttrs(s.attrs, extra)
	return b.buildFile(path, &child)
}

// presets are the node state keys restored after construction.
type presets struct {
	ID      string `mapstructure:"id"`
	Status  string `mapstructure:"status"`
	Actions any    `mapstructure:"actions"`
}

// restore reinstates exported state from the node's own record data.
func restore(n bt.Node, data bt.Attrs) error {
	var p presets
	if err := mapstructure.WeakDecode(map[string]any(data), &p); err != nil {
		return fmt.Errorf("decode presets: %w", err)
	}
	if p.ID != "" {
		id, err := uuid.Parse(p.ID)
		if err != nil {
			return fmt.Errorf("restore id: %w", err)
		}
		n.SetID(id)
	}
	if p.Status != "" {
		s, err := bt.ParseStatus(p.Status)
		if err != nil {
			return fmt.Errorf("restore status: %w", err)
		}
		n.SetStatus(s)
	}
	if q, ok := n.(bt.ActionQueue); ok && p.Actions != nil {
		actions, err := decodeActions(p.Actions)
		if err != nil {
			return err
		}
		for _, action := range actions {
			q.PushAction(action)
		}
	}
	if r, ok := n.(bt.Restorer); ok {
		if err := r.Restore(data); err != nil {
			return fmt.Errorf("restore %s: %w", n.Tag(), err)
		}
	}
	return nil
}

// decodeActions accepts a list or, from XML, its JSON encoding.
func decodeActions(v any) ([]any, error) {
	switch v := v.(type) {
	case string:
		if v == "" {
			return nil, nil
		}
		var actions []any
		if err := json.Unmarshal([]byte(v), &actions); err != nil {
			return nil, fmt.Errorf("restore actions: %w", err)
		}
		return actions, nil
	case []any:
		return v, nil
	case []string:
		out := make([]any, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out, nil
	default:
		return nil, fmt.Errorf("restore actions: unexpected %T", v)
	}
}
