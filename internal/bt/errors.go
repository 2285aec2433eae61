package bt

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadySetup is returned when a tree or node is set up twice.
	ErrAlreadySetup = errors.New("bt: already set up")
	// ErrNotSetup is returned when ticking a tree before Setup.
	ErrNotSetup = errors.New("bt: not set up")
	// ErrAlreadyParented is wrapped when attaching a child that already has a parent.
	ErrAlreadyParented = errors.New("child already has a parent")
	// ErrDuplicateChild is wrapped when the same node is attached twice in one call.
	ErrDuplicateChild = errors.New("child listed more than once")
	// ErrChildNotFound is wrapped when removing a child that is not present.
	ErrChildNotFound = errors.New("child not found")
	// ErrUpdaterDone is returned by Updater.Next once the sequence is exhausted.
	ErrUpdaterDone = errors.New("bt: updater exhausted")
	// ErrArity is wrapped when a node receives the wrong number of children.
	ErrArity = errors.New("wrong number of children")
	// ErrMissingAttr is wrapped when a required attribute is absent.
	ErrMissingAttr = errors.New("missing required attribute")

	errUnknownRemap = errors.New("unknown remapping decorator")
)

// BuildError reports a failure constructing a node. Construction errors abort
// the whole build.
type BuildError struct {
	Tag  string
	Path string
	Err  error
}

func (e *BuildError) Error() string {
	switch {
	case e.Path != "" && e.Tag != "":
		return fmt.Sprintf("build %s (%s): %v", e.Tag, e.Path, e.Err)
	case e.Path != "":
		return fmt.Sprintf("build %s: %v", e.Path, e.Err)
	default:
		return fmt.Sprintf("build %s: %v", e.Tag, e.Err)
	}
}

func (e *BuildError) Unwrap() error { return e.Err }

// StructuralError reports an invalid edit of the parent/child structure.
type StructuralError struct {
	Op     string
	Parent string
	Child  string
	Err    error
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("%s %q on %q: %v", e.Op, e.Child, e.Parent, e.Err)
}

func (e *StructuralError) Unwrap() error { return e.Err }

func requireAttr(tag string, attrs Attrs, key string) (any, error) {
	v, ok := attrs[key]
	if !ok {
		return nil, &BuildError{Tag: tag, Err: fmt.Errorf("%w %q", ErrMissingAttr, key)}
	}
	return v, nil
}
