package bt

import (
	"errors"
	"fmt"
)

// RefFile is a decorator whose child is loaded from the file named by the
// path attribute when the tree is set up. A RefFile rebuilt from an export
// already carries its child and skips loading.
type RefFile struct {
	Decorator
	path string
}

func NewRefFile(attrs Attrs, children ...Node) (*RefFile, error) {
	const tag = "RefFile"
	if len(children) > 1 {
		return nil, &BuildError{Tag: tag, Err: fmt.Errorf("%w: want 0 or 1, got %d", ErrArity, len(children))}
	}
	if _, err := requireAttr(tag, attrs, "path"); err != nil {
		return nil, err
	}
	n := &RefFile{}
	n.Init(n, tag, KindDecorator, attrs)
	for _, child := range children {
		if err := n.decorate(child); err != nil {
			return nil, err
		}
	}
	return n, nil
}

// Path returns the resolved path, available after setup.
func (n *RefFile) Path() string { return n.path }

func (n *RefFile) Setup(ctx *Context, opts SetupOptions) error {
	if err := n.Decorator.Setup(ctx, opts); err != nil {
		return err
	}
	path, err := n.conv.Render(n.attrs["path"])
	if err != nil {
		return err
	}
	n.path = path
	if n.Decorated() != nil {
		return nil
	}
	if opts.Loader == nil {
		return &BuildError{Tag: n.tag, Path: path, Err: errors.New("no loader available")}
	}
	child, err := opts.Loader.LoadFile(path)
	if err != nil {
		return err
	}
	return n.decorate(child)
}

func (n *RefFile) Data() Attrs {
	data := n.Decorator.Data()
	data["path"] = n.path
	return data
}
