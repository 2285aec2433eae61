package bt

// Selector ticks children in order until one does not fail. Failure and
// Invalid children advance the scan. The result is the last ticked child's
// status, or Failure without children.
type Selector struct {
	Composite
}

var selectorTickAgain = map[Resume][]Status{
	ResumeDefault:  {Running},
	ResumeMemory:   {Running, Success},
	ResumeReactive: nil,
}

func NewSelector(attrs Attrs, children ...Node) (*Selector, error) {
	return newSelector("Selector", attrs, children, nil)
}

func NewSelectorWithMemory(attrs Attrs, children ...Node) (*Selector, error) {
	mode := ResumeMemory
	return newSelector("SelectorWithMemory", attrs, children, &mode)
}

func NewReactiveSelector(attrs Attrs, children ...Node) (*Selector, error) {
	mode := ResumeReactive
	return newSelector("ReactiveSelector", attrs, children, &mode)
}

func newSelector(tag string, attrs Attrs, children []Node, mode *Resume) (*Selector, error) {
	n := &Selector{}
	if err := n.InitComposite(n, tag, attrs, children); err != nil {
		return nil, err
	}
	if mode != nil {
		n.pin(*mode)
	}
	return n, nil
}

func (n *Selector) Tick() error {
	mode, err := n.Mode()
	if err != nil {
		return err
	}
	return n.tickSeqSel(seqSel{
		tickAgain: selectorTickAgain[mode],
		cont:      []Status{Failure, Invalid},
		noChild:   Failure,
	})
}
