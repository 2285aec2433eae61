package bt

// Sequence ticks children in order while they succeed. The result is the
// last ticked child's status, or Success without children.
//
// The default mode resumes a running child and restarts from the first
// child after a failure. Memory mode also resumes the child that failed.
// Reactive mode restarts from the first child on every tick, which lets an
// earlier child interrupt a later running one.
type Sequence struct {
	Composite
}

var sequenceTickAgain = map[Resume][]Status{
	ResumeDefault:  {Running},
	ResumeMemory:   {Running, Failure},
	ResumeReactive: nil,
}

// NewSequence builds a Sequence. The reactive and memory attributes select
// the resume mode.
func NewSequence(attrs Attrs, children ...Node) (*Sequence, error) {
	return newSequence("Sequence", attrs, children, nil)
}

// NewSequenceWithMemory builds a Sequence pinned to memory mode.
func NewSequenceWithMemory(attrs Attrs, children ...Node) (*Sequence, error) {
	mode := ResumeMemory
	return newSequence("SequenceWithMemory", attrs, children, &mode)
}

// NewReactiveSequence builds a Sequence pinned to reactive mode.
func NewReactiveSequence(attrs Attrs, children ...Node) (*Sequence, error) {
	mode := ResumeReactive
	return newSequence("ReactiveSequence", attrs, children, &mode)
}

func newSequence(tag string, attrs Attrs, children []Node, mode *Resume) (*Sequence, error) {
	n := &Sequence{}
	if err := n.InitComposite(n, tag, attrs, children); err != nil {
		return nil, err
	}
	if mode != nil {
		n.pin(*mode)
	}
	return n, nil
}

func (n *Sequence) Tick() error {
	mode, err := n.Mode()
	if err != nil {
		return err
	}
	return n.tickSeqSel(seqSel{
		tickAgain: sequenceTickAgain[mode],
		cont:      []Status{Success},
		noChild:   Success,
	})
}
