package bt

// Remap rewrites selected child statuses and passes the rest through.
type Remap struct {
	Decorator
	table map[Status]Status
}

// Remapping tables keyed by tag.
var remaps = map[string]map[Status]Status{
	"Inverter":         {Success: Failure, Failure: Success},
	"RunningIsFailure": {Running: Failure},
	"RunningIsSuccess": {Running: Success},
	"FailureIsSuccess": {Failure: Success},
	"FailureIsRunning": {Failure: Running},
	"SuccessIsFailure": {Success: Failure},
	"SuccessIsRunning": {Success: Running},
}

// RemapTags lists the tags of the status-remapping decorators.
func RemapTags() []string {
	return []string{
		"Inverter",
		"RunningIsFailure",
		"RunningIsSuccess",
		"FailureIsSuccess",
		"FailureIsRunning",
		"SuccessIsFailure",
		"SuccessIsRunning",
	}
}

// NewRemap builds the remapping decorator registered under tag.
func NewRemap(tag string, attrs Attrs, children ...Node) (*Remap, error) {
	table, ok := remaps[tag]
	if !ok {
		return nil, &BuildError{Tag: tag, Err: errUnknownRemap}
	}
	n := &Remap{table: table}
	if err := n.InitDecorator(n, tag, attrs, children); err != nil {
		return nil, err
	}
	return n, nil
}

// NewInverter swaps Success and Failure.
func NewInverter(attrs Attrs, children ...Node) (*Remap, error) {
	return NewRemap("Inverter", attrs, children...)
}

func (n *Remap) Update() (Status, error) {
	s, err := n.Decorator.Update()
	if err != nil {
		return s, err
	}
	if mapped, ok := n.table[s]; ok {
		return mapped, nil
	}
	return s, nil
}
