package bt

// Updater is a resumable computation yielding one Status per call to Next.
// It replaces a scheduler: a node advances its updater by exactly one step
// per tick, keeping its position across ticks while it reports Running.
//
// Next returns ErrUpdaterDone once the sequence is exhausted. Restart rewinds
// the updater to its first step.
type Updater interface {
	Next() (Status, error)
	Restart()
}

// Step is a single unit of updater work.
type Step func() (Status, error)

type statusList struct {
	statuses []Status
	i        int
}

// Statuses yields each status once, in order.
func Statuses(statuses ...Status) Updater {
	return &statusList{statuses: statuses}
}

func (u *statusList) Next() (Status, error) {
	if u.i >= len(u.statuses) {
		return Invalid, ErrUpdaterDone
	}
	s := u.statuses[u.i]
	u.i++
	return s, nil
}

func (u *statusList) Restart() { u.i = 0 }

// Forever yields s on every call and is never exhausted.
func Forever(s Status) Updater {
	return Loop(func() (Status, error) { return s, nil })
}

type loop struct {
	step Step
}

// Loop calls step on every Next and is never exhausted.
func Loop(step Step) Updater {
	return &loop{step: step}
}

func (u *loop) Next() (Status, error) { return u.step() }

func (u *loop) Restart() {}

type steps struct {
	steps []Step
	pc    int
}

// Steps runs each step in turn, one per Next, then reports exhaustion. It is
// the explicit state-machine form of a multi-tick procedure: a step returning
// Running suspends the node, and the following tick resumes at the next step.
func Steps(s ...Step) Updater {
	return &steps{steps: s}
}

func (u *steps) Next() (Status, error) {
	if u.pc >= len(u.steps) {
		return Invalid, ErrUpdaterDone
	}
	step := u.steps[u.pc]
	u.pc++
	return step()
}

func (u *steps) Restart() { u.pc = 0 }

// Machine is an updater driven by a program counter. fn receives the current
// counter and returns the status to yield and the next counter; a negative
// next counter marks the end of the sequence after this yield.
type Machine struct {
	fn   func(pc int) (Status, int, error)
	pc   int
	done bool
}

// NewMachine returns a Machine starting at counter 0.
func NewMachine(fn func(pc int) (status Status, next int, err error)) *Machine {
	return &Machine{fn: fn}
}

func (m *Machine) Next() (Status, error) {
	if m.done {
		return Invalid, ErrUpdaterDone
	}
	s, next, err := m.fn(m.pc)
	if err != nil {
		return Invalid, err
	}
	if next < 0 {
		m.done = true
	} else {
		m.pc = next
	}
	return s, nil
}

func (m *Machine) Restart() {
	m.pc = 0
	m.done = false
}

// PC returns the current program counter.
func (m *Machine) PC() int { return m.pc }
