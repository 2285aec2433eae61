package bt

import (
	"fmt"
	"slices"
	"strings"
)

// Status is the four-valued result of ticking a node.
//
// Invalid doubles as "never run" and "externally invalidated". Running means
// the node suspended itself and resumes on the next tick. Success and Failure
// are terminal for the current activation.
type Status int

const (
	Invalid Status = iota
	Running
	Success
	Failure
)

var statusNames = [...]string{
	Invalid: "INVALID",
	Running: "RUNNING",
	Success: "SUCCESS",
	Failure: "FAILURE",
}

// Valid reports whether s is one of the four defined statuses.
func (s Status) Valid() bool {
	return s >= Invalid && s <= Failure
}

func (s Status) String() string {
	if !s.Valid() {
		return fmt.Sprintf("Status(%d)", int(s))
	}
	return statusNames[s]
}

// MarshalText encodes the status by name.
func (s Status) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("bt: invalid status %d", int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText decodes a status name, case-insensitively.
func (s *Status) UnmarshalText(text []byte) error {
	v, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ParseStatus parses a status name such as "SUCCESS" or "running".
func ParseStatus(name string) (Status, error) {
	upper := strings.ToUpper(strings.TrimSpace(name))
	for i, n := range statusNames {
		if n == upper {
			return Status(i), nil
		}
	}
	return Invalid, fmt.Errorf("bt: unknown status %q", name)
}

// ParseStatusSet parses a '|' separated list of status names, e.g.
// "SUCCESS|FAILURE".
func ParseStatusSet(spec string) ([]Status, error) {
	var out []Status
	for part := range strings.SplitSeq(spec, "|") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		s, err := ParseStatus(part)
		if err != nil {
			return nil, err
		}
		if !slices.Contains(out, s) {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("bt: empty status set %q", spec)
	}
	return out, nil
}

func statusIn(s Status, set []Status) bool {
	return slices.Contains(set, s)
}

func joinStatuses(set []Status) string {
	names := make([]string, len(set))
	for i, s := range set {
		names[i] = s.String()
	}
	return strings.Join(names, "|")
}
