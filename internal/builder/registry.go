package builder

import (
	"maps"
	"slices"
	"strings"
	"unicode"

	"github.com/joeycumines/arbor/internal/bt"
)

// QualifiedPrefix prefixes the fully-qualified alias of every node tag.
const QualifiedPrefix = "bt."

type entry struct {
	ctor bt.Constructor
	desc string
}

// Registry maps tag names to node constructors.
type Registry struct {
	entries map[string]entry
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]entry)}
}

// DefaultRegistry returns a registry seeded with every built-in node.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	RegisterDefault(r)
	return r
}

// Register binds each '|' separated name to ctor.
func (r *Registry) Register(names string, ctor bt.Constructor, desc string) {
	for name := range strings.SplitSeq(names, "|") {
		if name = strings.TrimSpace(name); name != "" {
			r.entries[name] = entry{ctor: ctor, desc: strings.TrimSpace(desc)}
		}
	}
}

// RegisterNode binds tag, its qualified alias and its snake_case alias.
func (r *Registry) RegisterNode(tag string, ctor bt.Constructor, desc string) {
	r.Register(strings.Join(Aliases(tag), "|"), ctor, desc)
}

// Lookup returns the constructor registered under name.
func (r *Registry) Lookup(name string) (bt.Constructor, bool) {
	e, ok := r.entries[name]
	return e.ctor, ok
}

// Describe returns the description registered under name.
func (r *Registry) Describe(name string) string {
	return r.entries[name].desc
}

// Tags returns every registered name, sorted.
func (r *Registry) Tags() []string {
	return slices.Sorted(maps.Keys(r.entries))
}

// Aliases returns tag, its qualified alias and its snake_case alias.
func Aliases(tag string) []string {
	aliases := []string{tag, QualifiedPrefix + tag}
	if snake := SnakeCase(tag); snake != tag {
		aliases = append(aliases, snake)
	}
	return aliases
}

// SnakeCase converts a CamelCase tag to snake_case, e.g. IsMatchRule to
// is_match_rule.
func SnakeCase(s string) string {
	runes := []rune(s)
	var b strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) {
			prevLower := i > 0 && !unicode.IsUpper(runes[i-1])
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if i > 0 && (prevLower || nextLower) && runes[i-1] != '_' {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func remap(tag string) bt.Constructor {
	return func(a bt.Args) (bt.Node, error) {
		n, err := bt.NewRemap(tag, a.Attrs, a.Children...)
		if err != nil {
			return nil, err
		}
		return n, nil
	}
}

// RegisterDefault seeds r with the built-in composites, decorators and
// leaves.
func RegisterDefault(r *Registry) {
	for _, n := range []struct {
		tag  string
		ctor bt.Constructor
		desc string
	}{
		{"Sequence", bt.Ctor(bt.NewSequence), "Ticks children in order while they succeed."},
		{"SequenceWithMemory", bt.Ctor(bt.NewSequenceWithMemory), "Sequence that resumes the failed child."},
		{"ReactiveSequence", bt.Ctor(bt.NewReactiveSequence), "Sequence that restarts from the first child every tick."},
		{"Selector", bt.Ctor(bt.NewSelector), "Ticks children in order until one does not fail."},
		{"SelectorWithMemory", bt.Ctor(bt.NewSelectorWithMemory), "Selector that resumes the successful child."},
		{"ReactiveSelector", bt.Ctor(bt.NewReactiveSelector), "Selector that restarts from the first child every tick."},
		{"Parallel", bt.Ctor(bt.NewParallel), "Ticks every child; succeeds when success_threshold children succeed."},
		{"ConditionBranch", bt.Ctor(bt.NewConditionBranch), "Runs the second child when the first succeeds, else the third."},
		{"CondBranch", bt.Ctor(bt.NewConditionBranch), "Alias of ConditionBranch."},
		{"ReactiveCondBranch", bt.Ctor(bt.NewReactiveCondBranch), "ConditionBranch that re-evaluates its condition every tick."},
		{"CondBranchWithMemory", bt.Ctor(bt.NewCondBranchWithMemory), "ConditionBranch that keeps a failed branch."},
		{"Switcher", bt.Ctor(bt.NewSwitcher), "Delegates to the child selected by index."},
		{"ReactiveSwitcher", bt.Ctor(bt.NewReactiveSwitcher), "Switcher that selects a child every tick."},

		{"OneShot", bt.Ctor(bt.NewOneShot), "Latches the first child result matching policy."},
		{"Count", bt.Ctor(bt.NewCount), "Counts child ticks and results."},
		{"Timeout", bt.Ctor(bt.NewTimeout), "Fails a child still running after duration."},
		{"Throttle", bt.Ctor(bt.NewThrottle), "Ticks the child at most once per duration."},
		{"RunningUntilCondition", bt.Ctor(bt.NewRunningUntilCondition), "Runs until the child reports status, then succeeds."},
		{"RefFile", bt.Ctor(bt.NewRefFile), "Loads its child from path at setup."},

		{"Success", bt.Ctor(bt.NewSuccess), "Always succeeds."},
		{"Failure", bt.Ctor(bt.NewFailure), "Always fails."},
		{"Running", bt.Ctor(bt.NewRunning), "Always runs."},
		{"Print", bt.Ctor(bt.NewPrint), "Writes msg to the output."},
		{"IsMatchRule", bt.Ctor(bt.NewIsMatchRule), "Succeeds when rule evaluates to true."},
		{"IsChanged", bt.Ctor(bt.NewIsChanged), "Succeeds when value changed since the last tick."},
		{"IsEqual", bt.Ctor(bt.NewIsEqual), "Succeeds when a equals b."},
		{"RandomIntValue", bt.Ctor(bt.NewRandomIntValue), "Stores a random integer in [low, high] under key."},
		{"RandomFloatValue", bt.Ctor(bt.NewRandomFloatValue), "Stores a random float in [low, high) under key."},
		{"RandomSuccess", bt.Ctor(bt.NewRandomSuccess), "Succeeds with probability prob."},
		{"SetValueToContext", bt.Ctor(bt.NewSetValueToContext), "Stores the rendered value under key."},
		{"SetIntToContext", bt.Ctor(bt.NewSetIntToContext), "Stores value as an integer under key."},
		{"SetFloatToContext", bt.Ctor(bt.NewSetFloatToContext), "Stores value as a float under key."},
		{"TimeElapsed", bt.Ctor(bt.NewTimeElapsed), "Succeeds once every duration."},
	} {
		r.RegisterNode(n.tag, n.ctor, n.desc)
	}
	for _, tag := range bt.RemapTags() {
		r.RegisterNode(tag, remap(tag), "Remaps child statuses ("+tag+").")
	}
}
