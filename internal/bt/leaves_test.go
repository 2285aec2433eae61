package bt

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSequenceOfSuccessAndPrint(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	printer := Must(NewPrint(Attrs{"msg": "A"}))
	seq := Must(NewSequence(nil, Must(NewSuccess(nil)), printer))
	tree := newTree(t, seq, WithOutput(&out))

	require.Equal(t, Success, tick(t, tree))
	require.Same(t, printer, seq.Current())
	require.Equal(t, "A\n", out.String())
	require.Equal(t, 1, printer.Debug().TickCount)
}

func TestPrint_Template(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	printer := Must(NewPrint(Attrs{"msg": "hello {{ who }}"}))
	tree := newTree(t, printer, WithOutput(&out), WithValues(map[string]any{"who": "bob"}))

	require.Equal(t, Success, tick(t, tree))
	require.Equal(t, "hello bob\n", out.String())
	require.Equal(t, "hello bob", printer.Data()["curr_msg"])

	_, err := NewPrint(nil)
	require.ErrorIs(t, err, ErrMissingAttr)
}

func TestAction_Queue(t *testing.T) {
	t.Parallel()

	printer := Must(NewPrint(Attrs{"msg": "x"}))
	printer.PushAction("move")
	printer.PushAction(3)
	require.Equal(t, []string{"move", "3"}, printer.Data()[KeyActions])

	a, ok := printer.PopAction()
	require.True(t, ok)
	require.Equal(t, "move", a)
	require.Equal(t, []any{3}, printer.Actions())
}

func TestConstants(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		ctor func(Attrs, ...Node) (*Constant, error)
		want Status
	}{
		{NewSuccess, Success},
		{NewFailure, Failure},
		{NewRunning, Running},
	} {
		n := Must(tc.ctor(nil))
		require.Equal(t, tc.want, tick(t, newTree(t, n)))
		require.Equal(t, KindCondition, n.Kind())
	}
	n := Must(NewSuccess(nil))
	tick(t, newTree(t, n))
	require.Equal(t, 1.0, n.Data()["condition_score"])
}

func TestIsMatchRule(t *testing.T) {
	t.Parallel()

	rule := Must(NewIsMatchRule(Attrs{"rule": "{{ hp }} > 10"}))
	tree := newTree(t, rule, WithValues(map[string]any{"hp": 20}))
	require.Equal(t, Success, tick(t, tree))

	tree.Context().Set("hp", 5)
	require.Equal(t, Failure, tick(t, tree))
}

func TestIsChanged(t *testing.T) {
	t.Parallel()

	changed := Must(NewIsChanged(Attrs{"value": "{{ x }}"}))
	tree := newTree(t, changed, WithValues(map[string]any{"x": 1}))

	require.Equal(t, Failure, tick(t, tree), "first observation is not a change")
	tree.Context().Set("x", 2)
	require.Equal(t, Success, tick(t, tree))
	require.Equal(t, Failure, tick(t, tree))
	require.Equal(t, 1, changed.ChangedCount())

	tree.Reset()
	require.Zero(t, changed.ChangedCount())
}

func TestIsChanged_ImmediateAndRule(t *testing.T) {
	t.Parallel()

	immediate := Must(NewIsChanged(Attrs{"value": "{{ x }}", "immediate": "true"}))
	require.Equal(t, Success, tick(t, newTree(t, immediate, WithValues(map[string]any{"x": 1}))))

	ruled := Must(NewIsChanged(Attrs{
		"value": "{{ x }}",
		"rule":  "abs(curr_value - last_value) >= 10",
	}))
	tree := newTree(t, ruled, WithValues(map[string]any{"x": 1}))
	require.Equal(t, Failure, tick(t, tree))
	tree.Context().Set("x", 5)
	require.Equal(t, Failure, tick(t, tree))
	tree.Context().Set("x", 20)
	require.Equal(t, Success, tick(t, tree))
}

func TestIsEqual(t *testing.T) {
	t.Parallel()

	eq := Must(NewIsEqual(Attrs{"a": "{{ left }}", "b": "ready"}))
	tree := newTree(t, eq, WithValues(map[string]any{"left": "ready"}))
	require.Equal(t, Success, tick(t, tree))
	require.Equal(t, "ready", eq.Data()["curr_a"])

	tree.Context().Set("left", "busy")
	require.Equal(t, Failure, tick(t, tree))
}

func TestRandomIntValue(t *testing.T) {
	t.Parallel()

	n := Must(NewRandomIntValue(Attrs{"key": "{{ prefix }}roll", "low": 1, "high": "3"}))
	tree := newTree(t, n, WithValues(map[string]any{"prefix": "d"}))

	seen := map[int]bool{}
	for range 200 {
		require.Equal(t, Success, tick(t, tree))
		v := tree.Context().Get("droll").(int)
		require.GreaterOrEqual(t, v, 1)
		require.LessOrEqual(t, v, 3)
		seen[v] = true
	}
	require.Len(t, seen, 3)
	require.Equal(t, "droll", n.Key())
}

func TestRandomFloatValue(t *testing.T) {
	t.Parallel()

	n := Must(NewRandomFloatValue(Attrs{"key": "f", "low": 2, "high": 4}))
	tree := newTree(t, n)
	for range 50 {
		tick(t, tree)
		v := tree.Context().Get("f").(float64)
		require.GreaterOrEqual(t, v, 2.0)
		require.Less(t, v, 4.0)
	}
}

func TestRandomSuccess(t *testing.T) {
	t.Parallel()

	always := Must(NewRandomSuccess(Attrs{"prob": 1}))
	require.Equal(t, Success, tick(t, newTree(t, always)))

	never := Must(NewRandomSuccess(Attrs{"prob": "0"}))
	require.Equal(t, Failure, tick(t, newTree(t, never)))

	bad := newTree(t, Must(NewRandomSuccess(Attrs{"prob": 2})))
	_, err := bad.Tick()
	require.Error(t, err)
}

func TestSetToContext(t *testing.T) {
	t.Parallel()

	ctx := map[string]any{"a": 2}
	str := Must(NewSetValueToContext(Attrs{"key": "s", "value": "v{{ a }}"}))
	i := Must(NewSetIntToContext(Attrs{"key": "i", "value": "{{ a }} + 1"}))
	f := Must(NewSetFloatToContext(Attrs{"key": "f", "value": "a / 4"}))
	tree := newTree(t, Must(NewSequence(nil, str, i, f)), WithValues(ctx))

	require.Equal(t, Success, tick(t, tree))
	require.Equal(t, "v2", tree.Context().Get("s"))
	require.Equal(t, 3, tree.Context().Get("i"))
	require.Equal(t, 0.5, tree.Context().Get("f"))
	require.Equal(t, 3, i.Data()["curr_value"])

	_, err := NewSetIntToContext(Attrs{"key": "k"})
	require.ErrorIs(t, err, ErrMissingAttr)
}

func TestSeededTemplates(t *testing.T) {
	t.Parallel()

	run := func(seed uint64) []any {
		n := Must(NewSetIntToContext(Attrs{"key": "roll", "value": "randint(1, 1000000)"}))
		tree := newTree(t, n, WithSeed(seed))
		var rolls []any
		for range 4 {
			require.Equal(t, Success, tick(t, tree))
			rolls = append(rolls, tree.Context().Get("roll"))
		}
		return rolls
	}
	require.Equal(t, run(42), run(42))
	require.NotEqual(t, run(42), run(43))
}

func TestTimeElapsed(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{}
	n := Must(NewTimeElapsed(Attrs{"duration": 2}))
	tree := newTree(t, n, WithClock(clock.Now))

	for _, step := range []struct {
		now  float64
		want Status
	}{
		{0, Failure},
		{1, Failure},
		{2, Success},
		{3, Failure},
		{4, Success},
	} {
		clock.now = step.now
		require.Equal(t, step.want, tick(t, tree), "t=%v", step.now)
	}

	immediate := Must(NewTimeElapsed(Attrs{"immediate": true, "time": 100}))
	require.Equal(t, Success, tick(t, newTree(t, immediate)))
}
