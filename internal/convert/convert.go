// Package convert resolves raw node attributes into typed values.
//
// An attribute is either a native value (passed through untouched) or a
// string. Strings may contain template markers of the form {{ expression }},
// which are substituted against the shared context. Typed targets (numbers,
// booleans, lists and dicts) additionally evaluate the rendered string as an
// expression. Expressions are expr-lang programs: a restricted, side-effect
// free language limited to arithmetic, comparison, boolean and collection
// operators plus the helpers registered in this package. Tree definition
// files are data, so nothing here can reach the host beyond the symbols in
// the environment.
//
// Nothing is cached per attribute: every accessor renders and evaluates the
// raw value again, against the environment as it is at call time.
package convert

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"regexp"
	"strconv"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// MaxRenderPasses bounds nested template substitution.
const MaxRenderPasses = 3

var marker = regexp.MustCompile(`(?s)\{\{(.*?)\}\}`)

// ErrType is wrapped by conversion errors caused by a result of the wrong type.
var ErrType = errors.New("unexpected type")

// ConversionError reports a value that could not be rendered, evaluated, or
// coerced into the requested target type.
type ConversionError struct {
	Value  any
	Target string
	Err    error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("convert %q to %s: %v", fmt.Sprint(e.Value), e.Target, e.Err)
}

func (e *ConversionError) Unwrap() error { return e.Err }

// Env supplies the symbol table for rendering and evaluation. It is called
// on every access.
type Env func() map[string]any

// RandSource supplies the random source behind random() and randint(). It
// is called on every use and may return nil.
type RandSource func() *rand.Rand

// Converter resolves attribute values against an environment.
type Converter struct {
	env  Env
	rand RandSource
}

// Option configures a Converter.
type Option func(*Converter)

// WithRand draws random() and randint() from src instead of the global
// source, so seeded trees evaluate them reproducibly.
func WithRand(src RandSource) Option {
	return func(c *Converter) { c.rand = src }
}

// New returns a Converter backed by env. A nil env behaves as empty.
func New(env Env, opts ...Option) *Converter {
	c := &Converter{env: env}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Converter) source() *rand.Rand {
	if c == nil || c.rand == nil {
		return nil
	}
	return c.rand()
}

// random and randint are bound per Converter, on top of the expr-lang
// builtins. Context keys of the same name take precedence.
func (c *Converter) random() float64 {
	if r := c.source(); r != nil {
		return r.Float64()
	}
	return rand.Float64()
}

func (c *Converter) randint(a, b any) (int, error) {
	flo, ok1 := toFloat(a)
	fhi, ok2 := toFloat(b)
	if !ok1 || !ok2 {
		return 0, fmt.Errorf("randint: non-numeric bounds %v, %v", a, b)
	}
	lo, hi := int(flo), int(fhi)
	if hi < lo {
		return 0, fmt.Errorf("randint: empty range [%d, %d]", lo, hi)
	}
	if r := c.source(); r != nil {
		return lo + r.IntN(hi-lo+1), nil
	}
	return lo + rand.IntN(hi-lo+1), nil
}

func (c *Converter) environment(extra map[string]any) map[string]any {
	var base map[string]any
	if c != nil && c.env != nil {
		base = c.env()
	}
	out := make(map[string]any, len(base)+len(extra)+2)
	out["random"] = c.random
	out["randint"] = c.randint
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

// Render substitutes template markers in v. Non-string values are formatted.
func (c *Converter) Render(v any) (string, error) {
	return c.RenderWith(v, nil)
}

// RenderWith is Render with additional symbols layered over the environment.
func (c *Converter) RenderWith(v any, extra map[string]any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return Format(v), nil
	}
	env := c.environment(extra)
	for range MaxRenderPasses {
		if !strings.Contains(s, "{{") {
			break
		}
		next, err := renderOnce(s, env)
		if err != nil {
			return "", &ConversionError{Value: v, Target: "string", Err: err}
		}
		if next == s {
			break
		}
		s = next
	}
	return s, nil
}

func renderOnce(s string, env map[string]any) (string, error) {
	var firstErr error
	out := marker.ReplaceAllStringFunc(s, func(m string) string {
		if firstErr != nil {
			return m
		}
		body := strings.TrimSpace(m[2 : len(m)-2])
		if body == "" {
			return ""
		}
		result, err := run(body, env)
		if err != nil {
			firstErr = err
			return m
		}
		return Format(result)
	})
	return out, firstErr
}

// Eval renders v and evaluates the result as an expression. Non-string
// values are returned unchanged.
func (c *Converter) Eval(v any, extra map[string]any) (any, error) {
	s, ok := v.(string)
	if !ok {
		return v, nil
	}
	rendered, err := c.RenderWith(s, extra)
	if err != nil {
		return nil, err
	}
	result, err := run(rendered, c.environment(extra))
	if err != nil {
		return nil, &ConversionError{Value: v, Target: "expression", Err: err}
	}
	return result, nil
}

// Bool resolves v to a boolean. The literals true/false are matched
// case-insensitively before falling back to expression evaluation.
func (c *Converter) Bool(v any) (bool, error) {
	return c.BoolWith(v, nil)
}

// BoolWith is Bool with additional symbols.
func (c *Converter) BoolWith(v any, extra map[string]any) (bool, error) {
	switch x := v.(type) {
	case nil:
		return false, nil
	case bool:
		return x, nil
	case string:
		rendered, err := c.RenderWith(x, extra)
		if err != nil {
			return false, err
		}
		switch strings.ToLower(strings.TrimSpace(rendered)) {
		case "true":
			return true, nil
		case "false", "":
			return false, nil
		}
		result, err := run(rendered, c.environment(extra))
		if err != nil {
			return false, &ConversionError{Value: v, Target: "bool", Err: err}
		}
		b, ok := result.(bool)
		if !ok {
			return false, &ConversionError{Value: v, Target: "bool", Err: fmt.Errorf("%w %T", ErrType, result)}
		}
		return b, nil
	}
	return false, &ConversionError{Value: v, Target: "bool", Err: fmt.Errorf("%w %T", ErrType, v)}
}

// Float resolves v to a float64.
func (c *Converter) Float(v any) (float64, error) {
	result, err := c.Eval(v, nil)
	if err != nil {
		return 0, err
	}
	f, ok := toFloat(result)
	if !ok {
		return 0, &ConversionError{Value: v, Target: "float", Err: fmt.Errorf("%w %T", ErrType, result)}
	}
	return f, nil
}

// Int resolves v to an int. Fractional results are truncated toward zero.
func (c *Converter) Int(v any) (int, error) {
	result, err := c.Eval(v, nil)
	if err != nil {
		return 0, err
	}
	f, ok := toFloat(result)
	if !ok {
		return 0, &ConversionError{Value: v, Target: "int", Err: fmt.Errorf("%w %T", ErrType, result)}
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, &ConversionError{Value: v, Target: "int", Err: fmt.Errorf("non-finite value %v", f)}
	}
	return int(f), nil
}

// List resolves v to a slice. Strings are decoded as JSON first, then
// evaluated as an expression.
func (c *Converter) List(v any) ([]any, error) {
	switch x := v.(type) {
	case []any:
		return x, nil
	case []string:
		out := make([]any, len(x))
		for i, s := range x {
			out[i] = s
		}
		return out, nil
	case string:
		rendered, err := c.Render(x)
		if err != nil {
			return nil, err
		}
		var out []any
		if json.Unmarshal([]byte(rendered), &out) == nil {
			return out, nil
		}
		result, err := run(rendered, c.environment(nil))
		if err != nil {
			return nil, &ConversionError{Value: v, Target: "list", Err: err}
		}
		if out, ok := result.([]any); ok {
			return out, nil
		}
		return nil, &ConversionError{Value: v, Target: "list", Err: fmt.Errorf("%w %T", ErrType, result)}
	}
	return nil, &ConversionError{Value: v, Target: "list", Err: fmt.Errorf("%w %T", ErrType, v)}
}

// Dict resolves v to a string-keyed map.
func (c *Converter) Dict(v any) (map[string]any, error) {
	switch x := v.(type) {
	case map[string]any:
		return x, nil
	case string:
		rendered, err := c.Render(x)
		if err != nil {
			return nil, err
		}
		var out map[string]any
		if json.Unmarshal([]byte(rendered), &out) == nil {
			return out, nil
		}
		result, err := run(rendered, c.environment(nil))
		if err != nil {
			return nil, &ConversionError{Value: v, Target: "dict", Err: err}
		}
		if out, ok := result.(map[string]any); ok {
			return out, nil
		}
		return nil, &ConversionError{Value: v, Target: "dict", Err: fmt.Errorf("%w %T", ErrType, result)}
	}
	return nil, &ConversionError{Value: v, Target: "dict", Err: fmt.Errorf("%w %T", ErrType, v)}
}

// Format renders an evaluated value as template output.
func Format(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case fmt.Stringer:
		return x.String()
	case []any, map[string]any:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	}
	return fmt.Sprint(v)
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case int:
		return float64(x), true
	case int8:
		return float64(x), true
	case int16:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint:
		return float64(x), true
	case uint8:
		return float64(x), true
	case uint16:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint64:
		return float64(x), true
	case float32:
		return float64(x), true
	case float64:
		return x, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	}
	return 0, false
}

// helpers is the whitelist of stateless functions available to every
// expression, on top of the expr-lang builtins (abs, min, max, floor, ceil,
// round, len, ...).
var helpers = []expr.Option{
	expr.Function("clamp", func(params ...any) (any, error) {
		if len(params) != 3 {
			return nil, fmt.Errorf("clamp: want 3 arguments, got %d", len(params))
		}
		x, _ := toFloat(params[0])
		lo, _ := toFloat(params[1])
		hi, _ := toFloat(params[2])
		return math.Min(math.Max(x, lo), hi), nil
	}),
}

func compile(source string) (*vm.Program, error) {
	if program, ok := programs.Get(source); ok {
		return program, nil
	}
	program, err := expr.Compile(source, helpers...)
	if err != nil {
		return nil, err
	}
	programs.Put(source, program)
	return program, nil
}

func run(source string, env map[string]any) (any, error) {
	program, err := compile(source)
	if err != nil {
		return nil, err
	}
	return expr.Run(program, env)
}
