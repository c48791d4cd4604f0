package harness

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/go-cmp/cmp"

	"github.com/roach88/denorm/internal/access"
	"github.com/roach88/denorm/internal/denorm"
	"github.com/roach88/denorm/internal/ir"
	"github.com/roach88/denorm/internal/schema"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Step     string
	Path     string
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
	Diff     string // (-expected +actual), for content assertions
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s at %s", e.Type, e.Step)
	if e.Path != "" {
		fmt.Fprintf(&buf, ".%s", e.Path)
	}
	buf.WriteByte('\n')
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)
	if e.Diff != "" {
		fmt.Fprintf(&buf, "\nDiff (-expected +actual):\n%s", e.Diff)
	}

	return buf.String()
}

// AssertionContext carries what matches_plain needs to recompute a step.
type AssertionContext struct {
	Node   schema.Node
	Inputs map[string]ir.IRValue
	Stores map[string]ir.IRValue
	Logger *slog.Logger
}

// EvaluateAssertions checks all assertions against the result.
// Returns a list of error messages (empty if all pass).
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertSame:
			err = assertIdentity(result, assertion, true)
		case AssertChanged:
			err = assertIdentity(result, assertion, false)
		case AssertEquals:
			err = assertEquals(result, assertion)
		case AssertMatchesPlain:
			if actx == nil || actx.Node == nil {
				err = fmt.Errorf("assertion[%d]: matches_plain requires a schema context", i)
			} else {
				err = assertMatchesPlain(result, assertion, actx)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}

// lookup resolves a dotted path inside a step result.
func lookup(result *Result, step, path string) (ir.IRValue, error) {
	v, ok := result.Step(step)
	if !ok {
		return nil, fmt.Errorf("no result for step %q", step)
	}
	if path == "" {
		return v, nil
	}
	out, ok := access.GetIn(v, strings.Split(path, ".")...)
	if !ok {
		return nil, fmt.Errorf("step %q: path %q not found", step, path)
	}
	return out, nil
}

// assertIdentity checks that a path holds the same (or a different) value by
// identity in two steps.
func assertIdentity(result *Result, a Assertion, wantSame bool) error {
	got, err := lookup(result, a.Step, a.Path)
	if err != nil {
		return err
	}
	against, err := lookup(result, a.Against, a.Path)
	if err != nil {
		return err
	}

	if ir.Same(got, against) == wantSame {
		return nil
	}

	expected, actual := "same value as step "+a.Against, "a different value"
	if !wantSame {
		expected, actual = "a different value from step "+a.Against, "the same value"
	}
	return &AssertionError{
		Type:     a.Type,
		Step:     a.Step,
		Path:     a.Path,
		Expected: expected,
		Actual:   actual,
	}
}

// assertEquals checks a path against a literal, structurally. The literal
// is frozen when the result holds persistent containers.
func assertEquals(result *Result, a Assertion) error {
	got, err := lookup(result, a.Step, a.Path)
	if err != nil {
		return err
	}
	want, err := ir.FromAny(a.Value)
	if err != nil {
		return fmt.Errorf("step %q: expected value: %w", a.Step, err)
	}
	switch got.(type) {
	case *ir.IRMap, *ir.IRList:
		want = ir.Freeze(want)
	}

	if ir.Equal(got, want) {
		return nil
	}
	return &AssertionError{
		Type:     a.Type,
		Step:     a.Step,
		Path:     a.Path,
		Expected: render(want),
		Actual:   render(got),
		Diff:     diff(want, got),
	}
}

// assertMatchesPlain recomputes the step with the plain walker and compares
// structurally. Memoized results replace cycles with bare ids, so this only
// holds for acyclic data.
func assertMatchesPlain(result *Result, a Assertion, actx *AssertionContext) error {
	got, err := lookup(result, a.Step, a.Path)
	if err != nil {
		return err
	}

	plain, err := denorm.Denormalize(actx.Inputs[a.Step], actx.Stores[a.Step], actx.Node, denorm.Options{Logger: actx.Logger})
	if err != nil {
		return fmt.Errorf("step %q: plain denormalize: %w", a.Step, err)
	}
	if a.Path != "" {
		var ok bool
		plain, ok = access.GetIn(plain, strings.Split(a.Path, ".")...)
		if !ok {
			return fmt.Errorf("step %q: path %q not found in plain result", a.Step, a.Path)
		}
	}

	if ir.Equal(got, plain) {
		return nil
	}
	return &AssertionError{
		Type:     a.Type,
		Step:     a.Step,
		Path:     a.Path,
		Expected: render(plain),
		Actual:   render(got),
		Diff:     diff(plain, got),
	}
}

func render(v ir.IRValue) string {
	data, err := ir.MarshalCanonicalWith(v, ir.CanonicalOptions{CycleMarker: cycleMarker})
	if err != nil {
		return fmt.Sprintf("<%v>", err)
	}
	return string(data)
}

// diff compares the canonical JSON trees of two values. Persistent and
// plain containers with the same content produce no diff.
func diff(want, got ir.IRValue) string {
	decode := func(v ir.IRValue) any {
		var out any
		if err := json.Unmarshal([]byte(render(v)), &out); err != nil {
			return render(v)
		}
		return out
	}
	return cmp.Diff(decode(want), decode(got))
}
