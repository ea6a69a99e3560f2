package harness

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/blockgraph/internal/graph"
	"github.com/roach88/blockgraph/internal/journal"
)

// AssertionError describes one failed assertion.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
}

func (e *AssertionError) Error() string {
	return fmt.Sprintf("assertion failed: %s\n  Expected: %s\n  Actual: %s", e.Type, e.Expected, e.Actual)
}

// EvaluateAssertions checks every assertion and returns one message per
// failure, in assertion order.
func EvaluateAssertions(ctx context.Context, g *graph.Graph, result *Result, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertPropertyEquals:
			err = assertPropertyEquals(ctx, g, a)
		case AssertEdgeCount:
			err = assertEdgeCount(g, a)
		case AssertDotContains:
			err = assertDotContains(result.Dot, a)
		case AssertDelivered:
			err = assertDelivered(result.Deliveries, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

func assertPropertyEquals(ctx context.Context, g *graph.Graph, a Assertion) error {
	b, ok := g.Node(a.Node)
	if !ok {
		return &AssertionError{Type: a.Type, Expected: "node " + a.Node, Actual: "no such node"}
	}
	key, err := graph.ParseKey(a.Key)
	if err != nil {
		return err
	}
	got, err := graph.GetPropertyValue(ctx, b, key)
	if err != nil {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%s.%s = %v", a.Node, a.Key, a.Value),
			Actual:   err.Error(),
		}
	}
	if !valuesEqual(got, a.Value) {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%s.%s = %v", a.Node, a.Key, a.Value),
			Actual:   fmt.Sprintf("%v", got),
		}
	}
	return nil
}

func assertEdgeCount(g *graph.Graph, a Assertion) error {
	if n := len(g.EnumerateEdges()); n != a.Count {
		return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("%d edges", a.Count), Actual: fmt.Sprintf("%d edges", n)}
	}
	return nil
}

func assertDotContains(dot string, a Assertion) error {
	if !strings.Contains(dot, a.Contains) {
		return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("dot containing %q", a.Contains), Actual: dot}
	}
	return nil
}

func assertDelivered(deliveries []journal.Delivery, a Assertion) error {
	prefix := a.Node + "@"
	for _, d := range deliveries {
		if d.Type != a.Action || !strings.HasPrefix(d.Dst, prefix) {
			continue
		}
		if a.Outcome == "" || d.Outcome == a.Outcome {
			return nil
		}
	}
	expected := fmt.Sprintf("%s delivered to %s", a.Action, a.Node)
	if a.Outcome != "" {
		expected += " (" + a.Outcome + ")"
	}
	return &AssertionError{Type: a.Type, Expected: expected, Actual: fmt.Sprintf("%d deliveries, none matching", len(deliveries))}
}

// valuesEqual compares numbers by value so a YAML 20000000 matches a float64
// rate. Everything else compares by its printed form.
func valuesEqual(got, want any) bool {
	gf, gok := toFloat(got)
	wf, wok := toFloat(want)
	if gok && wok {
		return gf == wf
	}
	return fmt.Sprint(got) == fmt.Sprint(want)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}
