package graph

import (
	"strconv"
	"strings"
)

// passBudget counts resolution passes against the configured ceiling.
type passBudget struct {
	max     int
	current int
}

func newPassBudget(max int) *passBudget {
	if max <= 0 {
		max = DefaultMaxPasses
	}
	return &passBudget{max: max}
}

// next records one more pass. It returns RESOLUTION_DIVERGENCE naming the
// still-dirty properties once the ceiling is exceeded.
func (b *passBudget) next(nodes []*Node) error {
	b.current++
	if b.current <= b.max {
		return nil
	}
	var dirty []string
	for _, n := range nodes {
		for _, c := range n.props {
			if c.IsDirty() {
				dirty = append(dirty, n.id+"."+c.Key().String())
			}
		}
	}
	return &Error{
		Code:    CodeDivergence,
		Message: "resolution did not converge within " + strconv.Itoa(b.max) + " passes",
		Details: map[string]string{
			"max_passes": strconv.Itoa(b.max),
			"dirty":      strings.Join(dirty, ","),
		},
	}
}

// Passes returns the number of passes run so far.
func (b *passBudget) Passes() int {
	return b.current
}
