// Package testutil holds deterministic action id generators, so repeated
// graph runs correlate actions identically.
package testutil

import (
	"fmt"
	"sync"

	"github.com/roach88/blockgraph/internal/graph"
)

var (
	_ graph.IDGenerator = (*ScriptedIDGenerator)(nil)
	_ graph.IDGenerator = FixedIDGenerator("")
)

// ScriptedIDGenerator hands out a fixed list of action ids in order, then
// continues with "<prefix>-N" where N counts every id generated so far.
type ScriptedIDGenerator struct {
	mu     sync.Mutex
	ids    []string
	prefix string
	n      int
}

// NewScriptedIDGenerator creates a generator that returns ids first. An empty
// prefix defaults to "act".
func NewScriptedIDGenerator(prefix string, ids ...string) *ScriptedIDGenerator {
	if prefix == "" {
		prefix = "act"
	}
	return &ScriptedIDGenerator{ids: ids, prefix: prefix}
}

// Generate returns the next id.
func (g *ScriptedIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	if g.n <= len(g.ids) {
		return g.ids[g.n-1]
	}
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}

// FixedIDGenerator returns the same id for every post. Useful when a test
// needs every delivery in a journal to share one correlation id.
type FixedIDGenerator string

// Generate returns the fixed id, or "act-fixed" when empty.
func (g FixedIDGenerator) Generate() string {
	if g == "" {
		return "act-fixed"
	}
	return string(g)
}
