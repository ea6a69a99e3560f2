package graph

import "strings"

// ToDot renders the edges in insertion order, one "src:port --> dst:port"
// line per edge inside a digraph block. Static edges use "==>".
func (g *Graph) ToDot() string {
	var b strings.Builder
	b.WriteString("digraph {\n")
	for _, e := range g.EnumerateEdges() {
		b.WriteString("  ")
		b.WriteString(e.String())
		b.WriteString("\n")
	}
	b.WriteString("}\n")
	return b.String()
}
