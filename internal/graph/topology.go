package graph

import (
	"slices"
)

// outEdge returns the edge leaving id's output port.
func (g *Graph) outEdge(id string, port int) (Edge, bool) {
	for _, e := range g.edges {
		if e.SrcBlock == id && e.SrcPort == port {
			return e, true
		}
	}
	return Edge{}, false
}

// inEdge returns the edge arriving at id's input port.
func (g *Graph) inEdge(id string, port int) (Edge, bool) {
	for _, e := range g.edges {
		if e.DstBlock == id && e.DstPort == port {
			return e, true
		}
	}
	return Edge{}, false
}

// connectedPorts lists the connected input and output ports of id, sorted.
func (g *Graph) connectedPorts(id string) (inputs, outputs []int) {
	inputs, outputs = []int{}, []int{}
	for _, e := range g.edges {
		if e.DstBlock == id {
			inputs = append(inputs, e.DstPort)
		}
		if e.SrcBlock == id {
			outputs = append(outputs, e.SrcPort)
		}
	}
	slices.Sort(inputs)
	slices.Sort(outputs)
	return inputs, outputs
}

// reaches reports whether to is reachable from from along forward edges.
func (g *Graph) reaches(from, to string) bool {
	visited := make(map[string]bool)
	var visit func(id string) bool
	visit = func(id string) bool {
		if id == to {
			return true
		}
		if visited[id] {
			return false
		}
		visited[id] = true
		for _, e := range g.edges {
			if e.IsForward() && e.SrcBlock == id && visit(e.DstBlock) {
				return true
			}
		}
		return false
	}
	return visit(from)
}

// component returns every node connected to seeds through any edge, ignoring
// direction, in registration order.
func (g *Graph) component(seeds []*Node) []*Node {
	in := make(map[string]bool)
	var queue []string
	for _, n := range seeds {
		if n != nil && n.graph == g && !in[n.id] {
			in[n.id] = true
			queue = append(queue, n.id)
		}
	}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, e := range g.edges {
			var next string
			switch id {
			case e.SrcBlock:
				next = e.DstBlock
			case e.DstBlock:
				next = e.SrcBlock
			default:
				continue
			}
			if !in[next] {
				in[next] = true
				queue = append(queue, next)
			}
		}
	}

	out := make([]*Node, 0, len(in))
	for _, n := range g.nodes {
		if in[n.id] {
			out = append(out, n)
		}
	}
	return out
}

// order sorts nodes topologically over forward edges with Kahn's algorithm.
// Ties are broken by registration order, so the result is deterministic.
func (g *Graph) order(nodes []*Node) ([]*Node, error) {
	member := make(map[string]*Node, len(nodes))
	indegree := make(map[string]int, len(nodes))
	for _, n := range nodes {
		member[n.id] = n
		indegree[n.id] = 0
	}
	for _, e := range g.edges {
		if e.IsForward() && member[e.SrcBlock] != nil && member[e.DstBlock] != nil {
			indegree[e.DstBlock]++
		}
	}

	var ready []*Node
	for _, n := range nodes {
		if indegree[n.id] == 0 {
			ready = append(ready, n)
		}
	}
	sorted := make([]*Node, 0, len(nodes))
	for len(ready) > 0 {
		slices.SortFunc(ready, func(a, b *Node) int { return a.index - b.index })
		n := ready[0]
		ready = ready[1:]
		sorted = append(sorted, n)
		for _, e := range g.edges {
			if !e.IsForward() || e.SrcBlock != n.id || member[e.DstBlock] == nil {
				continue
			}
			indegree[e.DstBlock]--
			if indegree[e.DstBlock] == 0 {
				ready = append(ready, member[e.DstBlock])
			}
		}
	}
	if len(sorted) != len(nodes) {
		return nil, errorf(CodeTopology, "forward edges contain a cycle")
	}
	return sorted, nil
}
