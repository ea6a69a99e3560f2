package graph

// FindStreamPath returns the chain of edges from the node with id to the
// nearest stream edge of the given kind. For EdgeRxStream the search follows
// forward edges downstream; for EdgeTxStream it follows them upstream. The
// path is always ordered from upstream to downstream.
func (g *Graph) FindStreamPath(id string, kind EdgeKind) ([]Edge, error) {
	if kind != EdgeRxStream && kind != EdgeTxStream {
		return nil, errorf(CodeLookup, "%s is not a stream edge kind", kind)
	}
	g.topoMu.RLock()
	defer g.topoMu.RUnlock()

	if _, ok := g.blocks[id]; !ok {
		return nil, errorf(CodeLookup, "unknown node").at(id, "")
	}

	downstream := kind == EdgeRxStream
	visited := map[string]bool{}
	var walk func(at string) []Edge
	walk = func(at string) []Edge {
		if visited[at] {
			return nil
		}
		visited[at] = true
		for _, e := range g.edges {
			if !e.IsForward() {
				continue
			}
			next := ""
			switch {
			case downstream && e.SrcBlock == at:
				next = e.DstBlock
			case !downstream && e.DstBlock == at:
				next = e.SrcBlock
			default:
				continue
			}
			if e.Kind == kind {
				return []Edge{e}
			}
			if rest := walk(next); rest != nil {
				return append([]Edge{e}, rest...)
			}
		}
		return nil
	}

	path := walk(id)
	if path == nil {
		return nil, &Error{
			Code:    CodeLookup,
			Message: "no " + kind.String() + " edge reachable",
			Node:    id,
		}
	}
	if !downstream {
		for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
			path[i], path[j] = path[j], path[i]
		}
	}
	return path, nil
}
