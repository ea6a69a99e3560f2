package graph

import (
	"context"
	"time"
)

// settle brings the components containing seeds to a fixed point. It is a
// no-op while uncommitted, after shutdown, or when a resolution is already
// running. The caller holds the graph lock.
func (g *Graph) settle(ctx context.Context, seeds ...*Node) error {
	if g.commitDepth == 0 || g.shutdown || g.resolving {
		return nil
	}
	g.resolving = true
	defer func() { g.resolving = false }()

	start := time.Now()
	nodes := g.component(seeds)
	budget := newPassBudget(g.maxPasses)
	err := g.runPasses(ctx, nodes, budget)

	origin := make([]string, 0, len(seeds))
	for _, n := range seeds {
		origin = append(origin, n.id)
	}
	g.observer.ResolutionFinished(ctx, ResolutionRecord{
		Origin:   origin,
		Nodes:    len(nodes),
		Passes:   budget.Passes(),
		Duration: time.Since(start),
		Err:      err,
	})
	if err != nil {
		g.logger.Warn("resolution failed", "origin", origin, "passes", budget.Passes(), "error", err)
		return err
	}
	g.logger.Debug("resolution settled", "origin", origin, "nodes", len(nodes), "passes", budget.Passes())
	return nil
}

func (g *Graph) runPasses(ctx context.Context, nodes []*Node, budget *passBudget) error {
	for anyDirty(nodes) {
		if err := budget.next(nodes); err != nil {
			return err
		}
		order, err := g.order(nodes)
		if err != nil {
			return err
		}
		for _, n := range order {
			if err := n.resolve(ctx, g); err != nil {
				return err
			}
		}
	}
	return nil
}

func anyDirty(nodes []*Node) bool {
	for _, n := range nodes {
		if n.hasDirty() {
			return true
		}
	}
	return false
}

// resolve performs one node step: triggered resolvers in registration order,
// policy forwarding for uncovered properties, then forwarding of dirty edge
// properties across edges when g is non-nil. All properties end clean.
func (n *Node) resolve(ctx context.Context, g *Graph) error {
	if !n.hasDirty() {
		return nil
	}
	if err := n.runResolvers(ctx); err != nil {
		return err
	}
	if err := n.forwardByPolicy(); err != nil {
		return err
	}
	if g != nil {
		if err := g.forwardAcrossEdges(n); err != nil {
			return err
		}
	}
	n.markAllClean()
	return nil
}

// runResolvers runs each triggered resolver at most once. After each run the
// scan restarts so an earlier resolver triggered by a later one still runs.
func (n *Node) runResolvers(ctx context.Context) error {
	ran := make([]bool, len(n.resolvers))
	for progress := true; progress; {
		progress = false
		for i, r := range n.resolvers {
			if ran[i] || !r.triggered() {
				continue
			}
			ran[i] = true
			if err := n.runResolver(ctx, r); err != nil {
				return err
			}
			progress = true
			break
		}
	}
	return nil
}

func (n *Node) runResolver(ctx context.Context, r *resolver) error {
	guard := Grant(AccessNone, n.props...).
		Add(AccessRO, r.sources...).
		Add(AccessRW, r.targets...)
	defer guard.Release()

	n.active = r
	defer func() { n.active = nil }()

	if err := r.fn(ctx); err != nil {
		return asGraphError(err, n.id)
	}
	return nil
}

// forwardByPolicy copies dirty edge properties not covered by any resolver
// to their policy targets on the same node. Input-side properties go first,
// so when both sides are dirty the value arriving from upstream wins. Each
// property originates at most one round of forwarding per step.
func (n *Node) forwardByPolicy() error {
	var queue []Container
	for _, kind := range []SourceKind{SourceInputEdge, SourceOutputEdge} {
		for _, c := range n.props {
			if c.IsDirty() && c.Key().Kind == kind && !n.covered[c] {
				queue = append(queue, c)
			}
		}
	}
	origins := make(map[Container]bool)
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		if origins[c] {
			continue
		}
		origins[c] = true

		key := c.Key()
		for _, slot := range n.policyFor(c).targets(key.Kind, key.Port, n.numIn, n.numOut) {
			dst, ok := n.byKey[PropertyKey{Name: key.Name, Kind: slot.kind, Port: slot.port}]
			if !ok || n.covered[dst] {
				continue
			}
			changed, err := forward(c, dst, false)
			if err != nil {
				return err
			}
			if changed {
				queue = append(queue, dst)
			}
		}
	}
	return nil
}

// forwardAcrossEdges copies n's dirty edge properties to the same-named
// property on the other end of each attached edge. Output-side values move
// downstream, RW-locked on back edges; input-side values move upstream.
func (g *Graph) forwardAcrossEdges(n *Node) error {
	for _, c := range n.props {
		if !c.IsDirty() {
			continue
		}
		key := c.Key()
		var (
			e      Edge
			ok     bool
			peer   string
			dstKey PropertyKey
			locked bool
		)
		switch key.Kind {
		case SourceOutputEdge:
			e, ok = g.outEdge(n.id, key.Port)
			peer, dstKey, locked = e.DstBlock, InputKey(key.Name, e.DstPort), e.BackEdge
		case SourceInputEdge:
			e, ok = g.inEdge(n.id, key.Port)
			peer, dstKey = e.SrcBlock, OutputKey(key.Name, e.SrcPort)
		default:
			continue
		}
		if !ok {
			continue
		}
		dst, found := g.blocks[peer].base().byKey[dstKey]
		if !found {
			continue
		}
		if _, err := forward(c, dst, locked); err != nil {
			return err
		}
	}
	return nil
}
