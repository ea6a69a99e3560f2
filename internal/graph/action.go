package graph

import (
	"context"
	"fmt"
)

// Action is a typed message sent along edges, such as a stream command.
type Action struct {
	// Type selects the handler at the receiving node.
	Type string

	// Payload is opaque to the router.
	Payload any

	// ID correlates all deliveries of one post. Assigned on post if empty.
	ID string

	// Src and Dst describe the hop that delivered this copy. Set by the router.
	Src PortRef
	Dst PortRef
}

// PostAction sends a from the given side and port of the node with id.
func (g *Graph) PostAction(ctx context.Context, id string, side SourceKind, port int, a Action) error {
	g.topoMu.RLock()
	b, ok := g.blocks[id]
	g.topoMu.RUnlock()
	if !ok {
		return errorf(CodeLookup, "unknown node").at(id, "")
	}
	return g.postAction(ctx, b.base(), side, port, a)
}

func (g *Graph) postAction(ctx context.Context, n *Node, side SourceKind, port int, a Action) error {
	ctx, release := g.lock.acquire(ctx)
	defer release()

	if g.shutdown {
		return lifecycleError(ErrShutdown)
	}
	if g.commitDepth == 0 {
		return lifecycleError(ErrNotCommitted)
	}
	if n.graph != g {
		return errorf(CodeLookup, "node not attached").at(n.id, "")
	}
	if a.ID == "" {
		a.ID = g.ids.Generate()
	}

	outermost := g.routes.begin(a.ID)
	if outermost {
		defer g.routes.end(a.ID)
	}
	return g.route(ctx, n, side, port, a)
}

// route moves a across the edge attached to (side, port) of from.
func (g *Graph) route(ctx context.Context, from *Node, side SourceKind, port int, a Action) error {
	var (
		e        Edge
		ok       bool
		peer     string
		peerSide SourceKind
		peerPort int
	)
	switch side {
	case SourceOutputEdge:
		e, ok = g.outEdge(from.id, port)
		peer, peerSide, peerPort = e.DstBlock, SourceInputEdge, e.DstPort
	case SourceInputEdge:
		e, ok = g.inEdge(from.id, port)
		peer, peerSide, peerPort = e.SrcBlock, SourceOutputEdge, e.SrcPort
	default:
		return errorf(CodeLookup, "actions must be posted on an edge port").at(from.id, "")
	}
	a.Src = PortRef{Block: from.id, Kind: side, Port: port}
	if !ok {
		g.logger.Debug("action dropped at unconnected port", "action", a.Type, "id", a.ID, "at", a.Src.String())
		return nil
	}
	a.Dst = PortRef{Block: peer, Kind: peerSide, Port: peerPort}

	if g.routes.seen(a.ID, a.Dst) {
		return nil
	}
	g.routes.record(a.ID, a.Dst)
	return g.deliver(ctx, g.blocks[peer].base(), a)
}

// deliver hands a to n's handler, or forwards it by n's action policy.
func (g *Graph) deliver(ctx context.Context, n *Node, a Action) error {
	rec := DeliveryRecord{ActionID: a.ID, Type: a.Type, From: a.Src, To: a.Dst}

	if h, ok := n.handlers[a.Type]; ok {
		err := h(ctx, a)
		if err != nil {
			err = fmt.Errorf("action %s handler at %s: %w", a.Type, a.Dst, err)
		}
		rec.Outcome, rec.Err = DeliveryHandled, err
		g.observer.ActionDelivered(ctx, rec)
		return err
	}

	targets := n.actionPolicy.targets(a.Dst.Kind, a.Dst.Port, n.numIn, n.numOut)
	if len(targets) == 0 {
		rec.Outcome = DeliveryDropped
		g.observer.ActionDelivered(ctx, rec)
		return nil
	}
	rec.Outcome = DeliveryForwarded
	g.observer.ActionDelivered(ctx, rec)
	for _, t := range targets {
		if err := g.route(ctx, n, t.kind, t.port, a); err != nil {
			return err
		}
	}
	return nil
}

// deliveryTracker remembers which ports an action has reached while its post
// is in flight, so forwarding cycles deliver at most once per port. Callers
// hold the graph lock.
type deliveryTracker struct {
	history map[string]map[PortRef]bool
	depth   map[string]int
}

func newDeliveryTracker() *deliveryTracker {
	return &deliveryTracker{
		history: make(map[string]map[PortRef]bool),
		depth:   make(map[string]int),
	}
}

// begin opens a post for id and reports whether it is the outermost one.
// Handlers that re-post with the same id share the history.
func (t *deliveryTracker) begin(id string) bool {
	t.depth[id]++
	if t.depth[id] > 1 {
		return false
	}
	t.history[id] = make(map[PortRef]bool)
	return true
}

func (t *deliveryTracker) end(id string) {
	delete(t.depth, id)
	delete(t.history, id)
}

func (t *deliveryTracker) seen(id string, at PortRef) bool {
	return t.history[id][at]
}

func (t *deliveryTracker) record(id string, at PortRef) {
	t.history[id][at] = true
}

// inFlight returns the number of posts currently tracked.
func (t *deliveryTracker) inFlight() int {
	return len(t.history)
}
