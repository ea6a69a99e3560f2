package graph

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"sync"
)

// DefaultMaxPasses bounds the number of resolution passes per settle.
const DefaultMaxPasses = 10

// Graph owns a set of nodes and the edges between them, and keeps their
// properties consistent.
//
// All mutation and resolution happens under one re-entrant lock whose
// ownership travels in the context. Callbacks (resolvers and action handlers)
// must pass the ctx they receive to nested graph calls. A callback may hand
// its ctx to several goroutines (for example through errgroup.WithContext);
// their graph calls then run one at a time, and the callback itself must not
// touch the graph until they finish.
type Graph struct {
	lock   reentrantLock
	topoMu sync.RWMutex

	logger    *slog.Logger
	maxPasses int
	ids       IDGenerator
	observer  Observer

	nodes     []*Node
	blocks    map[string]Block
	edges     []Edge
	nextIndex int

	commitDepth int
	shutdown    bool
	resolving   bool

	routes *deliveryTracker
}

// Option configures a Graph.
type Option func(*Graph)

// WithMaxPasses sets the resolution pass ceiling. Values below 1 are ignored.
func WithMaxPasses(n int) Option {
	return func(g *Graph) {
		if n > 0 {
			g.maxPasses = n
		}
	}
}

// WithLogger sets the logger. The default discards output.
func WithLogger(l *slog.Logger) Option {
	return func(g *Graph) {
		if l != nil {
			g.logger = l
		}
	}
}

// WithIDGenerator sets the generator for action correlation ids.
func WithIDGenerator(gen IDGenerator) Option {
	return func(g *Graph) {
		if gen != nil {
			g.ids = gen
		}
	}
}

// WithObserver registers an observer for resolutions and deliveries. Use
// Observers to register several.
func WithObserver(o Observer) Option {
	return func(g *Graph) {
		if o != nil {
			g.observer = o
		}
	}
}

// New creates an empty, uncommitted graph.
func New(opts ...Option) *Graph {
	g := &Graph{
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		maxPasses: DefaultMaxPasses,
		ids:       UUIDv7Generator{},
		observer:  nopObserver{},
		blocks:    make(map[string]Block),
		routes:    newDeliveryTracker(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// MaxPasses returns the configured pass ceiling.
func (g *Graph) MaxPasses() int { return g.maxPasses }

// AddNode attaches b. Nodes must be added before they are connected. Adding a
// node to a committed graph does not trigger resolution until it is connected.
func (g *Graph) AddNode(ctx context.Context, b Block) error {
	_, release := g.lock.acquire(ctx)
	defer release()

	if g.shutdown {
		return lifecycleError(ErrShutdown)
	}
	n := b.base()
	id := b.ID()
	if id == "" {
		return errorf(CodeTopology, "node id must not be empty")
	}
	if _, dup := g.blocks[id]; dup {
		return errorf(CodeTopology, "duplicate node id").at(id, "")
	}
	if n.graph != nil {
		return errorf(CodeTopology, "node already attached to a graph").at(id, "")
	}

	g.topoMu.Lock()
	n.graph = g
	n.index = g.nextIndex
	g.nextIndex++
	g.nodes = append(g.nodes, n)
	g.blocks[id] = b
	g.topoMu.Unlock()

	g.logger.Debug("node added", "node", id, "inputs", n.numIn, "outputs", n.numOut)
	return nil
}

// Remove detaches the node with the given id and drops its edges. Former
// neighbors are re-settled on a committed graph.
func (g *Graph) Remove(ctx context.Context, id string) error {
	ctx, release := g.lock.acquire(ctx)
	defer release()

	if g.shutdown {
		return lifecycleError(ErrShutdown)
	}
	b, ok := g.blocks[id]
	if !ok {
		return errorf(CodeLookup, "unknown node").at(id, "")
	}
	n := b.base()

	var neighbors []*Node
	g.topoMu.Lock()
	kept := g.edges[:0]
	for _, e := range g.edges {
		switch id {
		case e.SrcBlock:
			if e.DstBlock != id {
				neighbors = append(neighbors, g.blocks[e.DstBlock].base())
			}
		case e.DstBlock:
			neighbors = append(neighbors, g.blocks[e.SrcBlock].base())
		default:
			kept = append(kept, e)
		}
	}
	g.edges = kept
	g.nodes = slices.DeleteFunc(g.nodes, func(m *Node) bool { return m == n })
	delete(g.blocks, id)
	n.graph = nil
	g.topoMu.Unlock()

	g.logger.Debug("node removed", "node", id, "neighbors", len(neighbors))
	if len(neighbors) == 0 {
		return nil
	}
	return g.settle(ctx, neighbors...)
}

// Connect adds an edge. On a committed graph the edge properties at both
// endpoints are marked dirty and the affected component is re-settled, so
// the upstream value wins.
func (g *Graph) Connect(ctx context.Context, e Edge) error {
	ctx, release := g.lock.acquire(ctx)
	defer release()

	if g.shutdown {
		return lifecycleError(ErrShutdown)
	}
	src, dst, err := g.endpoints(e)
	if err != nil {
		return err
	}
	for _, x := range g.edges {
		if x.sameEndpoints(e) {
			return g.edgeError(e, "duplicate edge")
		}
		if x.SrcBlock == e.SrcBlock && x.SrcPort == e.SrcPort {
			return g.edgeError(e, "output port already connected")
		}
		if x.DstBlock == e.DstBlock && x.DstPort == e.DstPort {
			return g.edgeError(e, "input port already connected")
		}
	}
	if e.IsForward() && g.reaches(e.DstBlock, e.SrcBlock) {
		return g.edgeError(e, "forward edge would close a cycle; mark it as a back edge")
	}

	g.topoMu.Lock()
	g.edges = append(g.edges, e)
	g.topoMu.Unlock()
	g.logger.Debug("edge connected", "edge", e.String(), "kind", e.Kind.String(), "back", e.BackEdge)

	if g.commitDepth == 0 {
		return nil
	}
	markPort(src, SourceOutputEdge, e.SrcPort)
	markPort(dst, SourceInputEdge, e.DstPort)
	return g.settle(ctx, src, dst)
}

// Disconnect removes the edge with the same endpoints as e. Static edges
// cannot be removed. Values already forwarded across the edge are kept.
func (g *Graph) Disconnect(ctx context.Context, e Edge) error {
	ctx, release := g.lock.acquire(ctx)
	defer release()

	if g.shutdown {
		return lifecycleError(ErrShutdown)
	}
	i := slices.IndexFunc(g.edges, e.sameEndpoints)
	if i < 0 {
		return &Error{Code: CodeLookup, Message: "unknown edge", Details: map[string]string{"edge": e.String()}}
	}
	found := g.edges[i]
	if found.Kind == EdgeStatic {
		return g.edgeError(found, "static edges cannot be disconnected")
	}

	g.topoMu.Lock()
	g.edges = slices.Delete(g.edges, i, i+1)
	g.topoMu.Unlock()
	g.logger.Debug("edge disconnected", "edge", found.String())

	return g.settle(ctx, g.blocks[found.SrcBlock].base(), g.blocks[found.DstBlock].base())
}

// Commit increments the commit depth. The 0 to 1 transition checks every
// node's topology, marks all properties dirty and resolves the whole graph.
// On failure the graph stays uncommitted.
func (g *Graph) Commit(ctx context.Context) error {
	ctx, release := g.lock.acquire(ctx)
	defer release()

	if g.shutdown {
		return lifecycleError(ErrShutdown)
	}
	g.commitDepth++
	if g.commitDepth > 1 {
		return nil
	}

	for _, n := range g.nodes {
		in, out := g.connectedPorts(n.id)
		if err := g.blocks[n.id].CheckTopology(in, out); err != nil {
			g.commitDepth = 0
			return asTopologyError(err, n.id)
		}
	}
	for _, n := range g.nodes {
		n.markAllDirty()
	}
	g.logger.Info("graph committed", "nodes", len(g.nodes), "edges", len(g.edges))
	if err := g.settle(ctx, g.nodes...); err != nil {
		g.commitDepth = 0
		return err
	}
	return nil
}

// Release decrements the commit depth. Releasing an uncommitted graph is a
// no-op.
func (g *Graph) Release(ctx context.Context) {
	_, release := g.lock.acquire(ctx)
	defer release()

	if g.commitDepth == 0 {
		g.logger.Warn("release on uncommitted graph")
		return
	}
	g.commitDepth--
	if g.commitDepth == 0 {
		g.logger.Info("graph released")
	}
}

// IsCommitted reports whether the commit depth is above zero.
func (g *Graph) IsCommitted(ctx context.Context) bool {
	_, release := g.lock.acquire(ctx)
	defer release()
	return g.commitDepth > 0 && !g.shutdown
}

// Shutdown waits for in-flight work, then stops all further resolution and
// delivery. It is idempotent.
func (g *Graph) Shutdown(ctx context.Context) {
	_, release := g.lock.acquire(ctx)
	defer release()

	if g.shutdown {
		return
	}
	g.shutdown = true
	g.commitDepth = 0
	g.logger.Info("graph shut down")
}

// EnumerateEdges returns a snapshot of all edges in insertion order.
func (g *Graph) EnumerateEdges() []Edge {
	g.topoMu.RLock()
	defer g.topoMu.RUnlock()
	return slices.Clone(g.edges)
}

// Nodes returns the attached blocks in registration order.
func (g *Graph) Nodes() []Block {
	g.topoMu.RLock()
	defer g.topoMu.RUnlock()
	out := make([]Block, 0, len(g.nodes))
	for _, n := range g.nodes {
		out = append(out, g.blocks[n.id])
	}
	return out
}

// Node returns the block with the given id.
func (g *Graph) Node(id string) (Block, bool) {
	g.topoMu.RLock()
	defer g.topoMu.RUnlock()
	b, ok := g.blocks[id]
	return b, ok
}

func (g *Graph) endpoints(e Edge) (*Node, *Node, error) {
	sb, ok := g.blocks[e.SrcBlock]
	if !ok {
		return nil, nil, g.edgeError(e, "unknown source node")
	}
	db, ok := g.blocks[e.DstBlock]
	if !ok {
		return nil, nil, g.edgeError(e, "unknown destination node")
	}
	if e.SrcPort < 0 || e.SrcPort >= sb.NumOutputPorts() {
		return nil, nil, g.edgeError(e, "source port out of range")
	}
	if e.DstPort < 0 || e.DstPort >= db.NumInputPorts() {
		return nil, nil, g.edgeError(e, "destination port out of range")
	}
	return sb.base(), db.base(), nil
}

func (g *Graph) edgeError(e Edge, msg string) *Error {
	return &Error{
		Code:    CodeTopology,
		Message: msg,
		Details: map[string]string{"edge": e.String(), "kind": e.Kind.String()},
	}
}

func markPort(n *Node, kind SourceKind, port int) {
	for _, c := range n.props {
		k := c.Key()
		if k.Kind == kind && k.Port == port && c.IsValid() {
			c.markDirty()
		}
	}
}

func asTopologyError(err error, node string) *Error {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.at(node, "")
	}
	return &Error{Code: CodeTopology, Message: "topology check failed", Node: node, Err: err}
}
