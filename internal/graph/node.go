package graph

import (
	"context"
	"fmt"
)

// Block is anything that can be added to a Graph. Concrete blocks embed
// *Node and may override CheckTopology.
type Block interface {
	ID() string
	NumInputPorts() int
	NumOutputPorts() int

	// CheckTopology is called on commit with the connected port indices.
	// Returning an error aborts the commit.
	CheckTopology(connectedInputs, connectedOutputs []int) error

	base() *Node
}

// ResolverFunc recomputes a resolver's targets from its sources.
type ResolverFunc func(ctx context.Context) error

// ActionHandler consumes an action delivered to a node.
type ActionHandler func(ctx context.Context, a Action) error

type resolver struct {
	sources []Container
	targets []Container
	reads   map[Container]bool
	writes  map[Container]bool
	fn      ResolverFunc
}

func (r *resolver) triggered() bool {
	for _, c := range r.sources {
		if c.IsDirty() {
			return true
		}
	}
	return false
}

// writesOnly reports whether c is a target that is not also a source.
func (r *resolver) writesOnly(c Container) bool {
	return r.writes[c] && !r.reads[c]
}

// Node is a processing element with numbered input and output ports and a
// set of properties.
type Node struct {
	id     string
	numIn  int
	numOut int

	props    []Container
	byKey    map[PropertyKey]Container
	covered  map[Container]bool
	handlers map[string]ActionHandler

	resolvers []*resolver
	active    *resolver

	propPolicy   ForwardingPolicy
	actionPolicy ForwardingPolicy
	mtuPolicy    ForwardingPolicy

	graph *Graph
	index int
}

// NewNode creates a detached node. Property and action forwarding default to
// ONE_TO_ONE, MTU forwarding to NONE.
func NewNode(id string, numInputs, numOutputs int) *Node {
	return &Node{
		id:           id,
		numIn:        numInputs,
		numOut:       numOutputs,
		byKey:        make(map[PropertyKey]Container),
		covered:      make(map[Container]bool),
		handlers:     make(map[string]ActionHandler),
		propPolicy:   ForwardOneToOne,
		actionPolicy: ForwardOneToOne,
		mtuPolicy:    ForwardNone,
	}
}

func (n *Node) ID() string          { return n.id }
func (n *Node) NumInputPorts() int  { return n.numIn }
func (n *Node) NumOutputPorts() int { return n.numOut }
func (n *Node) base() *Node         { return n }

// CheckTopology accepts any connection pattern.
func (n *Node) CheckTopology(connectedInputs, connectedOutputs []int) error {
	return nil
}

// Graph returns the graph the node is attached to, or nil.
func (n *Node) Graph() *Graph { return n.graph }

// RegisterProperty adds c to the node. Registration must precede attachment
// to a graph, keys must be unique and edge keys must name an existing port.
func (n *Node) RegisterProperty(c Container) error {
	key := c.Key()
	if n.graph != nil {
		return errorf(CodeTopology, "cannot register property after attachment").at(n.id, key.String())
	}
	if c.Node() != nil {
		return errorf(CodeTopology, "property already registered on %s", c.Node().id).at(n.id, key.String())
	}
	if _, dup := n.byKey[key]; dup {
		return errorf(CodeTopology, "duplicate property key").at(n.id, key.String())
	}
	switch key.Kind {
	case SourceInputEdge:
		if key.Port < 0 || key.Port >= n.numIn {
			return errorf(CodeTopology, "input port %d out of range", key.Port).at(n.id, key.String())
		}
	case SourceOutputEdge:
		if key.Port < 0 || key.Port >= n.numOut {
			return errorf(CodeTopology, "output port %d out of range", key.Port).at(n.id, key.String())
		}
	}
	c.bind(n)
	n.props = append(n.props, c)
	n.byKey[key] = c
	return nil
}

// MustRegister registers each container and panics on failure. Intended for
// block constructors whose keys are fixed.
func (n *Node) MustRegister(cs ...Container) {
	for _, c := range cs {
		if err := n.RegisterProperty(c); err != nil {
			panic(err)
		}
	}
}

// AddPropertyResolver declares that fn recomputes targets whenever any of
// sources is dirty. Resolvers run in registration order.
func (n *Node) AddPropertyResolver(sources, targets []Container, fn ResolverFunc) error {
	if n.graph != nil {
		return errorf(CodeTopology, "cannot add resolver after attachment").at(n.id, "")
	}
	if len(sources) == 0 {
		return errorf(CodeValue, "resolver needs at least one source").at(n.id, "")
	}
	r := &resolver{
		sources: sources,
		targets: targets,
		reads:   make(map[Container]bool, len(sources)),
		writes:  make(map[Container]bool, len(targets)),
		fn:      fn,
	}
	for _, c := range sources {
		if c.Node() != n {
			return errorf(CodeLookup, "resolver source not registered on node").at(n.id, c.Key().String())
		}
		r.reads[c] = true
	}
	for _, c := range targets {
		if c.Node() != n {
			return errorf(CodeLookup, "resolver target not registered on node").at(n.id, c.Key().String())
		}
		r.writes[c] = true
	}
	for c := range r.reads {
		n.covered[c] = true
	}
	for c := range r.writes {
		n.covered[c] = true
	}
	n.resolvers = append(n.resolvers, r)
	return nil
}

// MustAddResolver is AddPropertyResolver that panics on failure.
func (n *Node) MustAddResolver(sources, targets []Container, fn ResolverFunc) {
	if err := n.AddPropertyResolver(sources, targets, fn); err != nil {
		panic(err)
	}
}

func (n *Node) SetPropertyForwardingPolicy(p ForwardingPolicy) { n.propPolicy = p }
func (n *Node) SetActionForwardingPolicy(p ForwardingPolicy)   { n.actionPolicy = p }

// SetMTUForwardingPolicy sets the policy for edge properties named "mtu".
func (n *Node) SetMTUForwardingPolicy(p ForwardingPolicy) { n.mtuPolicy = p }

// RegisterActionHandler installs h for actions of the given type arriving at
// this node. A later registration replaces an earlier one.
func (n *Node) RegisterActionHandler(actionType string, h ActionHandler) {
	n.handlers[actionType] = h
}

// Property returns the container registered under key.
func (n *Node) Property(key PropertyKey) (Container, bool) {
	c, ok := n.byKey[key]
	return c, ok
}

// Properties returns the node's containers in registration order.
func (n *Node) Properties() []Container {
	out := make([]Container, len(n.props))
	copy(out, n.props)
	return out
}

// PostAction sends a along the edge attached to the given side and port.
// The node must be attached to a committed graph.
func (n *Node) PostAction(ctx context.Context, side SourceKind, port int, a Action) error {
	if n.graph == nil {
		return lifecycleError(ErrNotCommitted)
	}
	return n.graph.postAction(ctx, n, side, port, a)
}

func (n *Node) lookup(key PropertyKey) (Container, error) {
	c, ok := n.byKey[key]
	if !ok {
		return nil, errorf(CodeLookup, "unknown property").at(n.id, key.String())
	}
	return c, nil
}

func (n *Node) hasDirty() bool {
	for _, c := range n.props {
		if c.IsDirty() {
			return true
		}
	}
	return false
}

func (n *Node) markAllDirty() {
	for _, c := range n.props {
		if c.IsValid() {
			c.markDirty()
		}
	}
}

func (n *Node) markAllClean() {
	for _, c := range n.props {
		c.markClean()
	}
}

func (n *Node) policyFor(c Container) ForwardingPolicy {
	if c.Key().Name == "mtu" {
		return n.mtuPolicy
	}
	return n.propPolicy
}

// withProperty runs apply on key's container under a RW grant, holding the
// graph lock if the node is attached. Detached nodes resolve locally.
func (n *Node) withProperty(ctx context.Context, key PropertyKey, apply func(context.Context, Container) error) error {
	if g := n.graph; g != nil {
		var release func()
		ctx, release = g.lock.acquire(ctx)
		defer release()
		if g.shutdown {
			return lifecycleError(ErrShutdown)
		}
	}
	c, err := n.lookup(key)
	if err != nil {
		return err
	}
	guard := Grant(AccessRW, c)
	err = apply(ctx, c)
	guard.Release()
	if err != nil {
		return err
	}
	if n.graph == nil {
		return n.resolve(ctx, nil)
	}
	return nil
}

// SetProperty writes value to the property under key and resolves.
func SetProperty[T comparable](ctx context.Context, b Block, key PropertyKey, value T) error {
	n := b.base()
	return n.withProperty(ctx, key, func(ctx context.Context, c Container) error {
		p, ok := c.(*Property[T])
		if !ok {
			var zero T
			return errorf(CodeType, "property is %s, not %T", c.TypeName(), zero).at(n.id, key.String())
		}
		return p.Set(ctx, value)
	})
}

// SetPropertyValue is SetProperty for callers holding an untyped value.
func SetPropertyValue(ctx context.Context, b Block, key PropertyKey, value any) error {
	return b.base().withProperty(ctx, key, func(ctx context.Context, c Container) error {
		return c.setAny(ctx, value)
	})
}

// SetPropertyString parses text into the property's value type and sets it.
func SetPropertyString(ctx context.Context, b Block, key PropertyKey, text string) error {
	return b.base().withProperty(ctx, key, func(ctx context.Context, c Container) error {
		return c.setString(ctx, text)
	})
}

// GetProperty reads the property under key, settling pending changes first.
func GetProperty[T comparable](ctx context.Context, b Block, key PropertyKey) (T, error) {
	var zero T
	n := b.base()
	c, err := n.lookup(key)
	if err != nil {
		return zero, err
	}
	p, ok := c.(*Property[T])
	if !ok {
		return zero, errorf(CodeType, "property is %s, not %T", c.TypeName(), zero).at(n.id, key.String())
	}
	return p.Get(ctx)
}

// GetPropertyValue reads the property under key as an untyped value.
func GetPropertyValue(ctx context.Context, b Block, key PropertyKey) (any, error) {
	n := b.base()
	c, err := n.lookup(key)
	if err != nil {
		return nil, err
	}
	if g := n.graph; g != nil {
		var release func()
		ctx, release = g.lock.acquire(ctx)
		defer release()
		if err := g.settle(ctx, n); err != nil {
			return nil, err
		}
	}
	switch {
	case c.Access() == AccessNone:
		return nil, errorf(CodeAccess, "read without access").at(n.id, key.String())
	case !c.IsValid():
		return nil, errorf(CodeLookup, "property has no value").at(n.id, key.String())
	}
	return c.Value(), nil
}

// PropertiesOf returns the properties registered on b in registration order.
func PropertiesOf(b Block) []Container {
	return b.base().Properties()
}

func (n *Node) String() string {
	return fmt.Sprintf("%s(in=%d, out=%d)", n.id, n.numIn, n.numOut)
}
