package blueprint

import (
	"context"
	"fmt"

	"github.com/roach88/blockgraph/internal/blocks"
	"github.com/roach88/blockgraph/internal/graph"
)

// Build instantiates every block through reg, connects the edges and applies
// the initial property values. The returned graph is not committed.
func Build(ctx context.Context, bp *Blueprint, reg *blocks.Registry, opts ...graph.Option) (*graph.Graph, error) {
	g := graph.New(opts...)

	for _, spec := range bp.Blocks {
		b, err := reg.Create(spec.Kind, spec.ID, blocks.Params(spec.Params))
		if err != nil {
			return nil, err
		}
		if err := g.AddNode(ctx, b); err != nil {
			return nil, err
		}
	}

	for i, spec := range bp.Edges {
		e, err := spec.Edge()
		if err != nil {
			return nil, fmt.Errorf("edges[%d]: %w", i, err)
		}
		if err := g.Connect(ctx, e); err != nil {
			return nil, fmt.Errorf("edges[%d]: %w", i, err)
		}
	}

	for _, spec := range bp.Properties {
		if err := Apply(ctx, g, spec); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// Apply sets one property from its spec. The value is formatted and parsed
// into the property's own type, so 25000000 works for a float64 rate.
func Apply(ctx context.Context, g *graph.Graph, spec PropertySpec) error {
	b, ok := g.Node(spec.Node)
	if !ok {
		return &graph.Error{Code: graph.CodeLookup, Message: "unknown node", Node: spec.Node}
	}
	key, err := graph.ParseKey(spec.Key)
	if err != nil {
		return err
	}
	if err := graph.SetPropertyString(ctx, b, key, fmt.Sprint(spec.Value)); err != nil {
		return fmt.Errorf("set %s.%s: %w", spec.Node, spec.Key, err)
	}
	return nil
}
