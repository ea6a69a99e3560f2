// Package blueprint describes block graphs in files and builds them.
//
// A blueprint lists blocks by kind, the edges between their ports and
// initial property values. It can be written as YAML, TOML or CUE.
package blueprint

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/blockgraph/internal/graph"
)

// Blueprint is the decoded form of a graph description file.
type Blueprint struct {
	Name       string         `yaml:"name" toml:"name" json:"name"`
	Blocks     []BlockSpec    `yaml:"blocks" toml:"blocks" json:"blocks"`
	Edges      []EdgeSpec     `yaml:"edges,omitempty" toml:"edges" json:"edges,omitempty"`
	Properties []PropertySpec `yaml:"properties,omitempty" toml:"properties" json:"properties,omitempty"`
}

// BlockSpec declares one block.
type BlockSpec struct {
	ID     string         `yaml:"id" toml:"id" json:"id"`
	Kind   string         `yaml:"kind" toml:"kind" json:"kind"`
	Params map[string]any `yaml:"params,omitempty" toml:"params" json:"params,omitempty"`
}

// EdgeSpec declares one edge. Src and Dst are "block:port"; the port
// defaults to 0 when omitted.
type EdgeSpec struct {
	Src  string `yaml:"src" toml:"src" json:"src"`
	Dst  string `yaml:"dst" toml:"dst" json:"dst"`
	Kind string `yaml:"kind,omitempty" toml:"kind" json:"kind,omitempty"`
	Back bool   `yaml:"back,omitempty" toml:"back" json:"back,omitempty"`
}

// PropertySpec sets an initial property value before commit. Key uses the
// text form "name", "name@in:N" or "name@out:N".
type PropertySpec struct {
	Node  string `yaml:"node" toml:"node" json:"node"`
	Key   string `yaml:"key" toml:"key" json:"key"`
	Value any    `yaml:"value" toml:"value" json:"value"`
}

// Edge converts e to a graph edge.
func (e EdgeSpec) Edge() (graph.Edge, error) {
	src, srcPort, err := ParseEndpoint(e.Src)
	if err != nil {
		return graph.Edge{}, err
	}
	dst, dstPort, err := ParseEndpoint(e.Dst)
	if err != nil {
		return graph.Edge{}, err
	}
	kind, err := graph.ParseEdgeKind(e.Kind)
	if err != nil {
		return graph.Edge{}, err
	}
	return graph.Edge{
		SrcBlock: src,
		SrcPort:  srcPort,
		DstBlock: dst,
		DstPort:  dstPort,
		Kind:     kind,
		BackEdge: e.Back,
	}, nil
}

// ParseEndpoint splits "block:port" into its parts.
func ParseEndpoint(s string) (string, int, error) {
	id, portText, found := strings.Cut(strings.TrimSpace(s), ":")
	if id == "" {
		return "", 0, fmt.Errorf("endpoint %q: missing block id", s)
	}
	if !found {
		return id, 0, nil
	}
	port, err := strconv.Atoi(portText)
	if err != nil || port < 0 {
		return "", 0, fmt.Errorf("endpoint %q: invalid port", s)
	}
	return id, port, nil
}

// Validate checks the blueprint for structural errors and reports all of
// them at once.
func (bp *Blueprint) Validate() error {
	var errs []error
	if len(bp.Blocks) == 0 {
		errs = append(errs, errors.New("blueprint has no blocks"))
	}
	ids := make(map[string]bool, len(bp.Blocks))
	for i, b := range bp.Blocks {
		switch {
		case b.ID == "":
			errs = append(errs, fmt.Errorf("blocks[%d]: missing id", i))
		case ids[b.ID]:
			errs = append(errs, fmt.Errorf("blocks[%d]: duplicate id %q", i, b.ID))
		}
		if b.Kind == "" {
			errs = append(errs, fmt.Errorf("blocks[%d]: missing kind", i))
		}
		ids[b.ID] = true
	}
	for i, e := range bp.Edges {
		edge, err := e.Edge()
		if err != nil {
			errs = append(errs, fmt.Errorf("edges[%d]: %w", i, err))
			continue
		}
		for _, id := range []string{edge.SrcBlock, edge.DstBlock} {
			if !ids[id] {
				errs = append(errs, fmt.Errorf("edges[%d]: unknown block %q", i, id))
			}
		}
	}
	for i, p := range bp.Properties {
		if !ids[p.Node] {
			errs = append(errs, fmt.Errorf("properties[%d]: unknown block %q", i, p.Node))
		}
		if _, err := graph.ParseKey(p.Key); err != nil {
			errs = append(errs, fmt.Errorf("properties[%d]: %w", i, err))
		}
		if p.Value == nil {
			errs = append(errs, fmt.Errorf("properties[%d]: missing value", i))
		}
	}
	return errors.Join(errs...)
}
