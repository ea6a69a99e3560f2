package blocks

import (
	"fmt"

	"github.com/roach88/blockgraph/internal/graph"
)

// Splitter copies one input to N outputs. Properties and actions fan out
// from the input to every output and fan in from any output to the input.
type Splitter struct {
	*graph.Node
}

// NewSplitter builds a splitter. Params: outputs (default 2).
func NewSplitter(id string, p Params) (graph.Block, error) {
	outputs, err := p.Int("outputs", 2)
	if err != nil {
		return nil, err
	}
	if outputs < 1 {
		return nil, graph.ValueErrorf("splitter needs at least one output, got %d", outputs)
	}

	s := &Splitter{Node: graph.NewNode(id, 1, outputs)}
	s.MustRegister(
		graph.NewProperty(graph.InputKey(PropSampRate, 0), 0.0),
		graph.NewProperty(graph.InputKey(PropType, 0), "sc16"),
	)
	for i := 0; i < outputs; i++ {
		s.MustRegister(
			graph.NewProperty(graph.OutputKey(PropSampRate, i), 0.0),
			graph.NewProperty(graph.OutputKey(PropType, i), "sc16"),
		)
	}
	s.SetPropertyForwardingPolicy(graph.ForwardOneToFan)
	s.SetActionForwardingPolicy(graph.ForwardOneToFan)
	return s, nil
}

// CheckTopology requires the input and every output to be connected.
func (s *Splitter) CheckTopology(connectedInputs, connectedOutputs []int) error {
	if len(connectedInputs) != 1 {
		return &graph.Error{Code: graph.CodeTopology, Message: "splitter input must be connected", Node: s.ID()}
	}
	if len(connectedOutputs) != s.NumOutputPorts() {
		return &graph.Error{
			Code:    graph.CodeTopology,
			Message: fmt.Sprintf("splitter has %d of %d outputs connected", len(connectedOutputs), s.NumOutputPorts()),
			Node:    s.ID(),
		}
	}
	return nil
}
