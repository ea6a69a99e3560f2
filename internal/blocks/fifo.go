package blocks

import (
	"github.com/roach88/blockgraph/internal/graph"
)

// FIFO buffers N independent channels. Every property, including the MTU,
// passes straight through port by port.
type FIFO struct {
	*graph.Node
}

// NewFIFO builds a FIFO. Params: ports (default 1), mtu (default 8000).
func NewFIFO(id string, p Params) (graph.Block, error) {
	ports, err := p.Int("ports", 1)
	if err != nil {
		return nil, err
	}
	if ports < 1 {
		return nil, graph.ValueErrorf("fifo needs at least one port, got %d", ports)
	}
	mtu, err := p.Int(PropMTU, 8000)
	if err != nil {
		return nil, err
	}

	f := &FIFO{Node: graph.NewNode(id, ports, ports)}
	for i := 0; i < ports; i++ {
		f.MustRegister(
			graph.NewProperty(graph.InputKey(PropSampRate, i), 0.0),
			graph.NewProperty(graph.OutputKey(PropSampRate, i), 0.0),
			graph.NewProperty(graph.InputKey(PropType, i), "sc16"),
			graph.NewProperty(graph.OutputKey(PropType, i), "sc16"),
			graph.NewProperty(graph.InputKey(PropMTU, i), mtu),
			graph.NewProperty(graph.OutputKey(PropMTU, i), mtu),
		)
	}
	f.SetMTUForwardingPolicy(graph.ForwardOneToOne)
	return f, nil
}
