package blocks

import (
	"context"

	"github.com/roach88/blockgraph/internal/graph"
)

// RxStreamer is the software endpoint of a receive chain. Setting its
// samp_rate@in:0 requests that rate from upstream.
type RxStreamer struct {
	*graph.Node
	inbox
}

// NewRxStreamer builds a receive endpoint. Params: format (default "sc16"),
// mtu (default 8000).
func NewRxStreamer(id string, p Params) (graph.Block, error) {
	format, mtu, err := streamerParams(p)
	if err != nil {
		return nil, err
	}
	s := &RxStreamer{Node: graph.NewNode(id, 1, 0)}
	s.MustRegister(
		graph.NewProperty(graph.InputKey(PropSampRate, 0), 0.0),
		graph.NewProperty(graph.InputKey(PropType, 0), format),
		graph.NewProperty(graph.InputKey(PropMTU, 0), mtu),
	)
	for _, t := range []string{ActionOverrun, ActionTuneDone} {
		s.RegisterActionHandler(t, s.record)
	}
	return s, nil
}

// CheckTopology requires the input to be connected.
func (s *RxStreamer) CheckTopology(connectedInputs, _ []int) error {
	if len(connectedInputs) == 0 {
		return &graph.Error{Code: graph.CodeTopology, Message: "rx streamer input must be connected", Node: s.ID()}
	}
	return nil
}

// IssueStreamCmd sends cmd upstream toward the radio.
func (s *RxStreamer) IssueStreamCmd(ctx context.Context, cmd StreamCommand) error {
	return s.PostAction(ctx, graph.SourceInputEdge, 0, graph.Action{Type: ActionStreamCmd, Payload: cmd})
}

// Tune asks the upstream radio to retune.
func (s *RxStreamer) Tune(ctx context.Context, freq float64) error {
	return s.PostAction(ctx, graph.SourceInputEdge, 0, graph.Action{Type: ActionTune, Payload: freq})
}

// TxStreamer is the software endpoint of a transmit chain.
type TxStreamer struct {
	*graph.Node
	inbox
}

// NewTxStreamer builds a transmit endpoint. Params as for NewRxStreamer.
func NewTxStreamer(id string, p Params) (graph.Block, error) {
	format, mtu, err := streamerParams(p)
	if err != nil {
		return nil, err
	}
	s := &TxStreamer{Node: graph.NewNode(id, 0, 1)}
	s.MustRegister(
		graph.NewProperty(graph.OutputKey(PropSampRate, 0), 0.0),
		graph.NewProperty(graph.OutputKey(PropType, 0), format),
		graph.NewProperty(graph.OutputKey(PropMTU, 0), mtu),
	)
	s.RegisterActionHandler(ActionUnderrun, s.record)
	return s, nil
}

// IssueStreamCmd sends cmd downstream.
func (s *TxStreamer) IssueStreamCmd(ctx context.Context, cmd StreamCommand) error {
	return s.PostAction(ctx, graph.SourceOutputEdge, 0, graph.Action{Type: ActionStreamCmd, Payload: cmd})
}

func streamerParams(p Params) (string, int, error) {
	format, err := p.String("format", "sc16")
	if err != nil {
		return "", 0, err
	}
	mtu, err := p.Int(PropMTU, 8000)
	if err != nil {
		return "", 0, err
	}
	return format, mtu, nil
}
