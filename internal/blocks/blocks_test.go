package blocks

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/blockgraph/internal/graph"
)

type rxChain struct {
	g     *graph.Graph
	radio *Radio
	ddc   *DDC
	rx    *RxStreamer
}

// newRxChain wires radio -> ddc -> rx and commits.
func newRxChain(t *testing.T, tick float64, decim int) rxChain {
	t.Helper()
	ctx := context.Background()
	reg := DefaultRegistry()

	radio, err := reg.Create(KindRadio, "radio", Params{PropTickRate: tick})
	require.NoError(t, err)
	ddc, err := reg.Create(KindDDC, "ddc", Params{PropDecim: decim})
	require.NoError(t, err)
	rx, err := reg.Create(KindRxStreamer, "rx", nil)
	require.NoError(t, err)

	g := graph.New()
	for _, b := range []graph.Block{radio, ddc, rx} {
		require.NoError(t, g.AddNode(ctx, b))
	}
	require.NoError(t, g.Connect(ctx, graph.Edge{SrcBlock: "radio", DstBlock: "ddc", Kind: graph.EdgeStatic}))
	require.NoError(t, g.Connect(ctx, graph.Edge{SrcBlock: "ddc", DstBlock: "rx", Kind: graph.EdgeRxStream}))
	require.NoError(t, g.Commit(ctx))

	return rxChain{g: g, radio: radio.(*Radio), ddc: ddc.(*DDC), rx: rx.(*RxStreamer)}
}

func getFloat(t *testing.T, b graph.Block, key graph.PropertyKey) float64 {
	t.Helper()
	v, err := graph.GetProperty[float64](context.Background(), b, key)
	require.NoError(t, err)
	return v
}

// =============================================================================
// Rates
// =============================================================================

func TestRxChain_RatesSettleOnCommit(t *testing.T) {
	c := newRxChain(t, 200e6, 4)

	assert.Equal(t, 200e6, getFloat(t, c.ddc, graph.InputKey(PropSampRate, 0)))
	assert.Equal(t, 50e6, getFloat(t, c.ddc, graph.OutputKey(PropSampRate, 0)))
	assert.Equal(t, 50e6, getFloat(t, c.rx, graph.InputKey(PropSampRate, 0)))
}

func TestRxChain_DecimationChangeFlowsDownstream(t *testing.T) {
	ctx := context.Background()
	c := newRxChain(t, 200e6, 4)

	require.NoError(t, graph.SetProperty(ctx, c.ddc, graph.UserKey(PropDecim), 10))
	assert.Equal(t, 20e6, getFloat(t, c.rx, graph.InputKey(PropSampRate, 0)))
}

func TestRxChain_RequestedRateSetsDecimation(t *testing.T) {
	ctx := context.Background()
	c := newRxChain(t, 200e6, 4)

	require.NoError(t, graph.SetProperty(ctx, c.rx, graph.InputKey(PropSampRate, 0), 25e6))

	decim, err := graph.GetProperty[int](ctx, c.ddc, graph.UserKey(PropDecim))
	require.NoError(t, err)
	assert.Equal(t, 8, decim)
	assert.Equal(t, 25e6, getFloat(t, c.ddc, graph.OutputKey(PropSampRate, 0)))
	assert.Equal(t, 200e6, getFloat(t, c.radio, graph.OutputKey(PropSampRate, 0)))
}

func TestRxChain_UnreachableRateIsValueError(t *testing.T) {
	ctx := context.Background()
	c := newRxChain(t, 200e6, 4)

	err := graph.SetProperty(ctx, c.rx, graph.InputKey(PropSampRate, 0), 30e6)
	require.Error(t, err)
	assert.True(t, graph.IsValueError(err))

	err = graph.SetProperty(ctx, c.ddc, graph.UserKey(PropDecim), 0)
	assert.True(t, graph.IsValueError(err))
}

func TestRadio_TickRateDrivesEdges(t *testing.T) {
	ctx := context.Background()
	c := newRxChain(t, 200e6, 2)

	require.NoError(t, graph.SetProperty(ctx, c.radio, graph.UserKey(PropTickRate), 100e6))
	assert.Equal(t, 100e6, getFloat(t, c.radio, graph.InputKey(PropSampRate, 0)))
	assert.Equal(t, 50e6, getFloat(t, c.rx, graph.InputKey(PropSampRate, 0)))

	err := graph.SetProperty(ctx, c.radio, graph.UserKey(PropTickRate), -1.0)
	assert.True(t, graph.IsValueError(err))
}

func TestRxChain_TypeAndMTUForwarded(t *testing.T) {
	ctx := context.Background()
	c := newRxChain(t, 200e6, 1)

	format, err := graph.GetProperty[string](ctx, c.rx, graph.InputKey(PropType, 0))
	require.NoError(t, err)
	assert.Equal(t, "sc16", format)

	require.NoError(t, graph.SetProperty(ctx, c.radio, graph.OutputKey(PropMTU, 0), 4000))
	mtu, err := graph.GetProperty[int](ctx, c.rx, graph.InputKey(PropMTU, 0))
	require.NoError(t, err)
	assert.Equal(t, 4000, mtu)
}

// =============================================================================
// Actions
// =============================================================================

func TestRxStreamer_StreamCommandReachesRadio(t *testing.T) {
	ctx := context.Background()
	c := newRxChain(t, 200e6, 1)

	require.NoError(t, c.rx.IssueStreamCmd(ctx, StreamCommand{Mode: StreamStart, NumSamps: 1024}))
	assert.True(t, c.radio.Streaming())
	assert.Equal(t, 1024, c.radio.LastStreamCommand().NumSamps)

	require.NoError(t, c.rx.IssueStreamCmd(ctx, StreamCommand{Mode: StreamStop}))
	assert.False(t, c.radio.Streaming())
}

func TestRxStreamer_TuneIsAcknowledged(t *testing.T) {
	ctx := context.Background()
	c := newRxChain(t, 200e6, 1)

	require.NoError(t, c.rx.Tune(ctx, 2.4e9))
	assert.Equal(t, 2.4e9, getFloat(t, c.radio, graph.UserKey(PropFreq)))

	got := c.rx.Received()
	require.Len(t, got, 1)
	assert.Equal(t, ActionTuneDone, got[0].Type)
	assert.Equal(t, 2.4e9, got[0].Payload)
}

func TestRadio_OverrunReachesStreamer(t *testing.T) {
	ctx := context.Background()
	c := newRxChain(t, 200e6, 1)

	require.NoError(t, c.radio.Overrun(ctx))
	got := c.rx.Received()
	require.Len(t, got, 1)
	assert.Equal(t, ActionOverrun, got[0].Type)
	assert.Equal(t, "rx", got[0].Dst.Block)
}

func TestRadio_BadPayloadsSurface(t *testing.T) {
	ctx := context.Background()
	c := newRxChain(t, 200e6, 1)

	err := c.rx.PostAction(ctx, graph.SourceInputEdge, 0, graph.Action{Type: ActionStreamCmd, Payload: 42})
	assert.Error(t, err)
	err = c.rx.PostAction(ctx, graph.SourceInputEdge, 0, graph.Action{Type: ActionTune, Payload: "fast"})
	assert.Error(t, err)
}

// =============================================================================
// Splitter, FIFO, TX
// =============================================================================

func TestSplitter_RequiresAllOutputs(t *testing.T) {
	ctx := context.Background()
	reg := DefaultRegistry()
	g := graph.New()
	for _, spec := range []struct{ kind, id string }{
		{KindRadio, "radio"}, {KindSplitter, "split"}, {KindRxStreamer, "rx0"}, {KindRxStreamer, "rx1"},
	} {
		b, err := reg.Create(spec.kind, spec.id, nil)
		require.NoError(t, err)
		require.NoError(t, g.AddNode(ctx, b))
	}
	require.NoError(t, g.Connect(ctx, graph.Edge{SrcBlock: "radio", DstBlock: "split"}))
	require.NoError(t, g.Connect(ctx, graph.Edge{SrcBlock: "split", DstBlock: "rx0"}))

	err := g.Commit(ctx)
	require.Error(t, err)
	assert.True(t, graph.IsTopologyError(err))

	require.NoError(t, g.Connect(ctx, graph.Edge{SrcBlock: "split", SrcPort: 1, DstBlock: "rx1"}))
	require.NoError(t, g.Commit(ctx))

	for _, id := range []string{"rx0", "rx1"} {
		b, _ := g.Node(id)
		assert.Equal(t, 200e6, getFloat(t, b, graph.InputKey(PropSampRate, 0)), id)
	}
}

func TestTxChain_ThroughFIFO(t *testing.T) {
	ctx := context.Background()
	reg := DefaultRegistry()
	g := graph.New()
	for _, spec := range []struct{ kind, id string }{
		{KindTxStreamer, "tx"}, {KindFIFO, "fifo"}, {KindRadio, "radio"},
	} {
		b, err := reg.Create(spec.kind, spec.id, Params{PropTickRate: 100e6})
		require.NoError(t, err)
		require.NoError(t, g.AddNode(ctx, b))
	}
	require.NoError(t, g.Connect(ctx, graph.Edge{SrcBlock: "tx", DstBlock: "fifo", Kind: graph.EdgeTxStream}))
	require.NoError(t, g.Connect(ctx, graph.Edge{SrcBlock: "fifo", DstBlock: "radio"}))
	require.NoError(t, g.Commit(ctx))

	tx, _ := g.Node("tx")
	assert.Equal(t, 100e6, getFloat(t, tx, graph.OutputKey(PropSampRate, 0)))

	radio, _ := g.Node("radio")
	require.NoError(t, tx.(*TxStreamer).IssueStreamCmd(ctx, StreamCommand{Mode: StreamStart}))
	assert.True(t, radio.(*Radio).Streaming())

	path, err := g.FindStreamPath("radio", graph.EdgeTxStream)
	require.NoError(t, err)
	assert.Len(t, path, 2)
}

// =============================================================================
// Registry and params
// =============================================================================

func TestRegistry(t *testing.T) {
	reg := DefaultRegistry()
	assert.Equal(t, []string{"ddc", "fifo", "radio", "rx_streamer", "splitter", "tx_streamer"}, reg.Kinds())

	_, err := reg.Create("antenna", "a", nil)
	assert.True(t, graph.IsLookupError(err))

	assert.Error(t, reg.Register(KindRadio, NewRadio))

	_, err = reg.Create(KindDDC, "d", Params{PropDecim: 300})
	assert.True(t, graph.IsValueError(err))
}

func TestParams(t *testing.T) {
	p := Params{"f": 2, "i": 3.0, "bad": 2.5, "s": "x", "n": int64(7)}

	f, err := p.Float("f", 0)
	require.NoError(t, err)
	assert.Equal(t, 2.0, f)

	i, err := p.Int("i", 0)
	require.NoError(t, err)
	assert.Equal(t, 3, i)

	n, err := p.Int("n", 0)
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	_, err = p.Int("bad", 0)
	assert.Error(t, err)

	_, err = p.Float("s", 0)
	assert.Error(t, err)

	s, err := p.String("missing", "def")
	require.NoError(t, err)
	assert.Equal(t, "def", s)
}
