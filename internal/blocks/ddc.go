package blocks

import (
	"context"
	"math"

	"github.com/roach88/blockgraph/internal/graph"
)

const (
	minDecim = 1
	maxDecim = 255
)

// DDC is a digital down-converter. Its output rate is the input rate divided
// by an integer decimation; a rate requested from downstream is turned back
// into a decimation.
type DDC struct {
	*graph.Node

	decim   *graph.Property[int]
	rateIn  *graph.Property[float64]
	rateOut *graph.Property[float64]
}

// NewDDC builds a down-converter. Params: decim (default 1).
func NewDDC(id string, p Params) (graph.Block, error) {
	decim, err := p.Int(PropDecim, 1)
	if err != nil {
		return nil, err
	}
	if decim < minDecim || decim > maxDecim {
		return nil, graph.ValueErrorf("decim must be in [%d, %d], got %d", minDecim, maxDecim, decim)
	}

	d := &DDC{
		Node:    graph.NewNode(id, 1, 1),
		decim:   graph.NewProperty(graph.UserKey(PropDecim), decim),
		rateIn:  graph.NewProperty(graph.InputKey(PropSampRate, 0), 0.0),
		rateOut: graph.NewProperty(graph.OutputKey(PropSampRate, 0), 0.0),
	}
	d.MustRegister(
		d.decim, d.rateIn, d.rateOut,
		graph.NewProperty(graph.InputKey(PropMTU, 0), 8000),
		graph.NewProperty(graph.OutputKey(PropMTU, 0), 8000),
		graph.NewProperty(graph.InputKey(PropType, 0), "sc16"),
		graph.NewProperty(graph.OutputKey(PropType, 0), "sc16"),
	)
	d.SetMTUForwardingPolicy(graph.ForwardOneToOne)

	d.MustAddResolver(
		[]graph.Container{d.rateIn, d.decim},
		[]graph.Container{d.rateOut},
		d.resolveOutputRate,
	)
	d.MustAddResolver(
		[]graph.Container{d.rateOut, d.rateIn},
		[]graph.Container{d.decim},
		d.resolveDecimation,
	)
	return d, nil
}

func (d *DDC) resolveOutputRate(ctx context.Context) error {
	in, err := d.rateIn.Get(ctx)
	if err != nil {
		return err
	}
	decim, err := d.decim.Get(ctx)
	if err != nil {
		return err
	}
	if decim < minDecim || decim > maxDecim {
		return graph.ValueErrorf("decim must be in [%d, %d], got %d", minDecim, maxDecim, decim)
	}
	return d.rateOut.Set(ctx, in/float64(decim))
}

// resolveDecimation derives the decimation from a requested output rate.
func (d *DDC) resolveDecimation(ctx context.Context) error {
	in, err := d.rateIn.Get(ctx)
	if err != nil {
		return err
	}
	out, err := d.rateOut.Get(ctx)
	if err != nil {
		return err
	}
	if in == 0 || out == 0 {
		return nil
	}
	ratio := in / out
	decim := math.Round(ratio)
	if math.Abs(ratio-decim) > 1e-9*ratio {
		return graph.ValueErrorf("output rate %g is not an integer division of %g", out, in)
	}
	if decim < minDecim || decim > maxDecim {
		return graph.ValueErrorf("output rate %g needs decimation %g outside [%d, %d]", out, decim, minDecim, maxDecim)
	}
	return d.decim.Set(ctx, int(decim))
}
