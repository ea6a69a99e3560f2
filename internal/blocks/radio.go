package blocks

import (
	"context"
	"fmt"
	"sync"

	"github.com/roach88/blockgraph/internal/graph"
)

// Radio is a one-in, one-out RF front end. Its sample rate on both edges is
// pinned to the tick rate: a rate pushed back from a neighbor is reset.
type Radio struct {
	*graph.Node

	tickRate *graph.Property[float64]
	freq     *graph.Property[float64]
	rateIn   *graph.Property[float64]
	rateOut  *graph.Property[float64]

	mu        sync.Mutex
	streaming bool
	lastCmd   StreamCommand
}

// NewRadio builds a radio. Params: tick_rate (default 200e6), freq
// (default 1e9), mtu (default 8000).
func NewRadio(id string, p Params) (graph.Block, error) {
	tick, err := p.Float(PropTickRate, 200e6)
	if err != nil {
		return nil, err
	}
	if tick <= 0 {
		return nil, graph.ValueErrorf("tick_rate must be positive, got %g", tick)
	}
	freq, err := p.Float(PropFreq, 1e9)
	if err != nil {
		return nil, err
	}
	mtu, err := p.Int(PropMTU, 8000)
	if err != nil {
		return nil, err
	}

	r := &Radio{
		Node:     graph.NewNode(id, 1, 1),
		tickRate: graph.NewProperty(graph.UserKey(PropTickRate), tick),
		freq:     graph.NewProperty(graph.UserKey(PropFreq), freq),
		rateIn:   graph.NewProperty(graph.InputKey(PropSampRate, 0), tick),
		rateOut:  graph.NewProperty(graph.OutputKey(PropSampRate, 0), tick),
	}
	r.MustRegister(
		r.tickRate, r.freq, r.rateIn, r.rateOut,
		graph.NewProperty(graph.InputKey(PropMTU, 0), mtu),
		graph.NewProperty(graph.OutputKey(PropMTU, 0), mtu),
		graph.NewProperty(graph.OutputKey(PropType, 0), "sc16"),
	)

	rates := []graph.Container{r.rateIn, r.rateOut}
	r.MustAddResolver(
		[]graph.Container{r.tickRate, r.rateIn, r.rateOut}, rates,
		r.resolveRate,
	)

	r.RegisterActionHandler(ActionStreamCmd, r.handleStreamCmd)
	r.RegisterActionHandler(ActionTune, r.handleTune)
	return r, nil
}

func (r *Radio) resolveRate(ctx context.Context) error {
	tick, err := r.tickRate.Get(ctx)
	if err != nil {
		return err
	}
	if tick <= 0 {
		return graph.ValueErrorf("tick_rate must be positive, got %g", tick)
	}
	if err := r.rateIn.Set(ctx, tick); err != nil {
		return err
	}
	return r.rateOut.Set(ctx, tick)
}

func (r *Radio) handleStreamCmd(_ context.Context, a graph.Action) error {
	cmd, ok := streamCommand(a.Payload)
	if !ok {
		return fmt.Errorf("radio %s: invalid stream command %v", r.ID(), a.Payload)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.streaming = cmd.Mode == StreamStart
	r.lastCmd = cmd
	return nil
}

// handleTune retunes the radio and acknowledges downstream with tune_done.
func (r *Radio) handleTune(ctx context.Context, a graph.Action) error {
	freq, ok := a.Payload.(float64)
	if !ok {
		return fmt.Errorf("radio %s: tune payload must be float64, got %T", r.ID(), a.Payload)
	}
	if err := graph.SetProperty(ctx, r, graph.UserKey(PropFreq), freq); err != nil {
		return err
	}
	return r.PostAction(ctx, graph.SourceOutputEdge, 0, graph.Action{Type: ActionTuneDone, Payload: freq})
}

// Overrun reports an overflow to the downstream consumer.
func (r *Radio) Overrun(ctx context.Context) error {
	return r.PostAction(ctx, graph.SourceOutputEdge, 0, graph.Action{Type: ActionOverrun})
}

// Streaming reports whether the last stream command started streaming.
func (r *Radio) Streaming() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.streaming
}

// LastStreamCommand returns the most recent stream command.
func (r *Radio) LastStreamCommand() StreamCommand {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastCmd
}
