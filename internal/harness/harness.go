package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/blockgraph/internal/blocks"
	"github.com/roach88/blockgraph/internal/blueprint"
	"github.com/roach88/blockgraph/internal/graph"
	"github.com/roach88/blockgraph/internal/journal"
	"github.com/roach88/blockgraph/internal/testutil"
)

// Harness executes one scenario against a freshly built graph.
type Harness struct {
	graph   *graph.Graph
	journal *journal.Journal
	clock   *journal.Clock
	logger  *slog.Logger
}

// Option configures a run.
type Option func(*runConfig)

type runConfig struct {
	logger   *slog.Logger
	registry *blocks.Registry
}

// WithLogger routes graph and harness logs to l. Runs are silent by default.
func WithLogger(l *slog.Logger) Option {
	return func(c *runConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithRegistry builds blueprints with reg instead of blocks.DefaultRegistry.
func WithRegistry(reg *blocks.Registry) Option {
	return func(c *runConfig) {
		if reg != nil {
			c.registry = reg
		}
	}
}

// Run builds the scenario's blueprint, executes its steps and evaluates its
// assertions. Failed expectations are reported in the Result; the returned
// error is reserved for scenarios that cannot run at all.
func Run(ctx context.Context, scenario *Scenario, opts ...Option) (*Result, error) {
	cfg := runConfig{
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		registry: blocks.DefaultRegistry(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if scenario.Blueprint == nil {
		return nil, fmt.Errorf("scenario %q has no blueprint loaded", scenario.Name)
	}
	if err := scenario.Blueprint.Validate(); err != nil {
		return nil, fmt.Errorf("invalid blueprint: %w", err)
	}

	clock := journal.NewClock()
	jr, err := journal.Open(":memory:", journal.WithLogger(cfg.logger), journal.WithClock(clock))
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory journal: %w", err)
	}
	defer jr.Close()

	graphOpts := []graph.Option{
		graph.WithLogger(cfg.logger),
		graph.WithObserver(jr),
		graph.WithIDGenerator(testutil.NewScriptedIDGenerator("act", scenario.ActionIDs...)),
	}
	if scenario.MaxPasses > 0 {
		graphOpts = append(graphOpts, graph.WithMaxPasses(scenario.MaxPasses))
	}
	g, err := blueprint.Build(ctx, scenario.Blueprint, cfg.registry, graphOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build blueprint: %w", err)
	}
	defer g.Shutdown(ctx)

	h := &Harness{
		graph:   g,
		journal: jr,
		clock:   clock,
		logger:  cfg.logger,
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		h.runStep(ctx, i, step, result)
	}

	result.Dot = g.ToDot()
	result.Deliveries, err = jr.Deliveries(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read journal: %w", err)
	}

	for _, msg := range EvaluateAssertions(ctx, g, result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// runStep executes one step and checks it against ExpectError.
func (h *Harness) runStep(ctx context.Context, index int, step Step, result *Result) {
	err := h.execute(ctx, step)

	sr := StepResult{Seq: h.clock.Next(), Op: step.Op}
	if err != nil {
		sr.Code = string(graph.CodeOf(err))
		sr.Error = err.Error()
	}
	result.Steps = append(result.Steps, sr)

	switch {
	case step.ExpectError == "" && err != nil:
		result.AddError(fmt.Sprintf("steps[%d] %s: unexpected error: %v", index, step.Op, err))
	case step.ExpectError != "" && err == nil:
		result.AddError(fmt.Sprintf("steps[%d] %s: expected %s, got success", index, step.Op, step.ExpectError))
	case step.ExpectError != "" && sr.Code != step.ExpectError:
		result.AddError(fmt.Sprintf("steps[%d] %s: expected %s, got %v", index, step.Op, step.ExpectError, err))
	}

	h.logger.Debug("step completed", "step", index, "op", step.Op, "seq", sr.Seq, "code", sr.Code)
}

func (h *Harness) execute(ctx context.Context, step Step) error {
	switch step.Op {
	case OpCommit:
		return h.graph.Commit(ctx)
	case OpRelease:
		h.graph.Release(ctx)
		return nil
	case OpShutdown:
		h.graph.Shutdown(ctx)
		return nil
	case OpSet:
		return blueprint.Apply(ctx, h.graph, blueprint.PropertySpec{Node: step.Node, Key: step.Key, Value: step.Value})
	case OpConnect, OpDisconnect:
		e, err := blueprint.EdgeSpec{Src: step.Src, Dst: step.Dst, Kind: step.Kind, Back: step.Back}.Edge()
		if err != nil {
			return err
		}
		if step.Op == OpConnect {
			return h.graph.Connect(ctx, e)
		}
		return h.graph.Disconnect(ctx, e)
	case OpPost:
		side, port, err := graph.ParsePort(step.Port)
		if err != nil {
			return err
		}
		return h.graph.PostAction(ctx, step.Node, side, port, graph.Action{
			Type:    step.Action,
			Payload: normalizePayload(step.Payload),
		})
	default:
		return fmt.Errorf("unknown op %q", step.Op)
	}
}

// normalizePayload turns YAML integers into float64, the numeric type block
// handlers expect.
func normalizePayload(v any) any {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case uint64:
		return float64(n)
	default:
		return v
	}
}
