package harness

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/blockgraph/internal/blueprint"
)

func loadScenario(t *testing.T, name string) *Scenario {
	t.Helper()
	s, err := LoadScenario(filepath.Join("testdata", name))
	require.NoError(t, err)
	return s
}

// pair is a radio feeding an rx streamer over an rx_stream edge.
func pair() *blueprint.Blueprint {
	return &blueprint.Blueprint{
		Name: "pair",
		Blocks: []blueprint.BlockSpec{
			{ID: "radio", Kind: "radio"},
			{ID: "rx", Kind: "rx_streamer"},
		},
		Edges: []blueprint.EdgeSpec{{Src: "radio:0", Dst: "rx:0", Kind: "rx_stream"}},
	}
}

// =============================================================================
// Scenario files
// =============================================================================

func TestScenarioFiles(t *testing.T) {
	for _, name := range []string{"rx_decimation.yaml", "stream_control.yaml", "lifecycle_errors.yaml"} {
		t.Run(name, func(t *testing.T) {
			s := loadScenario(t, name)
			result, err := Run(context.Background(), s)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
			assert.Len(t, result.Steps, len(s.Steps))
		})
	}
}

func TestRunWithGolden_RxDecimation(t *testing.T) {
	s := loadScenario(t, "rx_decimation.yaml")

	result, err := RunWithGolden(t, s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_StepsAreNumbered(t *testing.T) {
	s := loadScenario(t, "lifecycle_errors.yaml")

	result, err := Run(context.Background(), s)
	require.NoError(t, err)

	for i := 1; i < len(result.Steps); i++ {
		assert.Greater(t, result.Steps[i].Seq, result.Steps[i-1].Seq)
	}
	assert.Equal(t, "TOPOLOGY_ERROR", result.Steps[0].Code)
	assert.Empty(t, result.Steps[1].Code)
	assert.Equal(t, "VALUE_ERROR", result.Steps[5].Code)
}

func TestRun_StepsShareJournalTimeline(t *testing.T) {
	s := loadScenario(t, "stream_control.yaml")

	result, err := Run(context.Background(), s)
	require.NoError(t, err)
	require.Len(t, result.Steps, 3)
	require.NotEmpty(t, result.Deliveries)

	commit, start, tune := result.Steps[0].Seq, result.Steps[1].Seq, result.Steps[2].Seq
	for _, d := range result.Deliveries {
		switch d.Type {
		case "stream_cmd":
			assert.Greater(t, d.Seq, commit)
			assert.Less(t, d.Seq, start)
		case "tune", "tune_done":
			assert.Greater(t, d.Seq, start)
			assert.Less(t, d.Seq, tune)
		}
	}
}

func TestRun_ScriptedActionIDs(t *testing.T) {
	s := loadScenario(t, "stream_control.yaml")

	result, err := Run(context.Background(), s)
	require.NoError(t, err)
	require.NotEmpty(t, result.Deliveries)

	assert.Equal(t, "start-1", result.Deliveries[0].ActionID)
	assert.Equal(t, "stream_cmd", result.Deliveries[0].Type)
	assert.Equal(t, "rx@in:0", result.Deliveries[0].Src)
	assert.Equal(t, "radio@out:0", result.Deliveries[0].Dst)
}

// =============================================================================
// Failures
// =============================================================================

func TestRun_UnexpectedErrorFails(t *testing.T) {
	s := &Scenario{
		Name:      "unexpected",
		Blueprint: pair(),
		Steps: []Step{
			{Op: OpPost, Node: "rx", Port: "in:0", Action: "stream_cmd", Payload: "start"},
		},
		Assertions: []Assertion{{Type: AssertEdgeCount, Count: 1}},
	}

	result, err := Run(context.Background(), s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "unexpected error")
}

func TestRun_MissingExpectedErrorFails(t *testing.T) {
	s := &Scenario{
		Name:      "missing",
		Blueprint: pair(),
		Steps: []Step{
			{Op: OpCommit, ExpectError: "TOPOLOGY_ERROR"},
			{Op: OpSet, Node: "radio", Key: "freq", Value: 2e9, ExpectError: "VALUE_ERROR"},
		},
		Assertions: []Assertion{{Type: AssertEdgeCount, Count: 1}},
	}

	result, err := Run(context.Background(), s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], "expected TOPOLOGY_ERROR, got success")
}

func TestRun_WrongErrorCodeFails(t *testing.T) {
	s := &Scenario{
		Name:      "wrong-code",
		Blueprint: pair(),
		Steps: []Step{
			{Op: OpPost, Node: "rx", Port: "in:0", Action: "stream_cmd", ExpectError: "VALUE_ERROR"},
		},
		Assertions: []Assertion{{Type: AssertEdgeCount, Count: 1}},
	}

	result, err := Run(context.Background(), s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "expected VALUE_ERROR")
}

func TestRun_FailedAssertions(t *testing.T) {
	s := &Scenario{
		Name:      "assertions",
		Blueprint: pair(),
		Steps:     []Step{{Op: OpCommit}},
		Assertions: []Assertion{
			{Type: AssertPropertyEquals, Node: "rx", Key: "samp_rate@in:0", Value: 1},
			{Type: AssertPropertyEquals, Node: "ghost", Key: "freq", Value: 1},
			{Type: AssertEdgeCount, Count: 5},
			{Type: AssertDotContains, Contains: "nothing"},
			{Type: AssertDelivered, Node: "radio", Action: "tune"},
			{Type: AssertPropertyEquals, Node: "rx", Key: "type@in:0", Value: "sc16"},
		},
	}

	result, err := Run(context.Background(), s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 5)
	assert.Contains(t, result.Errors[0], "assertions[0]")
	assert.Contains(t, result.Errors[4], "assertions[4]")
}

func TestRun_ConnectAfterCommitSettles(t *testing.T) {
	bp := pair()
	bp.Edges = nil
	s := &Scenario{
		Name:      "late-connect",
		Blueprint: bp,
		Steps: []Step{
			{Op: OpConnect, Src: "radio:0", Dst: "rx:0", Kind: "rx_stream"},
			{Op: OpCommit},
			{Op: OpSet, Node: "radio", Key: "tick_rate", Value: 100e6},
			{Op: OpDisconnect, Src: "radio:0", Dst: "rx:0"},
		},
		Assertions: []Assertion{
			{Type: AssertEdgeCount, Count: 0},
			{Type: AssertPropertyEquals, Node: "rx", Key: "samp_rate@in:0", Value: 100e6},
		},
	}

	result, err := Run(context.Background(), s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, "digraph {\n}\n", result.Dot)
}

func TestRun_NoBlueprint(t *testing.T) {
	_, err := Run(context.Background(), &Scenario{Name: "empty"})
	assert.Error(t, err)
}

func TestRun_UnknownBlockKind(t *testing.T) {
	s := &Scenario{
		Name: "bad-kind",
		Blueprint: &blueprint.Blueprint{
			Blocks: []blueprint.BlockSpec{{ID: "x", Kind: "antenna"}},
		},
		Assertions: []Assertion{{Type: AssertEdgeCount}},
	}
	_, err := Run(context.Background(), s)
	assert.Error(t, err)
}

// =============================================================================
// Parsing
// =============================================================================

func TestParseScenario_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"missing name", "blueprint_file: x.yaml\nassertions: [{type: edge_count}]\n", "name is required"},
		{"no blueprint", "name: a\nassertions: [{type: edge_count}]\n", "blueprint or blueprint_file"},
		{"no assertions", "name: a\nblueprint_file: x.yaml\n", "assertions list"},
		{"unknown field", "name: a\nblueprint_file: x.yaml\nasertions: []\n", "failed to parse YAML"},
		{"unknown op", "name: a\nblueprint_file: x.yaml\nsteps: [{op: explode}]\nassertions: [{type: edge_count}]\n", "unknown op"},
		{"set without value", "name: a\nblueprint_file: x.yaml\nsteps: [{op: set, node: n, key: k}]\nassertions: [{type: edge_count}]\n", "value is required"},
		{"post without port", "name: a\nblueprint_file: x.yaml\nsteps: [{op: post, node: n, action: t}]\nassertions: [{type: edge_count}]\n", "port"},
		{"unknown assertion", "name: a\nblueprint_file: x.yaml\nassertions: [{type: trace_order}]\n", "unknown assertion type"},
		{"dot without contains", "name: a\nblueprint_file: x.yaml\nassertions: [{type: dot_contains}]\n", "contains is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadScenario_MissingBlueprintFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "s.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: a\nblueprint_file: nope.yaml\nassertions: [{type: edge_count}]\n"), 0o644))

	_, err := LoadScenario(path)
	assert.Error(t, err)
}

func TestLoadScenario_ResolvesRelativeBlueprint(t *testing.T) {
	s := loadScenario(t, "rx_decimation.yaml")
	require.NotNil(t, s.Blueprint)
	assert.Equal(t, "rx-chain", s.Blueprint.Name)
	assert.Len(t, s.Blueprint.Blocks, 3)
}

func TestValuesEqual(t *testing.T) {
	assert.True(t, valuesEqual(20e6, 20000000))
	assert.True(t, valuesEqual(8, 8.0))
	assert.True(t, valuesEqual("sc16", "sc16"))
	assert.False(t, valuesEqual(20e6, 20000001))
	assert.False(t, valuesEqual("sc16", "fc32"))
}
