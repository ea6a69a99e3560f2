package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/blockgraph/internal/blueprint"
	"github.com/roach88/blockgraph/internal/graph"
)

// ResolveOptions holds flags for the resolve command.
type ResolveOptions struct {
	*RootOptions
	Set []string // node.key=value
	Get []string // node.key
}

// PropertyValue is one printed property.
type PropertyValue struct {
	Node  string `json:"node"`
	Key   string `json:"key"`
	Value any    `json:"value"`
}

// NewResolveCommand creates the resolve command.
func NewResolveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ResolveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "resolve <blueprint>",
		Short: "Commit a blueprint, apply property changes and print settled values",
		Long: `Build and commit the graph described by a blueprint, apply each --set
in order, then print the settled values of the --get properties, or of
every property when no --get is given.

Keys use the text form name, name@in:N or name@out:N.

Exit codes:
  0 - All sets resolved
  1 - A set or commit failed to resolve
  2 - Command error (bad blueprint, malformed flag)

Examples:
  blockgraph resolve rx_chain.yaml
  blockgraph resolve rx_chain.yaml --set ddc.decim=10 --get rx.samp_rate@in:0
  blockgraph resolve rx_chain.yaml --set rx.samp_rate@in:0=25e6 --get ddc.decim`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringArrayVar(&opts.Set, "set", nil, "set node.key=value (repeatable)")
	cmd.Flags().StringArrayVar(&opts.Get, "get", nil, "print node.key (repeatable)")

	return cmd
}

func runResolve(opts *ResolveOptions, path string, cmd *cobra.Command) error {
	ctx := context.Background()
	f := newFormatter(opts.RootOptions, cmd)

	sets := make([]blueprint.PropertySpec, 0, len(opts.Set))
	for _, raw := range opts.Set {
		target, value, ok := strings.Cut(raw, "=")
		if !ok {
			return NewExitError(ExitCommandError, fmt.Sprintf("--set %q: expected node.key=value", raw))
		}
		node, key, err := splitTarget(target)
		if err != nil {
			return err
		}
		sets = append(sets, blueprint.PropertySpec{Node: node, Key: key, Value: value})
	}

	s, err := openSession(ctx, opts.RootOptions, path, newLogger(opts.RootOptions, cmd.ErrOrStderr()))
	if err != nil {
		return err
	}
	defer s.close()

	if err := s.graph.Commit(ctx); err != nil {
		return f.Fail(ExitFailure, "commit failed", err)
	}
	for _, spec := range sets {
		f.VerboseLog("set %s.%s = %v", spec.Node, spec.Key, spec.Value)
		if err := blueprint.Apply(ctx, s.graph, spec); err != nil {
			return f.Fail(ExitFailure, "set failed", err)
		}
	}

	values, err := readProperties(ctx, s.graph, opts.Get)
	if err != nil {
		return f.Fail(ExitFailure, "get failed", err)
	}
	if f.JSON() {
		return f.Success(values)
	}
	for _, v := range values {
		fmt.Fprintf(f.Writer, "%s.%s = %s\n", v.Node, v.Key, formatValue(v.Value))
	}
	return nil
}

// readProperties reads the named properties, or every property of every node
// in registration order when targets is empty.
func readProperties(ctx context.Context, g *graph.Graph, targets []string) ([]PropertyValue, error) {
	out := []PropertyValue{}
	if len(targets) == 0 {
		for _, b := range g.Nodes() {
			for _, c := range graph.PropertiesOf(b) {
				v, err := graph.GetPropertyValue(ctx, b, c.Key())
				if err != nil {
					if graph.IsLookupError(err) {
						continue
					}
					return nil, err
				}
				out = append(out, PropertyValue{Node: b.ID(), Key: c.Key().String(), Value: v})
			}
		}
		return out, nil
	}

	for _, target := range targets {
		node, keyText, err := splitTarget(target)
		if err != nil {
			return nil, err
		}
		b, ok := g.Node(node)
		if !ok {
			return nil, &graph.Error{Code: graph.CodeLookup, Message: "unknown node", Node: node}
		}
		key, err := graph.ParseKey(keyText)
		if err != nil {
			return nil, err
		}
		v, err := graph.GetPropertyValue(ctx, b, key)
		if err != nil {
			return nil, err
		}
		out = append(out, PropertyValue{Node: node, Key: key.String(), Value: v})
	}
	return out, nil
}

// splitTarget splits "node.key" at the first dot.
func splitTarget(s string) (string, string, error) {
	node, key, ok := strings.Cut(s, ".")
	if !ok || node == "" || key == "" {
		return "", "", NewExitError(ExitCommandError, fmt.Sprintf("%q: expected node.key", s))
	}
	return node, key, nil
}

// formatValue prints floats without exponents so rates read naturally.
func formatValue(v any) string {
	switch n := v.(type) {
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(n), 'f', -1, 32)
	default:
		return fmt.Sprint(v)
	}
}
