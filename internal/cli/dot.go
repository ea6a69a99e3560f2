package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/blockgraph/internal/graph"
)

// NewDotCommand creates the dot command.
func NewDotCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "dot <blueprint>",
		Short: "Print a blueprint's graph in dot form",
		Long: `Build the graph described by a blueprint and print its edges as a
dot digraph. Static edges are drawn with ==>, all others with -->.

Examples:
  blockgraph dot rx_chain.yaml
  blockgraph dot rx_chain.cue | dot -Tsvg > rx_chain.svg`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDot(rootOpts, args[0], cmd)
		},
	}
}

func runDot(opts *RootOptions, path string, cmd *cobra.Command) error {
	f := newFormatter(opts, cmd)
	s, err := openSession(context.Background(), opts, path, newLogger(opts, cmd.ErrOrStderr()))
	if err != nil {
		return err
	}
	defer s.close()

	dot := s.graph.ToDot()
	if f.JSON() {
		return f.Success(map[string]string{"name": s.blueprint.Name, "dot": dot})
	}
	fmt.Fprint(f.Writer, dot)
	return nil
}

// NewEdgesCommand creates the edges command.
func NewEdgesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "edges <blueprint>",
		Short: "List a blueprint's edges",
		Long: `List every edge of the graph described by a blueprint, in the
order they were connected, with their kind.

Examples:
  blockgraph edges rx_chain.yaml
  blockgraph edges rx_chain.yaml --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEdges(rootOpts, args[0], cmd)
		},
	}
}

// EdgeInfo is the JSON form of one edge.
type EdgeInfo struct {
	Src  string `json:"src"`
	Dst  string `json:"dst"`
	Kind string `json:"kind"`
	Back bool   `json:"back,omitempty"`
}

func runEdges(opts *RootOptions, path string, cmd *cobra.Command) error {
	f := newFormatter(opts, cmd)
	s, err := openSession(context.Background(), opts, path, newLogger(opts, cmd.ErrOrStderr()))
	if err != nil {
		return err
	}
	defer s.close()

	edges := s.graph.EnumerateEdges()
	if f.JSON() {
		infos := make([]EdgeInfo, 0, len(edges))
		for _, e := range edges {
			infos = append(infos, edgeInfo(e))
		}
		return f.Success(infos)
	}
	for _, e := range edges {
		line := fmt.Sprintf("%s\t%s", e, e.Kind)
		if e.BackEdge {
			line += "\tback"
		}
		fmt.Fprintln(f.Writer, line)
	}
	return nil
}

func edgeInfo(e graph.Edge) EdgeInfo {
	return EdgeInfo{
		Src:  fmt.Sprintf("%s:%d", e.SrcBlock, e.SrcPort),
		Dst:  fmt.Sprintf("%s:%d", e.DstBlock, e.DstPort),
		Kind: e.Kind.String(),
		Back: e.BackEdge,
	}
}
