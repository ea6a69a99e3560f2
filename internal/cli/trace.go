package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/blockgraph/internal/journal"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Action string // optional - filter to one action id
}

// TraceResult holds the journal rows printed by trace.
type TraceResult struct {
	Resolutions []journal.Resolution `json:"resolutions"`
	Deliveries  []journal.Delivery   `json:"deliveries"`
	Stats       TraceStats           `json:"stats"`
}

// TraceStats summarizes a journal.
type TraceStats struct {
	Resolutions       int `json:"resolutions"`
	FailedResolutions int `json:"failed_resolutions"`
	Deliveries        int `json:"deliveries"`
	FailedDeliveries  int `json:"failed_deliveries"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Dump a journal of resolutions and action deliveries",
		Long: `Print the rows of a journal written by resolve or post with --journal,
interleaved in the order they were recorded.

Examples:
  blockgraph trace --journal run.db
  blockgraph trace --journal run.db --action 0190a2b4-...
  blockgraph trace --journal run.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Action, "action", "", "only show deliveries of this action id")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := context.Background()
	f := newFormatter(opts.RootOptions, cmd)

	if opts.Journal == "" {
		return NewExitError(ExitCommandError, "--journal is required")
	}
	// Opening creates missing files; a trace of nothing is a usage error.
	if _, err := os.Stat(opts.Journal); err != nil {
		return WrapExitError(ExitCommandError, "journal not found", err)
	}

	jr, err := journal.Open(opts.Journal)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	defer jr.Close()

	result := TraceResult{}
	if opts.Action == "" {
		result.Resolutions, err = jr.Resolutions(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read resolutions", err)
		}
		result.Deliveries, err = jr.Deliveries(ctx)
	} else {
		result.Resolutions = []journal.Resolution{}
		result.Deliveries, err = jr.DeliveriesFor(ctx, opts.Action)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read deliveries", err)
	}
	result.Stats = traceStats(result)

	if f.JSON() {
		return f.Success(result)
	}
	printTrace(f, result)
	return nil
}

func traceStats(r TraceResult) TraceStats {
	s := TraceStats{Resolutions: len(r.Resolutions), Deliveries: len(r.Deliveries)}
	for _, res := range r.Resolutions {
		if res.ErrorCode != "" {
			s.FailedResolutions++
		}
	}
	for _, d := range r.Deliveries {
		if d.Error != "" {
			s.FailedDeliveries++
		}
	}
	return s
}

// printTrace merges both tables by seq.
func printTrace(f *OutputFormatter, r TraceResult) {
	i, j := 0, 0
	for i < len(r.Resolutions) || j < len(r.Deliveries) {
		if j >= len(r.Deliveries) || (i < len(r.Resolutions) && r.Resolutions[i].Seq < r.Deliveries[j].Seq) {
			res := r.Resolutions[i]
			line := fmt.Sprintf("%4d resolve  origin=%s nodes=%d passes=%d", res.Seq, strings.Join(res.Origin, ","), res.Nodes, res.Passes)
			if res.ErrorCode != "" {
				line += " error=" + res.ErrorCode
			}
			fmt.Fprintln(f.Writer, line)
			i++
			continue
		}
		d := r.Deliveries[j]
		line := fmt.Sprintf("%4d deliver %s %s %s -> %s %s", d.Seq, d.ActionID, d.Type, d.Src, d.Dst, d.Outcome)
		if d.Error != "" {
			line += fmt.Sprintf(" (%s)", d.Error)
		}
		fmt.Fprintln(f.Writer, line)
		j++
	}
	fmt.Fprintf(f.Writer, "\n%d resolutions (%d failed), %d deliveries (%d failed)\n",
		r.Stats.Resolutions, r.Stats.FailedResolutions, r.Stats.Deliveries, r.Stats.FailedDeliveries)
}
