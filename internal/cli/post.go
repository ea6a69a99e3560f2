package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/blockgraph/internal/graph"
	"github.com/roach88/blockgraph/internal/testutil"
)

// PostOptions holds flags for the post command.
type PostOptions struct {
	*RootOptions
	Payload string
	ID      string
}

// DeliveryInfo is the printed form of one delivery.
type DeliveryInfo struct {
	ActionID string `json:"action_id"`
	Type     string `json:"type"`
	From     string `json:"from"`
	To       string `json:"to"`
	Outcome  string `json:"outcome"`
	Error    string `json:"error,omitempty"`
}

// NewPostCommand creates the post command.
func NewPostCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PostOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "post <blueprint> <node> <side:port> <action-type>",
		Short: "Post an action into a committed graph and print its deliveries",
		Long: `Build and commit the graph described by a blueprint, post one action
from the given node port, and print every delivery it caused in order.

The payload is passed as a number when it parses as one, else as text.

Examples:
  blockgraph post rx_chain.yaml rx in:0 stream_cmd --payload start
  blockgraph post rx_chain.yaml rx in:0 tune --payload 2.4e9 --journal run.db`,
		Args:          cobra.ExactArgs(4),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPost(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Payload, "payload", "", "action payload")
	cmd.Flags().StringVar(&opts.ID, "id", "", "correlation id of the posted action (default: UUIDv7)")

	return cmd
}

func runPost(opts *PostOptions, args []string, cmd *cobra.Command) error {
	ctx := context.Background()
	f := newFormatter(opts.RootOptions, cmd)
	path, node, portText, actionType := args[0], args[1], args[2], args[3]

	side, port, err := graph.ParsePort(portText)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid port", err)
	}

	var sopts []sessionOption
	if opts.ID != "" {
		// Actions posted by handlers get "<id>-2", "<id>-3", ...
		sopts = append(sopts, withIDs(testutil.NewScriptedIDGenerator(opts.ID, opts.ID)))
	}
	s, err := openSession(ctx, opts.RootOptions, path, newLogger(opts.RootOptions, cmd.ErrOrStderr()), sopts...)
	if err != nil {
		return err
	}
	defer s.close()

	if err := s.graph.Commit(ctx); err != nil {
		return f.Fail(ExitFailure, "commit failed", err)
	}

	a := graph.Action{Type: actionType, Payload: parsePayload(opts.Payload)}
	postErr := s.graph.PostAction(ctx, node, side, port, a)

	records := s.deliveries.all()
	infos := make([]DeliveryInfo, 0, len(records))
	for _, r := range records {
		info := DeliveryInfo{
			ActionID: r.ActionID,
			Type:     r.Type,
			From:     r.From.String(),
			To:       r.To.String(),
			Outcome:  string(r.Outcome),
		}
		if r.Err != nil {
			info.Error = r.Err.Error()
		}
		infos = append(infos, info)
	}

	if postErr != nil {
		if !f.JSON() {
			printDeliveries(f, infos)
		}
		return f.Fail(ExitFailure, "post failed", postErr)
	}
	if f.JSON() {
		return f.Success(infos)
	}
	if len(infos) == 0 {
		fmt.Fprintln(f.Writer, "no deliveries")
		return nil
	}
	printDeliveries(f, infos)
	return nil
}

func printDeliveries(f *OutputFormatter, infos []DeliveryInfo) {
	for _, d := range infos {
		fmt.Fprintf(f.Writer, "%s %s %s -> %s %s", d.ActionID, d.Type, d.From, d.To, d.Outcome)
		if d.Error != "" {
			fmt.Fprintf(f.Writer, " (%s)", d.Error)
		}
		fmt.Fprintln(f.Writer)
	}
}

func parsePayload(s string) any {
	if s == "" {
		return nil
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v
	}
	return s
}
