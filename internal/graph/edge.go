package graph

import (
	"fmt"
	"strings"
)

// EdgeKind classifies an edge.
type EdgeKind int

const (
	// EdgeDynamic is a reconfigurable connection.
	EdgeDynamic EdgeKind = iota

	// EdgeStatic is a fixed hardware connection. It cannot be disconnected.
	EdgeStatic

	// EdgeRxStream terminates a receive streaming chain.
	EdgeRxStream

	// EdgeTxStream originates a transmit streaming chain.
	EdgeTxStream
)

func (k EdgeKind) String() string {
	switch k {
	case EdgeDynamic:
		return "dynamic"
	case EdgeStatic:
		return "static"
	case EdgeRxStream:
		return "rx_stream"
	case EdgeTxStream:
		return "tx_stream"
	default:
		return fmt.Sprintf("EdgeKind(%d)", int(k))
	}
}

// ParseEdgeKind parses the names produced by String. Case is ignored.
func ParseEdgeKind(s string) (EdgeKind, error) {
	switch strings.ToLower(s) {
	case "", "dynamic":
		return EdgeDynamic, nil
	case "static":
		return EdgeStatic, nil
	case "rx_stream":
		return EdgeRxStream, nil
	case "tx_stream":
		return EdgeTxStream, nil
	}
	return EdgeDynamic, errorf(CodeLookup, "unknown edge kind %q", s)
}

// Edge connects an output port of one node to an input port of another.
//
// Forward edges must form a DAG. BackEdge marks a cycle-closing edge; values
// forwarded along it into its destination are written RW-locked.
type Edge struct {
	SrcBlock string
	SrcPort  int
	DstBlock string
	DstPort  int
	Kind     EdgeKind
	BackEdge bool
}

// IsForward reports whether the edge participates in topological order.
func (e Edge) IsForward() bool {
	return !e.BackEdge
}

// sameEndpoints compares the (src, srcPort, dst, dstPort) tuple.
func (e Edge) sameEndpoints(o Edge) bool {
	return e.SrcBlock == o.SrcBlock && e.SrcPort == o.SrcPort &&
		e.DstBlock == o.DstBlock && e.DstPort == o.DstPort
}

// String renders "src:port --> dst:port", with "==>" for static edges.
func (e Edge) String() string {
	arrow := "-->"
	if e.Kind == EdgeStatic {
		arrow = "==>"
	}
	return fmt.Sprintf("%s:%d %s %s:%d", e.SrcBlock, e.SrcPort, arrow, e.DstBlock, e.DstPort)
}
