package graph

import "fmt"

// ForwardingPolicy decides where a value arriving at one port of a node is
// copied to on the same node when no resolver covers it.
type ForwardingPolicy int

const (
	// ForwardOneToOne maps port N on one side to port N on the other.
	ForwardOneToOne ForwardingPolicy = iota

	// ForwardOneToFan maps a single port on one side to every port on the
	// other side, and any port of the many-port side back to the single port.
	ForwardOneToFan

	// ForwardOneToAll maps any port to every other port on both sides.
	ForwardOneToAll

	// ForwardNone disables forwarding.
	ForwardNone
)

func (p ForwardingPolicy) String() string {
	switch p {
	case ForwardOneToOne:
		return "ONE_TO_ONE"
	case ForwardOneToFan:
		return "ONE_TO_FAN"
	case ForwardOneToAll:
		return "ONE_TO_ALL"
	case ForwardNone:
		return "NONE"
	default:
		return fmt.Sprintf("ForwardingPolicy(%d)", int(p))
	}
}

// ParseForwardingPolicy parses the names produced by String.
func ParseForwardingPolicy(s string) (ForwardingPolicy, error) {
	switch s {
	case "ONE_TO_ONE", "one_to_one":
		return ForwardOneToOne, nil
	case "ONE_TO_FAN", "one_to_fan":
		return ForwardOneToFan, nil
	case "ONE_TO_ALL", "one_to_all":
		return ForwardOneToAll, nil
	case "NONE", "none":
		return ForwardNone, nil
	}
	return ForwardNone, errorf(CodeLookup, "unknown forwarding policy %q", s)
}

// PortRef names one side of one port of a node.
type PortRef struct {
	Block string
	Kind  SourceKind
	Port  int
}

func (r PortRef) String() string {
	return fmt.Sprintf("%s@%s:%d", r.Block, r.Kind, r.Port)
}

type portSlot struct {
	kind SourceKind
	port int
}

// targets lists the ports a value arriving at (kind, port) is copied to.
func (p ForwardingPolicy) targets(kind SourceKind, port, numIn, numOut int) []portSlot {
	if kind == SourceUser {
		return nil
	}
	count := func(k SourceKind) int {
		if k == SourceInputEdge {
			return numIn
		}
		return numOut
	}
	other := kind.opposite()
	own, opp := count(kind), count(other)

	var out []portSlot
	switch p {
	case ForwardOneToOne:
		if port < opp {
			out = append(out, portSlot{other, port})
		}
	case ForwardOneToFan:
		switch {
		case own == 1:
			for i := 0; i < opp; i++ {
				out = append(out, portSlot{other, i})
			}
		case opp == 1:
			out = append(out, portSlot{other, 0})
		case port < opp:
			out = append(out, portSlot{other, port})
		}
	case ForwardOneToAll:
		for i := 0; i < opp; i++ {
			out = append(out, portSlot{other, i})
		}
		for i := 0; i < own; i++ {
			if i != port {
				out = append(out, portSlot{kind, i})
			}
		}
	}
	return out
}
