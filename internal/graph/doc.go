// Package graph implements a property-propagation graph for configuring
// signal-processing blocks.
//
// A Graph holds Nodes connected by Edges from output ports to input ports.
// Each node owns typed properties. A property is either user-facing or bound
// to one port. When a property changes, the graph re-resolves the connected
// component: nodes are visited in topological order over forward edges, each
// node runs its triggered resolvers, forwards uncovered properties by its
// forwarding policy, and forwards dirty port properties across edges. Passes
// repeat until nothing is dirty or the pass ceiling is reached.
//
// Access to properties is mediated by AccessMode grants. Outside a grant a
// property is read-only; resolvers may write only their declared targets.
//
// Actions are messages posted on a port. The router delivers them across the
// attached edge to a handler, or forwards them by the receiving node's action
// policy, at most once per port per post.
//
// Every mutation and every read on a committed graph takes a single
// re-entrant lock. Ownership of that lock is carried in the context, so
// resolvers and handlers must pass their ctx to nested graph calls.
package graph
