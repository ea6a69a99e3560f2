package graph

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// newSource builds a 0-in/1-out node whose user "rate" drives rate@out:0.
func newSource(id string, rate float64) (*Node, *Property[float64]) {
	n := NewNode(id, 0, 1)
	user := NewProperty(UserKey("rate"), rate)
	out := NewProperty(OutputKey("rate", 0), rate)
	n.MustRegister(user, out)
	n.MustAddResolver([]Container{user}, []Container{out}, func(ctx context.Context) error {
		v, err := user.Get(ctx)
		if err != nil {
			return err
		}
		return out.Set(ctx, v)
	})
	return n, user
}

// newPassThrough builds a 1-in/1-out node with no resolvers.
func newPassThrough(id string, rate float64) *Node {
	n := NewNode(id, 1, 1)
	n.MustRegister(
		NewProperty(InputKey("rate", 0), rate),
		NewProperty(OutputKey("rate", 0), rate),
	)
	return n
}

// newSink builds a 1-in/0-out node with rate@in:0.
func newSink(id string, rate float64) *Node {
	n := NewNode(id, 1, 0)
	n.MustRegister(NewProperty(InputKey("rate", 0), rate))
	return n
}

func addAll(t *testing.T, g *Graph, blocks ...Block) {
	t.Helper()
	for _, b := range blocks {
		require.NoError(t, g.AddNode(context.Background(), b))
	}
}

func connect(t *testing.T, g *Graph, src string, srcPort int, dst string, dstPort int) {
	t.Helper()
	require.NoError(t, g.Connect(context.Background(), Edge{
		SrcBlock: src, SrcPort: srcPort, DstBlock: dst, DstPort: dstPort,
	}))
}

func rateAt(t *testing.T, b Block, key PropertyKey) float64 {
	t.Helper()
	v, err := GetProperty[float64](context.Background(), b, key)
	require.NoError(t, err)
	return v
}

// recorder collects observer notifications.
type recorder struct {
	mu          sync.Mutex
	resolutions []ResolutionRecord
	deliveries  []DeliveryRecord
}

func (r *recorder) ResolutionFinished(_ context.Context, rec ResolutionRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resolutions = append(r.resolutions, rec)
}

func (r *recorder) ActionDelivered(_ context.Context, rec DeliveryRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deliveries = append(r.deliveries, rec)
}

func (r *recorder) totalPasses() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := 0
	for _, rec := range r.resolutions {
		total += rec.Passes
	}
	return total
}
