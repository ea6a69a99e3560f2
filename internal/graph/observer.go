package graph

import (
	"context"
	"time"
)

// Observer receives notifications about resolutions and action deliveries.
// Callbacks run under the graph lock and must not block.
type Observer interface {
	ResolutionFinished(ctx context.Context, r ResolutionRecord)
	ActionDelivered(ctx context.Context, r DeliveryRecord)
}

// ResolutionRecord describes one settle.
type ResolutionRecord struct {
	Origin   []string
	Nodes    int
	Passes   int
	Duration time.Duration
	Err      error
}

// DeliveryOutcome says what happened to an action at a node.
type DeliveryOutcome string

const (
	// DeliveryHandled means a registered handler consumed the action.
	DeliveryHandled DeliveryOutcome = "handled"

	// DeliveryForwarded means the action policy passed it on.
	DeliveryForwarded DeliveryOutcome = "forwarded"

	// DeliveryDropped means no handler and no forwarding target existed.
	DeliveryDropped DeliveryOutcome = "dropped"
)

// DeliveryRecord describes an action arriving at a node.
type DeliveryRecord struct {
	ActionID string
	Type     string
	From     PortRef
	To       PortRef
	Outcome  DeliveryOutcome
	Err      error
}

type nopObserver struct{}

func (nopObserver) ResolutionFinished(context.Context, ResolutionRecord) {}
func (nopObserver) ActionDelivered(context.Context, DeliveryRecord)      {}

// Observers fans notifications out to several observers in order.
type Observers []Observer

func (os Observers) ResolutionFinished(ctx context.Context, r ResolutionRecord) {
	for _, o := range os {
		o.ResolutionFinished(ctx, r)
	}
}

func (os Observers) ActionDelivered(ctx context.Context, r DeliveryRecord) {
	for _, o := range os {
		o.ActionDelivered(ctx, r)
	}
}
