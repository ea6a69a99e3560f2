package blocks

import (
	"context"
	"sync"

	"github.com/roach88/blockgraph/internal/graph"
)

// Block kinds.
const (
	KindRadio      = "radio"
	KindDDC        = "ddc"
	KindSplitter   = "splitter"
	KindFIFO       = "fifo"
	KindRxStreamer = "rx_streamer"
	KindTxStreamer = "tx_streamer"
)

// Action types exchanged between blocks.
const (
	ActionStreamCmd = "stream_cmd"
	ActionTune      = "tune"
	ActionTuneDone  = "tune_done"
	ActionOverrun   = "overrun"
	ActionUnderrun  = "underrun"
)

// Common property names.
const (
	PropSampRate = "samp_rate"
	PropMTU      = "mtu"
	PropType     = "type"
	PropTickRate = "tick_rate"
	PropFreq     = "freq"
	PropDecim    = "decim"
)

// StreamMode says whether a stream command starts or stops streaming.
type StreamMode string

const (
	StreamStart StreamMode = "start"
	StreamStop  StreamMode = "stop"
)

// StreamCommand is the payload of a stream_cmd action.
type StreamCommand struct {
	Mode     StreamMode
	NumSamps int
}

// inbox records actions delivered to a block.
type inbox struct {
	mu       sync.Mutex
	received []graph.Action
}

func (b *inbox) record(_ context.Context, a graph.Action) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.received = append(b.received, a)
	return nil
}

// Received returns the actions delivered so far, oldest first.
func (b *inbox) Received() []graph.Action {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]graph.Action, len(b.received))
	copy(out, b.received)
	return out
}

// streamCommand accepts a StreamCommand, a pointer to one, or a mode string.
func streamCommand(payload any) (StreamCommand, bool) {
	switch p := payload.(type) {
	case StreamCommand:
		return p, true
	case *StreamCommand:
		if p == nil {
			return StreamCommand{}, false
		}
		return *p, true
	case string:
		return StreamCommand{Mode: StreamMode(p)}, p == string(StreamStart) || p == string(StreamStop)
	}
	return StreamCommand{}, false
}
