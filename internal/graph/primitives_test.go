package graph

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Keys
// =============================================================================

func TestPropertyKey_StringRoundTrip(t *testing.T) {
	tests := []struct {
		text string
		key  PropertyKey
	}{
		{"gain", UserKey("gain")},
		{"rate@in:0", InputKey("rate", 0)},
		{"mtu@out:3", OutputKey("mtu", 3)},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.text, tt.key.String())
			got, err := ParseKey(tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.key, got)
		})
	}
}

func TestPropertyKey_ParseErrors(t *testing.T) {
	for _, text := range []string{"", "@in:0", "rate@in", "rate@in:x", "rate@side:0", "rate@out:-1"} {
		_, err := ParseKey(text)
		assert.True(t, IsLookupError(err), "input %q", text)
	}
}

func TestParsePort(t *testing.T) {
	kind, port, err := ParsePort("out:2")
	require.NoError(t, err)
	assert.Equal(t, SourceOutputEdge, kind)
	assert.Equal(t, 2, port)

	kind, port, err = ParsePort("in:0")
	require.NoError(t, err)
	assert.Equal(t, SourceInputEdge, kind)
	assert.Equal(t, 0, port)

	for _, text := range []string{"", "in", "user:0", "out:x"} {
		_, _, err := ParsePort(text)
		assert.True(t, IsLookupError(err), "input %q", text)
	}
}

func TestPropertyKey_NormalizesNames(t *testing.T) {
	// "é" precomposed vs. "e" + combining acute
	assert.Equal(t, UserKey("caf\u00e9"), UserKey("cafe\u0301"))
}

// =============================================================================
// Policies
// =============================================================================

func TestForwardingPolicy_Targets(t *testing.T) {
	tests := []struct {
		name   string
		policy ForwardingPolicy
		kind   SourceKind
		port   int
		in     int
		out    int
		want   []portSlot
	}{
		{"one to one", ForwardOneToOne, SourceInputEdge, 1, 2, 2, []portSlot{{SourceOutputEdge, 1}}},
		{"one to one missing port", ForwardOneToOne, SourceInputEdge, 1, 2, 1, nil},
		{"fan out", ForwardOneToFan, SourceInputEdge, 0, 1, 3, []portSlot{{SourceOutputEdge, 0}, {SourceOutputEdge, 1}, {SourceOutputEdge, 2}}},
		{"fan in", ForwardOneToFan, SourceOutputEdge, 2, 1, 3, []portSlot{{SourceInputEdge, 0}}},
		{"all", ForwardOneToAll, SourceInputEdge, 0, 2, 1, []portSlot{{SourceOutputEdge, 0}, {SourceInputEdge, 1}}},
		{"none", ForwardNone, SourceInputEdge, 0, 1, 1, nil},
		{"user never forwards", ForwardOneToAll, SourceUser, 0, 1, 1, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.policy.targets(tt.kind, tt.port, tt.in, tt.out))
		})
	}
}

func TestForwardingPolicy_Parse(t *testing.T) {
	for _, p := range []ForwardingPolicy{ForwardOneToOne, ForwardOneToFan, ForwardOneToAll, ForwardNone} {
		got, err := ParseForwardingPolicy(p.String())
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}
	_, err := ParseForwardingPolicy("sideways")
	assert.True(t, IsLookupError(err))
}

func TestEdgeKind_Parse(t *testing.T) {
	for _, k := range []EdgeKind{EdgeDynamic, EdgeStatic, EdgeRxStream, EdgeTxStream} {
		got, err := ParseEdgeKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}
	got, err := ParseEdgeKind("STATIC")
	require.NoError(t, err)
	assert.Equal(t, EdgeStatic, got)
	_, err = ParseEdgeKind("wireless")
	assert.True(t, IsLookupError(err))
}

// =============================================================================
// Errors
// =============================================================================

func TestError_Format(t *testing.T) {
	err := &Error{Code: CodeType, Message: "mismatch", Node: "ddc", Property: "format@in:0"}
	assert.Equal(t, "TYPE_ERROR: mismatch (node=ddc, property=format@in:0)", err.Error())

	wrapped := &Error{Code: CodeValue, Message: "resolver failed", Node: "amp", Err: errors.New("too loud")}
	assert.Equal(t, "VALUE_ERROR: resolver failed (node=amp): too loud", wrapped.Error())
}

func TestError_CodeSentinels(t *testing.T) {
	err := fmt.Errorf("outer: %w", errorf(CodeAccess, "denied"))
	assert.True(t, IsAccessViolation(err))
	assert.False(t, IsTypeError(err))
	assert.Equal(t, CodeAccess, CodeOf(err))
	assert.Equal(t, ErrorCode(""), CodeOf(errors.New("plain")))

	// a concrete error does not match another concrete error of the same code
	assert.False(t, errors.Is(errorf(CodeAccess, "a"), errorf(CodeAccess, "b")))
}

func TestError_AnnotationCopiesSentinels(t *testing.T) {
	annotated := ErrValue.at("a", "p")
	assert.Equal(t, "a", annotated.Node)
	assert.Equal(t, "p", annotated.Property)
	assert.True(t, errors.Is(annotated, ErrValue))
	assert.Empty(t, ErrValue.Node)
	assert.Empty(t, ErrValue.Property)

	// fields already set are kept
	e := &Error{Code: CodeLookup, Node: "x"}
	assert.Equal(t, "x", e.at("y", "").Node)
}

// =============================================================================
// Lock
// =============================================================================

func TestReentrantLock_NestedAcquire(t *testing.T) {
	var l reentrantLock
	ctx, release := l.acquire(context.Background())
	assert.True(t, l.held(ctx))
	assert.False(t, l.held(context.Background()))

	inner, releaseInner := l.acquire(ctx)
	assert.Equal(t, 2, l.depth())
	assert.True(t, l.held(inner))
	assert.False(t, l.held(ctx))
	releaseInner()
	releaseInner()
	assert.Equal(t, 1, l.depth())
	assert.True(t, l.held(ctx))

	release()
	assert.False(t, l.held(ctx))
	assert.Equal(t, 0, l.depth())

	// a stale token does not re-enter
	done := make(chan struct{})
	ctx2, release2 := l.acquire(ctx)
	go func() {
		_, r := l.acquire(ctx)
		r()
		close(done)
	}()
	assert.True(t, l.held(ctx2))
	release2()
	<-done
}

func TestReentrantLock_SharedTokenSerializesGoroutines(t *testing.T) {
	var l reentrantLock
	ctx, release := l.acquire(context.Background())
	defer release()

	var active, maxActive atomic.Int32
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			inner, r := l.acquire(ctx)
			defer r()
			now := active.Add(1)
			for {
				seen := maxActive.Load()
				if now <= seen || maxActive.CompareAndSwap(seen, now) {
					break
				}
			}
			// nested re-entry on the goroutine's own token does not block
			_, rr := l.acquire(inner)
			rr()
			time.Sleep(time.Millisecond)
			active.Add(-1)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxActive.Load())
	assert.True(t, l.held(ctx))
	assert.Equal(t, 1, l.depth())
}

func TestSequenceGenerator(t *testing.T) {
	gen := NewSequenceGenerator("act")
	assert.Equal(t, "act-1", gen.Generate())
	assert.Equal(t, "act-2", gen.Generate())
	assert.Len(t, UUIDv7Generator{}.Generate(), 36)
}
