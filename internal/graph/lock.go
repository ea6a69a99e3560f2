package graph

import (
	"context"
	"sync"
)

// reentrantLock is the graph-wide lock. Ownership travels in the context:
// a caller whose ctx carries the current owner token re-enters without
// blocking, and the mutex is released only when the outermost holder
// releases.
//
// Each re-entry pushes a child token that becomes the current owner until it
// is released. A ctx carrying an ancestor of the current owner (for example
// a second goroutine started from a resolver with the same ctx) waits until
// ownership returns to its token, so at most one holder touches the graph at
// a time.
type reentrantLock struct {
	mu    sync.Mutex
	state sync.Mutex
	cond  sync.Cond
	owner *lockToken
}

type lockToken struct {
	parent *lockToken
}

type lockKey struct{ l *reentrantLock }

// acquire locks l, or re-enters if ctx already owns it. The returned context
// carries the ownership token and must be passed to nested calls. The release
// function is safe to call more than once.
func (l *reentrantLock) acquire(ctx context.Context) (context.Context, func()) {
	if ctx == nil {
		ctx = context.Background()
	}
	if tok, ok := ctx.Value(lockKey{l}).(*lockToken); ok {
		l.state.Lock()
		if l.cond.L == nil {
			l.cond.L = &l.state
		}
		if l.inOwnerChain(tok) {
			for l.owner != tok {
				l.cond.Wait()
			}
			child := &lockToken{parent: tok}
			l.owner = child
			l.state.Unlock()
			return context.WithValue(ctx, lockKey{l}, child), l.releaser(child)
		}
		l.state.Unlock()
	}

	l.mu.Lock()
	tok := &lockToken{}
	l.state.Lock()
	l.owner = tok
	l.state.Unlock()
	return context.WithValue(ctx, lockKey{l}, tok), l.releaser(tok)
}

// inOwnerChain reports whether tok is the current owner or one of its
// ancestors. The caller holds l.state.
func (l *reentrantLock) inOwnerChain(tok *lockToken) bool {
	for t := l.owner; t != nil; t = t.parent {
		if t == tok {
			return true
		}
	}
	return false
}

func (l *reentrantLock) releaser(tok *lockToken) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			l.state.Lock()
			l.owner = tok.parent
			if l.cond.L != nil {
				l.cond.Broadcast()
			}
			l.state.Unlock()
			if tok.parent == nil {
				l.mu.Unlock()
			}
		})
	}
}

// held reports whether ctx is the current owner of l.
func (l *reentrantLock) held(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	tok, ok := ctx.Value(lockKey{l}).(*lockToken)
	if !ok {
		return false
	}
	l.state.Lock()
	defer l.state.Unlock()
	return l.owner == tok
}

// depth returns the number of nested holders, 0 when unlocked.
func (l *reentrantLock) depth() int {
	l.state.Lock()
	defer l.state.Unlock()
	n := 0
	for t := l.owner; t != nil; t = t.parent {
		n++
	}
	return n
}
