package graph

import (
	"context"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Container is the type-erased view of a Property. The graph stores and
// forwards containers without knowing their value type.
type Container interface {
	Key() PropertyKey
	TypeName() string
	IsValid() bool
	IsDirty() bool
	Access() AccessMode
	Node() *Node
	Value() any
	String() string

	setAccess(AccessMode)
	markDirty()
	markClean()
	bind(*Node)
	assignFrom(src Container) (bool, error)
	setAny(ctx context.Context, v any) error
	setString(ctx context.Context, s string) error
}

// Property is a typed, access-controlled value container.
type Property[T comparable] struct {
	key      PropertyKey
	typeName string
	value    T
	valid    bool
	dirty    bool
	access   AccessMode
	node     *Node
}

// NewProperty returns a valid, dirty container holding value.
func NewProperty[T comparable](key PropertyKey, value T) *Property[T] {
	return &Property[T]{
		key:      key,
		typeName: reflect.TypeFor[T]().String(),
		value:    value,
		valid:    true,
		dirty:    true,
		access:   AccessRO,
	}
}

// NewEmptyProperty returns a container with no value yet. Reading it fails
// with LOOKUP_ERROR until something is written.
func NewEmptyProperty[T comparable](key PropertyKey) *Property[T] {
	return &Property[T]{
		key:      key,
		typeName: reflect.TypeFor[T]().String(),
		access:   AccessRO,
	}
}

// WithTypeName overrides the declared type used for forwarding checks, so
// that two string-valued properties such as "sc16" and "fc32" formats do not
// forward into each other. Call before registration.
func (p *Property[T]) WithTypeName(name string) *Property[T] {
	p.typeName = name
	return p
}

func (p *Property[T]) Key() PropertyKey   { return p.key }
func (p *Property[T]) TypeName() string   { return p.typeName }
func (p *Property[T]) IsValid() bool      { return p.valid }
func (p *Property[T]) IsDirty() bool      { return p.dirty }
func (p *Property[T]) Access() AccessMode { return p.access }
func (p *Property[T]) Node() *Node        { return p.node }

// Value returns the raw value without access checks, or nil if invalid.
// Intended for diagnostics and journaling.
func (p *Property[T]) Value() any {
	if !p.valid {
		return nil
	}
	return p.value
}

func (p *Property[T]) String() string {
	if !p.valid {
		return "<invalid>"
	}
	return fmt.Sprint(p.value)
}

// Get returns the current value. On a node attached to a committed graph
// it first settles any pending changes under the graph lock.
func (p *Property[T]) Get(ctx context.Context) (T, error) {
	if n := p.node; n != nil && n.graph != nil {
		g := n.graph
		ctx, release := g.lock.acquire(ctx)
		defer release()
		if err := g.settle(ctx, n); err != nil {
			var zero T
			return zero, err
		}
	}
	return p.read()
}

// Set writes v and marks the container dirty. The caller must hold a write
// grant. On a committed graph, Set triggers resolution unless one is
// already running.
func (p *Property[T]) Set(ctx context.Context, v T) error {
	n := p.node
	if n == nil || n.graph == nil {
		return p.write(v)
	}
	g := n.graph
	ctx, release := g.lock.acquire(ctx)
	defer release()
	if err := p.write(v); err != nil {
		return err
	}
	return g.settle(ctx, n)
}

func (p *Property[T]) read() (T, error) {
	var zero T
	if p.access == AccessNone {
		return zero, p.fail(CodeAccess, "read without access")
	}
	if n := p.node; n != nil && n.active != nil && n.active.writesOnly(p) {
		return zero, p.fail(CodeAccess, "resolver may not read its own target")
	}
	if !p.valid {
		return zero, p.fail(CodeLookup, "property has no value")
	}
	return p.value, nil
}

func (p *Property[T]) write(v T) error {
	switch p.access {
	case AccessRW:
	case AccessRWLocked:
		if p.valid && !p.dirty && p.value != v {
			e := p.fail(CodeAccess, "write conflicts with locked value")
			e.Details = map[string]string{"current": fmt.Sprint(p.value), "incoming": fmt.Sprint(v)}
			return e
		}
	default:
		return p.fail(CodeAccess, fmt.Sprintf("write with %s access", p.access))
	}
	p.value = v
	p.valid = true
	p.dirty = true
	return nil
}

func (p *Property[T]) fail(code ErrorCode, msg string) *Error {
	e := &Error{Code: code, Message: msg, Property: p.key.String()}
	if p.node != nil {
		e.Node = p.node.id
	}
	return e
}

func (p *Property[T]) setAccess(m AccessMode) { p.access = m }
func (p *Property[T]) markDirty()             { p.dirty = true }
func (p *Property[T]) markClean()             { p.dirty = false }
func (p *Property[T]) bind(n *Node)           { p.node = n }

func (p *Property[T]) assignFrom(src Container) (bool, error) {
	if src.TypeName() != p.typeName {
		e := p.fail(CodeType, fmt.Sprintf("cannot forward %s into %s", src.TypeName(), p.typeName))
		e.Details = map[string]string{"source": src.Key().String()}
		return false, e
	}
	if !src.IsValid() {
		return false, nil
	}
	v, ok := src.Value().(T)
	if !ok {
		return false, p.fail(CodeType, fmt.Sprintf("value of %s is not %s", src.Key(), p.typeName))
	}
	if p.valid && p.value == v {
		return false, nil
	}
	if err := p.write(v); err != nil {
		return false, err
	}
	return true, nil
}

func (p *Property[T]) setAny(ctx context.Context, v any) error {
	tv, ok := v.(T)
	if !ok {
		return p.fail(CodeType, fmt.Sprintf("cannot assign %T to %s", v, p.typeName))
	}
	return p.Set(ctx, tv)
}

func (p *Property[T]) setString(ctx context.Context, s string) error {
	var v T
	if err := parseInto(reflect.ValueOf(&v).Elem(), s); err != nil {
		e := p.fail(CodeValue, fmt.Sprintf("cannot parse %q as %s", s, p.typeName))
		e.Err = err
		return e
	}
	return p.Set(ctx, v)
}

// parseInto parses the whole of s into dst according to its kind. Trailing
// input is an error.
func parseInto(dst reflect.Value, s string) error {
	text := strings.TrimSpace(s)
	switch dst.Kind() {
	case reflect.String:
		dst.SetString(s)
	case reflect.Bool:
		b, err := strconv.ParseBool(text)
		if err != nil {
			return err
		}
		dst.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i, err := strconv.ParseInt(text, 10, dst.Type().Bits())
		if err != nil {
			return err
		}
		dst.SetInt(i)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, err := strconv.ParseUint(text, 10, dst.Type().Bits())
		if err != nil {
			return err
		}
		dst.SetUint(u)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(text, dst.Type().Bits())
		if err != nil {
			return err
		}
		dst.SetFloat(f)
	default:
		return fmt.Errorf("no text form for %s", dst.Type())
	}
	return nil
}
