package graph

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode categorizes graph errors.
type ErrorCode string

const (
	// CodeLookup indicates an unknown node, edge or property key.
	CodeLookup ErrorCode = "LOOKUP_ERROR"

	// CodeType indicates a declared-type mismatch on get, set or forward.
	CodeType ErrorCode = "TYPE_ERROR"

	// CodeValue indicates a resolver rejected an out-of-range input.
	CodeValue ErrorCode = "VALUE_ERROR"

	// CodeAccess indicates a write without a granted right, or a RW-locked conflict.
	CodeAccess ErrorCode = "ACCESS_VIOLATION"

	// CodeDivergence indicates resolution exceeded the pass ceiling.
	CodeDivergence ErrorCode = "RESOLUTION_DIVERGENCE"

	// CodeTopology indicates a missing node, duplicate edge or rejected topology.
	CodeTopology ErrorCode = "TOPOLOGY_ERROR"
)

// Error is the single error type returned across the graph boundary.
//
// Error carries structured fields for diagnostics. Match categories with
// errors.Is against the code sentinels below (ErrLookup, ErrTypeMismatch, ...)
// or with the Is* helpers.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Node is the id of the node involved, if any.
	Node string

	// Property is the text form of the property key involved, if any.
	Property string

	// Err is the underlying cause (resolver or handler error), if any.
	Err error

	// Details contains additional context.
	Details map[string]string
}

// Code sentinels. errors.Is(err, ErrTypeMismatch) matches any *Error with
// CodeType regardless of message.
var (
	ErrLookup       = &Error{Code: CodeLookup}
	ErrTypeMismatch = &Error{Code: CodeType}
	ErrValue        = &Error{Code: CodeValue}
	ErrAccess       = &Error{Code: CodeAccess}
	ErrDivergence   = &Error{Code: CodeDivergence}
	ErrTopology     = &Error{Code: CodeTopology}
)

// Lifecycle sentinels, wrapped inside TOPOLOGY_ERROR values.
var (
	ErrNotCommitted = errors.New("graph is not committed")
	ErrShutdown     = errors.New("graph has been shut down")
)

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Code))
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	switch {
	case e.Node != "" && e.Property != "":
		fmt.Fprintf(&b, " (node=%s, property=%s)", e.Node, e.Property)
	case e.Node != "":
		fmt.Fprintf(&b, " (node=%s)", e.Node)
	case e.Property != "":
		fmt.Fprintf(&b, " (property=%s)", e.Property)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches code sentinels: a target *Error with no message matches any
// error of the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t.Message != "" {
		return false
	}
	return t.Code == e.Code
}

// CodeOf returns the code of the first *Error in err's chain, or "" if none.
func CodeOf(err error) ErrorCode {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Code
	}
	return ""
}

// IsLookupError reports whether err is a LOOKUP_ERROR.
func IsLookupError(err error) bool { return errors.Is(err, ErrLookup) }

// IsTypeError reports whether err is a TYPE_ERROR.
func IsTypeError(err error) bool { return errors.Is(err, ErrTypeMismatch) }

// IsValueError reports whether err is a VALUE_ERROR.
func IsValueError(err error) bool { return errors.Is(err, ErrValue) }

// IsAccessViolation reports whether err is an ACCESS_VIOLATION.
func IsAccessViolation(err error) bool { return errors.Is(err, ErrAccess) }

// IsDivergence reports whether err is a RESOLUTION_DIVERGENCE.
func IsDivergence(err error) bool { return errors.Is(err, ErrDivergence) }

// IsTopologyError reports whether err is a TOPOLOGY_ERROR.
func IsTopologyError(err error) bool { return errors.Is(err, ErrTopology) }

// ValueErrorf builds a VALUE_ERROR. Resolvers use it to reject inputs.
func ValueErrorf(format string, args ...any) *Error {
	return errorf(CodeValue, format, args...)
}

func errorf(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// at returns a copy of e with node and property context attached, keeping
// fields already set. e itself is never modified, so sentinels stay intact.
func (e *Error) at(node string, key string) *Error {
	c := *e
	if c.Node == "" {
		c.Node = node
	}
	if c.Property == "" {
		c.Property = key
	}
	return &c
}

func lifecycleError(cause error) *Error {
	return &Error{Code: CodeTopology, Message: "graph unavailable", Err: cause}
}

// asGraphError wraps foreign errors raised by resolvers as VALUE_ERROR.
func asGraphError(err error, node string) *Error {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.at(node, "")
	}
	return &Error{Code: CodeValue, Message: "resolver failed", Node: node, Err: err}
}
