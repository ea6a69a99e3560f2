package graph

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// SourceKind says where a property lives on its node.
type SourceKind int

const (
	// SourceUser marks a user-facing property such as "gain" or "freq".
	SourceUser SourceKind = iota

	// SourceInputEdge marks a property bound to an input port.
	SourceInputEdge

	// SourceOutputEdge marks a property bound to an output port.
	SourceOutputEdge
)

func (k SourceKind) String() string {
	switch k {
	case SourceUser:
		return "user"
	case SourceInputEdge:
		return "in"
	case SourceOutputEdge:
		return "out"
	default:
		return "unknown"
	}
}

// opposite returns the other edge side. SourceUser has no opposite.
func (k SourceKind) opposite() SourceKind {
	switch k {
	case SourceInputEdge:
		return SourceOutputEdge
	case SourceOutputEdge:
		return SourceInputEdge
	default:
		return k
	}
}

// PropertyKey identifies a property within a node. Two containers on the
// same node never share a key.
type PropertyKey struct {
	Name string
	Kind SourceKind
	Port int
}

// UserKey returns the key of a user-facing property.
func UserKey(name string) PropertyKey {
	return PropertyKey{Name: norm.NFC.String(name), Kind: SourceUser}
}

// InputKey returns the key of a property on input port.
func InputKey(name string, port int) PropertyKey {
	return PropertyKey{Name: norm.NFC.String(name), Kind: SourceInputEdge, Port: port}
}

// OutputKey returns the key of a property on output port.
func OutputKey(name string, port int) PropertyKey {
	return PropertyKey{Name: norm.NFC.String(name), Kind: SourceOutputEdge, Port: port}
}

// IsEdge reports whether the key is bound to a port.
func (k PropertyKey) IsEdge() bool {
	return k.Kind == SourceInputEdge || k.Kind == SourceOutputEdge
}

// String renders the key as "name", "name@in:N" or "name@out:N".
func (k PropertyKey) String() string {
	if !k.IsEdge() {
		return k.Name
	}
	return fmt.Sprintf("%s@%s:%d", k.Name, k.Kind, k.Port)
}

// ParseKey parses the text form produced by PropertyKey.String.
func ParseKey(s string) (PropertyKey, error) {
	name, loc, found := strings.Cut(s, "@")
	if name == "" {
		return PropertyKey{}, errorf(CodeLookup, "empty property name in %q", s)
	}
	if !found {
		return UserKey(name), nil
	}
	kind, port, err := ParsePort(loc)
	if err != nil {
		return PropertyKey{}, &Error{Code: CodeLookup, Message: fmt.Sprintf("malformed property key %q", s), Err: err}
	}
	return PropertyKey{Name: norm.NFC.String(name), Kind: kind, Port: port}, nil
}

// ParsePort parses "in:N" or "out:N".
func ParsePort(s string) (SourceKind, int, error) {
	side, portText, ok := strings.Cut(s, ":")
	if !ok {
		return SourceUser, 0, errorf(CodeLookup, "port %q is not side:port", s)
	}
	port, err := strconv.Atoi(portText)
	if err != nil || port < 0 {
		return SourceUser, 0, errorf(CodeLookup, "invalid port number in %q", s)
	}
	switch side {
	case "in":
		return SourceInputEdge, port, nil
	case "out":
		return SourceOutputEdge, port, nil
	default:
		return SourceUser, 0, errorf(CodeLookup, "unknown side %q", side)
	}
}
