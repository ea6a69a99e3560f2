package graph

// AccessMode is the access right currently granted on a container.
type AccessMode int

const (
	// AccessNone forbids reads and writes.
	AccessNone AccessMode = iota

	// AccessRO allows reads only. Containers idle in this mode.
	AccessRO

	// AccessRW allows reads and writes.
	AccessRW

	// AccessRWLocked allows a write only if the container is dirty, invalid,
	// or the incoming value equals the current one.
	AccessRWLocked
)

func (m AccessMode) String() string {
	switch m {
	case AccessNone:
		return "NONE"
	case AccessRO:
		return "RO"
	case AccessRW:
		return "RW"
	case AccessRWLocked:
		return "RW_LOCKED"
	default:
		return "UNKNOWN"
	}
}

func (m AccessMode) canWrite() bool {
	return m == AccessRW || m == AccessRWLocked
}

// AccessGuard grants access modes to a set of containers and restores the
// previous modes on Release. Release is idempotent and must run on every
// exit path, normally via defer.
//
// Exclusivity of RW grants comes from the graph lock: only the goroutine
// holding it opens guards on attached containers.
type AccessGuard struct {
	saved    []savedMode
	released bool
}

type savedMode struct {
	c    Container
	prev AccessMode
}

// Grant opens a guard giving mode to every container in cs.
func Grant(mode AccessMode, cs ...Container) *AccessGuard {
	g := &AccessGuard{}
	g.Add(mode, cs...)
	return g
}

// Add grants mode to more containers under the same guard. A container
// granted twice ends with the later mode and is restored to its original one.
func (g *AccessGuard) Add(mode AccessMode, cs ...Container) *AccessGuard {
	for _, c := range cs {
		g.saved = append(g.saved, savedMode{c: c, prev: c.Access()})
		c.setAccess(mode)
	}
	return g
}

// Release restores all saved modes in reverse grant order.
func (g *AccessGuard) Release() {
	if g.released {
		return
	}
	g.released = true
	for i := len(g.saved) - 1; i >= 0; i-- {
		g.saved[i].c.setAccess(g.saved[i].prev)
	}
}

// Forward copies src's value into dst with src read-only and dst granted RW,
// or RW-locked when locked is set. A declared-type mismatch fails with
// TYPE_ERROR and leaves both containers unchanged. dst is marked dirty only
// when its value actually changes.
func Forward(src, dst Container, locked bool) error {
	_, err := forward(src, dst, locked)
	return err
}

func forward(src, dst Container, locked bool) (bool, error) {
	mode := AccessRW
	if locked {
		mode = AccessRWLocked
	}
	guard := Grant(AccessRO, src).Add(mode, dst)
	defer guard.Release()
	return dst.assignFrom(src)
}
