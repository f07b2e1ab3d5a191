package manager

import "sort"

// RoutingTable maps model names to loaded sessions. A name is present iff
// its resolve, download and load steps all succeeded. The table is never
// mutated after construction; the zero value and a nil *RoutingTable are
// both empty.
type RoutingTable struct {
	sessions map[string]InferSession
	names    []string
}

func newRoutingTable(sessions map[string]InferSession) *RoutingTable {
	t := &RoutingTable{
		sessions: make(map[string]InferSession, len(sessions)),
		names:    make([]string, 0, len(sessions)),
	}
	for name, s := range sessions {
		t.sessions[name] = s
		t.names = append(t.names, name)
	}
	sort.Strings(t.names)
	return t
}

// Lookup returns the session bound to name.
func (t *RoutingTable) Lookup(name string) (InferSession, bool) {
	if t == nil {
		return nil, false
	}
	s, ok := t.sessions[name]
	return s, ok
}

// Names returns the sorted key set. The slice is a copy.
func (t *RoutingTable) Names() []string {
	if t == nil {
		return []string{}
	}
	out := make([]string, len(t.names))
	copy(out, t.names)
	return out
}

// Len returns the number of loaded models.
func (t *RoutingTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.names)
}
