package rbac

// Snapshot is the wire form of a capability snapshot: module to granted entries.
// Entries are action keywords or fully-qualified dotted granular paths.
type Snapshot map[Module][]string

// Capabilities is the typed, read-only form of a Snapshot.
type Capabilities struct {
	order   map[Module][]string
	buckets map[Module]map[string]struct{}
}

// NewCapabilities indexes a snapshot. Duplicate entries are collapsed and
// empty entries dropped; per-module order is preserved.
func NewCapabilities(s Snapshot) Capabilities {
	c := Capabilities{
		order:   make(map[Module][]string, len(s)),
		buckets: make(map[Module]map[string]struct{}, len(s)),
	}
	for module, entries := range s {
		set := make(map[string]struct{}, len(entries))
		ordered := make([]string, 0, len(entries))
		for _, e := range entries {
			if e == "" {
				continue
			}
			if _, dup := set[e]; dup {
				continue
			}
			set[e] = struct{}{}
			ordered = append(ordered, e)
		}
		if len(ordered) == 0 {
			continue
		}
		c.buckets[module] = set
		c.order[module] = ordered
	}
	return c
}

// Lookup returns the entries granted on module. Unknown modules yield an empty slice.
func (c Capabilities) Lookup(module Module) []string {
	entries := c.order[module]
	out := make([]string, len(entries))
	copy(out, entries)
	return out
}

// Has reports whether entry is granted on module.
func (c Capabilities) Has(module Module, entry string) bool {
	_, ok := c.buckets[module][entry]
	return ok
}

// Any reports whether at least one entry is granted on module.
func (c Capabilities) Any(module Module) bool {
	return len(c.buckets[module]) > 0
}

// Snapshot converts back to the wire form.
func (c Capabilities) Snapshot() Snapshot {
	out := make(Snapshot, len(c.order))
	for module := range c.order {
		out[module] = c.Lookup(module)
	}
	return out
}

func (c Capabilities) match(key lookupKey) bool {
	if key.entry == "" {
		return c.Any(key.module)
	}
	return c.Has(key.module, key.entry)
}
