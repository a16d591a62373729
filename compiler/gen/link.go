package gen

import (
	"slices"

	"github.com/syssam/odbgen/compiler/locate"
	"github.com/syssam/odbgen/dialect"
)

// LinkSet is the deduplicated list of runtime libraries a consuming target
// links against.
type LinkSet []dialect.Library

// Contains reports whether lib is in the set.
func (s LinkSet) Contains(lib dialect.Library) bool {
	return slices.Contains(s, lib)
}

// Strings returns the library identifiers as strings.
func (s LinkSet) Strings() []string {
	out := make([]string, len(s))
	for i, lib := range s {
		out[i] = string(lib)
	}
	return out
}

// ResolveLinks maps the resolved databases and profiles to their runtime
// libraries, always starting with the core runtime. Libraries the discovery
// result does not report as available are dropped without error; a
// required component is enforced by discovery, not here.
func ResolveLinks(r *Resolved, d *locate.Result) LinkSet {
	wanted := []dialect.Library{dialect.Core}
	for _, db := range r.Backends() {
		wanted = append(wanted, db.Library())
	}
	for _, p := range r.Profiles {
		wanted = append(wanted, p.Library())
	}
	var set LinkSet
	for _, lib := range wanted {
		if set.Contains(lib) {
			continue
		}
		if !d.Available(lib) {
			r.Logger().Debug("skipping unavailable odb runtime library", "library", lib)
			continue
		}
		set = append(set, lib)
	}
	return set
}
