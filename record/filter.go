package record

import (
	"sort"
	"strings"
)

// Filter keeps records whose category key equals the given key for every
// listed dimension. An empty Filter keeps everything.
type Filter map[string]string

// Match reports whether r satisfies every condition of f.
func (f Filter) Match(r Record) bool {
	for name, want := range f {
		if Field(name).Key(r) != want {
			return false
		}
	}
	return true
}

// Where returns the records matching f.
func Where(records []Record, f Filter) []Record {
	if len(f) == 0 {
		return records
	}
	var out []Record
	for _, r := range records {
		if f.Match(r) {
			out = append(out, r)
		}
	}
	return out
}

// String renders f as "name=key" pairs sorted by name.
func (f Filter) String() string {
	names := make([]string, 0, len(f))
	for name := range f {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = name + "=" + f[name]
	}
	return strings.Join(parts, ", ")
}
