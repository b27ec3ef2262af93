// Package focus tracks which dimensions are active for a view, an optional
// narrowing focus on first-dimension keys, and the selected node path.
//
// State is a value: every operation returns a new State and leaves its
// receiver untouched, so each view owns an independent copy. Callers that
// share one view between goroutines must serialize access themselves.
package focus

import (
	"errors"
	"sort"

	"github.com/zalepa/mortviz/aggregate"
	"github.com/zalepa/mortviz/record"
)

// MaxDimensions is the number of dimensions a view can group by at once.
const MaxDimensions = 2

var (
	ErrNotFocusable = errors.New("only first-level groups can be focused")
	ErrUnreachable  = errors.New("selection path does not resolve in the current tree")
)

// State is the focus and selection state of one view. The zero value has no
// active dimensions, no focus and no selection.
type State struct {
	dims  []record.Dimension
	focus []string
	path  []string
}

// Dimensions returns the active dimensions, oldest first.
func (s State) Dimensions() []record.Dimension {
	return append([]record.Dimension(nil), s.dims...)
}

// DimensionNames returns the names of the active dimensions.
func (s State) DimensionNames() []string {
	names := make([]string, len(s.dims))
	for i, d := range s.dims {
		names[i] = d.Name
	}
	return names
}

// Focus returns the first-dimension keys the view is narrowed to.
func (s State) Focus() ([]string, bool) {
	if s.focus == nil {
		return nil, false
	}
	return append([]string(nil), s.focus...), true
}

// Focused reports whether a narrowing focus is active.
func (s State) Focused() bool { return s.focus != nil }

// Path returns the selection path from the root (exclusive).
func (s State) Path() []string {
	return append([]string(nil), s.path...)
}

// ToggleDimension removes d if it is active and adds it otherwise, evicting
// the oldest dimension when two are already active. Focus and selection
// refer to keys of the previous grouping, so both are cleared.
func (s State) ToggleDimension(d record.Dimension) State {
	var dims []record.Dimension
	removed := false
	for _, cur := range s.dims {
		if cur.Name == d.Name {
			removed = true
			continue
		}
		dims = append(dims, cur)
	}
	if !removed {
		if len(dims) >= MaxDimensions {
			dims = dims[len(dims)-MaxDimensions+1:]
		}
		dims = append(dims, d)
	}
	return State{dims: dims}
}

// ToggleFocus narrows the view to node's source keys, or clears the focus if
// it already covers exactly those keys. node must be a first-level group of
// the current tree; otherwise ErrNotFocusable is returned with s unchanged.
func (s State) ToggleFocus(node aggregate.Node) (State, error) {
	if len(s.dims) == 0 || node.Depth != 1 {
		return s, ErrNotFocusable
	}
	keys := node.SourceKeys
	if len(keys) == 0 {
		keys = []string{node.Key}
	}
	next := s.clone()
	if s.focus != nil && sameKeys(s.focus, keys) {
		next.focus = nil
		return next, nil
	}
	next.focus = sortedUnique(keys)
	return next, nil
}

// ClearFocus drops any narrowing focus.
func (s State) ClearFocus() State {
	next := s.clone()
	next.focus = nil
	return next
}

// Narrow restricts records to the focused first-dimension keys. When the
// focus leaves nothing to aggregate, the focus is cleared and records are
// returned unchanged.
func (s State) Narrow(records []record.Record) ([]record.Record, State) {
	if s.focus == nil {
		return records, s
	}
	if len(s.dims) == 0 {
		return records, s.ClearFocus()
	}
	allowed := make(map[string]bool, len(s.focus))
	for _, k := range s.focus {
		allowed[k] = true
	}
	key := s.dims[0].Key
	var out []record.Record
	for _, r := range records {
		if allowed[key(r)] {
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		return records, s.ClearFocus()
	}
	return out, s
}

// Aggregate narrows records by the current focus and builds the tree for the
// active dimensions. The returned State has the focus cleared if it matched
// no records.
func (s State) Aggregate(records []record.Record, opts aggregate.Options) (aggregate.Node, State, error) {
	narrowed, next := s.Narrow(records)
	root, err := aggregate.Aggregate(narrowed, next.dims, opts)
	if err != nil {
		return aggregate.Node{}, s, err
	}
	return root, next, nil
}

// Series narrows records by the current focus and builds the period series
// split by the first active dimension.
func (s State) Series(records []record.Record, opts aggregate.Options) (aggregate.TimeSeries, State, error) {
	narrowed, next := s.Narrow(records)
	var dims []record.Dimension
	if len(next.dims) > 0 {
		dims = next.dims[:1]
	}
	ts, err := aggregate.Series(narrowed, dims, opts)
	if err != nil {
		return aggregate.TimeSeries{}, s, err
	}
	return ts, next, nil
}

// Select records path as the selected node. An empty path, or a path naming
// only the root, clears the selection. A path that does not resolve in root
// returns ErrUnreachable with s unchanged.
func (s State) Select(root aggregate.Node, path []string) (State, error) {
	if len(path) == 0 || (len(path) == 1 && path[0] == root.Key) {
		next := s.clone()
		next.path = nil
		return next, nil
	}
	if _, ok := aggregate.Find(root, path); !ok {
		return s, ErrUnreachable
	}
	next := s.clone()
	next.path = append([]string(nil), path...)
	return next, nil
}

// Resolve returns the selected node of root. A path that no longer matches
// the tree, for example after a period change, resolves to root.
func (s State) Resolve(root aggregate.Node) aggregate.Node {
	n, ok := aggregate.Find(root, s.path)
	if !ok {
		return root
	}
	return n
}

func (s State) clone() State {
	return State{
		dims:  append([]record.Dimension(nil), s.dims...),
		focus: append([]string(nil), s.focus...),
		path:  append([]string(nil), s.path...),
	}
}

func sortedUnique(keys []string) []string {
	out := append([]string(nil), keys...)
	sort.Strings(out)
	j := 0
	for i, k := range out {
		if i == 0 || k != out[j-1] {
			out[j] = k
			j++
		}
	}
	return out[:j]
}

func sameKeys(a, b []string) bool {
	b = sortedUnique(b)
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
