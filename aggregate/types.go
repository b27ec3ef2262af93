// Package aggregate groups normalized records along zero, one or two
// dimensions, either as a drill-down tree or as a period-aligned series, and
// collapses long tails into a single "Other" bucket.
package aggregate

import "errors"

const (
	// RootKey is the key of every tree root.
	RootKey = "Total"
	// OtherKey is the default key of the folded tail bucket.
	OtherKey = "Other"
)

var (
	ErrTooManyDimensions  = errors.New("at most two dimensions may be active")
	ErrInvalidMaxSegments = errors.New("max segments must be at least 1")
)

// Options controls top-N collapsing.
type Options struct {
	MaxSegments   int    `json:"maxSegments"`
	CollapseOther bool   `json:"collapseOther"`
	OtherLabel    string `json:"otherLabel,omitempty"`
}

// DefaultOptions keeps the ten largest groups and folds the rest.
func DefaultOptions() Options {
	return Options{MaxSegments: 10, CollapseOther: true, OtherLabel: OtherKey}
}

func (o Options) otherLabel() string {
	if o.OtherLabel == "" {
		return OtherKey
	}
	return o.OtherLabel
}

func (o Options) validate(dims int, max int) error {
	if dims > max {
		return ErrTooManyDimensions
	}
	if o.MaxSegments < 1 {
		return ErrInvalidMaxSegments
	}
	return nil
}

// Node is one group of the aggregate tree. SourceKeys lists, sorted, the
// original category keys folded into the node; for an ordinary group it is
// just the node's own key. A node with children has Value equal to the sum
// of its children's values.
type Node struct {
	Key        string   `json:"key"`
	Value      float64  `json:"value"`
	Count      int      `json:"count"`
	Depth      int      `json:"depth"`
	Children   []Node   `json:"children,omitempty"`
	SourceKeys []string `json:"sourceKeys,omitempty"`
}

// IsLeaf reports whether n has no children.
func (n Node) IsLeaf() bool { return len(n.Children) == 0 }

// Child returns the direct child with the given key.
func (n Node) Child(key string) (Node, bool) {
	for _, c := range n.Children {
		if c.Key == key {
			return c, true
		}
	}
	return Node{}, false
}

// Find walks path from root, one key per depth. It reports false if any key
// is absent; an empty path resolves to root.
func Find(root Node, path []string) (Node, bool) {
	cur := root
	for _, key := range path {
		next, ok := cur.Child(key)
		if !ok {
			return root, false
		}
		cur = next
	}
	return cur, true
}

// Walk calls fn for every node in depth-first pre-order, passing the keys
// from the root (exclusive) to the node.
func Walk(root Node, fn func(path []string, n Node)) {
	walk(root, nil, fn)
}

// Leaves returns the paths of all leaf nodes under root in pre-order. A root
// without children yields one empty path.
func Leaves(root Node) [][]string {
	var out [][]string
	Walk(root, func(p []string, n Node) {
		if n.IsLeaf() {
			out = append(out, p)
		}
	})
	return out
}

func walk(n Node, path []string, fn func([]string, Node)) {
	fn(path, n)
	for _, c := range n.Children {
		p := make([]string, len(path)+1)
		copy(p, path)
		p[len(path)] = c.Key
		walk(c, p, fn)
	}
}

// TimeSeries is a period-aligned aggregate. Series[p][k] holds the value of
// key k in period p; a missing cell reads as 0 through Value.
type TimeSeries struct {
	Periods []int                      `json:"periods"`
	Keys    []string                   `json:"keys"`
	Series  map[int]map[string]float64 `json:"series"`
}

// Value returns the cell for (period, key), or 0 when absent.
func (ts TimeSeries) Value(period int, key string) float64 {
	return ts.Series[period][key]
}

// Total returns the sum of all cells in a period.
func (ts TimeSeries) Total(period int) float64 {
	var total float64
	for _, k := range ts.Keys {
		total += ts.Series[period][k]
	}
	return total
}

// Column returns the values of key aligned with Periods.
func (ts TimeSeries) Column(key string) []float64 {
	vals := make([]float64, len(ts.Periods))
	for i, p := range ts.Periods {
		vals[i] = ts.Value(p, key)
	}
	return vals
}
