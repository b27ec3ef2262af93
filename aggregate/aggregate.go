package aggregate

import (
	"sort"

	"github.com/zalepa/mortviz/record"
)

// maxPeriodSpan bounds gap filling between the first and last period. Wider
// spans (for example mixed year and yyyymm periods) keep only the periods
// actually present.
const maxPeriodSpan = 1000

type group struct {
	key        string
	value      float64
	members    []record.Record
	sourceKeys []string
}

// Aggregate builds the drill-down tree for records grouped by dims (at most
// two). With no dims the root is a single leaf holding the grand total.
func Aggregate(records []record.Record, dims []record.Dimension, opts Options) (Node, error) {
	if err := opts.validate(len(dims), 2); err != nil {
		return Node{}, err
	}

	root := Node{
		Key:   RootKey,
		Value: sumValues(records),
		Count: len(records),
	}
	if len(dims) == 0 || len(records) == 0 {
		return root, nil
	}
	root.Children = buildLevel(records, dims, 1, opts)
	return root, nil
}

// buildLevel groups records by dims[0], collapses the tail, and recurses
// into dims[1] for every kept group. The folded bucket is never expanded.
func buildLevel(records []record.Record, dims []record.Dimension, depth int, opts Options) []Node {
	groups := groupBy(records, dims[0].Key)
	kept, other := collapse(groups, opts)

	nodes := make([]Node, 0, len(kept)+1)
	for _, g := range kept {
		n := Node{
			Key:        g.key,
			Value:      g.value,
			Count:      len(g.members),
			Depth:      depth,
			SourceKeys: g.sourceKeys,
		}
		if len(dims) > 1 {
			n.Children = buildLevel(g.members, dims[1:], depth+1, opts)
		}
		nodes = append(nodes, n)
	}
	if other != nil {
		nodes = append(nodes, Node{
			Key:        other.key,
			Value:      other.value,
			Count:      len(other.members),
			Depth:      depth,
			SourceKeys: other.sourceKeys,
		})
	}
	return nodes
}

// groupBy partitions records by key and returns the groups ordered by value
// descending, ties broken by ascending key.
func groupBy(records []record.Record, key func(record.Record) string) []group {
	idx := make(map[string]int)
	var groups []group
	for _, r := range records {
		k := key(r)
		i, ok := idx[k]
		if !ok {
			i = len(groups)
			idx[k] = i
			groups = append(groups, group{key: k, sourceKeys: []string{k}})
		}
		groups[i].members = append(groups[i].members, r)
	}
	for i := range groups {
		groups[i].value = sumValues(groups[i].members)
	}
	sortGroups(groups)
	return groups
}

func sortGroups(groups []group) {
	sort.SliceStable(groups, func(i, j int) bool {
		if groups[i].value != groups[j].value {
			return groups[i].value > groups[j].value
		}
		return groups[i].key < groups[j].key
	})
}

// collapse keeps the top MaxSegments groups when collapsing is enabled and
// folds the remainder into one group. The folded group is nil when nothing
// was folded or the folded total is not positive. When a kept group already
// uses the Other label, the folded group is keyed with foldedSuffix
// appended so sibling keys stay unique.
func collapse(groups []group, opts Options) ([]group, *group) {
	if !opts.CollapseOther || len(groups) <= opts.MaxSegments {
		return groups, nil
	}
	kept, rest := groups[:opts.MaxSegments], groups[opts.MaxSegments:]

	other := &group{key: foldedKey(kept, opts.otherLabel())}
	seen := make(map[string]bool)
	for _, g := range rest {
		other.value += g.value
		other.members = append(other.members, g.members...)
		for _, k := range g.sourceKeys {
			if !seen[k] {
				seen[k] = true
				other.sourceKeys = append(other.sourceKeys, k)
			}
		}
	}
	sort.Strings(other.sourceKeys)
	if other.value <= 0 {
		return kept, nil
	}
	return kept, other
}

const foldedSuffix = " (folded)"

func foldedKey(kept []group, label string) string {
	taken := make(map[string]bool, len(kept))
	for _, g := range kept {
		taken[g.key] = true
	}
	for taken[label] {
		label += foldedSuffix
	}
	return label
}

// sumValues adds record values in ascending order so that the result does
// not depend on input order.
func sumValues(records []record.Record) float64 {
	vals := make([]float64, len(records))
	for i, r := range records {
		vals[i] = r.Value
	}
	sort.Float64s(vals)
	var total float64
	for _, v := range vals {
		total += v
	}
	return total
}

// Series aggregates records along periods, optionally split by one
// dimension. Records without a period are ignored. Periods between the first
// and last observed period are all present; cells with no records are 0.
// The key set is chosen from overall totals so it is the same for every
// period, and each period's remaining keys accumulate in the Other cell.
func Series(records []record.Record, dims []record.Dimension, opts Options) (TimeSeries, error) {
	if err := opts.validate(len(dims), 1); err != nil {
		return TimeSeries{}, err
	}

	ts := TimeSeries{
		Periods: []int{},
		Keys:    []string{},
		Series:  make(map[int]map[string]float64),
	}

	byPeriod := make(map[int][]record.Record)
	var dated []record.Record
	for _, r := range records {
		if !r.HasPeriod {
			continue
		}
		byPeriod[r.Period] = append(byPeriod[r.Period], r)
		dated = append(dated, r)
	}
	if len(dated) == 0 {
		return ts, nil
	}
	ts.Periods = periodRange(byPeriod)

	keyFn := func(record.Record) string { return RootKey }
	if len(dims) == 1 {
		keyFn = dims[0].Key
	}

	kept, other := collapse(groupBy(dated, keyFn), opts)
	keep := make(map[string]bool, len(kept))
	for _, g := range kept {
		ts.Keys = append(ts.Keys, g.key)
		keep[g.key] = true
	}
	otherLabel := ""
	if other != nil {
		otherLabel = other.key
		ts.Keys = append(ts.Keys, otherLabel)
	}

	for _, p := range ts.Periods {
		cells := make(map[string]float64, len(ts.Keys))
		for _, k := range ts.Keys {
			cells[k] = 0
		}
		var folded float64
		for _, g := range groupBy(byPeriod[p], keyFn) {
			if keep[g.key] {
				cells[g.key] = g.value
			} else {
				folded += g.value
			}
		}
		if otherLabel != "" {
			cells[otherLabel] = folded
		}
		ts.Series[p] = cells
	}
	return ts, nil
}

func periodRange(byPeriod map[int][]record.Record) []int {
	present := make([]int, 0, len(byPeriod))
	for p := range byPeriod {
		present = append(present, p)
	}
	sort.Ints(present)
	first, last := present[0], present[len(present)-1]
	if last-first > maxPeriodSpan {
		return present
	}
	out := make([]int, 0, last-first+1)
	for p := first; p <= last; p++ {
		out = append(out, p)
	}
	return out
}
