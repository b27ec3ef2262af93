package aggregate

import (
	"errors"
	"math"
	"math/rand"
	"reflect"
	"testing"

	"github.com/zalepa/mortviz/record"
)

const tolerance = 1e-6

var (
	sex   = record.Field("sex")
	cause = record.Field("cause")
)

func rec(value float64, period int, cats ...string) record.Record {
	r := record.Record{Categories: make(map[string]string), Value: value}
	for i := 0; i+1 < len(cats); i += 2 {
		r.Categories[cats[i]] = cats[i+1]
	}
	if period != 0 {
		r.Period = period
		r.HasPeriod = true
	}
	return r
}

func sample() []record.Record {
	return []record.Record{
		rec(50, 2019, "sex", "F", "cause", "A"),
		rec(30, 2019, "sex", "M", "cause", "B"),
		rec(20, 2020, "sex", "F", "cause", "C"),
		rec(10, 2020, "sex", "M", "cause", "D"),
		rec(5, 2021, "sex", "F", "cause", "E"),
		rec(5, 2021, "sex", "M", "cause", "F"),
	}
}

func keys(nodes []Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.Key
	}
	return out
}

func checkSumInvariant(t *testing.T, n Node) {
	t.Helper()
	if n.IsLeaf() {
		return
	}
	var sum float64
	for _, c := range n.Children {
		sum += c.Value
		checkSumInvariant(t, c)
	}
	if math.Abs(sum-n.Value) > tolerance {
		t.Errorf("node %q: children sum %v != value %v", n.Key, sum, n.Value)
	}
}

func TestAggregate_NoDimensions(t *testing.T) {
	root, err := Aggregate(sample(), nil, DefaultOptions())
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if root.Key != RootKey || root.Value != 120 || !root.IsLeaf() {
		t.Errorf("root = %+v, want Total/120 leaf", root)
	}
	if root.Count != 6 {
		t.Errorf("Count = %d, want 6", root.Count)
	}
}

func TestAggregate_Empty(t *testing.T) {
	root, err := Aggregate(nil, []record.Dimension{sex, cause}, DefaultOptions())
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if root.Value != 0 || !root.IsLeaf() || root.Key != RootKey {
		t.Errorf("empty aggregate = %+v", root)
	}
}

func TestAggregate_OtherFolding(t *testing.T) {
	opts := Options{MaxSegments: 3, CollapseOther: true}
	root, err := Aggregate(sample(), []record.Dimension{cause}, opts)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if got, want := keys(root.Children), []string{"A", "B", "C", OtherKey}; !reflect.DeepEqual(got, want) {
		t.Fatalf("keys = %v, want %v", got, want)
	}
	other := root.Children[3]
	if other.Value != 20 {
		t.Errorf("Other value = %v, want 20", other.Value)
	}
	if want := []string{"D", "E", "F"}; !reflect.DeepEqual(other.SourceKeys, want) {
		t.Errorf("Other SourceKeys = %v, want %v", other.SourceKeys, want)
	}
	if other.Count != 3 {
		t.Errorf("Other Count = %d, want 3", other.Count)
	}
	if !reflect.DeepEqual(root.Children[0].SourceKeys, []string{"A"}) {
		t.Errorf("A SourceKeys = %v", root.Children[0].SourceKeys)
	}
	checkSumInvariant(t, root)
}

func TestAggregate_OtherLabelAndCollapseOff(t *testing.T) {
	opts := Options{MaxSegments: 2, CollapseOther: true, OtherLabel: "All other causes"}
	root, err := Aggregate(sample(), []record.Dimension{cause}, opts)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if last := root.Children[len(root.Children)-1]; last.Key != "All other causes" || last.Value != 40 {
		t.Errorf("folded node = %+v", last)
	}

	opts.CollapseOther = false
	root, err = Aggregate(sample(), []record.Dimension{cause}, opts)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if len(root.Children) != 6 {
		t.Errorf("collapse off: %d children, want 6", len(root.Children))
	}
}

func TestAggregate_OtherOmittedWhenZero(t *testing.T) {
	records := []record.Record{
		rec(5, 0, "cause", "A"),
		rec(3, 0, "cause", "B"),
		rec(0, 0, "cause", "C"),
		rec(0, 0, "cause", "D"),
	}
	root, err := Aggregate(records, []record.Dimension{cause}, Options{MaxSegments: 2, CollapseOther: true})
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if got, want := keys(root.Children), []string{"A", "B"}; !reflect.DeepEqual(got, want) {
		t.Errorf("keys = %v, want %v", got, want)
	}
}

func TestAggregate_TwoDimensions(t *testing.T) {
	root, err := Aggregate(sample(), []record.Dimension{sex, cause}, Options{MaxSegments: 2, CollapseOther: true})
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if got, want := keys(root.Children), []string{"F", "M"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("level 1 = %v, want %v", got, want)
	}
	f := root.Children[0]
	if f.Value != 75 || f.Depth != 1 {
		t.Errorf("F = %+v", f)
	}
	if got, want := keys(f.Children), []string{"A", "C", OtherKey}; !reflect.DeepEqual(got, want) {
		t.Errorf("F children = %v, want %v", got, want)
	}
	for _, c := range f.Children {
		if c.Depth != 2 {
			t.Errorf("child %q depth = %d, want 2", c.Key, c.Depth)
		}
		if !c.IsLeaf() {
			t.Errorf("child %q should be a leaf", c.Key)
		}
	}
	checkSumInvariant(t, root)
}

func TestAggregate_OtherNeverExpanded(t *testing.T) {
	root, err := Aggregate(sample(), []record.Dimension{cause, sex}, Options{MaxSegments: 2, CollapseOther: true})
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	other, ok := root.Child(OtherKey)
	if !ok {
		t.Fatalf("no Other node in %v", keys(root.Children))
	}
	if !other.IsLeaf() || other.Value != 40 {
		t.Errorf("Other = %+v, want leaf with value 40", other)
	}
	a, _ := root.Child("A")
	if len(a.Children) != 1 || a.Children[0].Key != "F" {
		t.Errorf("A children = %v", keys(a.Children))
	}
	checkSumInvariant(t, root)
}

func TestAggregate_Conservation(t *testing.T) {
	records := sample()
	want := record.Sum(records)
	dimSets := [][]record.Dimension{nil, {sex}, {cause}, {sex, cause}, {cause, sex}}
	for _, max := range []int{1, 2, 3, 10} {
		for _, dims := range dimSets {
			root, err := Aggregate(records, dims, Options{MaxSegments: max, CollapseOther: true})
			if err != nil {
				t.Fatalf("Aggregate: %v", err)
			}
			if math.Abs(root.Value-want) > tolerance {
				t.Errorf("max=%d dims=%d: root %v, want %v", max, len(dims), root.Value, want)
			}
			checkSumInvariant(t, root)
		}
	}
}

func TestAggregate_TieBreakDeterminism(t *testing.T) {
	records := []record.Record{
		rec(10, 0, "cause", "zeta"),
		rec(10, 0, "cause", "alpha"),
		rec(10, 0, "cause", "mu"),
		rec(0.1, 0, "cause", "beta"),
		rec(0.2, 0, "cause", "beta"),
		rec(0.3, 0, "cause", "beta"),
		rec(20, 0, "cause", "big"),
	}
	opts := Options{MaxSegments: 3, CollapseOther: true}
	first, err := Aggregate(records, []record.Dimension{cause}, opts)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if got, want := keys(first.Children), []string{"big", "alpha", "mu", OtherKey}; !reflect.DeepEqual(got, want) {
		t.Fatalf("keys = %v, want %v", got, want)
	}

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		shuffled := append([]record.Record(nil), records...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		again, err := Aggregate(shuffled, []record.Dimension{cause}, opts)
		if err != nil {
			t.Fatalf("Aggregate: %v", err)
		}
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("shuffle %d: result differs\n got %+v\nwant %+v", i, again, first)
		}
	}
}

func TestAggregate_InvalidArguments(t *testing.T) {
	if _, err := Aggregate(sample(), []record.Dimension{sex, cause, sex}, DefaultOptions()); !errors.Is(err, ErrTooManyDimensions) {
		t.Errorf("3 dims: err = %v, want ErrTooManyDimensions", err)
	}
	if _, err := Aggregate(sample(), nil, Options{MaxSegments: 0}); !errors.Is(err, ErrInvalidMaxSegments) {
		t.Errorf("max 0: err = %v, want ErrInvalidMaxSegments", err)
	}
}

func TestFindAndWalk(t *testing.T) {
	root, err := Aggregate(sample(), []record.Dimension{sex, cause}, DefaultOptions())
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	n, ok := Find(root, []string{"M", "B"})
	if !ok || n.Value != 30 {
		t.Errorf("Find(M,B) = %+v, %v", n, ok)
	}
	if n, ok := Find(root, []string{"M", "A"}); ok || n.Key != RootKey {
		t.Errorf("Find(M,A) = %+v, %v, want root,false", n, ok)
	}
	if n, ok := Find(root, nil); !ok || n.Key != RootKey {
		t.Errorf("Find(nil) = %+v, %v", n, ok)
	}

	var visited int
	Walk(root, func(path []string, n Node) {
		visited++
		if len(path) != n.Depth {
			t.Errorf("node %q at depth %d has path %v", n.Key, n.Depth, path)
		}
	})
	if visited != 1+2+6 {
		t.Errorf("visited %d nodes, want 9", visited)
	}
}

func TestLeaves(t *testing.T) {
	root, err := Aggregate(sample(), []record.Dimension{sex, cause}, DefaultOptions())
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	want := [][]string{{"F", "A"}, {"F", "C"}, {"F", "E"}, {"M", "B"}, {"M", "D"}, {"M", "F"}}
	if got := Leaves(root); !reflect.DeepEqual(got, want) {
		t.Errorf("Leaves = %v, want %v", got, want)
	}

	flat, _ := Aggregate(sample(), nil, DefaultOptions())
	if got := Leaves(flat); len(got) != 1 || len(got[0]) != 0 {
		t.Errorf("Leaves(flat) = %v, want one empty path", got)
	}
}

func TestAggregate_OtherLabelCollision(t *testing.T) {
	records := []record.Record{
		rec(100, 0, "cause", "Other"),
		rec(50, 0, "cause", "A"),
		rec(5, 0, "cause", "B"),
		rec(4, 0, "cause", "C"),
	}
	opts := Options{MaxSegments: 2, CollapseOther: true}
	root, err := Aggregate(records, []record.Dimension{cause}, opts)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if got := keys(root.Children); !reflect.DeepEqual(got, []string{"Other", "A", "Other (folded)"}) {
		t.Fatalf("keys = %v", got)
	}
	if n, ok := root.Child("Other"); !ok || n.Value != 100 {
		t.Errorf("Child(Other) = %+v", n)
	}
	n, ok := root.Child("Other (folded)")
	if !ok || n.Value != 9 || !reflect.DeepEqual(n.SourceKeys, []string{"B", "C"}) {
		t.Errorf("Child(Other (folded)) = %+v, %v", n, ok)
	}

	for i := range records {
		records[i].Period, records[i].HasPeriod = 2020, true
	}
	ts, err := Series(records, []record.Dimension{cause}, opts)
	if err != nil {
		t.Fatalf("Series: %v", err)
	}
	if !reflect.DeepEqual(ts.Keys, []string{"Other", "A", "Other (folded)"}) || ts.Value(2020, "Other (folded)") != 9 {
		t.Errorf("series keys = %v, folded = %v", ts.Keys, ts.Value(2020, "Other (folded)"))
	}
}
