package report

import (
	"errors"
	"math"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/zalepa/mortviz/aggregate"
	"github.com/zalepa/mortviz/bins"
	"github.com/zalepa/mortviz/focus"
	"github.com/zalepa/mortviz/record"
)

func sampleRecords() []record.Record {
	mk := func(v float64, year int, sex, cause string) record.Record {
		return record.Record{
			Categories: map[string]string{"sex": sex, "cause": cause},
			Value:      v, Period: year, HasPeriod: true,
		}
	}
	return []record.Record{
		mk(50, 2019, "F", "Circulatory"),
		mk(30, 2019, "M", "Neoplasms"),
		mk(20, 2020, "F", "Neoplasms"),
		mk(10, 2021, "M", "External"),
		mk(5, 2021, "F", "External"),
	}
}

func checkPages(t *testing.T, path string, want int) {
	t.Helper()
	info, err := Inspect(path)
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if info.Pages != want {
		t.Errorf("pages = %d, want %d", info.Pages, want)
	}
	for i, n := range info.ContentBytes {
		if n == 0 {
			t.Errorf("page %d has empty content", i+1)
		}
	}
}

func TestSeriesPDF(t *testing.T) {
	ts, err := aggregate.Series(sampleRecords(), []record.Dimension{record.Field("cause")}, aggregate.DefaultOptions())
	if err != nil {
		t.Fatalf("Series: %v", err)
	}
	path := filepath.Join(t.TempDir(), "series.pdf")
	if err := SeriesPDF(path, "Deaths by cause — 2019-2021", ts); err != nil {
		t.Fatalf("SeriesPDF: %v", err)
	}
	checkPages(t, path, 1)

	if err := SeriesPDF(path, "empty", aggregate.TimeSeries{}); !errors.Is(err, ErrNothingToPlot) {
		t.Errorf("empty series: err = %v, want ErrNothingToPlot", err)
	}
}

func TestTreePDF(t *testing.T) {
	s := focus.State{}.ToggleDimension(record.Field("sex")).ToggleDimension(record.Field("cause"))
	root, s, err := s.Aggregate(sampleRecords(), aggregate.DefaultOptions())
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	s, err = s.Select(root, []string{"F", "Neoplasms"})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	path := filepath.Join(t.TempDir(), "tree.pdf")
	if err := TreePDF(path, "Deaths by sex and cause", root, s.Breadcrumb(root)); err != nil {
		t.Fatalf("TreePDF: %v", err)
	}
	checkPages(t, path, 2)

	leaf, _ := aggregate.Aggregate(nil, nil, aggregate.DefaultOptions())
	if err := TreePDF(path, "No data", leaf, focus.State{}.Breadcrumb(leaf)); err != nil {
		t.Fatalf("TreePDF(leaf): %v", err)
	}
	checkPages(t, path, 1)
}

func TestChoroplethPDF(t *testing.T) {
	keys := []string{"Iowa", "Ohio", "Utah", "Maine"}
	values := []float64{5, 12.5, math.NaN(), 40}
	b, err := bins.Compute(values, 9)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	path := filepath.Join(t.TempDir(), "map.pdf")
	if err := ChoroplethPDF(path, "Crude rate by state", keys, values, b); err != nil {
		t.Fatalf("ChoroplethPDF: %v", err)
	}
	checkPages(t, path, 2)

	if err := ChoroplethPDF(path, "bad", keys, values[:2], b); err == nil {
		t.Errorf("expected error for mismatched keys and values")
	}
}

func TestTreeLayers(t *testing.T) {
	root, err := aggregate.Aggregate(sampleRecords(),
		[]record.Dimension{record.Field("sex"), record.Field("cause")}, aggregate.DefaultOptions())
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	// Root children: F (75), M (40).
	layers := treeLayers(root)
	var names []string
	for _, l := range layers {
		names = append(names, l.name)
	}
	if want := []string{"Circulatory", "Neoplasms", "External"}; !reflect.DeepEqual(names, want) {
		t.Fatalf("layer order = %v, want %v", names, want)
	}
	if want := []float64{20, 30}; !reflect.DeepEqual(layers[1].values, want) {
		t.Errorf("Neoplasms layer = %v, want %v", layers[1].values, want)
	}

	flat, _ := aggregate.Aggregate(sampleRecords(), []record.Dimension{record.Field("sex")}, aggregate.DefaultOptions())
	if got := treeLayers(flat); len(got) != 1 || !reflect.DeepEqual(got[0].values, []float64{75, 40}) {
		t.Errorf("single level layers = %+v", got)
	}
}

func TestTreeLayers_UnexpandedGroupOwnLayer(t *testing.T) {
	root := aggregate.Node{Key: aggregate.RootKey, Value: 110, Children: []aggregate.Node{
		{Key: "F", Value: 70, Depth: 1, Children: []aggregate.Node{
			{Key: "A", Value: 50, Depth: 2},
			{Key: "B", Value: 20, Depth: 2},
		}},
		{Key: aggregate.OtherKey, Value: 40, Depth: 1},
	}}
	got := treeLayers(root)
	want := []layer{
		{name: "A", values: []float64{50, 0}},
		{name: "B", values: []float64{20, 0}},
		{name: aggregate.OtherKey, values: []float64{0, 40}},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("layers = %+v, want %+v", got, want)
	}
}

func TestBreadcrumbCaption(t *testing.T) {
	bc := focus.Breadcrumb{Keys: []string{"F", "C"}, Value: 20, Label: "26.7%"}
	if got := breadcrumbCaption(bc); got != "Total > F > C  20 (26.7%)" {
		t.Errorf("caption = %q", got)
	}
}

func TestFormatNum(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{-1234567, "-1,234,567"},
		{12.34, "12.3"},
		{math.NaN(), "- -"},
	}
	for _, tt := range tests {
		if got := FormatNum(tt.in); got != tt.want {
			t.Errorf("FormatNum(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatCompact(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{2.5, "2.5"},
		{120, "120"},
		{35000, "35k"},
		{1200000, "1.2M"},
	}
	for _, tt := range tests {
		if got := FormatCompact(tt.in); got != tt.want {
			t.Errorf("FormatCompact(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLabelTicks(t *testing.T) {
	labels := make(labelTicks, 30)
	for i := range labels {
		labels[i] = "x"
	}
	ticks := labels.Ticks(0, 29)
	if len(ticks) != 30 {
		t.Fatalf("got %d ticks, want 30", len(ticks))
	}
	labeled := 0
	for _, tk := range ticks {
		if tk.Label != "" {
			labeled++
		}
	}
	if labeled > 12 {
		t.Errorf("%d labels, want at most 12", labeled)
	}
}

func TestShadeColors(t *testing.T) {
	for _, n := range []int{2, 5, 9, 12} {
		cs := shadeColors(n)
		if len(cs) != n {
			t.Errorf("shadeColors(%d) returned %d colors", n, len(cs))
		}
		if reflect.DeepEqual(cs[0], cs[n-1]) {
			t.Errorf("shadeColors(%d): first and last shade are equal", n)
		}
	}
}

func TestPDFText(t *testing.T) {
	if got := pdfText("A — B – C › D"); got != "A - B - C > D" {
		t.Errorf("pdfText = %q", got)
	}
}
