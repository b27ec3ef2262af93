package record

import (
	"math"
	"reflect"
	"testing"
)

var urbanFields = FieldMap{
	Value:      "Deaths",
	Deaths:     "Deaths",
	Population: "Population",
	Period:     "Year",
	Dimensions: []DimensionField{
		{Name: "sex", Field: "Sex"},
		{Name: "cause", Field: "UCD - ICD Chapter"},
	},
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		input string
		want  float64
		ok    bool
	}{
		{"42", 42, true},
		{" 3.5 ", 3.5, true},
		{"2,339", 2339, true},
		{"40%", 40, true},
		{"-120", -120, true},
		{"", 0, false},
		{"   ", 0, false},
		{"Unreliable", 0, false},
		{"UNRELIABLE", 0, false},
		{"- -", 0, false},
		{"--", 0, false},
		{"abc", 0, false},
		{"NaN", 0, false},
		{"Inf", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseNumber(tt.input)
		if ok != tt.ok || got != tt.want {
			t.Errorf("ParseNumber(%q) = %v, %v, want %v, %v", tt.input, got, ok, tt.want, tt.ok)
		}
	}
}

func TestParsePeriod(t *testing.T) {
	tests := []struct {
		input string
		want  int
		ok    bool
	}{
		{"2020", 2020, true},
		{"2020 (provisional)", 2020, true},
		{" 2018", 2018, true},
		{"2021(provisional)", 2021, true},
		{"", 0, false},
		{"Total", 0, false},
		{"FY2020", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParsePeriod(tt.input)
		if ok != tt.ok || got != tt.want {
			t.Errorf("ParsePeriod(%q) = %d, %v, want %d, %v", tt.input, got, ok, tt.want, tt.ok)
		}
	}
}

func TestNormalize_CategoryCoercion(t *testing.T) {
	rows := []map[string]string{
		{"Deaths": "10", "Sex": "  Female ", "UCD - ICD Chapter": "", "Year": "2019"},
		{"Deaths": "5", "Sex": "Male", "Year": "2019"},
	}
	got := Normalize(rows, urbanFields)
	if len(got) != 2 {
		t.Fatalf("got %d records, want 2", len(got))
	}
	want := map[string]string{"sex": "Female", "cause": Missing}
	if !reflect.DeepEqual(got[0].Categories, want) {
		t.Errorf("categories = %v, want %v", got[0].Categories, want)
	}
	if got[1].Categories["cause"] != Missing {
		t.Errorf("absent field: cause = %q, want %q", got[1].Categories["cause"], Missing)
	}
}

func TestNormalize_DropsUnavailableValues(t *testing.T) {
	fm := FieldMap{
		Value:      "Crude Rate",
		Deaths:     "Deaths",
		Population: "Population",
		Dimensions: []DimensionField{{Name: "state", Field: "Residence State"}},
	}
	rows := []map[string]string{
		{"Crude Rate": "12.5", "Residence State": "Ohio"},
		// Unreliable rate re-derived from deaths and population.
		{"Crude Rate": "Unreliable", "Deaths": "15", "Population": "300000", "Residence State": "Iowa"},
		// Empty rate with no population: excluded.
		{"Crude Rate": "", "Deaths": "15", "Residence State": "Utah"},
		// Zero population: excluded, never a silent zero.
		{"Crude Rate": "", "Deaths": "15", "Population": "0", "Residence State": "Maine"},
		// Negative value is not a usable value and no fallback fields.
		{"Crude Rate": "-3", "Residence State": "Texas"},
	}
	got := Normalize(rows, fm)
	if len(got) != 2 {
		t.Fatalf("got %d records, want 2: %+v", len(got), got)
	}
	if got[0].Value != 12.5 {
		t.Errorf("Ohio value = %v, want 12.5", got[0].Value)
	}
	if math.Abs(got[1].Value-5) > 1e-9 {
		t.Errorf("Iowa derived rate = %v, want 5", got[1].Value)
	}
	if got[1].Categories["state"] != "Iowa" {
		t.Errorf("second record = %q, want Iowa", got[1].Categories["state"])
	}
	if got[0].HasCounts {
		t.Errorf("Ohio has no counts but HasCounts is set")
	}
	if !got[1].HasCounts || got[1].Deaths != 15 || got[1].Population != 300000 {
		t.Errorf("Iowa counts = %v/%v (%v), want 15/300000", got[1].Deaths, got[1].Population, got[1].HasCounts)
	}
}

func TestNormalize_SuppressedRowsDropped(t *testing.T) {
	rows := []map[string]string{
		{"Deaths": "10", "Sex": "Female", "UCD - ICD Chapter": "Neoplasms", "Year": "2019"},
		{"Deaths": "3", "Sex": "Female", "UCD - ICD Chapter": "Data Suppressed", "Year": "2019"},
	}
	got := Normalize(rows, urbanFields)
	if len(got) != 1 {
		t.Fatalf("got %d records, want 1", len(got))
	}
	for _, r := range got {
		if r.Categories["cause"] == Missing {
			t.Errorf("suppressed row merged into %q", Missing)
		}
	}

	custom := urbanFields
	custom.SuppressionMarkers = []string{"Lagged"}
	rows = append(rows, map[string]string{"Deaths": "4", "Sex": "Male (lagged)", "Year": "2020"})
	got = Normalize(rows, custom)
	if len(got) != 2 {
		t.Fatalf("custom markers: got %d records, want 2", len(got))
	}
	if custom.SuppressionMarkers[0] != "Lagged" {
		t.Errorf("Normalize modified caller markers: %v", custom.SuppressionMarkers)
	}
}

func TestNormalize_PeriodLabels(t *testing.T) {
	rows := []map[string]string{
		{"Deaths": "1", "Year": "2020 (provisional)"},
		{"Deaths": "2", "Year": "2020"},
		{"Deaths": "3", "Year": "n/a"},
	}
	got := Normalize(rows, urbanFields)
	if len(got) != 3 {
		t.Fatalf("got %d records, want 3", len(got))
	}
	if !got[0].HasPeriod || got[0].Period != 2020 || got[0].PeriodLabel != "2020 (provisional)" {
		t.Errorf("record 0 = %+v", got[0])
	}
	if got[0].Period != got[1].Period {
		t.Errorf("provisional and plain labels should group together")
	}
	if got[2].HasPeriod {
		t.Errorf("record 2 should have no period: %+v", got[2])
	}
	if p := Periods(got); !reflect.DeepEqual(p, []int{2020}) {
		t.Errorf("Periods = %v, want [2020]", p)
	}
	if n := len(ForPeriod(got, 2020)); n != 2 {
		t.Errorf("ForPeriod(2020) = %d records, want 2", n)
	}
	if s := Sum(got); s != 6 {
		t.Errorf("Sum = %v, want 6", s)
	}
}

func TestField(t *testing.T) {
	d := Field("sex")
	if got := d.Key(Record{Categories: map[string]string{"sex": "Male"}}); got != "Male" {
		t.Errorf("Key = %q, want Male", got)
	}
	if got := d.Key(Record{}); got != Missing {
		t.Errorf("Key on empty record = %q, want %q", got, Missing)
	}
}
