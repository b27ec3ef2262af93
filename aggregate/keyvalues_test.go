package aggregate

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/zalepa/mortviz/record"
)

func rateRec(rate, deaths, pop float64, state, sex string) record.Record {
	r := rec(rate, 2020, "state", state, "sex", sex)
	if pop > 0 {
		r.Deaths, r.Population, r.HasCounts = deaths, pop, true
	}
	return r
}

func TestKeyValues(t *testing.T) {
	state := record.Field("state")
	records := []record.Record{
		rateRec(800, 8, 1000, "Iowa", "F"),
		rateRec(900, 18, 2000, "Iowa", "M"),
		rateRec(700, 7, 1000, "Iowa", "F"),
		rateRec(40, 0, 0, "Ohio", "F"),
		rateRec(60, 0, 0, "Ohio", "F"),
		rateRec(5, 0, 0, "Utah", "M"),
	}
	female := func(r record.Record) bool { return sex.Key(r) == "F" }

	tests := []struct {
		name   string
		keep   func(record.Record) bool
		reduce Reduction
		want   []float64
	}{
		{"sum", nil, ReduceSum, []float64{2400, 100, 5}},
		{"rate from counts", nil, ReduceRate, []float64{33 / 4000.0 * 100000, 50, 5}},
		{"rate without counts averages", female, ReduceRate, []float64{15 / 2000.0 * 100000, 50, math.NaN()}},
		{"mean", nil, ReduceMean, []float64{800, 50, 5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			keys, values := KeyValues(records, state, tt.keep, tt.reduce)
			if !reflect.DeepEqual(keys, []string{"Iowa", "Ohio", "Utah"}) {
				t.Fatalf("keys = %v", keys)
			}
			for i, want := range tt.want {
				got := values[i]
				if math.IsNaN(want) {
					if !math.IsNaN(got) {
						t.Errorf("%s = %v, want NaN", keys[i], got)
					}
					continue
				}
				if math.Abs(got-want) > tolerance {
					t.Errorf("%s = %v, want %v", keys[i], got, want)
				}
			}
		})
	}
}

func TestParseReduction(t *testing.T) {
	for in, want := range map[string]Reduction{"": ReduceSum, "sum": ReduceSum, "rate": ReduceRate, "mean": ReduceMean} {
		if got, err := ParseReduction(in); err != nil || got != want {
			t.Errorf("ParseReduction(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseReduction("median"); !errors.Is(err, ErrUnknownReduction) {
		t.Errorf("ParseReduction(median) err = %v", err)
	}
}
