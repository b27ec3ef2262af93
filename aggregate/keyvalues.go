package aggregate

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/zalepa/mortviz/record"
)

var ErrUnknownReduction = errors.New("unknown reduction")

// Reduction combines the records of one key into a single value.
type Reduction string

const (
	// ReduceSum adds values. Suitable for counts such as deaths.
	ReduceSum Reduction = "sum"
	// ReduceRate re-derives a crude rate per 100,000 from the summed deaths
	// and population of the records that carry them. Without any such
	// record it averages values.
	ReduceRate Reduction = "rate"
	// ReduceMean averages values.
	ReduceMean Reduction = "mean"
)

// ParseReduction accepts "sum", "rate" or "mean". Empty means sum.
func ParseReduction(s string) (Reduction, error) {
	switch r := Reduction(s); r {
	case "":
		return ReduceSum, nil
	case ReduceSum, ReduceRate, ReduceMean:
		return r, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownReduction, s)
	}
}

// KeyValues returns every key of dim across records, sorted, and one value
// per key reduced over the records accepted by keep (all records when keep
// is nil). Keys with no accepted records get NaN.
func KeyValues(records []record.Record, dim record.Dimension, keep func(record.Record) bool, reduce Reduction) ([]string, []float64) {
	byKey := make(map[string][]record.Record)
	for _, r := range records {
		k := dim.Key(r)
		if _, ok := byKey[k]; !ok {
			byKey[k] = nil
		}
		if keep == nil || keep(r) {
			byKey[k] = append(byKey[k], r)
		}
	}

	keys := make([]string, 0, len(byKey))
	for k := range byKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	values := make([]float64, len(keys))
	for i, k := range keys {
		values[i] = reduce.apply(byKey[k])
	}
	return keys, values
}

func (r Reduction) apply(records []record.Record) float64 {
	if len(records) == 0 {
		return math.NaN()
	}
	switch r {
	case ReduceMean:
		return sumValues(records) / float64(len(records))
	case ReduceRate:
		var deaths, pop float64
		for _, rec := range records {
			if rec.HasCounts {
				deaths += rec.Deaths
				pop += rec.Population
			}
		}
		if pop <= 0 {
			return sumValues(records) / float64(len(records))
		}
		return deaths / pop * record.RatePer
	default:
		return sumValues(records)
	}
}
