// Package bins quantizes a numeric range into equal-width buckets for
// choropleth-style shading. It knows nothing about colors.
package bins

import (
	"errors"
	"math"
)

var ErrBucketCount = errors.New("bucket count must be at least 2")

// DefaultCount is the usual number of choropleth shades.
const DefaultCount = 9

// Buckets holds count+1 non-decreasing boundaries over the finite domain of
// the values it was computed from.
type Buckets struct {
	Boundaries []float64 `json:"boundaries"`
	hasData    bool
}

// Compute builds count equal-width buckets over [min, max] of the finite
// values. With no finite values the domain is [0, 1] and only the exact
// domain edges can be looked up.
func Compute(values []float64, count int) (Buckets, error) {
	if count < 2 {
		return Buckets{}, ErrBucketCount
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	b := Buckets{hasData: !math.IsInf(lo, 1)}
	if !b.hasData {
		lo, hi = 0, 1
	}

	b.Boundaries = make([]float64, count+1)
	step := (hi - lo) / float64(count)
	for i := range b.Boundaries {
		b.Boundaries[i] = lo + float64(i)*step
	}
	b.Boundaries[count] = hi
	return b, nil
}

// Count returns the number of buckets.
func (b Buckets) Count() int {
	if len(b.Boundaries) == 0 {
		return 0
	}
	return len(b.Boundaries) - 1
}

// Index returns the bucket holding v. Non-finite values are unavailable.
// Finite values outside the domain clamp to the first or last bucket.
func (b Buckets) Index(v float64) (int, bool) {
	n := b.Count()
	if n == 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	lo, hi := b.Boundaries[0], b.Boundaries[n]
	if !b.hasData {
		switch v {
		case lo:
			return 0, true
		case hi:
			return n - 1, true
		}
		return 0, false
	}
	if hi <= lo || v <= lo {
		return 0, true
	}
	if v >= hi {
		return n - 1, true
	}
	i := int(math.Floor((v - lo) / (hi - lo) * float64(n)))
	if i < 0 {
		i = 0
	}
	if i >= n {
		i = n - 1
	}
	return i, true
}

// Range returns the lower and upper boundary of bucket i.
func (b Buckets) Range(i int) (float64, float64) {
	if i < 0 || i >= b.Count() {
		return math.NaN(), math.NaN()
	}
	return b.Boundaries[i], b.Boundaries[i+1]
}
