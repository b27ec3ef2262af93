package record

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

// RatePer is the population base for crude rates.
const RatePer = 100000

// Normalize converts raw rows into Records. Rows whose value cannot be
// derived, or whose categories carry a suppression marker, are dropped; the
// caller can compare len(rows) with the result to see how many.
func Normalize(rows []map[string]string, fm FieldMap) []Record {
	markers := make([]string, 0, len(fm.SuppressionMarkers))
	for _, m := range fm.SuppressionMarkers {
		markers = append(markers, strings.ToLower(strings.TrimSpace(m)))
	}
	if len(markers) == 0 {
		markers = []string{DefaultSuppressionMarker}
	}

	out := make([]Record, 0, len(rows))
	for _, row := range rows {
		value, ok := rowValue(row, fm)
		if !ok {
			continue
		}

		cats := make(map[string]string, len(fm.Dimensions))
		suppressed := false
		for _, d := range fm.Dimensions {
			key := CategoryKey(row[d.Field])
			if isSuppressed(key, markers) {
				suppressed = true
				break
			}
			cats[d.Name] = key
		}
		if suppressed {
			continue
		}

		r := Record{Categories: cats, Value: value}
		if deaths, pop, ok := rowCounts(row, fm); ok {
			r.Deaths, r.Population, r.HasCounts = deaths, pop, true
		}
		if fm.Period != "" {
			label := strings.TrimSpace(row[fm.Period])
			if p, ok := ParsePeriod(label); ok {
				r.Period = p
				r.HasPeriod = true
				r.PeriodLabel = label
			}
		}
		out = append(out, r)
	}
	return out
}

// rowValue resolves the value of a row, falling back to deaths/population
// when the value field is unavailable.
func rowValue(row map[string]string, fm FieldMap) (float64, bool) {
	if v, ok := ParseNumber(row[fm.Value]); ok && v >= 0 {
		return v, true
	}
	deaths, pop, ok := rowCounts(row, fm)
	if !ok {
		return 0, false
	}
	v := deaths / pop * RatePer
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// rowCounts reads the deaths and population columns. Both must be
// configured, deaths non-negative and population positive.
func rowCounts(row map[string]string, fm FieldMap) (deaths, pop float64, ok bool) {
	if fm.Deaths == "" || fm.Population == "" {
		return 0, 0, false
	}
	deaths, ok = ParseNumber(row[fm.Deaths])
	if !ok || deaths < 0 {
		return 0, 0, false
	}
	pop, ok = ParseNumber(row[fm.Population])
	if !ok || pop <= 0 {
		return 0, 0, false
	}
	return deaths, pop, true
}

// CategoryKey trims a raw category value; blank values become Missing.
func CategoryKey(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return Missing
	}
	return s
}

func isSuppressed(key string, markers []string) bool {
	lower := strings.ToLower(key)
	for _, m := range markers {
		if m != "" && strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// ParseNumber parses a locale-free decimal. Thousands separators and a
// trailing "%" are tolerated. Empty strings, "unreliable" and dash
// placeholders are reported as unavailable, as are non-finite results.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" || s == "- -" || s == "--" || strings.EqualFold(s, "unreliable") {
		return 0, false
	}
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSuffix(s, "%")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// ParsePeriod returns the leading digit run of a period label, so that
// "2020 (provisional)" and "2020" both group as 2020.
func ParsePeriod(label string) (int, bool) {
	label = strings.TrimSpace(label)
	end := 0
	for end < len(label) && label[end] >= '0' && label[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}
	p, err := strconv.Atoi(label[:end])
	if err != nil {
		return 0, false
	}
	return p, true
}

// Periods returns the distinct periods present in records, ascending.
func Periods(records []Record) []int {
	seen := make(map[int]bool)
	var out []int
	for _, r := range records {
		if r.HasPeriod && !seen[r.Period] {
			seen[r.Period] = true
			out = append(out, r.Period)
		}
	}
	sort.Ints(out)
	return out
}

// ForPeriod returns the records belonging to period p.
func ForPeriod(records []Record, p int) []Record {
	var out []Record
	for _, r := range records {
		if r.HasPeriod && r.Period == p {
			out = append(out, r)
		}
	}
	return out
}

// Sum adds up the values of records.
func Sum(records []Record) float64 {
	var total float64
	for _, r := range records {
		total += r.Value
	}
	return total
}
