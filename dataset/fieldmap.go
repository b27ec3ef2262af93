package dataset

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/zalepa/mortviz/aggregate"
	"github.com/zalepa/mortviz/record"
)

var (
	ErrUnknownPreset   = errors.New("unknown field map preset")
	ErrInvalidFieldMap = errors.New("invalid field map")
	ErrInvalidFilter   = errors.New("invalid filter")
)

// DimensionField binds a dimension name to the raw column backing it.
type DimensionField struct {
	Name  string `yaml:"name" json:"name"`
	Field string `yaml:"field" json:"field"`
}

// FieldMap is the on-disk description of a dataset's columns. Reduce names
// how per-key map values combine records: "sum" for counts, "rate" or
// "mean" for rate-valued columns.
type FieldMap struct {
	Value              string           `yaml:"value" json:"value"`
	Deaths             string           `yaml:"deaths,omitempty" json:"deaths,omitempty"`
	Population         string           `yaml:"population,omitempty" json:"population,omitempty"`
	Period             string           `yaml:"period,omitempty" json:"period,omitempty"`
	SuppressionMarkers []string         `yaml:"suppression_markers,omitempty" json:"suppressionMarkers,omitempty"`
	Dimensions         []DimensionField `yaml:"dimensions" json:"dimensions"`
	Reduce             string           `yaml:"reduce,omitempty" json:"reduce,omitempty"`
}

var presets = map[string]FieldMap{
	// Deaths by urbanization, sex, race and cause.
	"urban": {
		Value:  "Deaths",
		Period: "Year",
		Dimensions: []DimensionField{
			{Name: "sex", Field: "Sex"},
			{Name: "place", Field: "Residence 2013 Urbanization"},
			{Name: "race", Field: "Single Race 6"},
			{Name: "cause", Field: "UCD - ICD Chapter"},
		},
	},
	// Crude rate per 100k by state. Rows whose rate is marked unreliable
	// fall back to deaths over population.
	"state": {
		Value:      "Crude Rate",
		Deaths:     "Deaths",
		Population: "Population",
		Period:     "Year",
		Reduce:     string(aggregate.ReduceRate),
		Dimensions: []DimensionField{
			{Name: "state", Field: "Residence State"},
			{Name: "fips", Field: "Residence State Code"},
			{Name: "cause", Field: "UCD - ICD Chapter"},
			{Name: "sex", Field: "Sex"},
			{Name: "race", Field: "Single Race 6"},
		},
	},
}

// Presets returns the names of the built-in field maps.
func Presets() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Preset returns a copy of the built-in field map with the given name.
func Preset(name string) (FieldMap, error) {
	fm, ok := presets[name]
	if !ok {
		return FieldMap{}, fmt.Errorf("%w: %q", ErrUnknownPreset, name)
	}
	fm.Dimensions = append([]DimensionField(nil), fm.Dimensions...)
	fm.SuppressionMarkers = append([]string(nil), fm.SuppressionMarkers...)
	return fm, nil
}

// LoadFieldMap reads a YAML field map from path.
func LoadFieldMap(path string) (FieldMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return FieldMap{}, err
	}
	var fm FieldMap
	if err := yaml.Unmarshal(data, &fm); err != nil {
		return FieldMap{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := fm.Validate(); err != nil {
		return FieldMap{}, fmt.Errorf("%s: %w", path, err)
	}
	return fm, nil
}

// Validate checks that a value source is configured and that dimension
// names are present and unique.
func (fm FieldMap) Validate() error {
	if fm.Value == "" && (fm.Deaths == "" || fm.Population == "") {
		return fmt.Errorf("%w: no value column", ErrInvalidFieldMap)
	}
	if _, err := aggregate.ParseReduction(fm.Reduce); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidFieldMap, err)
	}
	seen := make(map[string]bool, len(fm.Dimensions))
	for _, d := range fm.Dimensions {
		if d.Name == "" || d.Field == "" {
			return fmt.Errorf("%w: dimension needs a name and a field", ErrInvalidFieldMap)
		}
		if seen[d.Name] {
			return fmt.Errorf("%w: duplicate dimension %q", ErrInvalidFieldMap, d.Name)
		}
		seen[d.Name] = true
	}
	return nil
}

// Record converts fm to the normalizer's configuration.
func (fm FieldMap) Record() record.FieldMap {
	dims := make([]record.DimensionField, len(fm.Dimensions))
	for i, d := range fm.Dimensions {
		dims[i] = record.DimensionField{Name: d.Name, Field: d.Field}
	}
	return record.FieldMap{
		Value:              fm.Value,
		Deaths:             fm.Deaths,
		Population:         fm.Population,
		Period:             fm.Period,
		Dimensions:         dims,
		SuppressionMarkers: append([]string(nil), fm.SuppressionMarkers...),
	}
}

// Dimension returns the configured dimension with the given name.
func (fm FieldMap) Dimension(name string) (record.Dimension, bool) {
	for _, d := range fm.Dimensions {
		if d.Name == name {
			return record.Field(name), true
		}
	}
	return record.Dimension{}, false
}

// DimensionNames lists the configured dimensions in declaration order.
func (fm FieldMap) DimensionNames() []string {
	names := make([]string, len(fm.Dimensions))
	for i, d := range fm.Dimensions {
		names[i] = d.Name
	}
	return names
}

// Reduction returns the configured per-key reduction, sum when unset.
func (fm FieldMap) Reduction() aggregate.Reduction {
	r, err := aggregate.ParseReduction(fm.Reduce)
	if err != nil {
		return aggregate.ReduceSum
	}
	return r
}

// ParseFilter builds a category filter from "name=key" pairs. Every name
// must be a configured dimension.
func (fm FieldMap) ParseFilter(pairs []string) (record.Filter, error) {
	f := make(record.Filter, len(pairs))
	for _, p := range pairs {
		name, key, ok := strings.Cut(p, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("%w: %q is not name=key", ErrInvalidFilter, p)
		}
		if _, ok := fm.Dimension(name); !ok {
			return nil, fmt.Errorf("%w: unknown dimension %q", ErrInvalidFilter, name)
		}
		f[name] = record.CategoryKey(key)
	}
	return f, nil
}
