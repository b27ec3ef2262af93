package record

// Missing is the category key used for absent or blank source values.
const Missing = "(missing)"

// Record is one normalized data row. Categories holds the canonical key for
// every configured dimension. Deaths and Population are kept when both
// columns are configured and usable so rates can be re-derived after
// grouping. Records are never modified after Normalize returns them.
type Record struct {
	Categories  map[string]string `json:"categories"`
	Value       float64           `json:"value"`
	Period      int               `json:"period,omitempty"`
	HasPeriod   bool              `json:"hasPeriod"`
	PeriodLabel string            `json:"periodLabel,omitempty"`
	Deaths      float64           `json:"deaths,omitempty"`
	Population  float64           `json:"population,omitempty"`
	HasCounts   bool              `json:"hasCounts,omitempty"`
}

// Dimension projects a Record onto a category key. Two dimensions are the
// same dimension when their names match.
type Dimension struct {
	Name string
	Key  func(Record) string
}

// Field returns a Dimension that reads the named entry of Record.Categories.
func Field(name string) Dimension {
	return Dimension{
		Name: name,
		Key: func(r Record) string {
			k, ok := r.Categories[name]
			if !ok || k == "" {
				return Missing
			}
			return k
		},
	}
}

// DimensionField binds a dimension name to the raw field backing it.
type DimensionField struct {
	Name  string
	Field string
}

// FieldMap describes which raw fields back the value, period and dimensions
// of a dataset. Deaths and Population are optional; when both are set, rows
// with an unavailable Value are re-derived as a crude rate per 100,000.
type FieldMap struct {
	Value              string
	Deaths             string
	Population         string
	Period             string
	Dimensions         []DimensionField
	SuppressionMarkers []string
}

// DefaultSuppressionMarker is used when a FieldMap lists no markers.
const DefaultSuppressionMarker = "suppressed"
