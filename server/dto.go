package server

import (
	"github.com/zalepa/mortviz/aggregate"
	"github.com/zalepa/mortviz/focus"
)

type CreateViewResponse struct {
	ID string `json:"id"`
}

type ToggleFocusRequest struct {
	Key string `json:"key"`
}

type SelectRequest struct {
	Path []string `json:"path"`
}

type DimensionsResponse struct {
	Dimensions []string `json:"dimensions"`
}

type PeriodsResponse struct {
	Periods []int `json:"periods"`
}

// StateResponse is a snapshot of one view's focus state.
type StateResponse struct {
	Dimensions []string `json:"dimensions"`
	Focus      []string `json:"focus"`
	Path       []string `json:"path"`
}

type TreeResponse struct {
	Period     *int              `json:"period"`
	Options    aggregate.Options `json:"options"`
	Tree       aggregate.Node    `json:"tree"`
	Breadcrumb focus.Breadcrumb  `json:"breadcrumb"`
	State      StateResponse     `json:"state"`
}

type SeriesLine struct {
	Key    string    `json:"key"`
	Values []float64 `json:"values"`
}

type SeriesResponse struct {
	Periods []int         `json:"periods"`
	Series  []SeriesLine  `json:"series"`
	Totals  []float64     `json:"totals"`
	State   StateResponse `json:"state"`
}

// MapEntry is one shaded key. Value and Bucket are null when the key has no
// usable value.
type MapEntry struct {
	Key    string   `json:"key"`
	Value  *float64 `json:"value"`
	Bucket *int     `json:"bucket"`
}

type MapResponse struct {
	Dimension  string            `json:"dimension"`
	Period     *int              `json:"period"`
	Filter     map[string]string `json:"filter"`
	Reduction  string            `json:"reduction"`
	Boundaries []float64         `json:"boundaries"`
	Entries    []MapEntry        `json:"entries"`
}

type ErrorResponse struct {
	Error   string `json:"error" example:"invalid_request"`
	Message string `json:"message,omitempty" example:"max must be an integer"`
}
