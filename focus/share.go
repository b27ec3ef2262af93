package focus

import (
	"encoding/json"
	"strconv"

	"github.com/zalepa/mortviz/aggregate"
)

// Undefined is how an undefined share is displayed.
const Undefined = "—"

// Share is a node's fraction of its scope total. Defined is false when the
// scope total is not positive; such a share must not be shown as 0%.
type Share struct {
	Ratio   float64
	Defined bool
}

// ShareOf returns node.Value / scopeTotal, or an undefined Share when
// scopeTotal is not positive.
func ShareOf(node aggregate.Node, scopeTotal float64) Share {
	if !(scopeTotal > 0) {
		return Share{}
	}
	return Share{Ratio: node.Value / scopeTotal, Defined: true}
}

// String formats the share as a percentage with one decimal.
func (s Share) String() string {
	if !s.Defined {
		return Undefined
	}
	return strconv.FormatFloat(s.Ratio*100, 'f', 1, 64) + "%"
}

// MarshalJSON encodes an undefined share as null.
func (s Share) MarshalJSON() ([]byte, error) {
	if !s.Defined {
		return []byte("null"), nil
	}
	return json.Marshal(s.Ratio)
}

// Breadcrumb describes the selected node of a tree for display.
type Breadcrumb struct {
	Keys  []string       `json:"keys"`
	Node  aggregate.Node `json:"-"`
	Value float64        `json:"value"`
	Share Share          `json:"share"`
	Label string         `json:"label"`
}

// Breadcrumb resolves the selection against root. The share is relative to
// root, which is the total of the focused scope when a focus is active.
// Keys is empty when the selection fell back to the root.
func (s State) Breadcrumb(root aggregate.Node) Breadcrumb {
	keys, ok := s.path, true
	node := root
	if len(keys) > 0 {
		node, ok = aggregate.Find(root, keys)
		if !ok {
			keys = nil
		}
	}
	share := ShareOf(node, root.Value)
	return Breadcrumb{
		Keys:  append([]string{}, keys...),
		Node:  node,
		Value: node.Value,
		Share: share,
		Label: share.String(),
	}
}
