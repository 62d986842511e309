package server

import (
	"math"
	"strconv"

	"github.com/matst80/slask-facets/pkg/facet"
	"github.com/matst80/slask-facets/pkg/types"
)

type FacetValue struct {
	Value any `json:"value"`
	Count int `json:"count"`
}

// JsonFacet is the faceted view of one column: its unique values with counts
// and, for numeric columns, the min/max of the faceted rows.
type JsonFacet struct {
	Column   types.ColumnId `json:"column"`
	Epoch    uint64         `json:"epoch"`
	Rows     int            `json:"rows"`
	Total    int            `json:"total"`
	Values   []FacetValue   `json:"values"`
	Range    *JsonRange     `json:"range,omitempty"`
	Selected any            `json:"selected,omitempty"`
}

// JsonRange holds the bounds as numbers, or as strings for infinities.
type JsonRange struct {
	Min any `json:"min"`
	Max any `json:"max"`
}

func jsonNumber(v float64) any {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return v
}

func jsonScalar(v types.Scalar) any {
	if v.Kind() == types.NumberScalar {
		return jsonNumber(v.Number())
	}
	return v.Any()
}

func newJsonRange(r facet.NumberRange[float64]) *JsonRange {
	return &JsonRange{Min: jsonNumber(r.Min), Max: jsonNumber(r.Max)}
}

type ColumnInfo struct {
	Id       types.ColumnId `json:"id"`
	Filtered bool           `json:"filtered"`
	Filter   any            `json:"filter,omitempty"`
}

type ColumnsResponse struct {
	Columns []ColumnInfo `json:"columns"`
	Rows    int          `json:"rows"`
	Epoch   uint64       `json:"epoch"`
}

type RowsResponse struct {
	Rows  int    `json:"rows"`
	Epoch uint64 `json:"epoch"`
}
