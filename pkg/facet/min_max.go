package facet

import (
	"github.com/matst80/slask-facets/pkg/types"
)

// MinMax returns the smallest and largest numeric value of column over rows.
// Only scalar cells coercible to a number take part; ok is false when none do.
func MinMax(rows []types.Row, column types.ColumnId) (NumberRange[float64], bool) {
	var ret NumberRange[float64]
	found := false
	for _, row := range rows {
		v, ok := row.GetValue(column).Float()
		if !ok {
			continue
		}
		if !found {
			ret.Min, ret.Max = v, v
			found = true
			continue
		}
		if v < ret.Min {
			ret.Min = v
		}
		if v > ret.Max {
			ret.Max = v
		}
	}
	return ret, found
}
