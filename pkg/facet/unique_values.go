package facet

import (
	"github.com/matst80/slask-facets/pkg/types"
)

// UniqueValues walks rows once and counts every value of column. Absent
// cells are skipped and each member of a multi valued cell counts on its own.
func UniqueValues(rows []types.Row, column types.ColumnId) *UniqueValueMap {
	ret := NewUniqueValueMap()
	for _, row := range rows {
		value := row.GetValue(column)
		switch value.Kind() {
		case types.AbsentCell:
			continue
		case types.ScalarCell:
			s, _ := value.Scalar()
			ret.Add(s)
		case types.MultiCell:
			for _, m := range value.Members() {
				ret.Add(m)
			}
		}
	}
	return ret
}
