package index

import (
	"errors"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/google/uuid"
	"github.com/matst80/slask-facets/pkg/types"
)

var ErrForeignRowModel = errors.New("row model was not produced by this table")

// RowModel is an immutable snapshot of rows. Rows holds the top level rows,
// FlatRows every row in depth first order; aggregation walks FlatRows.
type RowModel struct {
	tableId  uuid.UUID
	Rows     []types.Row
	FlatRows []types.Row
	RowsById map[uint]types.Row
	ids      *roaring.Bitmap
}

func newRowModel(tableId uuid.UUID, rows []types.Row) *RowModel {
	rm := &RowModel{
		tableId:  tableId,
		Rows:     rows,
		FlatRows: make([]types.Row, 0, len(rows)),
		RowsById: make(map[uint]types.Row, len(rows)),
		ids:      roaring.New(),
	}
	var walk func(rows []types.Row)
	walk = func(rows []types.Row) {
		for _, row := range rows {
			rm.FlatRows = append(rm.FlatRows, row)
			rm.RowsById[row.GetId()] = row
			rm.ids.Add(uint32(row.GetId()))
			walk(row.GetSubRows())
		}
	}
	walk(rows)
	rm.ids.RunOptimize()
	return rm
}

func emptyRowModel(tableId uuid.UUID) *RowModel {
	return newRowModel(tableId, nil)
}

func (rm *RowModel) TableId() uuid.UUID {
	return rm.tableId
}

// Len is the number of rows in flat traversal order.
func (rm *RowModel) Len() int {
	if rm == nil {
		return 0
	}
	return len(rm.FlatRows)
}

func (rm *RowModel) Contains(id uint) bool {
	if rm == nil {
		return false
	}
	return rm.ids.Contains(uint32(id))
}

// Ids returns the flat row ids in traversal order.
func (rm *RowModel) Ids() []uint {
	ret := make([]uint, 0, rm.Len())
	if rm == nil {
		return ret
	}
	for _, row := range rm.FlatRows {
		ret = append(ret, row.GetId())
	}
	return ret
}

// Bitmap returns the set of flat row ids. Callers must not mutate it.
func (rm *RowModel) Bitmap() *roaring.Bitmap {
	return rm.ids
}

// Equal reports whether both models hold the same rows in the same order.
func (rm *RowModel) Equal(other *RowModel) bool {
	if rm.Len() != other.Len() {
		return false
	}
	if rm.Len() == 0 {
		return true
	}
	if !rm.ids.Equals(other.ids) {
		return false
	}
	for i, row := range rm.FlatRows {
		if other.FlatRows[i].GetId() != row.GetId() {
			return false
		}
	}
	return true
}
