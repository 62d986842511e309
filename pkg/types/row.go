package types

import (
	"errors"
	"fmt"
	"math"
)

type ColumnId string

// MaxRowId is the largest row id a table accepts; row membership is kept in
// 32 bit bitmaps.
const MaxRowId = math.MaxUint32

var ErrRowIdRange = errors.New("row id does not fit in 32 bits")

// CheckRowIds returns ErrRowIdRange when row or any of its sub-rows has an id
// above MaxRowId.
func CheckRowIds(row Row) error {
	if row.GetId() > MaxRowId {
		return fmt.Errorf("%w: %d", ErrRowIdRange, row.GetId())
	}
	for _, sub := range row.GetSubRows() {
		if err := CheckRowIds(sub); err != nil {
			return err
		}
	}
	return nil
}

// Row is one record of a table. Implementations must be safe for concurrent
// reads and must not change once handed to a table.
type Row interface {
	GetId() uint
	GetValue(column ColumnId) CellValue
	GetSubRows() []Row
}

type DataRow struct {
	Id      uint                   `json:"id"`
	Values  map[ColumnId]CellValue `json:"-"`
	SubRows []Row                  `json:"-"`
}

func NewDataRow(id uint, values map[ColumnId]CellValue, subRows ...Row) *DataRow {
	if values == nil {
		values = map[ColumnId]CellValue{}
	}
	return &DataRow{
		Id:      id,
		Values:  values,
		SubRows: subRows,
	}
}

// RowFromMap builds a row from loosely typed values, see FromAny.
func RowFromMap(id uint, fields map[string]any) *DataRow {
	values := make(map[ColumnId]CellValue, len(fields))
	for key, v := range fields {
		c := FromAny(v)
		if !c.IsAbsent() {
			values[ColumnId(key)] = c
		}
	}
	return NewDataRow(id, values)
}

func (r *DataRow) GetId() uint {
	return r.Id
}

func (r *DataRow) GetValue(column ColumnId) CellValue {
	if v, ok := r.Values[column]; ok {
		return v
	}
	return Absent()
}

func (r *DataRow) GetSubRows() []Row {
	return r.SubRows
}

// WithSubRows returns a copy of the row sharing its values but holding
// another set of sub rows.
func (r *DataRow) WithSubRows(subRows []Row) *DataRow {
	return &DataRow{
		Id:      r.Id,
		Values:  r.Values,
		SubRows: subRows,
	}
}

type filteredRow struct {
	Row
	subRows []Row
}

func (r *filteredRow) GetSubRows() []Row {
	return r.subRows
}

// WithSubRows wraps any row so that it reports another set of sub rows while
// keeping its id and values.
func WithSubRows(row Row, subRows []Row) Row {
	if dr, ok := row.(*DataRow); ok {
		return dr.WithSubRows(subRows)
	}
	if fr, ok := row.(*filteredRow); ok {
		row = fr.Row
	}
	return &filteredRow{Row: row, subRows: subRows}
}
