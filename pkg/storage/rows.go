package storage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/matst80/slask-facets/pkg/common/jsoncompat"
	"github.com/matst80/slask-facets/pkg/types"
)

var ErrNoHeader = errors.New("csv file has no header row")

const (
	CsvSeparator   = ';'
	MultiSeparator = "|"
	idColumn       = "id"
)

// JsonRow is the stored form of a row and its children.
type JsonRow struct {
	Id       uint           `json:"id"`
	Values   map[string]any `json:"values"`
	Children []JsonRow      `json:"children,omitempty"`
}

func (r JsonRow) ToRow() *types.DataRow {
	ret := types.RowFromMap(r.Id, r.Values)
	for _, child := range r.Children {
		ret.SubRows = append(ret.SubRows, child.ToRow())
	}
	return ret
}

// ToJsonRow encodes the given columns of row and its children.
func ToJsonRow(row types.Row, columns []types.ColumnId) JsonRow {
	ret := JsonRow{
		Id:     row.GetId(),
		Values: make(map[string]any, len(columns)),
	}
	for _, col := range columns {
		if v := row.GetValue(col); !v.IsAbsent() {
			ret.Values[string(col)] = v.Any()
		}
	}
	for _, child := range row.GetSubRows() {
		ret.Children = append(ret.Children, ToJsonRow(child, columns))
	}
	return ret
}

// ToRows converts stored rows, failing on ids above types.MaxRowId.
func ToRows(stored []JsonRow) ([]types.Row, error) {
	rows := make([]types.Row, len(stored))
	for i, s := range stored {
		row := s.ToRow()
		if err := types.CheckRowIds(row); err != nil {
			return nil, err
		}
		rows[i] = row
	}
	return rows, nil
}

// ReadJsonRows decodes a JSON array of rows.
func ReadJsonRows(r io.Reader) ([]types.Row, error) {
	var stored []JsonRow
	if err := jsoncompat.NewDecoder(r).Decode(&stored); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return ToRows(stored)
}

func WriteJsonRows(w io.Writer, rows []types.Row, columns []types.ColumnId) error {
	stored := make([]JsonRow, len(rows))
	for i, row := range rows {
		stored[i] = ToJsonRow(row, columns)
	}
	return jsoncompat.NewEncoder(w).Encode(stored)
}

// ReadCsvRows reads a semicolon separated file. The first line names the
// columns; an "id" column sets row ids, otherwise rows are numbered from one.
// Empty cells are absent and cells containing "|" are multi valued.
func ReadCsvRows(r io.Reader) ([]types.ColumnId, []types.Row, error) {
	csvReader := csv.NewReader(r)
	csvReader.Comma = CsvSeparator
	csvReader.FieldsPerRecord = -1
	header, err := csvReader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, ErrNoHeader
	}
	if err != nil {
		return nil, nil, err
	}
	columns := make([]types.ColumnId, 0, len(header))
	idIdx := -1
	for i, name := range header {
		name = strings.TrimSpace(name)
		if name == idColumn {
			idIdx = i
			continue
		}
		columns = append(columns, types.ColumnId(name))
	}

	rows := make([]types.Row, 0)
	line := 1
	for {
		record, err := csvReader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, err
		}
		line++
		id := uint(line - 1)
		values := make(map[types.ColumnId]types.CellValue, len(record))
		col := 0
		for i, cell := range record {
			if i == idIdx {
				parsed, err := strconv.ParseUint(strings.TrimSpace(cell), 10, 32)
				if err != nil {
					return nil, nil, fmt.Errorf("line %d: invalid id %q: %w", line, cell, err)
				}
				id = uint(parsed)
				continue
			}
			if col >= len(columns) {
				break
			}
			if v := parseCsvCell(cell); !v.IsAbsent() {
				values[columns[col]] = v
			}
			col++
		}
		rows = append(rows, types.NewDataRow(id, values))
	}
	return columns, rows, nil
}

func parseCsvCell(cell string) types.CellValue {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return types.Absent()
	}
	if !strings.Contains(cell, MultiSeparator) {
		return types.Text(cell)
	}
	parts := strings.Split(cell, MultiSeparator)
	members := make([]types.Scalar, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		members = append(members, types.TextValue(part))
	}
	return types.Multi(members...)
}
