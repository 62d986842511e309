package storage

import (
	"compress/gzip"
	"io"
	"log"
	"os"
	"slices"
	"strings"

	"github.com/matst80/slask-facets/pkg/types"
)

// Dataset is a loaded table: column ids in display order plus the rows.
type Dataset struct {
	Columns []types.ColumnId
	Rows    []types.Row
}

func isGzipped(name string) bool {
	return strings.HasSuffix(name, ".gz") || strings.HasSuffix(name, ".jz")
}

// LoadDataset reads a .csv or .json file, optionally gzipped, from the root
// folder.
func (d *DiskStorage) LoadDataset(name string) (*Dataset, error) {
	fileName, _ := d.GetFileName(name)
	file, err := os.Open(fileName)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var r io.Reader = file
	if isGzipped(name) {
		zipReader, err := gzip.NewReader(file)
		if err != nil {
			return nil, err
		}
		defer zipReader.Close()
		r = zipReader
	}

	base := strings.TrimSuffix(strings.TrimSuffix(name, ".gz"), ".jz")
	if strings.HasSuffix(base, ".csv") {
		columns, rows, err := ReadCsvRows(r)
		if err != nil {
			return nil, err
		}
		log.Printf("loaded %d rows with %d columns from %s", len(rows), len(columns), fileName)
		return &Dataset{Columns: columns, Rows: rows}, nil
	}

	rows, err := ReadJsonRows(r)
	if err != nil {
		return nil, err
	}
	columns := ColumnsOf(rows)
	log.Printf("loaded %d rows with %d columns from %s", len(rows), len(columns), fileName)
	return &Dataset{Columns: columns, Rows: rows}, nil
}

// SaveDataset writes the rows as JSON, gzipped when the name asks for it.
// The file is replaced atomically.
func (d *DiskStorage) SaveDataset(name string, dataset *Dataset) error {
	fileName, tmpFileName := d.GetFileName(name)

	file, err := os.Create(tmpFileName)
	if err != nil {
		return err
	}

	var w io.Writer = file
	var zipWriter *gzip.Writer
	if isGzipped(name) {
		zipWriter = gzip.NewWriter(file)
		w = zipWriter
	}
	err = WriteJsonRows(w, dataset.Rows, dataset.Columns)
	if zipWriter != nil {
		if cerr := zipWriter.Close(); err == nil {
			err = cerr
		}
	}
	file.Close()
	if err != nil {
		os.Remove(tmpFileName)
		return err
	}

	return os.Rename(tmpFileName, fileName)
}

// ColumnsOf returns the sorted set of column ids used by rows and their
// children. Only *types.DataRow exposes its columns.
func ColumnsOf(rows []types.Row) []types.ColumnId {
	seen := map[types.ColumnId]struct{}{}
	var walk func(rows []types.Row)
	walk = func(rows []types.Row) {
		for _, row := range rows {
			if dr, ok := row.(*types.DataRow); ok {
				for col := range dr.Values {
					seen[col] = struct{}{}
				}
			}
			walk(row.GetSubRows())
		}
	}
	walk(rows)
	ret := make([]types.ColumnId, 0, len(seen))
	for col := range seen {
		ret = append(ret, col)
	}
	slices.Sort(ret)
	return ret
}
