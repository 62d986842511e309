package types

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func ptr(v float64) *float64 {
	return &v
}

func TestFiltersWithOut(t *testing.T) {
	f := NewFilters(
		ColumnFilter{Id: "a", Predicate: StringFilter{Values: []string{"x"}}},
		ColumnFilter{Id: "b", Predicate: RangeFilter{Min: ptr(1)}},
		ColumnFilter{Id: "c", Predicate: StringFilter{Values: []string{"y"}}},
	)
	without := f.WithOut("b")
	assert.Equal(t, 3, f.Len())
	assert.Equal(t, 2, without.Len())
	assert.Equal(t, ColumnId("a"), without.Entries[0].Id)
	assert.Equal(t, ColumnId("c"), without.Entries[1].Id)
	assert.True(t, f.HasField("b"))
	assert.False(t, without.HasField("b"))

	same := f.WithOut("missing")
	assert.Equal(t, f.Entries, same.Entries)
}

func TestFiltersWithReplaces(t *testing.T) {
	f := NewFilters(ColumnFilter{Id: "a", Predicate: StringFilter{Values: []string{"x"}}})
	f = f.With("b", StringFilter{Values: []string{"y"}})
	f = f.With("a", StringFilter{Values: []string{"z"}})
	assert.Equal(t, 2, f.Len())
	p, ok := f.Get("a")
	assert.True(t, ok)
	assert.Equal(t, StringFilter{Values: []string{"z"}}, p)
}

func TestFiltersMatch(t *testing.T) {
	row := NewDataRow(1, map[ColumnId]CellValue{
		"tags":  Multi(TextValue("red"), TextValue("blue")),
		"price": Text("15"),
	})
	assert.True(t, NewFilters(ColumnFilter{Id: "tags", Predicate: StringFilter{Values: []string{"blue"}}}).Match(row))
	assert.False(t, NewFilters(ColumnFilter{Id: "tags", Predicate: StringFilter{Values: []string{"green"}}}).Match(row))
	assert.True(t, NewFilters(ColumnFilter{Id: "price", Predicate: RangeFilter{Min: ptr(10), Max: ptr(15)}}).Match(row))
	assert.False(t, NewFilters(
		ColumnFilter{Id: "price", Predicate: RangeFilter{Max: ptr(10)}},
		ColumnFilter{Id: "tags", Predicate: StringFilter{Values: []string{"red"}}},
	).Match(row))
	assert.True(t, NewFilters(ColumnFilter{Id: "missing", Predicate: PredicateFunc(func(v CellValue) bool {
		return v.IsAbsent()
	})}).Match(row))
}

func TestWithSubRows(t *testing.T) {
	child := NewDataRow(2, nil)
	parent := NewDataRow(1, map[ColumnId]CellValue{"a": Text("x")}, child)
	trimmed := WithSubRows(parent, nil)
	assert.Len(t, parent.GetSubRows(), 1)
	assert.Empty(t, trimmed.GetSubRows())
	assert.Equal(t, "x", trimmed.GetValue("a").Any())
}

func TestContainsFilter(t *testing.T) {
	f := ContainsFilter{Value: "An"}
	assert.True(t, f.Match(Text("Anna")))
	assert.True(t, f.Match(Multi(TextValue("bo"), TextValue("joHAN"))))
	assert.False(t, f.Match(Text("bo")))
	assert.False(t, f.Match(Absent()))
}

func TestFiltersHasFieldShared(t *testing.T) {
	f := NewFilters(
		ColumnFilter{Id: "a", Predicate: StringFilter{Values: []string{"x"}}},
		ColumnFilter{Id: "b", Predicate: RangeFilter{Max: ptr(2)}},
	)
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.True(t, f.HasField("a"))
			assert.True(t, f.HasField("b"))
			assert.False(t, f.HasField("c"))
		}()
	}
	wg.Wait()
	assert.Equal(t, Filters{Entries: f.Entries}, f)
}

func TestCheckRowIds(t *testing.T) {
	assert.NoError(t, CheckRowIds(NewDataRow(MaxRowId, nil, NewDataRow(1, nil))))
	assert.ErrorIs(t, CheckRowIds(NewDataRow(MaxRowId+1, nil)), ErrRowIdRange)
	assert.ErrorIs(t, CheckRowIds(NewDataRow(1, nil, NewDataRow(1<<32+1, nil))), ErrRowIdRange)
}
