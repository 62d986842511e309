package index

import (
	"fmt"
	"log"
	"slices"
	"strings"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/google/uuid"
	"github.com/matst80/slask-facets/pkg/facet"
	"github.com/matst80/slask-facets/pkg/types"
)

type TableOptions struct {
	FilterOptions
	// OnRecompute is called after a cached facet value has been recomputed.
	OnRecompute func(column types.ColumnId, kind Kind)
}

// Table owns the row data, the registered columns and the filter state, and
// answers facet queries for its columns through a FacetCache.
type Table struct {
	mu sync.RWMutex
	id uuid.UUID

	// epoch increases on every state change; each part of the state records
	// the epoch it was last changed at.
	epoch        uint64
	dataEpoch    uint64
	columnsEpoch uint64
	globalEpoch  uint64
	optionsEpoch uint64

	options      FilterOptions
	columns      map[types.ColumnId]*Column
	columnOrder  []types.ColumnId
	rows         []types.Row
	filters      types.Filters
	filterEpochs map[types.ColumnId]uint64
	global       types.Predicate
	cache        *FacetCache
}

func NewTable(opts TableOptions) *Table {
	return &Table{
		id:           uuid.New(),
		options:      opts.FilterOptions,
		columns:      make(map[types.ColumnId]*Column),
		filterEpochs: make(map[types.ColumnId]uint64),
		cache:        NewFacetCache(opts.OnRecompute),
	}
}

func (t *Table) Id() uuid.UUID {
	return t.id
}

func (t *Table) Epoch() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.epoch
}

func (t *Table) Stats() CacheStats {
	return t.cache.Stats()
}

// bump must be called with the write lock held.
func (t *Table) bump() uint64 {
	t.epoch++
	tableMutations.Inc()
	return t.epoch
}

func (t *Table) AddColumn(id types.ColumnId) *Column {
	t.mu.Lock()
	defer t.mu.Unlock()
	if c, ok := t.columns[id]; ok {
		return c
	}
	c := &Column{id: id, instance: uuid.New(), table: t}
	t.columns[id] = c
	t.columnOrder = append(t.columnOrder, id)
	t.columnsEpoch = t.bump()
	return c
}

// RemoveColumn unregisters the column and drops its cached facets. Its filter
// stays active until cleared.
func (t *Table) RemoveColumn(id types.ColumnId) {
	t.mu.Lock()
	c, ok := t.columns[id]
	if !ok {
		t.mu.Unlock()
		return
	}
	delete(t.columns, id)
	t.columnOrder = slices.DeleteFunc(slices.Clone(t.columnOrder), func(c types.ColumnId) bool {
		return c == id
	})
	t.columnsEpoch = t.bump()
	t.mu.Unlock()
	t.cache.Drop(id, c.instance)
}

// Column returns the registered column, or a detached handle answering with
// empty facets when id is unknown.
func (t *Table) Column(id types.ColumnId) *Column {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if c, ok := t.columns[id]; ok {
		return c
	}
	return &Column{id: id, table: t}
}

func (t *Table) Columns() []types.ColumnId {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return slices.Clone(t.columnOrder)
}

func (t *Table) HasColumn(id types.ColumnId) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.columns[id]
	return ok
}

// acceptRows returns the rows whose ids, sub-rows included, fit the row
// bitmaps. The others are logged and dropped.
func acceptRows(rows []types.Row) []types.Row {
	ret := make([]types.Row, 0, len(rows))
	for _, row := range rows {
		if err := types.CheckRowIds(row); err != nil {
			rejectedRows.Inc()
			log.Printf("dropping row %d: %v", row.GetId(), err)
			continue
		}
		ret = append(ret, row)
	}
	return ret
}

// SetRows replaces all row data. Rows with ids above types.MaxRowId are
// dropped.
func (t *Table) SetRows(rows []types.Row) {
	rows = acceptRows(rows)
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rows = rows
	t.dataEpoch = t.bump()
	tableRows.Set(float64(len(t.rows)))
}

// UpsertRows replaces top level rows with the same id and appends new ones.
// Rows with ids above types.MaxRowId are dropped.
func (t *Table) UpsertRows(rows ...types.Row) {
	rows = acceptRows(rows)
	if len(rows) == 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	positions := make(map[uint]int, len(t.rows))
	for i, row := range t.rows {
		positions[row.GetId()] = i
	}
	next := slices.Clone(t.rows)
	for _, row := range rows {
		if i, ok := positions[row.GetId()]; ok {
			next[i] = row
		} else {
			positions[row.GetId()] = len(next)
			next = append(next, row)
		}
	}
	t.rows = next
	t.dataEpoch = t.bump()
	tableRows.Set(float64(len(t.rows)))
}

// DeleteRows removes top level rows by id. Unknown ids are ignored.
func (t *Table) DeleteRows(ids ...uint) int {
	if len(ids) == 0 {
		return 0
	}
	toDelete := roaring.New()
	for _, id := range ids {
		if id <= types.MaxRowId {
			toDelete.Add(uint32(id))
		}
	}
	if toDelete.IsEmpty() {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	next := make([]types.Row, 0, len(t.rows))
	for _, row := range t.rows {
		if !toDelete.Contains(uint32(row.GetId())) {
			next = append(next, row)
		}
	}
	removed := len(t.rows) - len(next)
	if removed == 0 {
		return 0
	}
	t.rows = next
	t.dataEpoch = t.bump()
	tableRows.Set(float64(len(t.rows)))
	return removed
}

func (t *Table) RowCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rows)
}

// SetColumnFilter sets the filter of a column, a nil predicate clears it.
func (t *Table) SetColumnFilter(id types.ColumnId, predicate types.Predicate) {
	if predicate == nil {
		t.ClearColumnFilter(id)
		return
	}
	if id == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.filters = t.filters.With(id, predicate)
	t.filterEpochs[id] = t.bump()
}

func (t *Table) ClearColumnFilter(id types.ColumnId) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.filters.Get(id); !ok {
		return
	}
	t.filters = t.filters.WithOut(id)
	delete(t.filterEpochs, id)
	t.bump()
}

func (t *Table) ResetColumnFilters() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.filters.IsEmpty() {
		return
	}
	t.filters = types.Filters{}
	clear(t.filterEpochs)
	t.bump()
}

func (t *Table) ColumnFilters() types.Filters {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.filters
}

func (t *Table) ColumnFilter(id types.ColumnId) (types.Predicate, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.filters.Get(id)
}

// SetGlobalFilter sets a predicate matched against every registered column;
// nil clears it.
func (t *Table) SetGlobalFilter(predicate types.Predicate) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if predicate == nil && t.global == nil {
		return
	}
	t.global = predicate
	t.globalEpoch = t.bump()
}

func (t *Table) SetOptions(opts FilterOptions) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.options == opts {
		return
	}
	t.options = opts
	t.optionsEpoch = t.bump()
}

// tableState is a consistent view of everything the row models derive from.
type tableState struct {
	tableId   uuid.UUID
	epoch     uint64
	rows      []types.Row
	dataEpoch uint64
	filters   types.Filters
	global    *GlobalFilter
	options   FilterOptions
}

func (t *Table) stateLocked() tableState {
	s := tableState{
		tableId:   t.id,
		epoch:     t.epoch,
		rows:      t.rows,
		dataEpoch: t.dataEpoch,
		filters:   t.filters,
		options:   t.options,
	}
	if t.global != nil {
		s.global = &GlobalFilter{Predicate: t.global, Columns: t.columnOrder}
	}
	return s
}

// generationLocked builds the invalidation key of the row model excluding
// the filter of column. The excluded filter is left out of the key.
func (t *Table) generationLocked(column types.ColumnId) generation {
	g := generation{
		data:    t.dataEpoch,
		options: t.optionsEpoch,
	}
	if c, ok := t.columns[column]; ok {
		g.column = c.instance
	}
	if t.global != nil {
		g.global = t.globalEpoch
		g.columns = t.columnsEpoch
	}
	var sb strings.Builder
	for _, f := range t.filters.Entries {
		if f.Id == column {
			continue
		}
		fmt.Fprintf(&sb, "%s@%d;", f.Id, t.filterEpochs[f.Id])
	}
	g.filters = sb.String()
	return g
}

func (t *Table) preFilteredRowModel(s tableState) *RowModel {
	return cached(t.cache, cacheKey{kind: KindPreFiltered}, generation{data: s.dataEpoch}, func() *RowModel {
		return newRowModel(s.tableId, s.rows)
	})
}

// PreFilteredRowModel returns every row with no filter applied.
func (t *Table) PreFilteredRowModel() *RowModel {
	t.mu.RLock()
	s := t.stateLocked()
	t.mu.RUnlock()
	return t.preFilteredRowModel(s)
}

// FilteredRowModel returns the rows passing every active filter.
func (t *Table) FilteredRowModel() *RowModel {
	t.mu.RLock()
	s := t.stateLocked()
	gen := t.generationLocked("")
	t.mu.RUnlock()
	return cached(t.cache, cacheKey{kind: KindFiltered}, gen, func() *RowModel {
		return ApplyFilters(t.preFilteredRowModel(s), s.filters, s.global, s.options)
	})
}

// facetSnapshot captures what the facets of column derive from. ok is false
// for columns that are not registered.
func (t *Table) facetSnapshot(column types.ColumnId) (tableState, generation, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if _, ok := t.columns[column]; !ok {
		return tableState{}, generation{}, false
	}
	return t.stateLocked(), t.generationLocked(column), true
}

// computeFacetedRowModel applies every filter but the column's own.
func (t *Table) computeFacetedRowModel(s tableState, column types.ColumnId) *RowModel {
	return ApplyFilters(t.preFilteredRowModel(s), s.filters.WithOut(column), s.global, s.options)
}

func (t *Table) facetedRowModelAt(s tableState, gen generation, column types.ColumnId) *RowModel {
	return cached(t.cache, cacheKey{column: column, kind: KindRowModel}, gen, func() *RowModel {
		return t.computeFacetedRowModel(s, column)
	})
}

// FacetedRowModel returns the rows remaining when every filter except the
// column's own is applied. Unknown columns give an empty model.
func (t *Table) FacetedRowModel(column types.ColumnId) *RowModel {
	s, gen, ok := t.facetSnapshot(column)
	if !ok {
		return emptyRowModel(t.id)
	}
	return t.facetedRowModelAt(s, gen, column)
}

func (t *Table) uniqueValuesAt(s tableState, gen generation, column types.ColumnId) *facet.UniqueValueMap {
	return cached(t.cache, cacheKey{column: column, kind: KindUniqueValues}, gen, func() *facet.UniqueValueMap {
		return facet.UniqueValues(t.facetedRowModelAt(s, gen, column).FlatRows, column)
	})
}

type minMaxResult struct {
	value facet.NumberRange[float64]
	ok    bool
}

func (t *Table) minMaxAt(s tableState, gen generation, column types.ColumnId) minMaxResult {
	return cached(t.cache, cacheKey{column: column, kind: KindMinMax}, gen, func() minMaxResult {
		v, found := facet.MinMax(t.facetedRowModelAt(s, gen, column).FlatRows, column)
		return minMaxResult{value: v, ok: found}
	})
}

// FacetedUniqueValues counts the values of column over its faceted row model.
func (t *Table) FacetedUniqueValues(column types.ColumnId) *facet.UniqueValueMap {
	s, gen, ok := t.facetSnapshot(column)
	if !ok {
		return facet.NewUniqueValueMap()
	}
	return t.uniqueValuesAt(s, gen, column)
}

// FacetedMinMaxValues returns the numeric bounds of column over its faceted
// row model, ok is false when no row has a numeric value.
func (t *Table) FacetedMinMaxValues(column types.ColumnId) (facet.NumberRange[float64], bool) {
	s, gen, ok := t.facetSnapshot(column)
	if !ok {
		return facet.NumberRange[float64]{}, false
	}
	r := t.minMaxAt(s, gen, column)
	return r.value, r.ok
}

// ColumnFacets holds every facet of a column computed from the same table
// state.
type ColumnFacets struct {
	Column       types.ColumnId
	Epoch        uint64
	RowModel     *RowModel
	UniqueValues *facet.UniqueValueMap
	Range        facet.NumberRange[float64]
	HasRange     bool
	// Filter is the column's own filter, nil when unfiltered.
	Filter types.Predicate
}

// Facets reads the faceted row model, unique values and min/max of column
// from one snapshot. ok is false for columns that are not registered.
func (t *Table) Facets(column types.ColumnId) (ColumnFacets, bool) {
	s, gen, ok := t.facetSnapshot(column)
	if !ok {
		return ColumnFacets{Column: column}, false
	}
	r := t.minMaxAt(s, gen, column)
	ret := ColumnFacets{
		Column:       column,
		Epoch:        s.epoch,
		RowModel:     t.facetedRowModelAt(s, gen, column),
		UniqueValues: t.uniqueValuesAt(s, gen, column),
		Range:        r.value,
		HasRange:     r.ok,
	}
	ret.Filter, _ = s.filters.Get(column)
	return ret, true
}

func (t *Table) checkRowModel(rm *RowModel) error {
	if rm == nil || rm.tableId != t.id {
		return ErrForeignRowModel
	}
	return nil
}

// UniqueValuesFor counts column over a row model produced by this table.
func (t *Table) UniqueValuesFor(rm *RowModel, column types.ColumnId) (*facet.UniqueValueMap, error) {
	if err := t.checkRowModel(rm); err != nil {
		return nil, err
	}
	return facet.UniqueValues(rm.FlatRows, column), nil
}

// MinMaxFor returns the numeric bounds of column over a row model produced by
// this table.
func (t *Table) MinMaxFor(rm *RowModel, column types.ColumnId) (facet.NumberRange[float64], bool, error) {
	if err := t.checkRowModel(rm); err != nil {
		return facet.NumberRange[float64]{}, false, err
	}
	v, ok := facet.MinMax(rm.FlatRows, column)
	return v, ok, nil
}
