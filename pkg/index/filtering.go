package index

import (
	"github.com/matst80/slask-facets/pkg/types"
)

type FilterOptions struct {
	// FilterFromLeafRows keeps a parent row when any of its descendants pass,
	// otherwise filtering starts at the roots and a failing parent drops its
	// whole subtree.
	FilterFromLeafRows bool
	// MaxLeafRowFilterDepth stops filtering below this depth, deeper rows are
	// kept as they are. Zero means no limit.
	MaxLeafRowFilterDepth int
}

// GlobalFilter matches a row when the predicate accepts the value of at least
// one of the columns.
type GlobalFilter struct {
	Predicate types.Predicate
	Columns   []types.ColumnId
}

func (g *GlobalFilter) isActive() bool {
	return g != nil && g.Predicate != nil
}

func (g *GlobalFilter) Match(row types.Row) bool {
	if !g.isActive() {
		return true
	}
	for _, col := range g.Columns {
		if g.Predicate.Match(row.GetValue(col)) {
			return true
		}
	}
	return false
}

// ApplyFilters is the filtering reduction of a table: it keeps the rows of
// pre passing every column filter and the global filter, then rebuilds the
// hierarchy according to opts. pre is returned as is when nothing filters.
func ApplyFilters(pre *RowModel, filters types.Filters, global *GlobalFilter, opts FilterOptions) *RowModel {
	if filters.IsEmpty() && !global.isActive() {
		return pre
	}
	pass := func(row types.Row) bool {
		return filters.Match(row) && global.Match(row)
	}
	var rows []types.Row
	if opts.FilterFromLeafRows {
		rows = filterFromLeafs(pre.Rows, pass, 0, opts.MaxLeafRowFilterDepth)
	} else {
		rows = filterFromRoots(pre.Rows, pass, 0, opts.MaxLeafRowFilterDepth)
	}
	return newRowModel(pre.tableId, rows)
}

func belowDepthLimit(depth, maxDepth int) bool {
	return maxDepth <= 0 || depth < maxDepth
}

func filterFromRoots(rows []types.Row, pass func(types.Row) bool, depth, maxDepth int) []types.Row {
	ret := make([]types.Row, 0, len(rows))
	for _, row := range rows {
		if !pass(row) {
			continue
		}
		if sub := row.GetSubRows(); len(sub) > 0 && belowDepthLimit(depth, maxDepth) {
			row = types.WithSubRows(row, filterFromRoots(sub, pass, depth+1, maxDepth))
		}
		ret = append(ret, row)
	}
	return ret
}

func filterFromLeafs(rows []types.Row, pass func(types.Row) bool, depth, maxDepth int) []types.Row {
	ret := make([]types.Row, 0, len(rows))
	for _, row := range rows {
		sub := row.GetSubRows()
		if len(sub) == 0 || !belowDepthLimit(depth, maxDepth) {
			if pass(row) {
				ret = append(ret, row)
			}
			continue
		}
		kept := filterFromLeafs(sub, pass, depth+1, maxDepth)
		if len(kept) > 0 || pass(row) {
			ret = append(ret, types.WithSubRows(row, kept))
		}
	}
	return ret
}
