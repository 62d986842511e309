package index

import (
	"github.com/google/uuid"
	"github.com/matst80/slask-facets/pkg/facet"
	"github.com/matst80/slask-facets/pkg/types"
)

// Column is a handle to one column of a table. The facet accessors are safe
// to call at any time, also after the column has been removed.
type Column struct {
	id       types.ColumnId
	instance uuid.UUID
	table    *Table
}

func (c *Column) Id() types.ColumnId {
	return c.id
}

// IsRegistered reports whether this handle is the column currently
// registered under its id.
func (c *Column) IsRegistered() bool {
	c.table.mu.RLock()
	defer c.table.mu.RUnlock()
	current, ok := c.table.columns[c.id]
	return ok && current.instance == c.instance
}

func (c *Column) FacetedRowModel() *RowModel {
	return c.table.FacetedRowModel(c.id)
}

func (c *Column) FacetedUniqueValues() *facet.UniqueValueMap {
	return c.table.FacetedUniqueValues(c.id)
}

func (c *Column) FacetedMinMaxValues() (facet.NumberRange[float64], bool) {
	return c.table.FacetedMinMaxValues(c.id)
}

// FilterValue returns the column's own filter.
func (c *Column) FilterValue() (types.Predicate, bool) {
	return c.table.ColumnFilter(c.id)
}

func (c *Column) IsFiltered() bool {
	_, ok := c.FilterValue()
	return ok
}

func (c *Column) SetFilter(predicate types.Predicate) {
	c.table.SetColumnFilter(c.id, predicate)
}
