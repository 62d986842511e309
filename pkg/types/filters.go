package types

import "strings"

// Predicate decides whether a cell value passes a column filter.
type Predicate interface {
	Match(value CellValue) bool
}

type PredicateFunc func(value CellValue) bool

func (f PredicateFunc) Match(value CellValue) bool {
	return f(value)
}

// StringFilter matches cells whose text form equals one of Values. Multi
// valued cells match when any member does.
type StringFilter struct {
	Values []string `json:"value"`
}

func (f StringFilter) Match(value CellValue) bool {
	for _, v := range value.Values() {
		txt := v.String()
		for _, wanted := range f.Values {
			if txt == wanted {
				return true
			}
		}
	}
	return false
}

// RangeFilter matches numeric (or numeric looking) cells inside the inclusive
// bounds. A nil bound is open.
type RangeFilter struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

func (f RangeFilter) Match(value CellValue) bool {
	v, ok := value.Float()
	if !ok {
		return false
	}
	if f.Min != nil && v < *f.Min {
		return false
	}
	if f.Max != nil && v > *f.Max {
		return false
	}
	return true
}

// ContainsFilter matches cells whose text form contains Value, ignoring case.
type ContainsFilter struct {
	Value string `json:"value"`
}

func (f ContainsFilter) Match(value CellValue) bool {
	wanted := strings.ToLower(strings.TrimSpace(f.Value))
	for _, v := range value.Values() {
		if strings.Contains(strings.ToLower(v.String()), wanted) {
			return true
		}
	}
	return false
}

type ColumnFilter struct {
	Id        ColumnId  `json:"id"`
	Predicate Predicate `json:"-"`
}

// Filters is the ordered set of active column filters, at most one per column.
type Filters struct {
	Entries []ColumnFilter
}

func NewFilters(entries ...ColumnFilter) Filters {
	f := Filters{}
	for _, e := range entries {
		f = f.With(e.Id, e.Predicate)
	}
	return f
}

// With returns a copy where the filter for id is replaced (or appended).
func (f Filters) With(id ColumnId, predicate Predicate) Filters {
	result := Filters{
		Entries: make([]ColumnFilter, 0, len(f.Entries)+1),
	}
	replaced := false
	for _, filter := range f.Entries {
		if filter.Id == id {
			result.Entries = append(result.Entries, ColumnFilter{Id: id, Predicate: predicate})
			replaced = true
			continue
		}
		result.Entries = append(result.Entries, filter)
	}
	if !replaced {
		result.Entries = append(result.Entries, ColumnFilter{Id: id, Predicate: predicate})
	}
	return result
}

// WithOut returns a copy of the filters without the entry for id.
func (f Filters) WithOut(id ColumnId) Filters {
	result := Filters{
		Entries: make([]ColumnFilter, 0, len(f.Entries)),
	}
	for _, filter := range f.Entries {
		if filter.Id != id {
			result.Entries = append(result.Entries, filter)
		}
	}
	return result
}

// HasField reports whether column id has an active filter.
func (f Filters) HasField(id ColumnId) bool {
	_, ok := f.Get(id)
	return ok
}

func (f Filters) Get(id ColumnId) (Predicate, bool) {
	for _, filter := range f.Entries {
		if filter.Id == id {
			return filter.Predicate, true
		}
	}
	return nil, false
}

func (f Filters) Len() int {
	return len(f.Entries)
}

func (f Filters) IsEmpty() bool {
	return len(f.Entries) == 0
}

// Match reports whether the row passes every filter.
func (f Filters) Match(row Row) bool {
	for _, filter := range f.Entries {
		if filter.Predicate == nil {
			continue
		}
		if !filter.Predicate.Match(row.GetValue(filter.Id)) {
			return false
		}
	}
	return true
}
