package facet

import (
	"iter"
	"slices"

	"github.com/matst80/slask-facets/pkg/types"
)

type FieldNumberValue interface {
	int | float64
}

type NumberRange[V FieldNumberValue] struct {
	Min V `json:"min"`
	Max V `json:"max"`
}

func (r NumberRange[V]) Contains(v V) bool {
	return v >= r.Min && v <= r.Max
}

type uniqueEntry struct {
	value types.Scalar
	count int
}

// UniqueValueMap counts occurrences per distinct value. Keys use value
// equality, see types.Scalar.Key.
type UniqueValueMap struct {
	values map[types.ValueKey]*uniqueEntry
	total  int
}

func NewUniqueValueMap() *UniqueValueMap {
	return &UniqueValueMap{
		values: make(map[types.ValueKey]*uniqueEntry),
	}
}

func (m *UniqueValueMap) Add(value types.Scalar) {
	if !value.IsValid() {
		return
	}
	key := value.Key()
	if e, ok := m.values[key]; ok {
		e.count++
	} else {
		m.values[key] = &uniqueEntry{value: value, count: 1}
	}
	m.total++
}

func (m *UniqueValueMap) Count(value types.Scalar) int {
	if m == nil {
		return 0
	}
	if e, ok := m.values[value.Key()]; ok {
		return e.count
	}
	return 0
}

// Len is the number of distinct values.
func (m *UniqueValueMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.values)
}

// Total is the number of value occurrences counted.
func (m *UniqueValueMap) Total() int {
	if m == nil {
		return 0
	}
	return m.total
}

func (m *UniqueValueMap) All() iter.Seq2[types.Scalar, int] {
	return func(yield func(types.Scalar, int) bool) {
		if m == nil {
			return
		}
		for _, e := range m.values {
			if !yield(e.value, e.count) {
				return
			}
		}
	}
}

type ValueCount struct {
	Value types.Scalar
	Count int
}

// Values returns the counts ordered by count descending, ties by value.
func (m *UniqueValueMap) Values() []ValueCount {
	ret := make([]ValueCount, 0, m.Len())
	for v, c := range m.All() {
		ret = append(ret, ValueCount{Value: v, Count: c})
	}
	slices.SortFunc(ret, func(a, b ValueCount) int {
		if a.Count != b.Count {
			return b.Count - a.Count
		}
		return a.Value.Compare(b.Value)
	})
	return ret
}

// Equal reports whether both maps hold the same values with the same counts.
func (m *UniqueValueMap) Equal(other *UniqueValueMap) bool {
	if m.Len() != other.Len() || m.Total() != other.Total() {
		return false
	}
	for v, c := range m.All() {
		if other.Count(v) != c {
			return false
		}
	}
	return true
}
