package facet

import (
	"math"
	"testing"

	"github.com/matst80/slask-facets/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rowsWith(column types.ColumnId, values ...types.CellValue) []types.Row {
	ret := make([]types.Row, len(values))
	for i, v := range values {
		ret[i] = types.NewDataRow(uint(i+1), map[types.ColumnId]types.CellValue{column: v})
	}
	return ret
}

func TestUniqueValues(t *testing.T) {
	rows := rowsWith("tags",
		types.Text("open"),
		types.Absent(),
		types.Multi(types.TextValue("open"), types.TextValue("new"), types.TextValue("open")),
		types.Number(1),
		types.Text("1"),
	)
	m := UniqueValues(rows, "tags")
	assert.Equal(t, 3, m.Count(types.TextValue("open")))
	assert.Equal(t, 1, m.Count(types.TextValue("new")))
	assert.Equal(t, 1, m.Count(types.NumberValue(1)))
	assert.Equal(t, 1, m.Count(types.TextValue("1")))
	assert.Equal(t, 4, m.Len())
	assert.Equal(t, 6, m.Total())

	for _, c := range m.All() {
		assert.Positive(t, c)
	}
}

func TestUniqueValuesNumericKeys(t *testing.T) {
	rows := rowsWith("n",
		types.Number(math.NaN()),
		types.Number(math.NaN()),
		types.Number(0),
		types.Number(math.Copysign(0, -1)),
	)
	m := UniqueValues(rows, "n")
	assert.Equal(t, 2, m.Len())
	assert.Equal(t, 2, m.Count(types.NumberValue(math.NaN())))
	assert.Equal(t, 2, m.Count(types.NumberValue(0)))
}

func TestUniqueValuesSorted(t *testing.T) {
	rows := rowsWith("s", types.Text("b"), types.Text("a"), types.Text("c"), types.Text("c"))
	values := UniqueValues(rows, "s").Values()
	require.Len(t, values, 3)
	assert.Equal(t, "c", values[0].Value.String())
	assert.Equal(t, "a", values[1].Value.String())
	assert.Equal(t, "b", values[2].Value.String())
}

func TestUniqueValuesMissingColumn(t *testing.T) {
	m := UniqueValues(rowsWith("a", types.Text("x")), "b")
	assert.Equal(t, 0, m.Len())
	assert.Equal(t, 0, m.Total())
}

func TestMinMax(t *testing.T) {
	rows := rowsWith("price",
		types.Text("abc"),
		types.Number(5),
		types.Absent(),
		types.Text("-2.5"),
		types.Number(math.NaN()),
		types.Multi(types.NumberValue(-100), types.NumberValue(100)),
		types.Number(12),
		types.Bool(true),
	)
	r, ok := MinMax(rows, "price")
	require.True(t, ok)
	assert.Equal(t, NumberRange[float64]{Min: -2.5, Max: 12}, r)
	for _, row := range rows {
		if v, ok := row.GetValue("price").Float(); ok {
			assert.True(t, r.Contains(v))
		}
	}
}

func TestMinMaxAbsent(t *testing.T) {
	_, ok := MinMax(nil, "price")
	assert.False(t, ok)

	_, ok = MinMax(rowsWith("price", types.Text("n/a"), types.Absent(), types.Number(math.NaN())), "price")
	assert.False(t, ok)

	r, ok := MinMax(rowsWith("price", types.Number(0)), "price")
	assert.True(t, ok)
	assert.Equal(t, NumberRange[float64]{}, r)
}
