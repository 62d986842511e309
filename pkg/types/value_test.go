package types

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScalarFloat(t *testing.T) {
	cases := []struct {
		name  string
		value Scalar
		want  float64
		ok    bool
	}{
		{"number", NumberValue(4.5), 4.5, true},
		{"negative zero", NumberValue(math.Copysign(0, -1)), 0, true},
		{"nan", NumberValue(math.NaN()), 0, false},
		{"infinity", NumberValue(math.Inf(1)), math.Inf(1), true},
		{"numeric text", TextValue(" 12.25 "), 12.25, true},
		{"exponent text", TextValue("1e3"), 1000, true},
		{"nan text", TextValue("NaN"), 0, false},
		{"empty text", TextValue(""), 0, false},
		{"word", TextValue("twelve"), 0, false},
		{"bool", BoolValue(true), 0, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, ok := c.value.Float()
			assert.Equal(t, c.ok, ok)
			if c.ok {
				assert.Equal(t, c.want, got)
			}
		})
	}
}

func TestScalarKey(t *testing.T) {
	assert.Equal(t, NumberValue(0).Key(), NumberValue(math.Copysign(0, -1)).Key())
	assert.Equal(t, NumberValue(math.NaN()).Key(), NumberValue(math.NaN()).Key())
	assert.NotEqual(t, NumberValue(1).Key(), TextValue("1").Key())
	assert.NotEqual(t, BoolValue(true).Key(), BoolValue(false).Key())
	assert.True(t, TextValue("a").Equal(TextValue("a")))
}

func TestScalarCompare(t *testing.T) {
	assert.Equal(t, -1, NumberValue(1).Compare(NumberValue(2)))
	assert.Equal(t, -1, NumberValue(math.NaN()).Compare(NumberValue(-100)))
	assert.Equal(t, 0, NumberValue(math.NaN()).Compare(NumberValue(math.NaN())))
	assert.Equal(t, -1, NumberValue(100).Compare(TextValue("a")))
	assert.Equal(t, 1, BoolValue(true).Compare(BoolValue(false)))
}

func TestCellValue(t *testing.T) {
	assert.True(t, Absent().IsAbsent())
	assert.Nil(t, Absent().Values())

	single := Number(3)
	s, ok := single.Scalar()
	assert.True(t, ok)
	assert.Equal(t, 3.0, s.Number())

	multi := Multi(TextValue("a"), Scalar{}, NumberValue(2))
	assert.Equal(t, MultiCell, multi.Kind())
	assert.Len(t, multi.Members(), 2)
	_, ok = multi.Float()
	assert.False(t, ok)

	v, ok := Text("7").Float()
	assert.True(t, ok)
	assert.Equal(t, 7.0, v)
}

func TestFromAny(t *testing.T) {
	assert.True(t, FromAny(nil).IsAbsent())
	assert.True(t, FromAny(struct{}{}).IsAbsent())
	assert.Equal(t, ScalarCell, FromAny(float64(2)).Kind())
	assert.Equal(t, ScalarCell, FromAny("x").Kind())
	assert.Equal(t, ScalarCell, FromAny(true).Kind())

	multi := FromAny([]any{"a", 1.0, nil, map[string]any{}})
	assert.Equal(t, []Scalar{TextValue("a"), NumberValue(1)}, multi.Members())
	assert.Equal(t, []any{"a", 1.0}, multi.Any())
}
