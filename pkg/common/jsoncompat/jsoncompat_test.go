package jsoncompat

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string   `json:"name"`
	Count int      `json:"count"`
	Tags  []string `json:"tags,omitempty"`
}

func TestEncoderDecoder(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewEncoder(&buf).Encode(sample{Name: "status", Count: 3}))

	var out sample
	require.NoError(t, NewDecoder(&buf).Decode(&out))
	assert.Equal(t, sample{Name: "status", Count: 3}, out)
}

func TestUnmarshalIntoAny(t *testing.T) {
	var out map[string]any
	require.NoError(t, Unmarshal([]byte(`{"a":1.5,"b":["x"],"c":null}`), &out))
	assert.Equal(t, 1.5, out["a"])
	assert.Equal(t, []any{"x"}, out["b"])
	assert.Nil(t, out["c"])
}
