package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVectorScanAndValue(t *testing.T) {
	var v Vector
	require.NoError(t, v.Scan("[0.5,-1,2]"))
	assert.Equal(t, []float64{0.5, -1, 2}, v.Floats())
	assert.Equal(t, 3, v.Dimension())

	val, err := v.Value()
	require.NoError(t, err)
	assert.Equal(t, "[0.5,-1,2]", val)
}

func TestVectorScanBytes(t *testing.T) {
	var v Vector
	require.NoError(t, v.Scan([]byte("[1,2]")))
	assert.Equal(t, []float64{1, 2}, v.Floats())
}

func TestVectorScanEmpty(t *testing.T) {
	var v Vector
	require.NoError(t, v.Scan("[]"))
	assert.Empty(t, v.Floats())

	require.NoError(t, v.Scan(""))
	assert.Empty(t, v.Floats())

	require.NoError(t, v.Scan(nil))
	assert.Empty(t, v.Floats())
}

func TestVectorScanInvalid(t *testing.T) {
	var v Vector
	assert.Error(t, v.Scan("[1,not-a-number]"))
	assert.Error(t, v.Scan(42))
}

func TestNewVectorCopies(t *testing.T) {
	floats := []float64{1, 2}
	v := NewVector(floats)
	floats[0] = 99
	assert.Equal(t, []float64{1, 2}, v.Floats())
}

func TestJSONMapRoundTrip(t *testing.T) {
	m := JSONMap{"title": "AMOXICILINA", "price": 12.5}

	val, err := m.Value()
	require.NoError(t, err)

	var decoded JSONMap
	require.NoError(t, decoded.Scan(val))
	assert.Equal(t, "AMOXICILINA", decoded["title"])
	assert.Equal(t, 12.5, decoded["price"])
}

func TestJSONMapNil(t *testing.T) {
	var m JSONMap
	val, err := m.Value()
	require.NoError(t, err)
	assert.Nil(t, val)

	var decoded JSONMap
	require.NoError(t, decoded.Scan(nil))
	assert.Nil(t, decoded)
}

func TestJSONMapScanString(t *testing.T) {
	var m JSONMap
	require.NoError(t, m.Scan(`{"a":1}`))
	assert.Equal(t, float64(1), m["a"])
}
