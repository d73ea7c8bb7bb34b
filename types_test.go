package fftgen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnumText(t *testing.T) {
	t.Parallel()

	var l Layout
	require.NoError(t, l.UnmarshalText([]byte("Hermitian_Planar")))
	assert.Equal(t, LayoutHermitianPlanar, l)
	assert.True(t, l.Hermitian())
	assert.True(t, l.Planar())
	assert.False(t, l.Complex())
	assert.Error(t, l.UnmarshalText([]byte("packed")))

	var p Precision
	require.NoError(t, p.UnmarshalText([]byte("double")))
	assert.Equal(t, "f64", p.scalar())
	assert.Equal(t, 16, p.complexSize())

	var pl Placement
	require.NoError(t, pl.UnmarshalText([]byte("in-place")))
	assert.Equal(t, PlacementInPlace, pl)

	var op Operation
	require.NoError(t, op.UnmarshalText([]byte("transpose")))
	assert.Equal(t, "transpose", op.String())

	var d Direction
	require.NoError(t, d.UnmarshalText([]byte("backward")))
	assert.InDelta(t, 1.0, d.sign(), 0)
	assert.InDelta(t, -1.0, DirectionForward.sign(), 0)

	assert.Equal(t, "unknown(9)", Layout(9).String())

	kind, err := ParseGeneratorKind("transpose-inplace")
	require.NoError(t, err)
	assert.Equal(t, GeneratorTransposeInplace, kind)
}
