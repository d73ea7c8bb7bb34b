package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/fftgen"
)

func TestDecodePlans(t *testing.T) {
	t.Parallel()

	plans, err := decodePlans([]byte(`
plans:
  - name: rows
    lengths: [1024]
    batch: 8
    precision: double
  - lengths: [64, 32]
    operation: transpose
    generator: transpose_vliw
    twiddles: true
  - name: square
    operation: transpose
    placement: in-place
    lengths: [16, 16]
    inputLayout: complex-planar
`))
	require.NoError(t, err)
	require.Len(t, plans, 3)

	rows := plans[0]
	assert.Equal(t, "rows", rows.Name)
	assert.Nil(t, rows.Kind)
	assert.Equal(t, fftgen.OperationFFT, rows.Plan.Operation)
	assert.Equal(t, []int{1024}, rows.Plan.Lengths)
	assert.Equal(t, 8, rows.Plan.BatchSize)
	assert.Equal(t, fftgen.PrecisionDouble, rows.Plan.Precision)

	corner := plans[1]
	assert.Equal(t, "plan-1", corner.Name)
	require.NotNil(t, corner.Kind)
	assert.Equal(t, fftgen.GeneratorTransposeVLIW, *corner.Kind)
	assert.True(t, corner.Plan.TransposeTwiddles)

	square := plans[2]
	assert.Equal(t, fftgen.PlacementInPlace, square.Plan.Placement)
	assert.Equal(t, fftgen.LayoutComplexPlanar, square.Plan.InputLayout)
}

func TestDecodePlansErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		yaml string
	}{
		{name: "empty", yaml: ""},
		{name: "no plans", yaml: "plans: []\n"},
		{name: "unknown field", yaml: "plans:\n  - lengths: [8]\n    size: 8\n"},
		{name: "bad layout", yaml: "plans:\n  - lengths: [8]\n    inputLayout: sparse\n"},
		{name: "bad generator", yaml: "plans:\n  - lengths: [8]\n    generator: bluestein\n"},
		{name: "duplicate name", yaml: "plans:\n  - name: a\n    lengths: [8]\n  - name: a\n    lengths: [16]\n"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := decodePlans([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestSelectPlans(t *testing.T) {
	t.Parallel()

	plans := []namedPlan{{Name: "a"}, {Name: "b"}}

	got, err := selectPlans(plans, "")
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = selectPlans(plans, "b")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].Name)

	_, err = selectPlans(plans, "c")
	assert.Error(t, err)
}
