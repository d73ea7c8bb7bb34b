package fftgen

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/fftgen/gpu"
)

func TestWorkSizesValidate(t *testing.T) {
	t.Parallel()

	ok := WorkSizes{Global: []int{1024, 3}, Local: []int{64, 1}}
	require.NoError(t, ok.Validate(256))
	assert.Equal(t, []int{16, 3}, ok.Groups())
	assert.Equal(t, 64, ok.LocalSize())

	bad := []WorkSizes{
		{},
		{Global: []int{64}, Local: []int{64, 1}},
		{Global: []int{100}, Local: []int{64}},
		{Global: []int{0}, Local: []int{64}},
		{Global: []int{512, 2}, Local: []int{256, 2}},
		{Global: []int{1, 1, 1, 1}, Local: []int{1, 1, 1, 1}},
	}

	for i, ws := range bad {
		assert.Error(t, ws.Validate(256), "case %d: %+v", i, ws)
	}
}

func TestCopy1024WorkSizes(t *testing.T) {
	t.Parallel()

	gen := generators[GeneratorCopy]
	plan := &Plan{Operation: OperationCopy, Lengths: []int{1024}}

	params, err := gen.initParams(plan, testDevice())
	require.NoError(t, err)

	ws, err := gen.workSizes(params, plan, testDevice())
	require.NoError(t, err)

	assert.Equal(t, []int{1024, 1}, ws.Global)
	assert.Equal(t, []int{64, 1}, ws.Local)
	assert.Equal(t, 16, ws.Groups()[0])
}

// TestWorkSizesGrid checks the launch geometry of every generator over a
// range of shapes and batch counts.
func TestWorkSizesGrid(t *testing.T) {
	t.Parallel()

	narrow := testDevice()
	narrow.MaxWorkGroupSize = 64

	var plans []*Plan

	for _, batch := range []int{0, 1, 3, 100} {
		for _, n := range []int{2, 3, 8, 16, 60, 64, 100, 1024, 4096} {
			plans = append(plans,
				&Plan{Operation: OperationFFT, Lengths: []int{n}, BatchSize: batch},
				&Plan{Operation: OperationFFT, Lengths: []int{n, 3}, BatchSize: batch},
			)
		}

		for _, n := range []int{1, 7, 64, 1000, 1024} {
			plans = append(plans,
				&Plan{Operation: OperationCopy, Lengths: []int{n, 2, 2}, BatchSize: batch},
				&Plan{Operation: OperationCopy, Lengths: []int{n}, OutputLayout: LayoutHermitianInterleaved, BatchSize: batch},
			)
		}

		for _, shape := range [][2]int{{16, 16}, {33, 17}, {100, 64}, {1, 40}} {
			shape := shape
			plans = append(plans, &Plan{Operation: OperationTranspose, Lengths: shape[:], BatchSize: batch})
		}

		for _, n := range []int{1, 16, 33, 64} {
			plans = append(plans, &Plan{Operation: OperationTranspose, Lengths: []int{n, n}, Placement: PlacementInPlace, BatchSize: batch})
		}
	}

	for _, kind := range []GeneratorKind{GeneratorTransposeVLIW, GeneratorTransposeGCN} {
		for _, dev := range []gpu.DeviceInfo{testDevice(), narrow} {
			for _, plan := range plans {
				if plan.Operation != OperationTranspose || plan.inPlace() {
					continue
				}
				checkWorkSizes(t, kind, plan, dev)
			}
		}
	}

	for _, plan := range plans {
		kind, err := SelectGenerator(plan, testDevice())
		require.NoError(t, err)

		checkWorkSizes(t, kind, plan, testDevice())
		checkWorkSizes(t, kind, plan, narrow)
	}
}

func checkWorkSizes(t *testing.T, kind GeneratorKind, plan *Plan, dev gpu.DeviceInfo) {
	t.Helper()

	name := fmt.Sprintf("%s %v batch %d max %d", kind, plan.Lengths, plan.BatchSize, dev.MaxWorkGroupSize)

	gen := generators[kind]

	params, err := gen.initParams(plan, dev)
	require.NoError(t, err, name)

	ws, err := gen.workSizes(params, plan, dev)
	require.NoError(t, err, name)

	require.NoError(t, ws.Validate(localLimit(dev.MaxWorkGroupSize)), name)

	for d, g := range ws.Groups() {
		assert.Positive(t, g, "%s: dimension %d", name, d)
	}

	assert.LessOrEqual(t, ws.LocalSize(), dev.MaxWorkGroupSize, name)
}
