package fftgen

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/fftgen/gpu"
	"github.com/cwbudde/fftgen/internal/fftypes"
)

// validPlans holds one supported plan per generator.
func validPlans() map[GeneratorKind]*Plan {
	return map[GeneratorKind]*Plan{
		GeneratorCopy: {
			Operation:    OperationCopy,
			Lengths:      []int{1024},
			OutputLayout: LayoutHermitianPlanar,
		},
		GeneratorStockham: fftPlan(1024, 4),
		GeneratorTransposeVLIW: {
			Operation: OperationTranspose,
			Lengths:   []int{48, 40},
		},
		GeneratorTransposeGCN: {
			Operation:         OperationTranspose,
			Lengths:           []int{64, 32},
			TransposeTwiddles: true,
		},
		GeneratorTransposeInplace: {
			Operation: OperationTranspose,
			Lengths:   []int{40, 40},
			Placement: PlacementInPlace,
		},
	}
}

func TestGenerateSourceDeterministic(t *testing.T) {
	t.Parallel()

	for kind, plan := range validPlans() {
		kind, plan := kind, plan
		t.Run(kind.String(), func(t *testing.T) {
			t.Parallel()

			sig1, src1, err := GenerateSource(kind, plan, testDevice())
			require.NoError(t, err)

			sig2, src2, err := GenerateSource(kind, plan, testDevice())
			require.NoError(t, err)

			assert.True(t, sig1.Equal(sig2))
			assert.Equal(t, sig1.Key(), sig2.Key())
			assert.Equal(t, *src1, *src2)
			assert.Equal(t, kind, sig1.Params.Generator())
			assert.Equal(t, kind, sig1.Kind)
		})
	}
}

func TestGeneratedSourceBothDirections(t *testing.T) {
	t.Parallel()

	for kind, plan := range validPlans() {
		kind, plan := kind, plan
		t.Run(kind.String(), func(t *testing.T) {
			t.Parallel()

			_, src, err := GenerateSource(kind, plan, testDevice())
			require.NoError(t, err)

			assert.NotEqual(t, src.Forward, src.Backward)
			assert.NotEqual(t, src.ForwardEntry, src.BackwardEntry)

			for _, dir := range []Direction{DirectionForward, DirectionBackward} {
				code, entry := src.For(dir)
				assert.Contains(t, code, "@compute")
				assert.Contains(t, code, "fn "+entry+"(")
				assert.Equal(t, strings.Count(code, "{"), strings.Count(code, "}"))
			}
		})
	}
}

func TestSignatureIncludesDevice(t *testing.T) {
	t.Parallel()

	other := testDevice()
	other.Name = "OtherGPU"

	plan := fftPlan(256)

	a, _, err := GenerateSource(GeneratorStockham, plan, testDevice())
	require.NoError(t, err)

	b, _, err := GenerateSource(GeneratorStockham, plan, other)
	require.NoError(t, err)

	assert.False(t, a.Equal(b))
	assert.NotEqual(t, a.Key(), b.Key())
	assert.Equal(t, a.Params, b.Params)
}

func TestSignatureUsableAsMapKey(t *testing.T) {
	t.Parallel()

	seen := map[Signature]GeneratorKind{}

	for kind, plan := range validPlans() {
		seen[sigFor(t, kind, plan)] = kind
	}

	require.Len(t, seen, len(validPlans()))

	for kind, plan := range validPlans() {
		assert.Equal(t, kind, seen[sigFor(t, kind, plan)])
	}
}

func TestSelectGenerator(t *testing.T) {
	t.Parallel()

	vliw := testDevice()
	vliw.Class = gpu.DeviceClassVLIW

	tests := []struct {
		name string
		plan *Plan
		dev  gpu.DeviceInfo
		want GeneratorKind
	}{
		{"copy", &Plan{Operation: OperationCopy, Lengths: []int{8}}, testDevice(), GeneratorCopy},
		{"fft", fftPlan(8), testDevice(), GeneratorStockham},
		{"square in place", &Plan{Operation: OperationTranspose, Lengths: []int{8, 8}, Placement: PlacementInPlace}, testDevice(), GeneratorTransposeInplace},
		{"out of place on gcn", &Plan{Operation: OperationTranspose, Lengths: []int{8, 8}}, testDevice(), GeneratorTransposeGCN},
		{"out of place on vliw", &Plan{Operation: OperationTranspose, Lengths: []int{8, 4}}, vliw, GeneratorTransposeVLIW},
		{"rectangular in place", &Plan{Operation: OperationTranspose, Lengths: []int{8, 4}, Placement: PlacementInPlace}, vliw, GeneratorTransposeVLIW},
	}

	for _, tt := range tests {
		got, err := SelectGenerator(tt.plan, tt.dev)
		require.NoError(t, err, tt.name)
		assert.Equal(t, tt.want, got, tt.name)
	}

	_, err := SelectGenerator(&Plan{Operation: Operation(9)}, testDevice())
	assert.ErrorIs(t, err, ErrInvalidConfiguration)

	_, err = SelectGenerator(nil, testDevice())
	assert.ErrorIs(t, err, ErrNilPlan)
}

func TestGenerateSourceUnknownGenerator(t *testing.T) {
	t.Parallel()

	_, _, err := GenerateSource(GeneratorKind(42), fftPlan(8), testDevice())
	assert.ErrorIs(t, err, ErrUnknownGenerator)
}

func TestConfigErrors(t *testing.T) {
	t.Parallel()

	noDouble := testDevice()
	noDouble.SupportsDouble = false

	tiny := testDevice()
	tiny.LocalMemSize = 256
	tiny.MaxWorkGroupSize = 16

	tests := []struct {
		name string
		kind GeneratorKind
		plan *Plan
		dev  gpu.DeviceInfo
	}{
		{"stockham prime 17", GeneratorStockham, fftPlan(17), testDevice()},
		{"stockham length 1", GeneratorStockham, fftPlan(1), testDevice()},
		{"stockham real input", GeneratorStockham, &Plan{Lengths: []int{16}, InputLayout: LayoutReal}, testDevice()},
		{"stockham in-place layout change", GeneratorStockham, &Plan{Lengths: []int{16}, Placement: PlacementInPlace, OutputLayout: LayoutComplexPlanar}, testDevice()},
		{"stockham too long for local memory", GeneratorStockham, fftPlan(8192), testDevice()},
		{"stockham double unsupported", GeneratorStockham, &Plan{Lengths: []int{16}, Precision: PrecisionDouble}, noDouble},
		{"copy in place", GeneratorCopy, &Plan{Lengths: []int{16}, Placement: PlacementInPlace}, testDevice()},
		{"copy hermitian input", GeneratorCopy, &Plan{Lengths: []int{16}, InputLayout: LayoutHermitianInterleaved}, testDevice()},
		{"copy real output", GeneratorCopy, &Plan{Lengths: []int{16}, OutputLayout: LayoutReal}, testDevice()},
		{"vliw one dimension", GeneratorTransposeVLIW, &Plan{Lengths: []int{16}}, testDevice()},
		{"vliw strided columns", GeneratorTransposeVLIW, &Plan{Lengths: []int{16, 16}, InStrides: []int{2, 32}}, testDevice()},
		{"gcn in place", GeneratorTransposeGCN, &Plan{Lengths: []int{16, 16}, Placement: PlacementInPlace}, testDevice()},
		{"gcn planar to real", GeneratorTransposeGCN, &Plan{Lengths: []int{16, 16}, OutputLayout: LayoutReal}, testDevice()},
		{"gcn no tile fits", GeneratorTransposeGCN, &Plan{Lengths: []int{16, 16}, Precision: PrecisionDouble}, tiny},
		{"inplace rectangular", GeneratorTransposeInplace, &Plan{Lengths: []int{16, 8}, Placement: PlacementInPlace}, testDevice()},
		{"inplace out of place", GeneratorTransposeInplace, &Plan{Lengths: []int{16, 16}}, testDevice()},
		{"inplace twiddles", GeneratorTransposeInplace, &Plan{Lengths: []int{16, 16}, Placement: PlacementInPlace, TransposeTwiddles: true}, testDevice()},
		{"negative batch", GeneratorCopy, &Plan{Lengths: []int{16}, BatchSize: -1}, testDevice()},
		{"copy length beyond u32", GeneratorCopy, &Plan{Lengths: []int{beyondIndex()}}, testDevice()},
		{"copy batch wraps offsets", GeneratorCopy, &Plan{Lengths: []int{1024}, BatchSize: 1 << 23}, testDevice()},
		{"stockham stride beyond u32", GeneratorStockham, &Plan{Lengths: []int{16}, InStrides: []int{beyondIndex()}}, testDevice()},
		{"stockham strided extent beyond u32", GeneratorStockham, &Plan{Lengths: []int{16, 16}, InStrides: []int{1, 1 << 30}}, testDevice()},
		{"stockham distance beyond u32", GeneratorStockham, &Plan{Lengths: []int{16}, OutDistance: beyondIndex()}, testDevice()},
		{"stockham in-place output differs", GeneratorStockham, &Plan{Lengths: []int{16}, Placement: PlacementInPlace, OutStrides: []int{2}}, testDevice()},
		{"vliw row stride beyond u32", GeneratorTransposeVLIW, &Plan{Lengths: []int{16, 16}, InStrides: []int{1, 1 << 29}}, testDevice()},
		{"gcn batch wraps offsets", GeneratorTransposeGCN, &Plan{Lengths: []int{64, 64}, BatchSize: 1 << 21}, testDevice()},
		{"inplace batch wraps offsets", GeneratorTransposeInplace, &Plan{Lengths: []int{64, 64}, Placement: PlacementInPlace, BatchSize: 1 << 21}, testDevice()},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, _, err := GenerateSource(tt.kind, tt.plan, tt.dev)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfiguration)

			var ce *ConfigError
			require.True(t, errors.As(err, &ce))
			assert.Equal(t, tt.kind, ce.Generator)
			assert.NotEmpty(t, ce.Reason)
		})
	}
}

func TestStockhamParams(t *testing.T) {
	t.Parallel()

	sig := sigFor(t, GeneratorStockham, fftPlan(1024))
	p := sig.Params.(StockhamParams)

	assert.Equal(t, 3, p.Passes)
	assert.Equal(t, []int{16, 16, 4}, p.Radices[:p.Passes])
	assert.Equal(t, 64, p.ThreadsPerTransform)
	assert.Equal(t, 1, p.TransformsPerGroup)
	assert.InDelta(t, 1.0, p.ForwardScale, 0)
	assert.InDelta(t, 1.0/1024, p.BackwardScale, 0)

	small := sigFor(t, GeneratorStockham, fftPlan(16)).Params.(StockhamParams)
	assert.Equal(t, 1, small.ThreadsPerTransform)
	assert.Equal(t, 64, small.TransformsPerGroup)

	mixed := sigFor(t, GeneratorStockham, fftPlan(60)).Params.(StockhamParams)
	assert.Equal(t, []int{4, 3, 5}, mixed.Radices[:mixed.Passes])
	assert.Equal(t, 12, mixed.ThreadsPerTransform)
	assert.Equal(t, 5, mixed.TransformsPerGroup)
}

func TestHostDeviceLimitsFollowSIMDLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		level   fftypes.SIMDLevel
		threads int
		localY  int
	}{
		{fftypes.SIMDNone, 64, 2},
		{fftypes.SIMDSSE2, 128, 4},
		{fftypes.SIMDAVX2, 256, 8},
	}

	keys := make(map[string]bool)
	for _, tt := range tests {
		dev := gpu.HostDeviceFor(tt.level)

		sig, _, err := GenerateSource(GeneratorStockham, fftPlan(4096), dev)
		require.NoError(t, err, tt.level.String())
		p := sig.Params.(StockhamParams)
		assert.Equal(t, tt.threads, p.ThreadsPerTransform, tt.level.String())
		assert.Equal(t, 1, p.TransformsPerGroup, tt.level.String())

		keys[sig.Key()] = true

		kind, err := SelectGenerator(&Plan{Operation: OperationTranspose, Lengths: []int{64, 64}}, dev)
		require.NoError(t, err)
		require.Equal(t, GeneratorTransposeGCN, kind)

		tsig, _, err := GenerateSource(kind, &Plan{Operation: OperationTranspose, Lengths: []int{64, 64}}, dev)
		require.NoError(t, err, tt.level.String())
		tp := tsig.Params.(GCNTransposeParams)
		assert.Equal(t, 32, tp.Tile, tt.level.String())
		assert.Equal(t, tt.localY, tp.LocalY, tt.level.String())
	}

	assert.Len(t, keys, len(tests))
}

func TestStockhamDirectionAsymmetry(t *testing.T) {
	t.Parallel()

	_, src, err := GenerateSource(GeneratorStockham, fftPlan(1024), testDevice())
	require.NoError(t, err)

	assert.Equal(t, "fft_fwd", src.ForwardEntry)
	assert.Equal(t, "fft_back", src.BackwardEntry)

	// Only the inverse scales by 1/N.
	assert.Contains(t, src.Backward, "* 0.0009765625)")
	assert.NotContains(t, src.Forward, "0.0009765625")

	// Twiddle steps of the second pass carry opposite signs.
	assert.Contains(t, src.Forward, "let ang = f32(j) * -")
	assert.NotContains(t, src.Backward, "let ang = f32(j) * -")
}

func TestStockhamRadix4Butterfly(t *testing.T) {
	t.Parallel()

	lit := &literals{}

	assert.Equal(t, "x0 + x1 + x2 + x3", butterflyOutput(lit, "f32", 4, 0, -1))
	assert.Equal(t, "x0 + vec2<f32>(x1.y, -x1.x) - x2 + vec2<f32>(-x3.y, x3.x)", butterflyOutput(lit, "f32", 4, 1, -1))
	assert.Equal(t, "x0 - x1 + x2 - x3", butterflyOutput(lit, "f32", 4, 2, -1))
	assert.Equal(t, "x0 + vec2<f32>(-x1.y, x1.x) - x2 + vec2<f32>(x3.y, -x3.x)", butterflyOutput(lit, "f32", 4, 1, 1))
	require.NoError(t, lit.err)
}

func TestCopyHermitianDirections(t *testing.T) {
	t.Parallel()

	plan := &Plan{Operation: OperationCopy, Lengths: []int{1024}, OutputLayout: LayoutHermitianInterleaved}

	_, src, err := GenerateSource(GeneratorCopy, plan, testDevice())
	require.NoError(t, err)

	assert.Contains(t, src.Forward, "const COUNT : u32 = 513u;")
	assert.NotContains(t, src.Forward, "-m.y")

	assert.Contains(t, src.Backward, "const COUNT : u32 = 1024u;")
	assert.Contains(t, src.Backward, "v = vec2<f32>(m.x, -m.y);")
}

func TestCopyPlanarBindings(t *testing.T) {
	t.Parallel()

	plan := &Plan{
		Operation:    OperationCopy,
		Lengths:      []int{64},
		InputLayout:  LayoutComplexPlanar,
		OutputLayout: LayoutComplexInterleaved,
		Precision:    PrecisionDouble,
	}

	_, src, err := GenerateSource(GeneratorCopy, plan, testDevice())
	require.NoError(t, err)

	assert.Contains(t, src.Forward, "var<storage, read> src_re : array<f64>;")
	assert.Contains(t, src.Forward, "var<storage, read_write> dst : array<vec2<f64>>;")
	// The backward copy runs from the interleaved side to the planar side.
	assert.Contains(t, src.Backward, "var<storage, read> src : array<vec2<f64>>;")
	assert.Contains(t, src.Backward, "dst_im[i] = v.y;")
}

func TestTransposeTiles(t *testing.T) {
	t.Parallel()

	plan := &Plan{Operation: OperationTranspose, Lengths: []int{64, 32}}

	vliw := sigFor(t, GeneratorTransposeVLIW, plan).Params.(VLIWTransposeParams)
	assert.Equal(t, 16, vliw.Tile)
	assert.Equal(t, 16, vliw.LocalX)
	assert.Equal(t, 4, vliw.LocalY)
	assert.Equal(t, 32, vliw.Rows)
	assert.Equal(t, 64, vliw.Cols)
	assert.Equal(t, 32, vliw.Out.Strides[1])

	gcn := sigFor(t, GeneratorTransposeGCN, plan).Params.(GCNTransposeParams)
	assert.Equal(t, 32, gcn.Tile)
	assert.Equal(t, 8, gcn.LocalY)
	assert.Equal(t, 1, gcn.Pad)

	narrow := testDevice()
	narrow.MaxWorkGroupSize = 64

	sig, _, err := GenerateSource(GeneratorTransposeGCN, plan, narrow)
	require.NoError(t, err)
	assert.Equal(t, 32, sig.Params.(GCNTransposeParams).Tile)
	assert.Equal(t, 2, sig.Params.(GCNTransposeParams).LocalY)

	smallLDS := testDevice()
	smallLDS.LocalMemSize = 4096
	sig, _, err = GenerateSource(GeneratorTransposeGCN, plan, smallLDS)
	require.NoError(t, err)
	assert.Equal(t, 16, sig.Params.(GCNTransposeParams).Tile)
	assert.Equal(t, 8, sig.Params.(GCNTransposeParams).LocalY)
}

func TestTransposeTwiddleSign(t *testing.T) {
	t.Parallel()

	plan := &Plan{Operation: OperationTranspose, Lengths: []int{64, 32}, TransposeTwiddles: true}

	_, src, err := GenerateSource(GeneratorTransposeGCN, plan, testDevice())
	require.NoError(t, err)

	assert.Contains(t, src.Forward, "const TW_STEP : f32 = -")
	assert.Contains(t, src.Backward, "const TW_STEP : f32 = 0.")

	_, plain, err := GenerateSource(GeneratorTransposeGCN, &Plan{Operation: OperationTranspose, Lengths: []int{64, 32}}, testDevice())
	require.NoError(t, err)
	assert.NotContains(t, plain.Forward, "twiddle")
}

func TestInplaceTransposeTile(t *testing.T) {
	t.Parallel()

	plan := &Plan{Operation: OperationTranspose, Lengths: []int{64, 64}, Placement: PlacementInPlace}

	p := sigFor(t, GeneratorTransposeInplace, plan).Params.(InplaceTransposeParams)
	assert.Equal(t, 16, p.Tile)
	assert.Equal(t, 64, p.N)

	small := testDevice()
	small.MaxWorkGroupSize = 128

	sig, src, err := GenerateSource(GeneratorTransposeInplace, plan, small)
	require.NoError(t, err)
	assert.Equal(t, 8, sig.Params.(InplaceTransposeParams).Tile)
	assert.Contains(t, src.Forward, "var<storage, read_write> data : array<vec2<f32>>;")
	assert.Contains(t, src.Forward, "const TILES : u32 = 8u;")
}
