package fftgen

import (
	"fmt"

	"github.com/cwbudde/fftgen/gpu"
	"github.com/cwbudde/fftgen/internal/codegen"
	"github.com/cwbudde/fftgen/internal/fft"
	mathpkg "github.com/cwbudde/fftgen/internal/math"
)

const (
	inplaceTile      = 16
	inplaceSmallTile = 8
)

// inplaceTransposeGenerator transposes a square matrix inside its own
// buffer. Each work-group owns one tile pair (i, j) with i <= j of the
// upper triangle, loads both tiles and writes each into the other's place.
type inplaceTransposeGenerator struct{ family }

func (g inplaceTransposeGenerator) initParams(p *Plan, dev gpu.DeviceInfo) (SignatureParams, error) {
	kind := g.Generator()

	if err := checkCommon(kind, p, dev); err != nil {
		return nil, err
	}

	if len(p.Lengths) != 2 {
		return nil, configErrorf(kind, "transpose needs 2 dimensions, plan has %d", len(p.Lengths))
	}

	if err := checkLengths(p.Lengths); err != nil {
		return nil, configErrorf(kind, "%v", err)
	}

	n := p.Lengths[0]
	if p.Lengths[1] != n {
		return nil, configErrorf(kind, "matrix %dx%d is not square", p.Lengths[1], n)
	}

	if !p.inPlace() {
		return nil, configErrorf(kind, "out-of-place plans use the tiled transposes")
	}

	if !p.InputLayout.Complex() || p.InputLayout != p.OutputLayout {
		return nil, configErrorf(kind, "layouts %s -> %s, want one complex layout", p.InputLayout, p.OutputLayout)
	}

	if p.TransposeTwiddles {
		return nil, configErrorf(kind, "fused twiddles are not supported in place")
	}

	data, err := resolveAddressing(p.InputLayout, []int{n, n}, p.InStrides, p.InDistance)
	if err != nil {
		return nil, configErrorf(kind, "%v", err)
	}

	if p.OutStrides != nil || p.OutDistance != 0 {
		out, err := resolveAddressing(p.OutputLayout, []int{n, n}, p.OutStrides, p.OutDistance)
		if err != nil || out != data {
			return nil, configErrorf(kind, "output addressing differs from input addressing")
		}
	}

	if data.Strides[0] != 1 {
		return nil, configErrorf(kind, "column stride %d, want unit stride", data.Strides[0])
	}

	if err := checkBatch(data, []int{n, n}, p.batch()); err != nil {
		return nil, configErrorf(kind, "%v", err)
	}

	tile := inplaceTile
	limit := localLimit(dev.MaxWorkGroupSize)
	lds := func(tile int) int { return 2 * tile * (tile + 1) * p.Precision.complexSize() }

	if tile*tile > limit || (dev.LocalMemSize > 0 && lds(tile) > dev.LocalMemSize) {
		tile = inplaceSmallTile
	}

	if tile*tile > limit || (dev.LocalMemSize > 0 && lds(tile) > dev.LocalMemSize) {
		return nil, configErrorf(kind, "no tile fits the device (work-group limit %d, %d bytes of local memory)",
			limit, dev.LocalMemSize)
	}

	return InplaceTransposeParams{
		N:         n,
		Data:      data,
		Precision: p.Precision,
		Tile:      tile,
	}, nil
}

func (g inplaceTransposeGenerator) generateKernel(sp SignatureParams) (*KernelSource, error) {
	p, err := paramsAs[InplaceTransposeParams](sp)
	if err != nil {
		return nil, err
	}

	fwd, err := renderInplaceTranspose(p, DirectionForward)
	if err != nil {
		return nil, err
	}

	bwd, err := renderInplaceTranspose(p, DirectionBackward)
	if err != nil {
		return nil, err
	}

	return &KernelSource{
		Forward:       fwd,
		Backward:      bwd,
		ForwardEntry:  "transpose_inplace_" + DirectionForward.suffix(),
		BackwardEntry: "transpose_inplace_" + DirectionBackward.suffix(),
	}, nil
}

func (g inplaceTransposeGenerator) workSizes(sp SignatureParams, plan *Plan, _ gpu.DeviceInfo) (WorkSizes, error) {
	p, err := paramsAs[InplaceTransposeParams](sp)
	if err != nil {
		return WorkSizes{}, err
	}

	pairs := fft.TriangleTileCount(mathpkg.CeilDiv(p.N, p.Tile))

	return WorkSizes{
		Global: []int{pairs * p.Tile, p.Tile, plan.batch()},
		Local:  []int{p.Tile, p.Tile, 1},
	}, nil
}

func renderInplaceTranspose(p InplaceTransposeParams, dir Direction) (string, error) {
	w := &codegen.Writer{}
	t := p.Precision.scalar()
	tiles := mathpkg.CeilDiv(p.N, p.Tile)

	emitHeader(w, GeneratorTransposeInplace, dir, fmt.Sprintf("%dx%d matrix, tile %d, %d tile pairs",
		p.N, p.N, p.Tile, fft.TriangleTileCount(tiles)))

	emitBuffers(w, kernelIO{src: p.Data.Layout, dst: p.Data.Layout, inPlace: true, scalar: t})

	w.Linef("const N : u32 = %s;", codegen.Uint(p.N))
	w.Linef("const TILE : u32 = %s;", codegen.Uint(p.Tile))
	w.Linef("const TILES : u32 = %s;", codegen.Uint(tiles))
	w.Linef("const LDS_STRIDE : u32 = %s;", codegen.Uint(p.Tile+1))
	w.Linef("const ROW : u32 = %s;", codegen.Uint(p.Data.Strides[1]))
	w.Linef("const DIST : u32 = %s;", codegen.Uint(p.Data.Distance))
	w.Blank()
	w.Linef("var<workgroup> tile_a : array<vec2<%s>, %d>;", t, p.Tile*(p.Tile+1))
	w.Linef("var<workgroup> tile_b : array<vec2<%s>, %d>;", t, p.Tile*(p.Tile+1))
	w.Blank()

	w.Linef("@compute @workgroup_size(%d, %d, 1)", p.Tile, p.Tile)
	w.Open("fn transpose_inplace_%s(@builtin(local_invocation_id) lid : vec3<u32>, @builtin(workgroup_id) wg : vec3<u32>)", dir.suffix())
	w.Line("// upper-triangle walk: tile pair (row, col) with row <= col")
	w.Line("var row = 0u;")
	w.Line("var rem = wg.x;")
	w.Open("loop")
	w.Open("if (row >= TILES || rem < TILES - row)")
	w.Line("break;")
	w.Close()
	w.Line("rem = rem - (TILES - row);")
	w.Line("row = row + 1u;")
	w.Close()
	w.Line("let col = row + rem;")
	w.Line("let base = wg.z * DIST;")
	w.Blank()
	w.Line("let ar = row * TILE + lid.y;")
	w.Line("let ac = col * TILE + lid.x;")
	w.Line("let br = col * TILE + lid.y;")
	w.Line("let bc = row * TILE + lid.x;")
	w.Line("let a_ok = ar < N && ac < N;")
	w.Line("let b_ok = br < N && bc < N;")
	w.Open("if (a_ok)")
	w.Line("tile_a[lid.y * LDS_STRIDE + lid.x] = load_src(base + ar * ROW + ac);")
	w.Close()
	w.Open("if (b_ok)")
	w.Line("tile_b[lid.y * LDS_STRIDE + lid.x] = load_src(base + br * ROW + bc);")
	w.Close()
	w.Line("workgroupBarrier();")
	w.Open("if (a_ok)")
	w.Line("store_dst(base + ar * ROW + ac, tile_b[lid.x * LDS_STRIDE + lid.y]);")
	w.Close()
	w.Open("if (b_ok)")
	w.Line("store_dst(base + br * ROW + bc, tile_a[lid.x * LDS_STRIDE + lid.y]);")
	w.Close()
	w.Close()

	return finish(w, nil)
}
