package fftgen

import (
	"fmt"

	"github.com/cwbudde/fftgen/gpu"
	"github.com/cwbudde/fftgen/internal/codegen"
	mathpkg "github.com/cwbudde/fftgen/internal/math"
)

const minTile = 4

// tiledTranspose is the kernel shape shared by the out-of-place transposes.
// A work-group stages one TILE x TILE block in local memory; LocalX equals
// the tile width and each work-item covers TILE/LocalY rows.
type tiledTranspose struct {
	kind       GeneratorKind
	rows, cols int
	in, out    Addressing
	precision  Precision
	twiddles   bool
	tile       int
	ly         int
	pad        int
}

// transposeEnvelope holds the plan facts both out-of-place transposes need.
type transposeEnvelope struct {
	rows, cols int
	in, out    Addressing
}

// resolveTranspose checks a plan against the out-of-place transpose
// envelope. The input is a rows x cols matrix with columns contiguous;
// the output is cols x rows.
func resolveTranspose(kind GeneratorKind, p *Plan, dev gpu.DeviceInfo) (transposeEnvelope, error) {
	var env transposeEnvelope

	if err := checkCommon(kind, p, dev); err != nil {
		return env, err
	}

	if len(p.Lengths) != 2 {
		return env, configErrorf(kind, "transpose needs 2 dimensions, plan has %d", len(p.Lengths))
	}

	if err := checkLengths(p.Lengths); err != nil {
		return env, configErrorf(kind, "%v", err)
	}

	if p.inPlace() {
		return env, configErrorf(kind, "in-place transpose needs the in-place generator")
	}

	if !p.InputLayout.Complex() || !p.OutputLayout.Complex() {
		return env, configErrorf(kind, "layouts %s -> %s are not complex", p.InputLayout, p.OutputLayout)
	}

	env.cols, env.rows = p.Lengths[0], p.Lengths[1]

	in, err := resolveAddressing(p.InputLayout, []int{env.cols, env.rows}, p.InStrides, p.InDistance)
	if err != nil {
		return env, configErrorf(kind, "input: %v", err)
	}

	out, err := resolveAddressing(p.OutputLayout, []int{env.rows, env.cols}, p.OutStrides, p.OutDistance)
	if err != nil {
		return env, configErrorf(kind, "output: %v", err)
	}

	if in.Strides[0] != 1 || out.Strides[0] != 1 {
		return env, configErrorf(kind, "column strides %d/%d, want unit strides", in.Strides[0], out.Strides[0])
	}

	if err := checkBatch(in, []int{env.cols, env.rows}, p.batch()); err != nil {
		return env, configErrorf(kind, "input: %v", err)
	}
	if err := checkBatch(out, []int{env.rows, env.cols}, p.batch()); err != nil {
		return env, configErrorf(kind, "output: %v", err)
	}

	env.in, env.out = in, out

	return env, nil
}

// fitTile shrinks the work-group rows to the device limit and halves the
// tile until its local-memory block fits.
func fitTile(kind GeneratorKind, tile, ly, pad int, prec Precision, dev gpu.DeviceInfo) (int, int, error) {
	limit := localLimit(dev.MaxWorkGroupSize)
	elem := prec.complexSize()

	for ; tile >= minTile; tile /= 2 {
		rows := min(ly, tile)
		for rows > 1 && tile*rows > limit {
			rows /= 2
		}

		if tile*rows > limit {
			continue
		}

		if dev.LocalMemSize > 0 && tile*(tile+pad)*elem > dev.LocalMemSize {
			continue
		}

		return tile, rows, nil
	}

	return 0, 0, configErrorf(kind, "no tile fits the device (work-group limit %d, %d bytes of local memory)",
		limit, dev.LocalMemSize)
}

func (s tiledTranspose) source() (*KernelSource, error) {
	fwd, err := s.render(DirectionForward)
	if err != nil {
		return nil, err
	}

	bwd, err := s.render(DirectionBackward)
	if err != nil {
		return nil, err
	}

	return &KernelSource{
		Forward:       fwd,
		Backward:      bwd,
		ForwardEntry:  "transpose_" + DirectionForward.suffix(),
		BackwardEntry: "transpose_" + DirectionBackward.suffix(),
	}, nil
}

func (s tiledTranspose) workSizes(batch int) WorkSizes {
	tilesX := mathpkg.CeilDiv(s.cols, s.tile)
	tilesY := mathpkg.CeilDiv(s.rows, s.tile)

	return WorkSizes{
		Global: []int{tilesX * s.tile, tilesY * s.ly, batch},
		Local:  []int{s.tile, s.ly, 1},
	}
}

func (s tiledTranspose) render(dir Direction) (string, error) {
	w := &codegen.Writer{}
	lit := &literals{}
	t := s.precision.scalar()

	emitHeader(w, s.kind, dir, fmt.Sprintf("%dx%d matrix, tile %d, local %dx%d, pad %d",
		s.rows, s.cols, s.tile, s.tile, s.ly, s.pad))

	emitBuffers(w, kernelIO{src: s.in.Layout, dst: s.out.Layout, scalar: t})

	if s.twiddles {
		emitCmul(w, t)
		emitTwiddle(w, t)
	}

	w.Linef("const ROWS : u32 = %s;", codegen.Uint(s.rows))
	w.Linef("const COLS : u32 = %s;", codegen.Uint(s.cols))
	w.Linef("const TILE : u32 = %s;", codegen.Uint(s.tile))
	w.Linef("const LY : u32 = %s;", codegen.Uint(s.ly))
	w.Linef("const LDS_STRIDE : u32 = %s;", codegen.Uint(s.tile+s.pad))
	w.Linef("const IN_ROW : u32 = %s;", codegen.Uint(s.in.Strides[1]))
	w.Linef("const OUT_ROW : u32 = %s;", codegen.Uint(s.out.Strides[1]))
	w.Linef("const IN_DIST : u32 = %s;", codegen.Uint(s.in.Distance))
	w.Linef("const OUT_DIST : u32 = %s;", codegen.Uint(s.out.Distance))

	if s.twiddles {
		w.Linef("const TW_N : u32 = %s;", codegen.Uint(s.rows*s.cols))
		w.Linef("const TW_STEP : %s = %s;", t, lit.float(dir.sign()*mathpkg.TwoPi/float64(s.rows*s.cols)))
	}

	w.Blank()
	w.Linef("var<workgroup> block : array<vec2<%s>, %d>;", t, s.tile*(s.tile+s.pad))
	w.Blank()

	w.Linef("@compute @workgroup_size(%d, %d, 1)", s.tile, s.ly)
	w.Open("fn transpose_%s(@builtin(local_invocation_id) lid : vec3<u32>, @builtin(workgroup_id) wg : vec3<u32>)", dir.suffix())
	w.Line("let in_base = wg.z * IN_DIST;")
	w.Line("let out_base = wg.z * OUT_DIST;")
	w.Blank()

	w.Open("for (var k = 0u; k < TILE; k = k + LY)")
	w.Line("let r = wg.y * TILE + lid.y + k;")
	w.Line("let c = wg.x * TILE + lid.x;")
	w.Open("if (r < ROWS && c < COLS)")
	if s.twiddles {
		w.Line("let v = load_src(in_base + r * IN_ROW + c);")
		w.Linef("block[(lid.y + k) * LDS_STRIDE + lid.x] = cmul(v, twiddle(%s((r * c) %% TW_N) * TW_STEP));", t)
	} else {
		w.Line("block[(lid.y + k) * LDS_STRIDE + lid.x] = load_src(in_base + r * IN_ROW + c);")
	}
	w.Close()
	w.Close()
	w.Line("workgroupBarrier();")
	w.Blank()

	w.Open("for (var k = 0u; k < TILE; k = k + LY)")
	w.Line("let r = wg.x * TILE + lid.y + k;")
	w.Line("let c = wg.y * TILE + lid.x;")
	w.Open("if (r < COLS && c < ROWS)")
	w.Line("store_dst(out_base + r * OUT_ROW + c, block[lid.x * LDS_STRIDE + lid.y + k]);")
	w.Close()
	w.Close()
	w.Close()

	return finish(w, lit)
}
