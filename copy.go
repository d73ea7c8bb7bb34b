package fftgen

import (
	"fmt"

	"github.com/cwbudde/fftgen/gpu"
	"github.com/cwbudde/fftgen/internal/codegen"
	mathpkg "github.com/cwbudde/fftgen/internal/math"
)

const copyGroupSize = 64

// copyGenerator moves data between layouts. With a hermitian output the
// forward kernel keeps the first N/2+1 elements and the backward kernel
// rebuilds the full sequence from conjugate symmetry.
type copyGenerator struct{ family }

func (g copyGenerator) initParams(p *Plan, dev gpu.DeviceInfo) (SignatureParams, error) {
	kind := g.Generator()

	if err := checkCommon(kind, p, dev); err != nil {
		return nil, err
	}

	if p.inPlace() {
		return nil, configErrorf(kind, "in-place copy is not supported")
	}

	if !p.InputLayout.Complex() {
		return nil, configErrorf(kind, "input layout %s is not complex", p.InputLayout)
	}

	if !p.OutputLayout.Complex() && !p.OutputLayout.Hermitian() {
		return nil, configErrorf(kind, "output layout %s is neither complex nor hermitian", p.OutputLayout)
	}

	geo, err := resolveGeometry(p)
	if err != nil {
		return nil, configErrorf(kind, "%v", err)
	}

	return CopyParams{
		Dims:          geo.dims,
		Lengths:       geo.lengths,
		In:            geo.in,
		Out:           geo.out,
		Precision:     p.Precision,
		WorkGroupSize: min(copyGroupSize, localLimit(dev.MaxWorkGroupSize)),
	}, nil
}

func (g copyGenerator) generateKernel(sp SignatureParams) (*KernelSource, error) {
	p, err := paramsAs[CopyParams](sp)
	if err != nil {
		return nil, err
	}

	fwd, err := renderCopy(p, DirectionForward)
	if err != nil {
		return nil, err
	}

	bwd, err := renderCopy(p, DirectionBackward)
	if err != nil {
		return nil, err
	}

	return &KernelSource{
		Forward:       fwd,
		Backward:      bwd,
		ForwardEntry:  "copy_" + DirectionForward.suffix(),
		BackwardEntry: "copy_" + DirectionBackward.suffix(),
	}, nil
}

func (g copyGenerator) workSizes(sp SignatureParams, plan *Plan, _ gpu.DeviceInfo) (WorkSizes, error) {
	p, err := paramsAs[CopyParams](sp)
	if err != nil {
		return WorkSizes{}, err
	}

	transforms := plan.batch() * mathpkg.Product(p.Lengths[1:p.Dims]...)

	return WorkSizes{
		Global: []int{mathpkg.RoundUp(p.Lengths[0], p.WorkGroupSize), transforms},
		Local:  []int{p.WorkGroupSize, 1},
	}, nil
}

func renderCopy(p CopyParams, dir Direction) (string, error) {
	w := &codegen.Writer{}
	t := p.Precision.scalar()
	n := p.Lengths[0]

	// Backward copies run from the output side to the input side.
	src, dst := p.In, p.Out
	if dir == DirectionBackward {
		src, dst = p.Out, p.In
	}

	count := n
	expand := false

	if p.Out.Layout.Hermitian() {
		if dir == DirectionForward {
			count = n/2 + 1
		} else {
			expand = true
		}
	}

	higher := mathpkg.Product(p.Lengths[1:p.Dims]...)

	emitHeader(w, GeneratorCopy, dir, fmt.Sprintf("length %d, %s -> %s", n, src.Layout, dst.Layout))

	binding := emitBuffers(w, kernelIO{src: src.Layout, dst: dst.Layout, scalar: t})
	emitLaunch(w, binding)

	emitOffset(w, "src_offset", p.Dims, p.Lengths, src)
	w.Blank()
	emitOffset(w, "dst_offset", p.Dims, p.Lengths, dst)
	w.Blank()

	w.Linef("const N : u32 = %s;", codegen.Uint(n))
	w.Linef("const COUNT : u32 = %s;", codegen.Uint(count))
	w.Linef("const HIGHER : u32 = %s;", codegen.Uint(higher))
	w.Linef("const SRC_STRIDE : u32 = %s;", codegen.Uint(src.Strides[0]))
	w.Linef("const DST_STRIDE : u32 = %s;", codegen.Uint(dst.Strides[0]))
	w.Blank()

	w.Linef("@compute @workgroup_size(%d, 1)", p.WorkGroupSize)
	w.Open("fn copy_%s(@builtin(global_invocation_id) gid : vec3<u32>)", dir.suffix())
	w.Line("let i = gid.x;")
	w.Line("let t = gid.y;")
	w.Open("if (i >= COUNT || t >= launch.count * HIGHER)")
	w.Line("return;")
	w.Close()
	w.Line("let so = src_offset(t);")
	w.Line("let oo = dst_offset(t);")

	if expand {
		w.Linef("var v : vec2<%s>;", t)
		w.Open("if (i <= N / 2u)")
		w.Line("v = load_src(so + i * SRC_STRIDE);")
		w.Else()
		w.Line("let m = load_src(so + (N - i) * SRC_STRIDE);")
		w.Linef("v = vec2<%s>(m.x, -m.y);", t)
		w.Close()
		w.Line("store_dst(oo + i * DST_STRIDE, v);")
	} else {
		w.Line("store_dst(oo + i * DST_STRIDE, load_src(so + i * SRC_STRIDE));")
	}

	w.Close()

	return finish(w, nil)
}
