package fftgen

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cwbudde/fftgen/gpu"
	"github.com/cwbudde/fftgen/internal/codegen"
	"github.com/cwbudde/fftgen/internal/fft"
	mathpkg "github.com/cwbudde/fftgen/internal/math"
)

// wavefront is the work-group size the Stockham generator fills by packing
// several short transforms into one group.
const wavefront = 64

// stockhamGenerator emits a single-kernel, multi-pass Stockham autosort FFT
// along the first dimension. Passes ping-pong between two local-memory
// buffers; higher dimensions and batches map onto independent transforms.
type stockhamGenerator struct{ family }

func (g stockhamGenerator) initParams(p *Plan, dev gpu.DeviceInfo) (SignatureParams, error) {
	kind := g.Generator()

	if err := checkCommon(kind, p, dev); err != nil {
		return nil, err
	}

	if !p.InputLayout.Complex() || !p.OutputLayout.Complex() {
		return nil, configErrorf(kind, "layouts %s -> %s are not complex", p.InputLayout, p.OutputLayout)
	}

	if p.inPlace() && p.InputLayout != p.OutputLayout {
		return nil, configErrorf(kind, "in-place transform cannot change layout %s -> %s", p.InputLayout, p.OutputLayout)
	}

	geo, err := resolveGeometry(p)
	if err != nil {
		return nil, configErrorf(kind, "%v", err)
	}

	if p.inPlace() {
		explicit := p.OutStrides != nil || p.OutDistance != 0
		if explicit && (geo.out.Strides != geo.in.Strides || geo.out.Distance != geo.in.Distance) {
			return nil, configErrorf(kind, "in-place output addressing %v/%d differs from input %v/%d",
				geo.out.Strides, geo.out.Distance, geo.in.Strides, geo.in.Distance)
		}
		geo.out = geo.in
	}

	n := geo.lengths[0]

	radices, ok := fft.Factorize(n, fft.StockhamRadices)
	if !ok {
		return nil, configErrorf(kind, "length %d does not factor into radices %v", n, fft.StockhamRadices)
	}

	if len(radices) > MaxPasses {
		return nil, configErrorf(kind, "length %d needs %d passes, limit is %d", n, len(radices), MaxPasses)
	}

	fwd, bwd, err := resolveScales(p, n)
	if err != nil {
		return nil, configErrorf(kind, "%v", err)
	}

	limit := localLimit(dev.MaxWorkGroupSize)
	threads := min(n/fft.LargestFactor(radices), limit)

	elem := p.Precision.complexSize()
	lds := func(tpg int) int { return 2 * n * tpg * elem }

	if dev.LocalMemSize > 0 && lds(1) > dev.LocalMemSize {
		return nil, configErrorf(kind, "length %d needs %d bytes of local memory, device has %d", n, lds(1), dev.LocalMemSize)
	}

	tpg := max(1, wavefront/threads)
	for tpg > 1 && (threads*tpg > limit || (dev.LocalMemSize > 0 && lds(tpg) > dev.LocalMemSize)) {
		tpg--
	}

	params := StockhamParams{
		Dims:                geo.dims,
		Lengths:             geo.lengths,
		In:                  geo.in,
		Out:                 geo.out,
		Precision:           p.Precision,
		InPlace:             p.inPlace(),
		Passes:              len(radices),
		ThreadsPerTransform: threads,
		TransformsPerGroup:  tpg,
		ForwardScale:        fwd,
		BackwardScale:       bwd,
	}
	copy(params.Radices[:], radices)

	return params, nil
}

func (g stockhamGenerator) generateKernel(sp SignatureParams) (*KernelSource, error) {
	p, err := paramsAs[StockhamParams](sp)
	if err != nil {
		return nil, err
	}

	fwd, err := renderStockham(p, DirectionForward)
	if err != nil {
		return nil, err
	}

	bwd, err := renderStockham(p, DirectionBackward)
	if err != nil {
		return nil, err
	}

	return &KernelSource{
		Forward:       fwd,
		Backward:      bwd,
		ForwardEntry:  stockhamEntry(DirectionForward),
		BackwardEntry: stockhamEntry(DirectionBackward),
	}, nil
}

func (g stockhamGenerator) workSizes(sp SignatureParams, plan *Plan, _ gpu.DeviceInfo) (WorkSizes, error) {
	p, err := paramsAs[StockhamParams](sp)
	if err != nil {
		return WorkSizes{}, err
	}

	higher := mathpkg.Product(p.Lengths[1:p.Dims]...)

	transforms := plan.batch() * higher
	local := p.ThreadsPerTransform * p.TransformsPerGroup
	groups := mathpkg.CeilDiv(transforms, p.TransformsPerGroup)

	return WorkSizes{
		Global: []int{groups * local},
		Local:  []int{local},
	}, nil
}

func stockhamEntry(dir Direction) string {
	if dir == DirectionBackward {
		return "fft_back"
	}
	return "fft_fwd"
}

func renderStockham(p StockhamParams, dir Direction) (string, error) {
	w := &codegen.Writer{}
	lit := &literals{}
	t := p.Precision.scalar()
	n := p.Lengths[0]
	radices := p.Radices[:p.Passes]

	scale := p.ForwardScale
	if dir == DirectionBackward {
		scale = p.BackwardScale
	}

	emitHeader(w, GeneratorStockham, dir, fmt.Sprintf("length %d, radices %s, %d threads per transform, %d transforms per group",
		n, joinInts(radices, "x"), p.ThreadsPerTransform, p.TransformsPerGroup))

	binding := emitBuffers(w, kernelIO{src: p.In.Layout, dst: p.Out.Layout, inPlace: p.InPlace, scalar: t})
	emitLaunch(w, binding)

	emitCmul(w, t)
	if p.Passes > 1 {
		emitTwiddle(w, t)
	}

	emitOffset(w, "src_offset", p.Dims, p.Lengths, p.In)
	w.Blank()
	emitOffset(w, "dst_offset", p.Dims, p.Lengths, p.Out)
	w.Blank()

	higher := mathpkg.Product(p.Lengths[1:p.Dims]...)

	w.Linef("const N : u32 = %s;", codegen.Uint(n))
	w.Linef("const THREADS : u32 = %s;", codegen.Uint(p.ThreadsPerTransform))
	w.Linef("const TRANSFORMS_PER_GROUP : u32 = %s;", codegen.Uint(p.TransformsPerGroup))
	w.Linef("const HIGHER : u32 = %s;", codegen.Uint(higher))
	w.Linef("const IN_STRIDE : u32 = %s;", codegen.Uint(p.In.Strides[0]))
	w.Linef("const OUT_STRIDE : u32 = %s;", codegen.Uint(p.Out.Strides[0]))
	w.Blank()
	w.Linef("var<workgroup> lds_a : array<vec2<%s>, %d>;", t, n*p.TransformsPerGroup)
	w.Linef("var<workgroup> lds_b : array<vec2<%s>, %d>;", t, n*p.TransformsPerGroup)
	w.Blank()

	w.Linef("@compute @workgroup_size(%d)", p.ThreadsPerTransform*p.TransformsPerGroup)
	w.Open("fn %s(@builtin(local_invocation_index) li : u32, @builtin(workgroup_id) wg : vec3<u32>)", stockhamEntry(dir))
	w.Line("let slot = li / THREADS;")
	w.Line("let tid = li % THREADS;")
	w.Line("let t = wg.x * TRANSFORMS_PER_GROUP + slot;")
	w.Line("let live = t < launch.count * HIGHER;")
	w.Line("let base = slot * N;")
	w.Blank()

	w.Open("if (live)")
	w.Line("let so = src_offset(t);")
	w.Open("for (var i = tid; i < N; i = i + THREADS)")
	w.Line("lds_a[base + i] = load_src(so + i * IN_STRIDE);")
	w.Close()
	w.Close()
	w.Line("workgroupBarrier();")

	src, dst := "lds_a", "lds_b"
	span := 1

	for k, r := range radices {
		w.Blank()
		w.Linef("// pass %d: radix %d, span %d", k, r, span)
		emitStockhamPass(w, lit, t, n, r, span, dir.sign(), src, dst)
		w.Line("workgroupBarrier();")

		src, dst = dst, src
		span *= r
	}

	w.Blank()
	w.Open("if (live)")
	w.Line("let oo = dst_offset(t);")
	w.Open("for (var i = tid; i < N; i = i + THREADS)")
	if scale != 1 {
		w.Linef("store_dst(oo + i * OUT_STRIDE, %s[base + i] * %s);", src, lit.float(scale))
	} else {
		w.Linef("store_dst(oo + i * OUT_STRIDE, %s[base + i]);", src)
	}
	w.Close()
	w.Close()
	w.Close()

	return finish(w, lit)
}

// emitStockhamPass writes one radix pass. Work-item i reads x[i + r·N/R],
// applies the twiddles of its butterfly, and writes the DFT outputs to
// (i/Ns)·Ns·R + i%Ns + s·Ns.
func emitStockhamPass(w *codegen.Writer, lit *literals, t string, n, radix, span int, sign float64, src, dst string) {
	q := n / radix

	w.Open("for (var i = tid; i < %s; i = i + THREADS)", codegen.Uint(q))

	if span > 1 {
		w.Linef("let j = i %% %s;", codegen.Uint(span))
		w.Linef("let ang = %s(j) * %s;", t, lit.float(sign*mathpkg.TwoPi/float64(span*radix)))
	}

	for r := 0; r < radix; r++ {
		idx := "base + i"
		if r > 0 {
			idx += " + " + codegen.Uint(r*q)
		}

		switch {
		case r == 0 || span == 1:
			w.Linef("let x%d = %s[%s];", r, src, idx)
		case r == 1:
			w.Linef("let x%d = cmul(%s[%s], twiddle(ang));", r, src, idx)
		default:
			w.Linef("let x%d = cmul(%s[%s], twiddle(ang * %s));", r, src, idx, lit.float(float64(r)))
		}
	}

	if span > 1 {
		w.Linef("let d = (i / %s) * %s + j;", codegen.Uint(span), codegen.Uint(span*radix))
	} else {
		w.Linef("let d = i * %s;", codegen.Uint(radix))
	}

	for s := 0; s < radix; s++ {
		at := "base + d"
		if s > 0 {
			at += " + " + codegen.Uint(s*span)
		}
		w.Linef("%s[%s] = %s;", dst, at, butterflyOutput(lit, t, radix, s, sign))
	}

	w.Close()
}

// butterflyOutput returns output s of a radix-R DFT over x0..x(R-1).
// Products with ±1 and ±i become sign flips and swizzles.
func butterflyOutput(lit *literals, t string, radix, s int, sign float64) string {
	var b strings.Builder

	b.WriteString("x0")

	for r := 1; r < radix; r++ {
		x := "x" + strconv.Itoa(r)
		re, im := mathpkg.UnitRoot(r*s, radix, sign)

		switch {
		case re == 1 && im == 0:
			b.WriteString(" + " + x)
		case re == -1 && im == 0:
			b.WriteString(" - " + x)
		case re == 0 && im == 1:
			fmt.Fprintf(&b, " + vec2<%s>(-%s.y, %s.x)", t, x, x)
		case re == 0 && im == -1:
			fmt.Fprintf(&b, " + vec2<%s>(%s.y, -%s.x)", t, x, x)
		default:
			fmt.Fprintf(&b, " + cmul(%s, vec2<%s>(%s, %s))", x, t, lit.float(re), lit.float(im))
		}
	}

	return b.String()
}

func joinInts(values []int, sep string) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, sep)
}
